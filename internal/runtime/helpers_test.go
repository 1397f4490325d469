package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/topicflow/internal/runtime/config"
	loggingpkg "github.com/drblury/topicflow/internal/runtime/logging"
	registrypkg "github.com/drblury/topicflow/internal/runtime/registry"
	schemapkg "github.com/drblury/topicflow/internal/runtime/schema"
	"github.com/drblury/topicflow/transport"
	"github.com/drblury/topicflow/transport/transporttest"
)

type event interface{ isEvent() }

type reading struct {
	Site  string  `topic:"site"`
	ID    uint32  `topic:"id"`
	Value float64 `topic:"value"`
}

type alert struct {
	Site    string `topic:"site"`
	Message string `topic:"message"`
}

func (reading) isEvent() {}
func (alert) isEvent()   {}

func events() *registrypkg.Registry[event] {
	return registrypkg.MustBuild[event](
		schemapkg.Describe[reading]("sensors/<site>/<id>", schemapkg.WithPayload("<value>"), schemapkg.WithTag("Reading")),
		schemapkg.Describe[alert]("alerts/<site>", schemapkg.WithPayload("<message>"), schemapkg.WithTag("Alert")),
	)
}

func newTestService(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) *Service {
	t.Helper()
	if conf == nil {
		conf = &configpkg.Config{}
	}
	if deps.MetricsRegisterer == nil {
		deps.MetricsRegisterer = prometheus.NewRegistry()
	}
	svc, err := TryNewService(conf, loggingpkg.Discard(), context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// startService runs svc until the test ends.
func startService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Start(ctx) }()
	select {
	case <-svc.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

// fakeTransports returns a registry with a single "fake" transport backed
// by pub and sub.
func fakeTransports(caps transport.Capabilities, pub *transporttest.Publisher, sub *transporttest.Subscriber) *transport.Registry {
	reg := transport.NewRegistry()
	reg.RegisterWithCapabilities("fake", func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Transport, error) {
		return transport.Transport{
			Publisher:  pub,
			Subscriber: sub,
			Topics:     transport.Separators{Level: ".", Wildcard: "*"},
		}, nil
	}, caps)
	return reg
}

func receive[V any](t *testing.T, ch <-chan V) V {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero V
	return zero
}

// receiveMessage reads and acknowledges one message.
func receiveMessage(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	msg := receive(t, ch)
	msg.Ack()
	return msg
}
