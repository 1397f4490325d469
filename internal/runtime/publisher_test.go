package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/topicflow/internal/runtime/config"
	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	idspkg "github.com/drblury/topicflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/topicflow/internal/runtime/metadata"
	"github.com/drblury/topicflow/transport"
	natstransport "github.com/drblury/topicflow/transport/nats"
	"github.com/drblury/topicflow/transport/transporttest"
)

type unregistered struct{}

func (unregistered) isEvent() {}

func newFakeService(t *testing.T, caps transport.Capabilities) (*Service, *transporttest.Publisher) {
	t.Helper()
	pub := &transporttest.Publisher{}
	caps.Name = "fake"
	svc := newTestService(t, &configpkg.Config{PubSubSystem: "fake"}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
		Transports:                fakeTransports(caps, pub, &transporttest.Subscriber{}),
	})
	return svc, pub
}

func TestPublishCarrierTopic(t *testing.T) {
	tests := []struct {
		name string
		caps transport.Capabilities
		want string
	}{
		{"wildcard transports receive the concrete topic", transport.Capabilities{SupportsWildcards: true}, "sensors.lab.4"},
		{"exact transports receive the filter string", transport.Capabilities{}, "sensors.*.*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newFakeService(t, tt.caps)

			err := Publish(context.Background(), svc, events(), event(reading{Site: "lab", ID: 4, Value: 21.5}), metadatapkg.New("tenant", "a"))
			require.NoError(t, err)

			assert.Equal(t, []string{tt.want}, pub.Topics())
			msgs := pub.Published(tt.want)
			require.Len(t, msgs, 1)
			assert.Equal(t, "21.5", string(msgs[0].Payload))
			assert.True(t, idspkg.Valid(msgs[0].UUID))
			assert.Equal(t, "sensors/lab/4", msgs[0].Metadata.Get(metadatapkg.KeyTopic))
			assert.Equal(t, "Reading", msgs[0].Metadata.Get(metadatapkg.KeyShape))
			assert.Equal(t, "sensors/+/+", msgs[0].Metadata.Get(metadatapkg.KeyFilter))
			assert.Equal(t, "a", msgs[0].Metadata.Get("tenant"))
		})
	}
}

func TestPublishRejectsOversizedPayloads(t *testing.T) {
	svc, pub := newFakeService(t, transport.Capabilities{MaxMessageSize: 2})

	err := Publish(context.Background(), svc, events(), event(reading{Site: "lab", ID: 4, Value: 21.5}), nil)
	assert.ErrorIs(t, err, errspkg.ErrMessageTooLarge)
	assert.Empty(t, pub.Topics())

	require.NoError(t, Publish(context.Background(), svc, events(), event(reading{Site: "lab", ID: 4, Value: 1}), nil))
}

func TestPublishErrors(t *testing.T) {
	svc, pub := newFakeService(t, transport.Capabilities{})

	assert.ErrorIs(t, Publish(context.Background(), nil, events(), event(alert{}), nil), errspkg.ErrServiceRequired)
	assert.ErrorIs(t, Publish(context.Background(), svc, nil, event(alert{}), nil), errspkg.ErrRegistryRequired)

	err := Publish(context.Background(), svc, events(), event(unregistered{}), nil)
	var unknown *errspkg.UnknownShapeError
	assert.ErrorAs(t, err, &unknown)

	boom := errors.New("broker down")
	pub.Err = boom
	err = Publish(context.Background(), svc, events(), event(alert{Site: "lab", Message: "x"}), nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "publish Alert to alerts.*")
}

func TestNewMessageLeavesMetadataUntouched(t *testing.T) {
	md := metadatapkg.New("tenant", "a")
	msg, shape, err := NewMessage(events(), event(alert{Site: "lab", Message: "x"}), md)
	require.NoError(t, err)

	assert.Equal(t, "Alert", shape.Tag())
	assert.Equal(t, `"x"`, string(msg.Payload))
	assert.Equal(t, metadatapkg.Metadata{"tenant": "a"}, md)
	assert.Equal(t, "alerts/lab", msg.Metadata.Get(metadatapkg.KeyTopic))
}

func TestCarrierTopicUsesTransportMapper(t *testing.T) {
	svc := newTestService(t, &configpkg.Config{PubSubSystem: "nats", NATSURL: "nats://localhost:4222"}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
		Transport: &transport.Transport{
			Publisher:  &transporttest.Publisher{},
			Subscriber: &transporttest.Subscriber{},
			Topics:     transport.Separators{Level: ".", Wildcard: "*"},
		},
	})
	shape, ok := events().Lookup("Reading")
	require.True(t, ok)
	assert.Equal(t, "sensors.lab.4", svc.CarrierTopic("sensors/lab/4", shape))
}

func TestCarrierTopicKeepsDottedLayersInOneToken(t *testing.T) {
	svc := newTestService(t, &configpkg.Config{PubSubSystem: "nats", NATSURL: "nats://localhost:4222"}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
		Transport: &transport.Transport{
			Publisher:  &transporttest.Publisher{},
			Subscriber: &transporttest.Subscriber{},
			Topics:     natstransport.Topics,
		},
	})
	shape, ok := events().Lookup("Reading")
	require.True(t, ok)

	carrier := svc.CarrierTopic("sensors/lab.1.5/4", shape)
	subject := natstransport.Topics.Filter(shape.FilterString())
	assert.Equal(t, "sensors.lab%2E1%2E5.4", carrier)
	assert.Equal(t, "sensors.*.*", subject)
	assert.Equal(t, strings.Count(subject, "."), strings.Count(carrier, "."))
}
