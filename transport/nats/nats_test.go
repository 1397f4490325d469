package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/topicflow/transport"
	"github.com/drblury/topicflow/transport/transporttest"
)

func TestRegister(t *testing.T) {
	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "nats", caps.Name)
	assert.True(t, caps.SupportsWildcards)
	assert.True(t, caps.SupportsTracing)
	assert.Equal(t, transport.NATSCapabilities, Capabilities())
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "sensors.lab.4", Topics.Topic("sensors/lab/4"))
	assert.Equal(t, "sensors.*.temp", Topics.Filter("sensors/+/temp"))
	assert.Equal(t, "a+b.*", Topics.Filter("a+b/+"))
	assert.Equal(t, "sensors.lab.1%2E5", Topics.Topic("sensors/lab/1.5"))
	assert.Equal(t, "hosts.db%201.*", Topics.Filter("hosts/db 1/+"))
}

func TestConnectOptions(t *testing.T) {
	assert.Len(t, ConnectOptions(), 4)
}

func stubFactories(t *testing.T, pub message.Publisher, pubErr error, sub message.Subscriber, subErr error) (*nats.PublisherConfig, *nats.SubscriberConfig) {
	t.Helper()
	originalPub, originalSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	})

	var pubCfg nats.PublisherConfig
	var subCfg nats.SubscriberConfig
	PublisherFactory = func(cfg nats.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return pub, pubErr
	}
	SubscriberFactory = func(cfg nats.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfg = cfg
		return sub, subErr
	}
	return &pubCfg, &subCfg
}

func TestBuild(t *testing.T) {
	t.Run("wires core NATS with the subject mapper", func(t *testing.T) {
		pub := &transporttest.Publisher{}
		sub := &transporttest.Subscriber{}
		pubCfg, subCfg := stubFactories(t, pub, nil, sub, nil)

		cfg := &transporttest.Config{NATSURL: "nats://localhost:4222"}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})
		require.NoError(t, err)

		assert.Same(t, pub, tr.Publisher)
		assert.Same(t, sub, tr.Subscriber)
		assert.Equal(t, Topics, tr.Mapper())

		assert.Equal(t, "nats://localhost:4222", pubCfg.URL)
		assert.Equal(t, "nats://localhost:4222", subCfg.URL)
		assert.True(t, pubCfg.JetStream.Disabled)
		assert.True(t, subCfg.JetStream.Disabled)
		assert.Len(t, pubCfg.NatsOptions, len(ConnectOptions()))
		assert.NotNil(t, pubCfg.Marshaler)
		assert.NotNil(t, subCfg.Unmarshaler)
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		stubFactories(t, nil, errors.New("publisher error"), nil, nil)

		_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "publisher error")
	})

	t.Run("closes the publisher when subscriber factory fails", func(t *testing.T) {
		pub := &transporttest.Publisher{}
		stubFactories(t, pub, nil, nil, errors.New("subscriber error"))

		_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "subscriber error")
		assert.Equal(t, 1, pub.Closed())
	})
}
