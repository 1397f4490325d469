package http

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	watermillhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
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
	assert.Equal(t, "http", caps.Name)
	assert.False(t, caps.SupportsWildcards)
	assert.Equal(t, transport.HTTPCapabilities, Capabilities())
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "/sensors/lab/4", Topics.Topic("sensors/lab/4"))
	assert.Equal(t, "/sensors/_/_", Topics.Filter("sensors/+/+"))
}

func TestMarshalFunc(t *testing.T) {
	marshal := MarshalFunc("http://localhost:8080/")
	msg := message.NewMessage(watermill.NewUUID(), []byte(`"payload1"`))

	req, err := marshal(Topics.Filter("+/+"), msg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/_/_", req.URL.String())
	assert.Equal(t, "POST", req.Method)
}

func TestBuild(t *testing.T) {
	originalPub, originalSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	})

	cfg := &transporttest.Config{HTTPServerAddress: ":8080", HTTPPublisherURL: "http://localhost:8080"}

	t.Run("creates transport with mocked factories", func(t *testing.T) {
		pub := &transporttest.Publisher{}
		sub := &transporttest.Subscriber{}
		PublisherFactory = func(c watermillhttp.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
			assert.NotNil(t, c.MarshalMessageFunc)
			return pub, nil
		}
		SubscriberFactory = func(addr string, _ watermillhttp.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, ":8080", addr)
			return sub, nil
		}

		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})
		require.NoError(t, err)
		assert.Same(t, pub, tr.Publisher)
		assert.Same(t, sub, tr.Subscriber)
		assert.Equal(t, Topics, tr.Mapper())
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		PublisherFactory = func(watermillhttp.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := Build(context.Background(), cfg, watermill.NopLogger{})
		assert.ErrorContains(t, err, "publisher error")
	})

	t.Run("closes the publisher when subscriber factory fails", func(t *testing.T) {
		pub := &transporttest.Publisher{}
		PublisherFactory = func(watermillhttp.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return pub, nil
		}
		SubscriberFactory = func(string, watermillhttp.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := Build(context.Background(), cfg, watermill.NopLogger{})
		assert.ErrorContains(t, err, "subscriber error")
		assert.Equal(t, 1, pub.Closed())
	})
}
