package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	idspkg "github.com/drblury/topicflow/internal/runtime/ids"
	metadatapkg "github.com/drblury/topicflow/internal/runtime/metadata"
	registrypkg "github.com/drblury/topicflow/internal/runtime/registry"
	schemapkg "github.com/drblury/topicflow/internal/runtime/schema"
)

// NewMessage encodes value with reg into a Watermill message. The metadata
// is copied and extended with the concrete topic, the shape tag, and the
// shape's filter string.
func NewMessage[T any](reg *registrypkg.Registry[T], value T, md metadatapkg.Metadata) (*message.Message, *schemapkg.Schema, error) {
	if reg == nil {
		return nil, nil, errspkg.ErrRegistryRequired
	}
	t, payload, shape, err := reg.EncodeShape(value)
	if err != nil {
		return nil, nil, err
	}

	md = md.WithAll(metadatapkg.Metadata{
		metadatapkg.KeyTopic:  t.String(),
		metadatapkg.KeyShape:  shape.Tag(),
		metadatapkg.KeyFilter: shape.FilterString(),
	})

	msg := message.NewMessage(idspkg.New(), payload)
	msg.Metadata = metadatapkg.ToWatermill(md)
	return msg, shape, nil
}

// Publish encodes value with reg and publishes it through the service
// transport.
func Publish[T any](ctx context.Context, svc *Service, reg *registrypkg.Registry[T], value T, md metadatapkg.Metadata) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	msg, shape, err := NewMessage(reg, value, md)
	if err != nil {
		return err
	}
	return svc.publish(ctx, msg, shape)
}

// CarrierTopic returns the broker topic a message with the given concrete
// topic and shape is published to. Transports that deliver wildcard
// subscriptions receive the concrete topic; the others receive the shape's
// filter string, which is exactly what route handlers subscribe to.
func (s *Service) CarrierTopic(concrete string, shape *schemapkg.Schema) string {
	if s.capabilities.SupportsWildcards {
		return s.topics.Topic(concrete)
	}
	return s.topics.Filter(shape.FilterString())
}

func (s *Service) publish(ctx context.Context, msg *message.Message, shape *schemapkg.Schema) error {
	if s.transport.Publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if !s.capabilities.Allows(len(msg.Payload)) {
		return fmt.Errorf("%w: %s payload is %d bytes, %s allows %d",
			errspkg.ErrMessageTooLarge, shape.Tag(), len(msg.Payload), s.capabilities.Name, s.capabilities.MaxMessageSize)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	carrier := s.CarrierTopic(msg.Metadata.Get(metadatapkg.KeyTopic), shape)

	ctx, span := s.tracer.Start(ctx, "PublishMessage",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("messaging.destination.name", carrier),
			attribute.String("topicflow.shape", shape.Tag()),
		),
	)
	defer span.End()
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))
	msg.SetContext(ctx)

	if err := s.transport.Publisher.Publish(carrier, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s to %s: %w", shape.Tag(), carrier, err)
	}
	s.metrics.onPublished(shape.Tag())
	return nil
}
