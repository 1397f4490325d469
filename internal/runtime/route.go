package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/topicflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/topicflow/internal/runtime/metadata"
	registrypkg "github.com/drblury/topicflow/internal/runtime/registry"
	schemapkg "github.com/drblury/topicflow/internal/runtime/schema"
	topicpkg "github.com/drblury/topicflow/internal/runtime/topic"
)

// RouteContext is a decoded message handed to a RouteHandler.
type RouteContext[T any] struct {
	Value    T
	Shape    *schemapkg.Schema
	Topic    topicpkg.Topic
	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
	Message  *message.Message
}

// CloneMetadata returns a copy of the inbound metadata.
func (c RouteContext[T]) CloneMetadata() metadatapkg.Metadata {
	return c.Metadata.Clone()
}

// Get returns the metadata value for key.
func (c RouteContext[T]) Get(key string) string {
	return c.Metadata[key]
}

// CorrelationID returns the correlation identifier of the inbound message.
func (c RouteContext[T]) CorrelationID() string {
	return c.Metadata[metadatapkg.KeyCorrelationID]
}

// RouteOutput is a value a handler wants published. Nil Metadata inherits
// the inbound metadata. The correlation id is always carried over.
type RouteOutput[T any] struct {
	Value    T
	Metadata metadatapkg.Metadata
}

// RouteHandler processes one decoded message. Returned outputs are encoded
// with the same registry and published once the handler succeeds.
type RouteHandler[T any] func(ctx context.Context, msg RouteContext[T]) ([]RouteOutput[T], error)

// RouteHandlerRegistration describes a handler fed by every shape of a
// registry.
type RouteHandlerRegistration[T any] struct {
	Name     string
	Registry *registrypkg.Registry[T]
	Handler  RouteHandler[T]
	Hooks    RouteHooks
	// Subscriber defaults to the service subscriber.
	Subscriber message.Subscriber
}

// RegisterRouteHandler subscribes to every filter string of the registry and
// routes decoded messages to the handler. Each filter gets its own router
// handler named "<Name>[<filter>]".
func RegisterRouteHandler[T any](svc *Service, cfg RouteHandlerRegistration[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Registry == nil {
		return errspkg.ErrRegistryRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}
	sub := cfg.Subscriber
	if sub == nil {
		sub = svc.transport.Subscriber
	}
	if sub == nil {
		return errspkg.ErrSubscriberRequired
	}

	filters := cfg.Registry.AllFilterStrings()
	if len(filters) == 0 {
		return fmt.Errorf("%w: %s has no shapes", errspkg.ErrRegistryRequired, cfg.Name)
	}
	if err := svc.reserveHandlerName(cfg.Name); err != nil {
		return err
	}

	r := &route[T]{
		svc:      svc,
		name:     cfg.Name,
		registry: cfg.Registry,
		handler:  cfg.Handler,
		hooks:    svc.hooks.Merge(cfg.Hooks),
		logger:   svc.Logger.With(loggingpkg.LogFields{"handler": cfg.Name}),
	}
	for _, filter := range filters {
		svc.router.AddConsumerHandler(
			fmt.Sprintf("%s[%s]", cfg.Name, filter),
			svc.topics.Filter(filter),
			sub,
			r.handle,
		)
	}
	return nil
}

func (s *Service) reserveHandlerName(name string) error {
	s.handlerNamesMu.Lock()
	defer s.handlerNamesMu.Unlock()
	if _, ok := s.handlerNames[name]; ok {
		return fmt.Errorf("topicflow: handler %q is already registered", name)
	}
	s.handlerNames[name] = struct{}{}
	return nil
}

type route[T any] struct {
	svc      *Service
	name     string
	registry *registrypkg.Registry[T]
	handler  RouteHandler[T]
	hooks    RouteHooks
	logger   loggingpkg.ServiceLogger
}

func (r *route[T]) handle(msg *message.Message) error {
	started := time.Now()
	md := metadatapkg.FromWatermill(msg.Metadata)
	raw := inboundTopic(msg, md)

	ev := RouteEvent{
		HandlerName: r.name,
		Topic:       raw,
		MessageUUID: msg.UUID,
		Metadata:    md,
		Context:     msg.Context(),
		StartedAt:   started,
	}

	t := topicpkg.FromString(raw)
	value, shape, err := r.registry.DecodeShape(t, msg.Payload)
	if err != nil {
		return r.unrecognized(msg, ev, err)
	}

	ev.Shape = shape.Tag()
	r.svc.metrics.onDecoded(r.name, shape.Tag())
	r.hooks.decoded(ev)

	outputs, err := r.handler(msg.Context(), RouteContext[T]{
		Value:    value,
		Shape:    shape,
		Topic:    t,
		Metadata: md,
		Logger:   r.logger,
		Message:  msg,
	})
	if err == nil {
		err = r.publishOutputs(msg.Context(), outputs, md)
	}
	ev.Duration = time.Since(started)
	if err != nil {
		r.hooks.failed(ev, err)
		return err
	}
	r.hooks.handled(ev)
	return nil
}

// inboundTopic prefers the concrete topic recorded by the publisher and
// falls back to the topic the message was received on.
func inboundTopic(msg *message.Message, md metadatapkg.Metadata) string {
	if t, ok := md.Topic(); ok && t != "" {
		return t
	}
	return message.SubscribeTopicFromCtx(msg.Context())
}

// unrecognized logs and acknowledges a message no shape accepted, forwarding
// it to the unrecognized queue when one is configured.
func (r *route[T]) unrecognized(msg *message.Message, ev RouteEvent, cause error) error {
	r.logger.Debug("Message not recognized", loggingpkg.LogFields{
		"topic":        ev.Topic,
		"message_uuid": msg.UUID,
		"reason":       cause.Error(),
	})
	r.svc.metrics.onUnrecognized(r.name)
	r.hooks.unrecognized(ev, cause)

	queue := r.svc.Conf.UnrecognizedQueue
	if queue == "" {
		return nil
	}
	fwd := msg.Copy()
	fwd.Metadata.Set(metadatapkg.KeyUnrecognizedReason, cause.Error())
	if fwd.Metadata.Get(metadatapkg.KeyTopic) == "" {
		fwd.Metadata.Set(metadatapkg.KeyTopic, ev.Topic)
	}
	target := r.svc.topics.Topic(queue)
	if err := r.svc.transport.Publisher.Publish(target, fwd); err != nil {
		return fmt.Errorf("forward unrecognized message to %s: %w", target, err)
	}
	return nil
}

func (r *route[T]) publishOutputs(ctx context.Context, outputs []RouteOutput[T], inbound metadatapkg.Metadata) error {
	for _, out := range outputs {
		md := out.Metadata
		if md == nil {
			md = inbound
		}
		if id := inbound[metadatapkg.KeyCorrelationID]; id != "" && md[metadatapkg.KeyCorrelationID] == "" {
			md = md.With(metadatapkg.KeyCorrelationID, id)
		}
		msg, shape, err := NewMessage(r.registry, out.Value, md)
		if err != nil {
			return fmt.Errorf("encode output of %s: %w", r.name, err)
		}
		if err := r.svc.publish(ctx, msg, shape); err != nil {
			return err
		}
	}
	return nil
}
