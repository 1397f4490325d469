package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/topicflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/topicflow/internal/runtime/metadata"
)

// RouteEvent describes one message passing through a route handler.
type RouteEvent struct {
	// HandlerName is the name the route handler was registered with.
	HandlerName string
	// Topic is the concrete topic of the message.
	Topic string
	// Shape is the tag of the decoded shape. Empty for unrecognized messages.
	Shape string
	// MessageUUID is the unique identifier of the message.
	MessageUUID string
	// Metadata contains the message metadata.
	Metadata metadatapkg.Metadata
	// Context is the context associated with the message.
	Context context.Context
	// StartedAt is when the message was received by the handler.
	StartedAt time.Time
	// Duration is how long the handler took (only set in OnHandled and OnError).
	Duration time.Duration
}

// RouteHooks defines callbacks for the routing lifecycle of a message.
// All hooks are optional.
type RouteHooks struct {
	// OnDecoded is called after a shape accepted the message and before the
	// handler runs.
	OnDecoded func(ev RouteEvent)

	// OnUnrecognized is called when no shape accepted the message. The error
	// matches ErrInvalid.
	OnUnrecognized func(ev RouteEvent, err error)

	// OnHandled is called after the handler returned and its outputs were
	// published.
	OnHandled func(ev RouteEvent)

	// OnError is called when the handler or publishing its outputs failed.
	OnError func(ev RouteEvent, err error)
}

// Merge combines two RouteHooks. The hooks from other run after the hooks
// from h.
func (h RouteHooks) Merge(other RouteHooks) RouteHooks {
	return RouteHooks{
		OnDecoded:      chainEventHooks(h.OnDecoded, other.OnDecoded),
		OnUnrecognized: chainErrorHooks(h.OnUnrecognized, other.OnUnrecognized),
		OnHandled:      chainEventHooks(h.OnHandled, other.OnHandled),
		OnError:        chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainEventHooks(a, b func(RouteEvent)) func(RouteEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ev RouteEvent) {
		a(ev)
		b(ev)
	}
}

func chainErrorHooks(a, b func(RouteEvent, error)) func(RouteEvent, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ev RouteEvent, err error) {
		a(ev, err)
		b(ev, err)
	}
}

func (h RouteHooks) decoded(ev RouteEvent) {
	if h.OnDecoded != nil {
		h.OnDecoded(ev)
	}
}

func (h RouteHooks) unrecognized(ev RouteEvent, err error) {
	if h.OnUnrecognized != nil {
		h.OnUnrecognized(ev, err)
	}
}

func (h RouteHooks) handled(ev RouteEvent) {
	if h.OnHandled != nil {
		h.OnHandled(ev)
	}
}

func (h RouteHooks) failed(ev RouteEvent, err error) {
	if h.OnError != nil {
		h.OnError(ev, err)
	}
}

// LoggingHooks returns hooks that log the routing lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) RouteHooks {
	return RouteHooks{
		OnDecoded: func(ev RouteEvent) {
			logger.Debug("Message decoded", loggingpkg.LogFields{
				"handler":      ev.HandlerName,
				"topic":        ev.Topic,
				"shape":        ev.Shape,
				"message_uuid": ev.MessageUUID,
			})
		},
		OnUnrecognized: func(ev RouteEvent, err error) {
			logger.Info("Message not recognized", loggingpkg.LogFields{
				"handler":      ev.HandlerName,
				"topic":        ev.Topic,
				"message_uuid": ev.MessageUUID,
				"reason":       err.Error(),
			})
		},
		OnHandled: func(ev RouteEvent) {
			logger.Info("Message handled", loggingpkg.LogFields{
				"handler":      ev.HandlerName,
				"topic":        ev.Topic,
				"shape":        ev.Shape,
				"message_uuid": ev.MessageUUID,
				"duration_ms":  ev.Duration.Milliseconds(),
			})
		},
		OnError: func(ev RouteEvent, err error) {
			logger.Error("Message handler failed", err, loggingpkg.LogFields{
				"handler":      ev.HandlerName,
				"topic":        ev.Topic,
				"shape":        ev.Shape,
				"message_uuid": ev.MessageUUID,
				"duration_ms":  ev.Duration.Milliseconds(),
			})
		},
	}
}

// AlertingHooks returns hooks that call alertFunc when a handler fails.
func AlertingHooks(alertFunc func(ev RouteEvent, err error)) RouteHooks {
	return RouteHooks{
		OnError: alertFunc,
	}
}
