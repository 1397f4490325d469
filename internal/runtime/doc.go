/*
Package runtime hosts topicflow services: a Watermill router fed by shape
registries.

# Architecture Overview

A shape describes how a typed value is laid out on a topic and in a payload.
Registries (see the registry sub-package) collect shapes, decode inbound
topics into values, and encode values back into topics and payloads. The
Service connects registries to a transport and runs typed handlers.

## Core Service (service.go)

The Service struct wires together:
  - Message router (Watermill)
  - The transport publisher and subscriber
  - Middleware chain
  - HTTP servers for metrics
  - The optional dynamic registry loaded from Config.SchemaFile

## Routing (route.go, publisher.go)

RegisterRouteHandler subscribes to every filter string of a registry. Each
message is decoded by the registry; the handler receives the typed value and
returns values to publish. Messages no shape accepts are logged and
acknowledged, or forwarded to Config.UnrecognizedQueue.

Publish encodes a value and sends it on the carrier topic: the concrete topic
on transports that deliver wildcard subscriptions, the shape's filter string
otherwise. The concrete topic always travels in the topicflow_topic metadata.

## Middleware (middleware.go)

  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of message payloads
  - Tracer: OpenTelemetry distributed tracing
  - Metrics: Prometheus metrics collection
  - PoisonQueue: Dead letter queue for failed messages
  - Retry: Exponential backoff retry logic
  - Recoverer: Panic recovery

## Hooks and metrics (hooks.go, metrics.go)

RouteHooks observe decoding and handling. Route counters are exported under
the topicflow_route_* names.

# Sub-packages

  - config/: Service configuration with validation
  - errors/: Sentinel errors and error types
  - topic/, pattern/: Topics, topic patterns and filter strings
  - payload/: Payload codecs
  - schema/: Shapes, descriptions and dynamic messages
  - registry/: Shape registries, encoding and decoding
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities

# Usage Example

	reg := topicflow.MustBuild[Event](
		topicflow.Describe[Reading]("sensors/<site>/<id>", topicflow.WithPayload("<value>")),
	)

	svc := topicflow.NewService(cfg, logger, ctx, topicflow.ServiceDependencies{})

	topicflow.RegisterRouteHandler(svc, topicflow.RouteHandlerRegistration[Event]{
		Name:     "readings",
		Registry: reg,
		Handler:  handleReading,
	})

	svc.Start(ctx)
*/
package runtime
