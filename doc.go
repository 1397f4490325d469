// Package topicflow routes typed messages over hierarchical topics. A shape
// binds the fields of a Go type to the layers of a topic pattern such as
// "sensors/<site>/<id>" and, optionally, to the message payload. A Registry
// collects shapes for one message type, rejects shapes whose topics could
// collide, and then encodes values into topics and payloads and decodes them
// back, trying the most specific shape first.
//
// Service hosts a Watermill router on top of a registry. It reads the target
// transport (Kafka, RabbitMQ, AWS SNS/SQS, NATS, HTTP, I/O, or Go Channels)
// from Config, subscribes route handlers to every filter string of their
// registry, and publishes handler outputs back through the same transport.
// A minimal setup therefore involves describing the shapes, filling Config,
// creating a Service, registering a route handler, and calling Start.
//
// # Transports
//
// Transports live in their own packages under transport/ and register
// themselves with the transport registry:
//   - channel: In-memory Go channels for testing
//   - kafka: High-throughput streaming with consumer groups
//   - rabbitmq: AMQP topic exchanges
//   - aws: AWS SNS/SQS with LocalStack support
//   - nats: Subject based messaging with native wildcards
//   - http: Request/response messaging
//   - io: File-based persistence
//
// Transports that deliver wildcard subscriptions receive concrete topics.
// The others receive the shape's filter string and the concrete topic rides
// in the topicflow_topic metadata key.
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, poison queue forwarding,
// retry with exponential backoff, and panic recovery. Custom middleware can be
// added via ServiceDependencies.Middlewares.
//
// # Hooks
//
// RouteHooks observe each message: OnDecoded, OnUnrecognized, OnHandled and
// OnError. LoggingHooks and AlertingHooks cover the common cases and Merge
// combines several hook sets.
package topicflow
