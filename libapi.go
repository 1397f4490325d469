package topicflow

import (
	"context"

	runtimepkg "github.com/drblury/topicflow/internal/runtime"
	configpkg "github.com/drblury/topicflow/internal/runtime/config"
	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	idspkg "github.com/drblury/topicflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/topicflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/topicflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/topicflow/internal/runtime/metadata"
	patternpkg "github.com/drblury/topicflow/internal/runtime/pattern"
	payloadpkg "github.com/drblury/topicflow/internal/runtime/payload"
	registrypkg "github.com/drblury/topicflow/internal/runtime/registry"
	schemapkg "github.com/drblury/topicflow/internal/runtime/schema"
	topicpkg "github.com/drblury/topicflow/internal/runtime/topic"
	transportpkg "github.com/drblury/topicflow/transport"

	"github.com/ThreeDotsLabs/watermill/message"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	// Topics, patterns and shapes
	Topic            = topicpkg.Topic
	TopicTree        = topicpkg.Tree
	Pattern          = patternpkg.Pattern
	Schema           = schemapkg.Schema
	Descriptor       = schemapkg.Descriptor
	DescriptorOption = schemapkg.Option
	Field            = schemapkg.Field
	Registry[T any]  = registrypkg.Registry[T]
	Message          = schemapkg.Message
	Description      = schemapkg.Description
	ShapeDescription = schemapkg.ShapeDescription
	PayloadCodec     = payloadpkg.Codec
	JSONCodec        = payloadpkg.JSON
	RawCodec         = payloadpkg.Raw
	OptionalCodec    = payloadpkg.Optional
	ProtoJSONCodec   = payloadpkg.ProtoJSON

	RouteContext[T any]             = runtimepkg.RouteContext[T]
	RouteOutput[T any]              = runtimepkg.RouteOutput[T]
	RouteHandler[T any]             = runtimepkg.RouteHandler[T]
	RouteHandlerRegistration[T any] = runtimepkg.RouteHandlerRegistration[T]
	RouteEvent                      = runtimepkg.RouteEvent
	RouteHooks                      = runtimepkg.RouteHooks

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	ConfigValidationError = errspkg.ConfigValidationError
	InvalidMessageError   = errspkg.InvalidMessageError
	AmbiguousTopicError   = errspkg.AmbiguousTopicError
	UnknownShapeError     = errspkg.UnknownShapeError

	// Modular transports
	Transport             = transportpkg.Transport
	TransportBuilder      = transportpkg.Builder
	TransportConfig       = transportpkg.Config
	TransportRegistry     = transportpkg.Registry
	TransportCapabilities = transportpkg.Capabilities
	TopicMapper           = transportpkg.TopicMapper
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig
	LoadConfig     = configpkg.Load
	ParseConfig    = configpkg.Parse

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	LoggingHooks  = runtimepkg.LoggingHooks
	AlertingHooks = runtimepkg.AlertingHooks

	ParseTopic        = topicpkg.FromString
	ParsePattern      = patternpkg.Parse
	MustParsePattern  = patternpkg.MustParse
	WithTag           = schemapkg.WithTag
	WithPayload       = schemapkg.WithPayload
	WithCodec         = schemapkg.WithCodec
	Positional        = schemapkg.Positional
	DescribeMessage   = schemapkg.DescribeMessage
	NewDynamicMessage = schemapkg.NewMessage
	ParseDescription  = schemapkg.ParseDescription
	LoadDescription   = schemapkg.LoadDescription
	LoadMessages      = registrypkg.LoadMessages
	RegisterCodec     = payloadpkg.Register
	LookupCodec       = payloadpkg.Lookup

	GetCapabilities          = transportpkg.GetCapabilities
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	MatchFilter              = transportpkg.MatchFilter

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired     = errspkg.ErrServiceRequired
	ErrHandlerRequired     = errspkg.ErrHandlerRequired
	ErrHandlerNameRequired = errspkg.ErrHandlerNameRequired
	ErrRegistryRequired    = errspkg.ErrRegistryRequired
	ErrPublisherRequired   = errspkg.ErrPublisherRequired
	ErrSubscriberRequired  = errspkg.ErrSubscriberRequired
	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrLoggerRequired      = errspkg.ErrLoggerRequired
	ErrMessageTooLarge     = errspkg.ErrMessageTooLarge
	ErrInvalid             = errspkg.ErrInvalid
	ErrNotUTF8             = errspkg.ErrNotUTF8
	ErrEmptyTopicLayer     = errspkg.ErrEmptyTopicLayer
	ErrRegistryFinalized   = errspkg.ErrRegistryFinalized

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMetadata = metadatapkg.New

	NewULID = idspkg.New
)

// Metadata keys reserved by topicflow.
const (
	MetadataKeyTopic              = metadatapkg.KeyTopic
	MetadataKeyShape              = metadatapkg.KeyShape
	MetadataKeyFilter             = metadatapkg.KeyFilter
	MetadataKeyCorrelationID      = metadatapkg.KeyCorrelationID
	MetadataKeyUnrecognizedReason = metadatapkg.KeyUnrecognizedReason
)

// Describe declares the shape of V on topicPattern.
func Describe[V any](topicPattern string, opts ...DescriptorOption) Descriptor {
	return schemapkg.Describe[V](topicPattern, opts...)
}

// NewRegistry returns an empty registry for messages of type T.
func NewRegistry[T any]() *Registry[T] {
	return registrypkg.New[T]()
}

// Build registers every descriptor in a new registry and finalizes it.
func Build[T any](descs ...Descriptor) (*Registry[T], error) {
	return registrypkg.Build[T](descs...)
}

// MustBuild is Build that panics on a registration error.
func MustBuild[T any](descs ...Descriptor) *Registry[T] {
	return registrypkg.MustBuild[T](descs...)
}

// PayloadHooks builds a payload codec from a pair of functions.
func PayloadHooks[V any](name string, serialize func(V) ([]byte, error), deserialize func([]byte) (V, error)) PayloadCodec {
	return payloadpkg.Hooks(name, serialize, deserialize)
}

func RegisterRouteHandler[T any](svc *Service, cfg RouteHandlerRegistration[T]) error {
	return runtimepkg.RegisterRouteHandler(svc, cfg)
}

func Publish[T any](ctx context.Context, svc *Service, reg *Registry[T], value T, md Metadata) error {
	return runtimepkg.Publish(ctx, svc, reg, value, md)
}

func NewMessage[T any](reg *Registry[T], value T, md Metadata) (*message.Message, *Schema, error) {
	return runtimepkg.NewMessage(reg, value, md)
}

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
