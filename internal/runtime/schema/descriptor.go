package schema

import (
	"reflect"

	"github.com/drblury/topicflow/internal/runtime/payload"
)

// Descriptor describes one shape: its tag, declared fields, topic pattern and
// optional payload binding. It is the input to Build.
type Descriptor struct {
	Tag        string
	Type       reflect.Type
	Fields     []Field
	Positional bool
	// Topic is the pattern string, e.g. "sensors/<site>/<id>".
	Topic string
	// Payload references the payload field as "<name>". Empty means the shape
	// has no payload.
	Payload string
	Codec   payload.Codec
	Binder  Binder
}

// Option customises a descriptor built by Describe.
type Option func(*Descriptor)

// WithTag overrides the shape tag, which defaults to the Go type name.
func WithTag(tag string) Option {
	return func(d *Descriptor) { d.Tag = tag }
}

// WithPayload binds the referenced field ("<name>") to the payload.
func WithPayload(ref string) Option {
	return func(d *Descriptor) { d.Payload = ref }
}

// WithCodec sets the payload codec.
func WithCodec(codec payload.Codec) Option {
	return func(d *Descriptor) { d.Codec = codec }
}

// Positional names struct fields by their index instead of their name.
func Positional() Option {
	return func(d *Descriptor) { d.Positional = true }
}

// Describe builds the descriptor of the Go type V. Struct fields are named by
// their `topic` struct tag, falling back to the Go field name; a field tagged
// `topic:"-"` is left out. Any other type is a positional shape with the
// single field "0".
func Describe[V any](topicPattern string, opts ...Option) Descriptor {
	d := Descriptor{Topic: topicPattern}
	for _, opt := range opts {
		opt(&d)
	}

	typ := reflect.TypeFor[V]()
	binder := newReflectBinder(typ, d.Positional)
	d.Type = typ
	d.Fields = binder.fields
	d.Binder = binder
	if binder.base.Kind() != reflect.Struct {
		d.Positional = true
	}
	if d.Tag == "" {
		d.Tag = binder.base.Name()
	}
	if d.Tag == "" {
		d.Tag = typ.String()
	}
	return d
}

// DescribeMessage builds the descriptor of a dynamic shape whose values are
// *Message.
func DescribeMessage(tag, topicPattern, payloadRef string, fields []Field, codec payload.Codec) Descriptor {
	return Descriptor{
		Tag:     tag,
		Type:    MessageType,
		Fields:  fields,
		Topic:   topicPattern,
		Payload: payloadRef,
		Codec:   codec,
		Binder:  MessageBinder(tag, fields),
	}
}
