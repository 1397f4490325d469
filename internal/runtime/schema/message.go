package schema

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Message is a dynamic shape value used when shapes come from a description
// file instead of Go types.
type Message struct {
	Tag    string
	Fields map[string]any
}

// MessageType is the Go type of dynamic shape values.
var MessageType = reflect.TypeFor[*Message]()

// NewMessage returns a message for the shape tag.
func NewMessage(tag string, fields map[string]any) *Message {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Message{Tag: tag, Fields: fields}
}

// Get returns the named field.
func (m *Message) Get(name string) (any, bool) {
	v, ok := m.Fields[name]
	return v, ok
}

// Set assigns the named field and returns m.
func (m *Message) Set(name string, value any) *Message {
	if m.Fields == nil {
		m.Fields = map[string]any{}
	}
	m.Fields[name] = value
	return m
}

func (m *Message) String() string {
	return fmt.Sprintf("%s%v", m.Tag, m.Fields)
}

// FieldNames returns the field names in sorted order.
func (m *Message) FieldNames() []string {
	return slices.Sorted(maps.Keys(m.Fields))
}

type messageBinder struct {
	tag    string
	fields []Field
}

// MessageBinder binds dynamic messages carrying the given tag.
func MessageBinder(tag string, fields []Field) Binder {
	return &messageBinder{tag: tag, fields: fields}
}

func (b *messageBinder) Get(v any, ref FieldRef) (any, error) {
	m, ok := v.(*Message)
	if !ok || m == nil {
		return nil, fmt.Errorf("expected *schema.Message, got %T", v)
	}
	if m.Tag != b.tag {
		return nil, fmt.Errorf("message tag %q does not match shape %q", m.Tag, b.tag)
	}
	value, ok := m.Fields[ref.Name]
	if !ok {
		return nil, nil
	}
	if ref.Index < 0 || ref.Index >= len(b.fields) {
		return value, nil
	}
	rv, err := assignable(value, b.fields[ref.Index].Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", ref.Name, err)
	}
	return rv.Interface(), nil
}

func (b *messageBinder) Build(values []any) (any, error) {
	if len(values) != len(b.fields) {
		return nil, fmt.Errorf("expected %d field values, got %d", len(b.fields), len(values))
	}
	m := NewMessage(b.tag, make(map[string]any, len(values)))
	for i, f := range b.fields {
		m.Fields[f.Ref.Name] = values[i]
	}
	return m, nil
}
