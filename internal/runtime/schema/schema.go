// Package schema turns a shape description into a validated Schema that can
// encode values into a topic and payload and match them back.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/pattern"
	"github.com/drblury/topicflow/internal/runtime/payload"
	"github.com/drblury/topicflow/internal/runtime/topic"
)

const noField = -1

// Schema is one validated shape. It is immutable and safe for concurrent use.
type Schema struct {
	tag      string
	typ      reflect.Type
	pattern  pattern.Pattern
	segments []pattern.Segment
	fields   []Field
	// bindings holds the field index bound to each segment, noField for
	// literals.
	bindings []int
	payload  int
	codec    payload.Codec
	binder   Binder
}

// Build validates the descriptor and returns its schema. Every declared field
// must be bound exactly once, either to a pattern parameter or to the payload.
func Build(desc Descriptor) (*Schema, error) {
	if desc.Tag == "" {
		return nil, errspkg.ErrShapeTagRequired
	}
	if desc.Binder == nil {
		return nil, fmt.Errorf("shape %s: %w", desc.Tag, errspkg.ErrBinderRequired)
	}
	if len(desc.Fields) == 0 {
		return nil, fmt.Errorf("shape %s: %w", desc.Tag, errspkg.ErrUnitShape)
	}

	byName := make(map[string]int, len(desc.Fields))
	for i, f := range desc.Fields {
		if _, dup := byName[f.Ref.Name]; dup {
			return nil, &errspkg.DuplicateFieldUseError{Shape: desc.Tag, Field: f.Ref.Name}
		}
		byName[f.Ref.Name] = i
	}

	p, err := pattern.Parse(desc.Topic)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		tag:      desc.Tag,
		typ:      desc.Type,
		pattern:  p,
		segments: p.Segments(),
		fields:   desc.Fields,
		payload:  noField,
		binder:   desc.Binder,
	}

	used := make([]bool, len(desc.Fields))
	consume := func(name string) (int, error) {
		idx, ok := byName[name]
		if !ok {
			return noField, &errspkg.UnknownFieldError{Shape: desc.Tag, Field: name}
		}
		if used[idx] {
			return noField, &errspkg.DuplicateFieldUseError{Shape: desc.Tag, Field: name}
		}
		used[idx] = true
		return idx, nil
	}

	s.bindings = make([]int, len(s.segments))
	for i, seg := range s.segments {
		if !seg.IsParameter() {
			s.bindings[i] = noField
			continue
		}
		idx, err := consume(seg.Text)
		if err != nil {
			return nil, err
		}
		f := desc.Fields[idx]
		if !hasTextForm(f.Type) {
			return nil, &errspkg.UnsupportedFieldTypeError{Shape: desc.Tag, Field: f.Ref.Name, Type: typeName(f)}
		}
		s.bindings[i] = idx
	}

	if desc.Payload != "" {
		name, ok := payloadRef(desc.Payload)
		if !ok {
			return nil, fmt.Errorf("shape %s: %w", desc.Tag, errspkg.ErrInvalidPayloadRef)
		}
		idx, err := consume(name)
		if err != nil {
			return nil, err
		}
		s.payload = idx
	}

	var unused []string
	for i, f := range desc.Fields {
		if !used[i] {
			unused = append(unused, f.Ref.Name)
		}
	}
	if len(unused) > 0 {
		return nil, &errspkg.UnusedFieldsError{Shape: desc.Tag, Fields: unused}
	}

	s.codec, err = resolveCodec(desc, s.payload)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MustBuild is like Build but panics on error. It is meant for shapes declared
// in code, where a broken description is a programming error.
func MustBuild(desc Descriptor) *Schema {
	s, err := Build(desc)
	if err != nil {
		panic(err)
	}
	return s
}

func payloadRef(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, "<")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, ">")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func resolveCodec(desc Descriptor, payloadIdx int) (payload.Codec, error) {
	if desc.Codec != nil {
		return desc.Codec, nil
	}
	if payloadIdx != noField {
		if name := desc.Fields[payloadIdx].Codec; name != "" {
			c, ok := payload.Lookup(name)
			if !ok {
				return nil, &errspkg.UnknownCodecError{Shape: desc.Tag, Codec: name}
			}
			return c, nil
		}
	}
	return payload.Default, nil
}

func typeName(f Field) string {
	if f.TypeTag != "" {
		return f.TypeTag
	}
	if f.Type == nil {
		return "<nil>"
	}
	return f.Type.String()
}

// Tag returns the shape tag.
func (s *Schema) Tag() string { return s.tag }

// Type returns the Go type of values produced by this schema.
func (s *Schema) Type() reflect.Type { return s.typ }

// Pattern returns the topic pattern.
func (s *Schema) Pattern() pattern.Pattern { return s.pattern }

// FilterString returns the subscription filter for the pattern.
func (s *Schema) FilterString() string { return s.pattern.FilterString() }

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// PayloadField returns the field bound to the payload, if any.
func (s *Schema) PayloadField() (Field, bool) {
	if s.payload == noField {
		return Field{}, false
	}
	return s.fields[s.payload], true
}

// Codec returns the payload codec.
func (s *Schema) Codec() payload.Codec { return s.codec }

// Encode renders value into its concrete topic and payload. The payload is
// empty when the shape has no payload field. On error the returned payload
// must be discarded.
func (s *Schema) Encode(value any) (topic.Topic, []byte, error) {
	t := topic.New()
	if value == nil {
		return t, nil, errspkg.ErrNilValue
	}
	for i, seg := range s.segments {
		idx := s.bindings[i]
		if idx == noField {
			t.Push(seg.Text)
			continue
		}
		f := s.fields[idx]
		v, err := s.binder.Get(value, f.Ref)
		if err != nil {
			return topic.Topic{}, nil, fmt.Errorf("shape %s: field %s: %w", s.tag, f.Ref.Name, err)
		}
		layer, err := formatLayer(v)
		if err != nil {
			return topic.Topic{}, nil, fmt.Errorf("shape %s: field %s: %w", s.tag, f.Ref.Name, err)
		}
		t.Push(layer)
	}

	if s.payload == noField {
		return t, nil, nil
	}
	f := s.fields[s.payload]
	v, err := s.binder.Get(value, f.Ref)
	if err != nil {
		return topic.Topic{}, nil, fmt.Errorf("shape %s: field %s: %w", s.tag, f.Ref.Name, err)
	}
	data, err := s.codec.Encode(v)
	if err != nil {
		return topic.Topic{}, nil, s.wrapCodec(err)
	}
	return t, data, nil
}

// Match attempts to build a value from the topic layers and payload. depth
// counts the pattern segments that matched; once the whole pattern matched it
// is one more than the pattern length, so payload failures rank above topic
// failures. Layers beyond the pattern length are not inspected.
func (s *Schema) Match(layers []string, data []byte) (value any, depth int, err error) {
	values := make([]any, len(s.fields))
	for i, seg := range s.segments {
		if i >= len(layers) {
			return nil, depth, &errspkg.MissingSegmentError{Segment: seg.Text}
		}
		layer := layers[i]
		idx := s.bindings[i]
		if idx == noField {
			if layer != seg.Text {
				return nil, depth, &errspkg.LayerMismatchError{Expected: seg.Text, Actual: layer}
			}
			depth++
			continue
		}
		v, err := parseLayer(layer, s.fields[idx].Type)
		if err != nil {
			return nil, depth, &errspkg.InvalidSegmentError{Field: seg.Text, Value: layer, Err: err}
		}
		values[idx] = v
		depth++
	}
	depth++

	if s.payload != noField {
		f := s.fields[s.payload]
		v, err := s.codec.Decode(data, f.Type)
		if err != nil {
			return nil, depth, s.wrapCodec(err)
		}
		values[s.payload] = v
	}

	out, err := s.binder.Build(values)
	if err != nil {
		return nil, depth, fmt.Errorf("shape %s: %w", s.tag, err)
	}
	return out, depth, nil
}

// MatchTopic splits t and calls Match.
func (s *Schema) MatchTopic(t topic.Topic, data []byte) (any, error) {
	v, _, err := s.Match(Layers(t), data)
	return v, err
}

// FromText builds a value from field values written as text. Topic-bound
// fields use their layer form and the payload field is decoded with the
// schema's codec. Missing fields keep their zero value.
func (s *Schema) FromText(text map[string]string) (any, error) {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		raw, ok := text[f.Ref.Name]
		if !ok {
			if i == s.payload {
				v, err := s.codec.Decode(nil, f.Type)
				if err == nil {
					values[i] = v
				}
			}
			continue
		}
		if i == s.payload {
			v, err := s.codec.Decode([]byte(raw), f.Type)
			if err != nil {
				return nil, s.wrapCodec(err)
			}
			values[i] = v
			continue
		}
		v, err := parseLayer(raw, f.Type)
		if err != nil {
			return nil, &errspkg.InvalidSegmentError{Field: f.Ref.Name, Value: raw, Err: err}
		}
		values[i] = v
	}
	for name := range text {
		if !s.hasField(name) {
			return nil, &errspkg.UnknownFieldError{Shape: s.tag, Field: name}
		}
	}
	return s.binder.Build(values)
}

func (s *Schema) hasField(name string) bool {
	for _, f := range s.fields {
		if f.Ref.Name == name {
			return true
		}
	}
	return false
}

func (s *Schema) wrapCodec(err error) error {
	var codecErr *errspkg.CodecError
	if errors.Is(err, errspkg.ErrNotUTF8) || errors.As(err, &codecErr) {
		return err
	}
	return &errspkg.CodecError{Codec: s.codec.Name(), Err: err}
}

// Layers collects the layers of t.
func Layers(t topic.Topic) []string {
	out := make([]string, 0, t.Len())
	for layer := range t.Layers() {
		out = append(out, layer)
	}
	return out
}
