package schema

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/payload"
)

// Description is the file form of a set of shapes:
//
//	shapes:
//	  - tag: Reading
//	    topic: "sensors/<site>/<id>"
//	    payload: "<value>"
//	    fields:
//	      - {name: site, type: string}
//	      - {name: id, type: uint32}
//	      - {name: value, type: float64}
type Description struct {
	Shapes []ShapeDescription `yaml:"shapes"`
}

// ShapeDescription describes one shape.
type ShapeDescription struct {
	Tag        string             `yaml:"tag"`
	Topic      string             `yaml:"topic"`
	Payload    string             `yaml:"payload,omitempty"`
	Codec      string             `yaml:"codec,omitempty"`
	Positional bool               `yaml:"positional,omitempty"`
	Fields     []FieldDescription `yaml:"fields"`
}

// FieldDescription declares one field. Name is ignored for positional shapes.
type FieldDescription struct {
	Name  string `yaml:"name,omitempty"`
	Type  string `yaml:"type"`
	Codec string `yaml:"codec,omitempty"`
}

// ParseDescription decodes a YAML description. Unknown keys are rejected.
func ParseDescription(data []byte) (Description, error) {
	var desc Description
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return Description{}, fmt.Errorf("parse schema description: %w", err)
	}
	return desc, nil
}

// LoadDescription reads and decodes a YAML description file.
func LoadDescription(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, fmt.Errorf("read schema description: %w", err)
	}
	return ParseDescription(data)
}

// Descriptors converts the description into dynamic shape descriptors.
func (d Description) Descriptors() ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(d.Shapes))
	for _, shape := range d.Shapes {
		desc, err := shape.Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// Descriptor converts one shape description.
func (s ShapeDescription) Descriptor() (Descriptor, error) {
	var codec payload.Codec
	if s.Codec != "" {
		c, ok := payload.Lookup(s.Codec)
		if !ok {
			return Descriptor{}, &errspkg.UnknownCodecError{Shape: s.Tag, Codec: s.Codec}
		}
		codec = c
	}

	payloadName, _ := payloadRef(s.Payload)
	fields := make([]Field, 0, len(s.Fields))
	for i, fd := range s.Fields {
		name := fd.Name
		if s.Positional {
			name = strconv.Itoa(i)
		}
		if name == "" {
			return Descriptor{}, fmt.Errorf("shape %s: field %d has no name", s.Tag, i)
		}
		typ, ok := TypeOf(fd.Type)
		if !ok {
			return Descriptor{}, fmt.Errorf("shape %s: field %s: unknown type %q", s.Tag, name, fd.Type)
		}
		if name == payloadName && isOptionalCodec(s.Codec, fd.Codec) && typ.Kind() != reflect.Pointer {
			typ = reflect.PointerTo(typ)
		}
		fields = append(fields, Field{
			Ref:     FieldRef{Index: i, Name: name},
			Type:    typ,
			TypeTag: fd.Type,
			Codec:   fd.Codec,
		})
	}

	desc := DescribeMessage(s.Tag, s.Topic, s.Payload, fields, codec)
	desc.Positional = s.Positional
	return desc, nil
}

func isOptionalCodec(names ...string) bool {
	for _, n := range names {
		if n == "optional" {
			return true
		}
	}
	return false
}
