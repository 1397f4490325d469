package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// Binder gives the schema uniform access to the fields of a shape value.
// Get reads a field from a value; Build assembles a new value from field
// values given in declaration order.
type Binder interface {
	Get(value any, ref FieldRef) (any, error)
	Build(values []any) (any, error)
}

// structTag is the struct tag used to name shape fields.
const structTag = "topic"

type reflectBinder struct {
	typ    reflect.Type
	base   reflect.Type
	fields []Field
	index  [][]int
}

// newReflectBinder describes a Go type. Structs contribute their exported
// fields; any other type is a positional shape with the single field "0".
func newReflectBinder(typ reflect.Type, positional bool) *reflectBinder {
	b := &reflectBinder{typ: typ, base: typ}
	if b.base.Kind() == reflect.Pointer {
		b.base = b.base.Elem()
	}

	if b.base.Kind() != reflect.Struct {
		b.fields = []Field{{Ref: FieldRef{Index: 0, Name: "0"}, Type: b.base, TypeTag: b.base.String()}}
		return b
	}

	for _, sf := range reflect.VisibleFields(b.base) {
		if !sf.IsExported() || sf.Anonymous || len(sf.Index) != 1 {
			continue
		}
		name, codec, skip := parseStructTag(sf)
		if skip {
			continue
		}
		idx := len(b.fields)
		if positional {
			name = strconv.Itoa(idx)
		}
		b.fields = append(b.fields, Field{
			Ref:     FieldRef{Index: idx, Name: name},
			Type:    sf.Type,
			TypeTag: sf.Type.String(),
			Codec:   codec,
		})
		b.index = append(b.index, sf.Index)
	}
	return b
}

func parseStructTag(sf reflect.StructField) (name, codec string, skip bool) {
	tag, ok := sf.Tag.Lookup(structTag)
	if !ok {
		return sf.Name, "", false
	}
	if tag == "-" {
		return "", "", true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	for opt := range strings.SplitSeq(opts, ",") {
		if c, ok := strings.CutPrefix(opt, "codec="); ok {
			codec = c
		}
	}
	return name, codec, false
}

func (b *reflectBinder) value(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Type() != b.base && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, errspkg.ErrNilValue
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, errspkg.ErrNilValue
	}
	if rv.Type() != b.base {
		return reflect.Value{}, fmt.Errorf("expected %s, got %T", b.typ, v)
	}
	return rv, nil
}

func (b *reflectBinder) Get(v any, ref FieldRef) (any, error) {
	rv, err := b.value(v)
	if err != nil {
		return nil, err
	}
	if b.base.Kind() != reflect.Struct {
		return rv.Interface(), nil
	}
	if ref.Index < 0 || ref.Index >= len(b.index) {
		return nil, fmt.Errorf("field %s out of range", ref.Name)
	}
	return rv.FieldByIndex(b.index[ref.Index]).Interface(), nil
}

func (b *reflectBinder) Build(values []any) (any, error) {
	if len(values) != len(b.fields) {
		return nil, fmt.Errorf("expected %d field values, got %d", len(b.fields), len(values))
	}
	out := reflect.New(b.base).Elem()
	for i, f := range b.fields {
		if values[i] == nil {
			continue
		}
		rv, err := assignable(values[i], f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Ref.Name, err)
		}
		if b.base.Kind() != reflect.Struct {
			out.Set(rv)
			continue
		}
		out.FieldByIndex(b.index[i]).Set(rv)
	}
	if b.typ.Kind() == reflect.Pointer {
		return out.Addr().Interface(), nil
	}
	return out.Interface(), nil
}
