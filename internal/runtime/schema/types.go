package schema

import (
	"reflect"
	"strings"
	"time"
)

var typeTags = map[string]reflect.Type{
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
	"bytes":   reflect.TypeFor[[]byte](),
	"time":    reflect.TypeFor[time.Time](),
	"any":     reflect.TypeFor[any](),
	"object":  reflect.TypeFor[map[string]any](),
	"list":    reflect.TypeFor[[]any](),
}

// TypeOf resolves a description type tag. A leading "?" makes the type
// optional, i.e. a pointer to the base type.
func TypeOf(tag string) (reflect.Type, bool) {
	if base, ok := strings.CutPrefix(tag, "?"); ok {
		t, ok := typeTags[base]
		if !ok {
			return nil, false
		}
		return reflect.PointerTo(t), true
	}
	t, ok := typeTags[tag]
	return t, ok
}
