package payload

import (
	"fmt"
	"reflect"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// Optional maps an empty payload to a nil pointer and back. Non-empty payloads
// go through Inner, or the default codec when Inner is nil.
type Optional struct {
	Inner Codec
}

func (o Optional) Name() string { return "optional" }

func (o Optional) inner() Codec {
	if o.Inner == nil {
		return Default
	}
	return o.Inner
}

func (o Optional) Encode(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		value = rv.Elem().Interface()
	}
	return o.inner().Encode(value)
}

func (o Optional) Decode(data []byte, target reflect.Type) (any, error) {
	if len(data) == 0 {
		return reflect.Zero(target).Interface(), nil
	}
	if target.Kind() != reflect.Pointer {
		return o.inner().Decode(data, target)
	}

	value, err := o.inner().Decode(data, target.Elem())
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(target.Elem())
	if value != nil {
		rv := reflect.ValueOf(value)
		if !rv.Type().AssignableTo(target.Elem()) {
			return nil, &errspkg.CodecError{Codec: o.Name(), Err: fmt.Errorf("%s decoded %T, want %s", o.inner().Name(), value, target.Elem())}
		}
		ptr.Elem().Set(rv)
	}
	return ptr.Interface(), nil
}
