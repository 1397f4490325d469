package payload

import (
	"fmt"
	"reflect"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// Raw copies string and byte slice payloads verbatim.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (r Raw) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String()), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return append([]byte(nil), rv.Bytes()...), nil
	}
	return nil, &errspkg.CodecError{Codec: r.Name(), Err: fmt.Errorf("cannot write %T verbatim", value)}
}

func (r Raw) Decode(data []byte, target reflect.Type) (any, error) {
	out := reflect.New(target).Elem()
	switch {
	case target.Kind() == reflect.String:
		out.SetString(string(data))
	case target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Uint8:
		out.SetBytes(append([]byte(nil), data...))
	default:
		return nil, &errspkg.CodecError{Codec: r.Name(), Err: fmt.Errorf("cannot read %s verbatim", target)}
	}
	return out.Interface(), nil
}
