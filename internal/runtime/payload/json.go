package payload

import (
	"reflect"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/jsoncodec"
)

// JSON encodes payloads as UTF-8 JSON text.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (j JSON) Encode(value any) ([]byte, error) {
	data, err := jsoncodec.Marshal(value)
	if err != nil {
		return nil, &errspkg.CodecError{Codec: j.Name(), Err: err}
	}
	return data, nil
}

func (j JSON) Decode(data []byte, target reflect.Type) (any, error) {
	if err := RequireUTF8(data); err != nil {
		return nil, err
	}
	ptr := reflect.New(target)
	if err := jsoncodec.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, &errspkg.CodecError{Codec: j.Name(), Err: err}
	}
	return ptr.Elem().Interface(), nil
}
