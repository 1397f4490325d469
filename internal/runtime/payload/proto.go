package payload

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

var protoMessageType = reflect.TypeFor[proto.Message]()

// ProtoJSON encodes protobuf message fields with the canonical JSON mapping.
type ProtoJSON struct {
	MarshalOptions   protojson.MarshalOptions
	UnmarshalOptions protojson.UnmarshalOptions
}

func (ProtoJSON) Name() string { return "proto" }

func (p ProtoJSON) Encode(value any) ([]byte, error) {
	msg, ok := value.(proto.Message)
	if !ok {
		return nil, &errspkg.CodecError{Codec: p.Name(), Err: fmt.Errorf("%T is not a proto.Message", value)}
	}
	data, err := p.MarshalOptions.Marshal(msg)
	if err != nil {
		return nil, &errspkg.CodecError{Codec: p.Name(), Err: err}
	}
	return data, nil
}

func (p ProtoJSON) Decode(data []byte, target reflect.Type) (any, error) {
	if target.Kind() != reflect.Pointer || !target.Implements(protoMessageType) {
		return nil, &errspkg.CodecError{Codec: p.Name(), Err: fmt.Errorf("%s is not a proto.Message", target)}
	}
	if err := RequireUTF8(data); err != nil {
		return nil, err
	}
	msg := reflect.New(target.Elem()).Interface().(proto.Message)
	if err := p.UnmarshalOptions.Unmarshal(data, msg); err != nil {
		return nil, &errspkg.CodecError{Codec: p.Name(), Err: err}
	}
	return msg, nil
}
