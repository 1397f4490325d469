// Package payload provides the codecs that turn a shape's payload field into
// message bytes and back.
package payload

import (
	"fmt"
	"reflect"
	"sync"
	"unicode/utf8"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// Codec serializes a single payload field. Decode must return a value whose
// type is exactly target.
type Codec interface {
	Name() string
	Encode(value any) ([]byte, error)
	Decode(data []byte, target reflect.Type) (any, error)
}

// Default is used for payload fields without an explicit codec.
var Default Codec = JSON{}

// Funcs adapts a pair of functions to the Codec interface.
type Funcs struct {
	CodecName  string
	EncodeFunc func(value any) ([]byte, error)
	DecodeFunc func(data []byte, target reflect.Type) (any, error)
}

func (f Funcs) Name() string {
	if f.CodecName == "" {
		return "custom"
	}
	return f.CodecName
}

func (f Funcs) Encode(value any) ([]byte, error) {
	if f.EncodeFunc == nil {
		return Default.Encode(value)
	}
	return f.EncodeFunc(value)
}

func (f Funcs) Decode(data []byte, target reflect.Type) (any, error) {
	if f.DecodeFunc == nil {
		return Default.Decode(data, target)
	}
	return f.DecodeFunc(data, target)
}

// Hooks builds a codec from typed serialize/deserialize functions. Either
// function may be nil, in which case the default codec handles that
// direction.
func Hooks[V any](name string, serialize func(V) ([]byte, error), deserialize func([]byte) (V, error)) Codec {
	f := Funcs{CodecName: name}
	if serialize != nil {
		f.EncodeFunc = func(value any) ([]byte, error) {
			typed, ok := value.(V)
			if !ok {
				var zero V
				return nil, fmt.Errorf("expected %T, got %T", zero, value)
			}
			return serialize(typed)
		}
	}
	if deserialize != nil {
		f.DecodeFunc = func(data []byte, _ reflect.Type) (any, error) {
			return deserialize(data)
		}
	}
	return f
}

// RequireUTF8 returns ErrNotUTF8 unless data is valid UTF-8 text.
func RequireUTF8(data []byte) error {
	if !utf8.Valid(data) {
		return errspkg.ErrNotUTF8
	}
	return nil
}

var (
	namedMu sync.RWMutex
	named   = map[string]Codec{
		"json":     JSON{},
		"optional": Optional{},
		"proto":    ProtoJSON{},
		"raw":      Raw{},
	}
)

// Register makes codec available to schema descriptions under name.
func Register(name string, codec Codec) {
	namedMu.Lock()
	defer namedMu.Unlock()
	named[name] = codec
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, bool) {
	namedMu.RLock()
	defer namedMu.RUnlock()
	c, ok := named[name]
	return c, ok
}
