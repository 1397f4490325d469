package registry

import (
	"fmt"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/schema"
	"github.com/drblury/topicflow/internal/runtime/topic"
)

// Encode renders value into its concrete topic and payload using the shape
// registered for its type.
func (r *Registry[T]) Encode(value T) (topic.Topic, []byte, error) {
	t, data, _, err := r.EncodeShape(value)
	return t, data, err
}

// EncodeShape is Encode that also returns the shape used.
func (r *Registry[T]) EncodeShape(value T) (topic.Topic, []byte, *schema.Schema, error) {
	r.Finalize()
	s, err := r.schemaFor(any(value))
	if err != nil {
		return topic.Topic{}, nil, nil, err
	}
	t, data, err := s.Encode(value)
	if err != nil {
		return topic.Topic{}, nil, nil, err
	}
	return t, data, s, nil
}

// Decode returns the value of the first shape, in dispatch order, that
// accepts the topic and payload. When none does, the error matches
// errors.Is(err, ErrInvalid) and unwraps to the failure of the candidate
// that matched the most topic layers.
func (r *Registry[T]) Decode(t topic.Topic, data []byte) (T, error) {
	v, _, err := r.DecodeShape(t, data)
	return v, err
}

// DecodeString is Decode for a raw topic string.
func (r *Registry[T]) DecodeString(raw string, data []byte) (T, error) {
	return r.Decode(topic.FromString(raw), data)
}

// DecodeShape is Decode that also returns the matching shape.
func (r *Registry[T]) DecodeShape(t topic.Topic, data []byte) (T, *schema.Schema, error) {
	r.Finalize()

	var zero T
	layers := schema.Layers(t)

	var (
		best      error
		bestDepth = -1
	)
	for _, s := range r.dispatch {
		v, depth, err := s.Match(layers, data)
		if err == nil {
			out, ok := v.(T)
			if ok {
				return out, s, nil
			}
			err = fmt.Errorf("shape %s produced %T: %w", s.Tag(), v, errspkg.ErrInvalid)
		}
		if depth > bestDepth {
			best, bestDepth = err, depth
		}
	}
	return zero, nil, &errspkg.InvalidMessageError{Topic: t.String(), Cause: best}
}
