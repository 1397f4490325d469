// Package registry holds the shapes of one tagged-union message type, rejects
// ambiguous topic patterns and dispatches decoding by pattern specificity.
package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/schema"
	"github.com/drblury/topicflow/internal/runtime/topic"
)

// Registry holds every shape of the message type T, usually an interface
// implemented by each variant or *schema.Message for dynamic shapes.
//
// Registration must happen from a single goroutine before the registry is
// used. Once finalized the registry is immutable and safe for concurrent
// Encode and Decode calls.
type Registry[T any] struct {
	mu        sync.Mutex
	finalized bool
	once      sync.Once

	schemas  []*schema.Schema
	byTag    map[string]*schema.Schema
	byType   map[reflect.Type]*schema.Schema
	dispatch []*schema.Schema
	filters  []string
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		byTag:  make(map[string]*schema.Schema),
		byType: make(map[reflect.Type]*schema.Schema),
	}
}

// Build registers every descriptor and finalizes the registry.
func Build[T any](descs ...schema.Descriptor) (*Registry[T], error) {
	r := New[T]()
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	r.Finalize()
	return r, nil
}

// MustBuild is like Build but panics on error.
func MustBuild[T any](descs ...schema.Descriptor) *Registry[T] {
	r, err := Build[T](descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register validates the descriptor and adds its shape. It fails when the
// pattern is equivalent to one already registered, since a topic could then
// belong to either shape.
func (r *Registry[T]) Register(desc schema.Descriptor) error {
	s, err := schema.Build(desc)
	if err != nil {
		return err
	}
	return r.RegisterSchema(s)
}

// RegisterSchema adds an already built schema.
func (r *Registry[T]) RegisterSchema(s *schema.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return errspkg.ErrRegistryFinalized
	}
	if _, dup := r.byTag[s.Tag()]; dup {
		return &errspkg.DuplicateShapeError{Shape: s.Tag()}
	}
	if err := checkType[T](s); err != nil {
		return err
	}
	for _, existing := range r.schemas {
		if s.Pattern().EquivalentTo(existing.Pattern()) {
			return &errspkg.AmbiguousTopicError{Shape: s.Tag(), Existing: existing.Tag()}
		}
	}

	r.schemas = append(r.schemas, s)
	r.byTag[s.Tag()] = s
	if typ := s.Type(); typ != nil && typ != schema.MessageType {
		r.byType[typ] = s
	}
	return nil
}

func checkType[T any](s *schema.Schema) error {
	want := reflect.TypeFor[T]()
	typ := s.Type()
	if typ == nil || typ.AssignableTo(want) {
		return nil
	}
	return &errspkg.ShapeTypeError{Shape: s.Tag(), Type: typ.String(), Message: want.String()}
}

// Finalize computes the dispatch order: longest pattern first, registration
// order on ties. It is idempotent and runs implicitly on first use.
func (r *Registry[T]) Finalize() {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.finalized = true
		r.dispatch = slices.Clone(r.schemas)
		slices.SortStableFunc(r.dispatch, func(a, b *schema.Schema) int {
			return b.Pattern().Len() - a.Pattern().Len()
		})

		seen := make(map[string]struct{}, len(r.schemas))
		for _, s := range r.schemas {
			f := s.FilterString()
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			r.filters = append(r.filters, f)
		}
	})
}

// Schemas returns the shapes in dispatch order.
func (r *Registry[T]) Schemas() []*schema.Schema {
	r.Finalize()
	return slices.Clone(r.dispatch)
}

// Len returns the number of registered shapes.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.schemas)
}

// Lookup returns the shape registered under tag.
func (r *Registry[T]) Lookup(tag string) (*schema.Schema, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTag[tag]
	return s, ok
}

// AllFilterStrings returns the subscription surface: each shape's filter
// string, without duplicates, in registration order.
func (r *Registry[T]) AllFilterStrings() []string {
	r.Finalize()
	return slices.Clone(r.filters)
}

// FilterTree returns AllFilterStrings as topics.
func (r *Registry[T]) FilterTree() topic.Tree {
	filters := r.AllFilterStrings()
	tree := make(topic.Tree, 0, len(filters))
	for _, f := range filters {
		tree = append(tree, topic.FromString(f))
	}
	return tree
}

// schemaFor picks the shape of value by its dynamic type or, for dynamic
// messages, by its tag.
func (r *Registry[T]) schemaFor(value any) (*schema.Schema, error) {
	if value == nil {
		return nil, errspkg.ErrNilValue
	}
	if m, ok := value.(*schema.Message); ok {
		if m == nil {
			return nil, errspkg.ErrNilValue
		}
		if s, ok := r.byTag[m.Tag]; ok {
			return s, nil
		}
		return nil, &errspkg.UnknownShapeError{Type: fmt.Sprintf("message tag %q", m.Tag)}
	}

	typ := reflect.TypeOf(value)
	if s, ok := r.byType[typ]; ok {
		return s, nil
	}
	if typ.Kind() == reflect.Pointer {
		if s, ok := r.byType[typ.Elem()]; ok {
			return s, nil
		}
	} else if s, ok := r.byType[reflect.PointerTo(typ)]; ok {
		return s, nil
	}
	return nil, &errspkg.UnknownShapeError{Type: typ.String()}
}
