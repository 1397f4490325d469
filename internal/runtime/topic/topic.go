// Package topic holds the concrete, `/`-separated topics carried on the wire.
package topic

import (
	"iter"
	"strings"
)

// Separator splits a topic into layers.
const Separator = "/"

// Topic is a concrete topic made of `/`-separated layers.
//
// Layers are not escaped: pushing a layer that contains `/` produces the same
// topic as pushing each part separately.
type Topic struct {
	raw string
}

// New returns an empty topic.
func New() Topic {
	return Topic{}
}

// FromString wraps s verbatim. Wildcard characters are treated as plain text.
func FromString(s string) Topic {
	return Topic{raw: s}
}

// Push appends a layer.
func (t *Topic) Push(layer string) {
	if t.raw == "" {
		t.raw = layer
		return
	}
	t.raw = t.raw + Separator + layer
}

// PushFront prepends a layer.
func (t *Topic) PushFront(layer string) {
	if t.raw == "" {
		t.raw = layer
		return
	}
	t.raw = layer + Separator + t.raw
}

// Layers yields the layers in order. The sequence can be ranged over more than
// once.
func (t Topic) Layers() iter.Seq[string] {
	return strings.SplitSeq(t.raw, Separator)
}

// Len returns the number of layers.
func (t Topic) Len() int {
	return strings.Count(t.raw, Separator) + 1
}

// IsEmpty reports whether nothing was pushed yet.
func (t Topic) IsEmpty() bool {
	return t.raw == ""
}

func (t Topic) String() string {
	return t.raw
}
