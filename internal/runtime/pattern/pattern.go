// Package pattern models topic patterns: ordered literal and parameter
// segments such as `sensors/<site>/<id>`.
package pattern

import (
	"strings"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// SingleLevelWildcard replaces every parameter in a filter string.
const SingleLevelWildcard = "+"

// Kind tells literal segments from parameters.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindParameter
)

// Segment is one layer of a pattern. Text holds the literal text or the
// parameter name.
type Segment struct {
	Kind Kind
	Text string
}

// Literal returns a fixed segment.
func Literal(text string) Segment { return Segment{Kind: KindLiteral, Text: text} }

// Parameter returns a segment bound to the named field.
func Parameter(name string) Segment { return Segment{Kind: KindParameter, Text: name} }

// IsParameter reports whether s binds a field.
func (s Segment) IsParameter() bool { return s.Kind == KindParameter }

// Equivalent reports whether two segments may receive the same layer. A
// parameter collides with anything.
func (s Segment) Equivalent(other Segment) bool {
	if s.Kind == KindLiteral && other.Kind == KindLiteral {
		return s.Text == other.Text
	}
	return true
}

func (s Segment) String() string {
	if s.IsParameter() {
		return "<" + s.Text + ">"
	}
	return s.Text
}

// Pattern is an immutable sequence of segments.
type Pattern struct {
	raw      string
	segments []Segment
}

// Parse splits s on `/`. `<name>` tokens become parameters, every other token
// a literal. An empty string yields a pattern with no segments.
func Parse(s string) (Pattern, error) {
	p := Pattern{raw: s}
	if s == "" {
		return p, nil
	}

	for token := range strings.SplitSeq(s, "/") {
		if token == "" {
			return Pattern{}, &errspkg.MalformedPatternError{Pattern: s, Err: errspkg.ErrEmptyTopicLayer}
		}
		if name, ok := parameterName(token); ok {
			p.segments = append(p.segments, Parameter(name))
			continue
		}
		p.segments = append(p.segments, Literal(token))
	}
	return p, nil
}

// MustParse is Parse for static patterns; it panics on error.
func MustParse(s string) Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromSegments builds a pattern from already split segments.
func FromSegments(segments ...Segment) Pattern {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.String()
	}
	return Pattern{raw: strings.Join(parts, "/"), segments: append([]Segment(nil), segments...)}
}

func parameterName(token string) (string, bool) {
	if len(token) >= 2 && strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") {
		return token[1 : len(token)-1], true
	}
	return "", false
}

// Len returns the number of segments.
func (p Pattern) Len() int { return len(p.segments) }

// At returns the segment at position i.
func (p Pattern) At(i int) Segment { return p.segments[i] }

// Segments returns a copy of the segments.
func (p Pattern) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Parameters returns the parameter names in pattern order.
func (p Pattern) Parameters() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.IsParameter() {
			names = append(names, seg.Text)
		}
	}
	return names
}

// FilterString renders the pattern for subscriptions, with every parameter
// replaced by the single-level wildcard.
func (p Pattern) FilterString() string {
	parts := make([]string, len(p.segments))
	for i, seg := range p.segments {
		if seg.IsParameter() {
			parts[i] = SingleLevelWildcard
			continue
		}
		parts[i] = seg.Text
	}
	return strings.Join(parts, "/")
}

// EquivalentTo reports whether p and other could both accept some topic, in
// which case registering both would make dispatch ambiguous. Parameters are
// assumed to accept any layer, including the other pattern's literals.
func (p Pattern) EquivalentTo(other Pattern) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if !seg.Equivalent(other.segments[i]) {
			return false
		}
	}
	return true
}

// String returns the pattern text it was parsed from.
func (p Pattern) String() string { return p.raw }
