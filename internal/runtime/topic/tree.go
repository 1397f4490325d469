package topic

import "strings"

// Tree is an ordered list of topics, typically the subscription filters of a
// registry.
type Tree []Topic

// Strings returns the raw topics in order.
func (t Tree) Strings() []string {
	out := make([]string, len(t))
	for i, tp := range t {
		out[i] = tp.String()
	}
	return out
}

// String renders one topic per line.
func (t Tree) String() string {
	var b strings.Builder
	for _, tp := range t {
		b.WriteString(tp.String())
		b.WriteByte('\n')
	}
	return b.String()
}
