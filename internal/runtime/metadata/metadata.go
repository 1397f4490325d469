// Package metadata holds the headers carried next to a payload and the keys
// topicflow reserves in them.
package metadata

import (
	"maps"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata represents the headers carried alongside a message.
type Metadata map[string]string

// Reserved keys.
const (
	// KeyTopic carries the concrete topic when the broker topic is a filter
	// string or a mapped name.
	KeyTopic = "topicflow_topic"
	// KeyShape is the tag of the shape that encoded the message.
	KeyShape = "topicflow_shape"
	// KeyFilter is the filter string the message was published under.
	KeyFilter = "topicflow_filter"
	// KeyCorrelationID links a handler's outputs to its input.
	KeyCorrelationID = "correlation_id"
	// KeyUnrecognizedReason explains why a forwarded message was not decoded.
	KeyUnrecognizedReason = "topicflow_unrecognized_reason"
)

// Clone returns a shallow copy that is never nil.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	maps.Copy(cloned, m)
	return cloned
}

// With returns a copy containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}

// WithAll returns a copy overlaid with entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.Clone()
	maps.Copy(cloned, entries)
	return cloned
}

// Topic returns the concrete topic recorded in the metadata.
func (m Metadata) Topic() (string, bool) {
	topic, ok := m[KeyTopic]
	return topic, ok
}

// New constructs a Metadata map from alternating key/value pairs. A trailing
// key without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// FromWatermill copies Watermill metadata.
func FromWatermill(md message.Metadata) Metadata {
	return Metadata(md).Clone()
}

// ToWatermill copies metadata into a Watermill map.
func ToWatermill(md Metadata) message.Metadata {
	return message.Metadata(md.Clone())
}
