package transport

import (
	"fmt"
	"strings"
)

// TopicMapper translates topicflow topics and filter strings into broker
// topic names.
type TopicMapper interface {
	// Topic maps a concrete topic such as "sensors/lab/4".
	Topic(topic string) string
	// Filter maps a filter string such as "sensors/+/+".
	Filter(filter string) string
}

const (
	topicSeparator = "/"
	topicWildcard  = "+"
)

// Separators maps topics by replacing the layer separator and the
// single-level wildcard.
type Separators struct {
	Level    string
	Wildcard string
	// Escape lists bytes the broker does not accept inside a layer. When set,
	// Topic and Filter percent-encode them in every literal layer, together
	// with '%' and the bytes of Level, so a layer always stays one broker
	// token. Topics still travel unescaped in message metadata.
	Escape string
}

// Identity leaves topics untouched.
var Identity TopicMapper = Separators{Level: topicSeparator, Wildcard: topicWildcard}

func (s Separators) Topic(topic string) string {
	if s.Level == topicSeparator && s.Escape == "" {
		return topic
	}
	layers := strings.Split(topic, topicSeparator)
	for i, layer := range layers {
		layers[i] = s.escape(layer)
	}
	return strings.Join(layers, s.Level)
}

func (s Separators) Filter(filter string) string {
	if s.Level == topicSeparator && s.Wildcard == topicWildcard && s.Escape == "" {
		return filter
	}
	layers := strings.Split(filter, topicSeparator)
	for i, layer := range layers {
		if layer == topicWildcard {
			layers[i] = s.Wildcard
			continue
		}
		layers[i] = s.escape(layer)
	}
	return strings.Join(layers, s.Level)
}

func (s Separators) escape(layer string) string {
	if s.Escape == "" || !strings.ContainsAny(layer, s.Escape+s.Level+"%") {
		return layer
	}
	var b strings.Builder
	for i := 0; i < len(layer); i++ {
		c := layer[i]
		if c == '%' || strings.IndexByte(s.Escape, c) >= 0 || strings.IndexByte(s.Level, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// MatchFilter reports whether topic is received by a subscription to filter.
// Both use "/" separated layers and "+" matches exactly one layer.
func MatchFilter(filter, topic string) bool {
	for {
		fl, frest, fmore := strings.Cut(filter, topicSeparator)
		tl, trest, tmore := strings.Cut(topic, topicSeparator)
		if fl != topicWildcard && fl != tl {
			return false
		}
		if !fmore || !tmore {
			return fmore == tmore
		}
		filter, topic = frest, trest
	}
}
