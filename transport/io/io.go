// Package io provides a file-backed transport. Messages are appended to a
// JSON lines file and subscribers tail it, matching each record's concrete
// topic against the subscription filter.
package io

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/topicflow/internal/runtime/jsoncodec"
	"github.com/drblury/topicflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "io"

// DefaultFilePath is used when no file is configured.
const DefaultFilePath = "messages.jsonl"

// PollInterval is how long a subscriber waits at end of file before reading
// again.
var PollInterval = 50 * time.Millisecond

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return NewPublisher(filePath, logger), nil
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return NewSubscriber(filePath, logger), nil
}

func init() {
	Register()
}

// Register registers the I/O transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.IOCapabilities)
}

// Build creates a new file-backed transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	filePath := cfg.GetIOFile()
	if filePath == "" {
		filePath = DefaultFilePath
	}

	pub, err := PublisherFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	sub, err := SubscriberFactory(filePath, logger)
	if err != nil {
		_ = pub.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
		Topics:     transport.Identity,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.IOCapabilities
}

// Record is one line of the message file.
type Record struct {
	UUID     string            `json:"uuid"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// Publisher appends records to a file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter
	mu       sync.Mutex
	closed   bool
}

// NewPublisher returns a publisher writing to filePath.
func NewPublisher(filePath string, logger watermill.LoggerAdapter) *Publisher {
	return &Publisher{filePath: filePath, logger: logger}
}

// Publish appends one record per message.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("io publisher is closed")
	}

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, msg := range messages {
		if err := jsoncodec.Encode(w, Record{
			UUID:     msg.UUID,
			Topic:    topic,
			Metadata: msg.Metadata,
			Payload:  msg.Payload,
		}); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Close makes further publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Subscriber tails a file of records.
type Subscriber struct {
	filePath string
	logger   watermill.LoggerAdapter
	done     chan struct{}
	once     sync.Once
}

// NewSubscriber returns a subscriber reading filePath from the start.
func NewSubscriber(filePath string, logger watermill.LoggerAdapter) *Subscriber {
	return &Subscriber{filePath: filePath, logger: logger, done: make(chan struct{})}
}

// Subscribe delivers every record whose topic matches filter. Delivery waits
// for the previous message to be acked or nacked.
func (s *Subscriber) Subscribe(ctx context.Context, filter string) (<-chan *message.Message, error) {
	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		defer f.Close()
		s.tail(ctx, f, filter, out)
	}()
	return out, nil
}

// Close stops every subscription.
func (s *Subscriber) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *Subscriber) tail(ctx context.Context, f *os.File, filter string, out chan<- *message.Message) {
	reader := bufio.NewReader(f)
	var pending []byte
	for {
		line, err := reader.ReadBytes('\n')
		pending = append(pending, line...)
		switch {
		case err == nil:
			if !s.deliver(ctx, pending, filter, out) {
				return
			}
			pending = pending[:0]
		case errors.Is(err, io.EOF):
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(PollInterval):
			}
		default:
			s.logger.Error("Failed to read message file", err, watermill.LogFields{"file": s.filePath})
			return
		}
	}
}

func (s *Subscriber) deliver(ctx context.Context, line []byte, filter string, out chan<- *message.Message) bool {
	var rec Record
	if err := jsoncodec.Unmarshal(line, &rec); err != nil {
		s.logger.Error("Skipping malformed record", err, watermill.LogFields{"file": s.filePath})
		return true
	}
	if !transport.MatchFilter(filter, rec.Topic) {
		return true
	}

	msg := message.NewMessage(rec.UUID, rec.Payload)
	if rec.Metadata != nil {
		msg.Metadata = rec.Metadata
	}
	msg.SetContext(ctx)

	select {
	case out <- msg:
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		s.logger.Debug("Message nacked", watermill.LogFields{"uuid": msg.UUID})
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
	return true
}
