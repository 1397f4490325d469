package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrServiceRequired      = sterrors.New("topicflow: event service is required")
	ErrHandlerRequired      = sterrors.New("topicflow: handler function is required")
	ErrHandlerNameRequired  = sterrors.New("topicflow: handler name is required")
	ErrRegistryRequired     = sterrors.New("topicflow: registry is required")
	ErrPublisherRequired    = sterrors.New("topicflow: publisher is required")
	ErrSubscriberRequired   = sterrors.New("topicflow: subscriber is required")
	ErrConfigRequired       = sterrors.New("topicflow: configuration is required")
	ErrLoggerRequired       = sterrors.New("topicflow: logger is required")
	ErrMessageTooLarge      = sterrors.New("topicflow: payload exceeds transport message size limit")
	ErrTransportUnavailable = sterrors.New("topicflow: transport is not available")
)

// ConfigValidationError marks configuration problems detected before the
// service is started.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("topicflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
