package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

// Registration errors. These describe a broken shape description and must
// abort startup.
var (
	ErrEmptyTopicLayer   = sterrors.New("topicflow: empty topic layers are not allowed")
	ErrUnitShape         = sterrors.New("topicflow: shapes without fields are not supported")
	ErrInvalidPayloadRef = sterrors.New("topicflow: payload field must be written as <field_name>")
	ErrRegistryFinalized = sterrors.New("topicflow: registry is finalized")
	ErrBinderRequired    = sterrors.New("topicflow: shape binder is required")
	ErrShapeTagRequired  = sterrors.New("topicflow: shape tag is required")
)

// Decode errors. Per-candidate failures are discarded by the dispatcher;
// only ErrInvalid reaches callers.
var (
	ErrInvalid  = sterrors.New("topicflow: no shape matched the message")
	ErrNotUTF8  = sterrors.New("topicflow: payload is not valid UTF-8")
	ErrNilValue = sterrors.New("topicflow: value is nil")
)

// MalformedPatternError reports a topic pattern that cannot be parsed.
type MalformedPatternError struct {
	Pattern string
	Err     error
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("topicflow: malformed topic pattern %q: %v", e.Pattern, e.Err)
}

func (e *MalformedPatternError) Unwrap() error { return e.Err }

// UnknownFieldError reports a pattern parameter or payload reference naming a
// field the shape does not declare.
type UnknownFieldError struct {
	Shape string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("topicflow: shape %s: unknown field %s", e.Shape, e.Field)
}

// DuplicateFieldUseError reports a field bound more than once.
type DuplicateFieldUseError struct {
	Shape string
	Field string
}

func (e *DuplicateFieldUseError) Error() string {
	return fmt.Sprintf("topicflow: shape %s: field `%s` is specified more than once", e.Shape, e.Field)
}

// UnusedFieldsError lists declared fields bound to neither the topic nor the
// payload.
type UnusedFieldsError struct {
	Shape  string
	Fields []string
}

func (e *UnusedFieldsError) Error() string {
	return fmt.Sprintf("topicflow: shape %s: the following fields are not part of the topic or payload: %s",
		e.Shape, strings.Join(e.Fields, ", "))
}

// AmbiguousTopicError reports two shapes whose patterns can receive the same
// topic.
type AmbiguousTopicError struct {
	Shape    string
	Existing string
}

func (e *AmbiguousTopicError) Error() string {
	return fmt.Sprintf("topicflow: shapes `%s` and `%s` have the same topic filter", e.Existing, e.Shape)
}

// DuplicateShapeError reports a tag registered twice.
type DuplicateShapeError struct {
	Shape string
}

func (e *DuplicateShapeError) Error() string {
	return fmt.Sprintf("topicflow: shape %s is already registered", e.Shape)
}

// UnsupportedFieldTypeError reports a topic-bound field whose type has no
// canonical text form.
type UnsupportedFieldTypeError struct {
	Shape string
	Field string
	Type  string
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("topicflow: shape %s: field %s of type %s cannot be used as a topic layer", e.Shape, e.Field, e.Type)
}

// UnknownCodecError reports a codec name that has not been registered.
type UnknownCodecError struct {
	Shape string
	Codec string
}

func (e *UnknownCodecError) Error() string {
	return fmt.Sprintf("topicflow: shape %s: unknown payload codec %q", e.Shape, e.Codec)
}

// ShapeTypeError reports a shape whose values are not assignable to the
// registry's message type.
type ShapeTypeError struct {
	Shape   string
	Type    string
	Message string
}

func (e *ShapeTypeError) Error() string {
	return fmt.Sprintf("topicflow: shape %s (%s) does not implement %s", e.Shape, e.Type, e.Message)
}

// UnknownShapeError is returned when encoding a value whose variant was never
// registered.
type UnknownShapeError struct {
	Type string
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("topicflow: no shape registered for %s", e.Type)
}

// MissingSegmentError reports an input topic that ran out of layers.
type MissingSegmentError struct {
	Segment string
}

func (e *MissingSegmentError) Error() string {
	return fmt.Sprintf("topicflow: missing topic layer %s", e.Segment)
}

// LayerMismatchError reports a literal layer that differs from the input.
type LayerMismatchError struct {
	Expected string
	Actual   string
}

func (e *LayerMismatchError) Error() string {
	return fmt.Sprintf("topicflow: topic layer %q does not match %q", e.Actual, e.Expected)
}

// InvalidSegmentError reports a parameter layer that could not be parsed into
// its field type.
type InvalidSegmentError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("topicflow: invalid topic layer %q for field %s", e.Value, e.Field)
}

func (e *InvalidSegmentError) Unwrap() error { return e.Err }

// CodecError wraps a payload codec failure.
type CodecError struct {
	Codec string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("topicflow: %s payload codec: %v", e.Codec, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// InvalidMessageError is the terminal decode failure. It matches ErrInvalid and
// unwraps to the failure of the candidate that matched the most layers.
type InvalidMessageError struct {
	Topic string
	Cause error
}

func (e *InvalidMessageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%v: %q", ErrInvalid, e.Topic)
	}
	return fmt.Sprintf("%v: %q (closest candidate: %v)", ErrInvalid, e.Topic, e.Cause)
}

func (e *InvalidMessageError) Is(target error) bool { return target == ErrInvalid }

func (e *InvalidMessageError) Unwrap() error { return e.Cause }
