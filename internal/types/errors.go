package types

import (
	"errors"
	"fmt"
)

// ErrFeedExhausted signals that a content feed has no items left. The
// caller recovers by constructing a fresh feed instance.
var ErrFeedExhausted = errors.New("content feed exhausted")

// FeedConnectionError means the live stream subscription was lost. It is
// fatal to the worker that owns the subscription; process supervision is
// expected to restart it.
type FeedConnectionError struct {
	Host string
	Err  error
}

func (e *FeedConnectionError) Error() string {
	return fmt.Sprintf("stream connection to %s lost: %v", e.Host, e.Err)
}

func (e *FeedConnectionError) Unwrap() error {
	return e.Err
}

func IsFeedConnection(err error) bool {
	var fce *FeedConnectionError
	return errors.As(err, &fce)
}

// DecodeError wraps a failure to decode a single stream event. Raw holds
// the offending payload for logging; the loop continues past it.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ConfigError is fatal at startup, before any worker loop begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}
