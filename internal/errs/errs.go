// Package errs defines the typed error taxonomy shared by every package in
// this module, so callers can use errors.As/errors.Is instead of matching on
// strings.
package errs

import "fmt"

// ParseError reports a malformed URI, query string, integer, boolean, host
// or port.
type ParseError struct {
	Input string
	Msg   string
	Cause error
}

func NewParseError(input, msg string, cause error) *ParseError {
	return &ParseError{Input: input, Msg: msg, Cause: cause}
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s (input %q): %v", e.Msg, e.Input, e.Cause)
	}
	return fmt.Sprintf("parse error: %s (input %q)", e.Msg, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// UnimplementedError marks a capability this module deliberately leaves
// unimplemented, such as Sentinel/Cluster URI emission or RPCBackend.URI.
type UnimplementedError struct {
	What string
}

func NewUnimplementedError(what string) *UnimplementedError {
	return &UnimplementedError{What: what}
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("unimplemented: %s", e.What)
}

// DisconnectedError is returned by operations attempted after End(), or as
// the rejection reason propagated to pending waiters on shutdown.
type DisconnectedError struct {
	Reason string
}

func NewDisconnectedError(reason string) *DisconnectedError {
	if reason == "" {
		reason = "disconnecting"
	}
	return &DisconnectedError{Reason: reason}
}

func (e *DisconnectedError) Error() string { return e.Reason }

// TimeoutError is returned by util.WithTimeout and util.Timer and by the
// result backends' Get when its timeout elapses. PromiseMap entry expiry
// only removes settled entries and produces no error.
type TimeoutError struct {
	After string
}

func NewTimeoutError(after string) *TimeoutError {
	return &TimeoutError{After: after}
}

func (e *TimeoutError) Error() string {
	if e.After == "" {
		return "timeout"
	}
	return fmt.Sprintf("timeout after %s", e.After)
}

// ConsumerCancelledError indicates the AMQP broker dropped our consumer.
type ConsumerCancelledError struct {
	Tag string
}

func NewConsumerCancelledError(tag string) *ConsumerCancelledError {
	return &ConsumerCancelledError{Tag: tag}
}

func (e *ConsumerCancelledError) Error() string {
	return fmt.Sprintf("RabbitMQ cancelled consumer %q", e.Tag)
}

// BrokerError aggregates the per-broker failures of a failed failover group.
type BrokerError struct {
	Attempts []error
}

func NewBrokerError(attempts []error) *BrokerError {
	return &BrokerError{Attempts: attempts}
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("all %d brokers failed: %v", len(e.Attempts), e.Attempts)
}

func (e *BrokerError) Unwrap() []error { return e.Attempts }

// Cleared is the reason PromiseMap.Clear rejects pending entries with.
const Cleared = "cleared"

// Deleted is the reason PromiseMap.Delete rejects a still-pending entry
// with.
const Deleted = "deleted"
