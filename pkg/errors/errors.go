// Package errors defines the fleet-wide error taxonomy. Every error raised
// by the agent or the cloud bridge carries one of these kinds so a caller
// can branch on category (log and continue, retry with backoff, surface as
// a Failed response) without string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it, not by
// which package raised it.
type Kind string

const (
	// KindTransport covers broker disconnects and publish failures. The
	// caller reconnects with exponential backoff; it never propagates to
	// the executor.
	KindTransport Kind = "transport"

	// KindParse covers a malformed payload at the broker boundary. The
	// caller logs, drops the message, and counts it.
	KindParse Kind = "parse"

	// KindValidation covers an envelope or request missing required
	// fields. The caller produces a Failed response with a structured
	// reason.
	KindValidation Kind = "validation"

	// KindTool covers a hardware timeout or unavailable backend. Surfaced
	// as Failed in the response; never crashes the agent.
	KindTool Kind = "tool"

	// KindShellBlocked covers a rejection from any of the five shell
	// sandbox layers. Surfaced as Failed with the specific layer's code.
	KindShellBlocked Kind = "shell_blocked"

	// KindLLM covers an inference-engine timeout, malformed JSON, or an
	// unknown tool name returned by the model. The parser returns no
	// match; if it was the last parser in the chain, the executor
	// reports Failed.
	KindLLM Kind = "llm"

	// KindTimeout covers a wall-clock deadline exceeded. Surfaced as
	// Failed with the elapsed duration in milliseconds.
	KindTimeout Kind = "timeout"

	// KindInternal covers a bug. The caller logs it and produces a
	// generic Failed response rather than leaking internals.
	KindInternal Kind = "internal"
)

// Error wraps an underlying cause with a Kind, so callers can type-assert
// via As and branch on Kind without parsing message text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Kind-tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a Kind-tagged error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, returning "" when err is nil and
// KindInternal when err is not one of this package's Errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
