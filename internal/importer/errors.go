package importer

// errors.go defines the engine's error taxonomy.
//
// Caller mistakes (unknown ids, re-processing, re-resolving, malformed
// CSV) surface as sentinel errors or *ParseError and are never retried
// by the engine. Row-level data errors never appear here at all: they
// are isolated into ImportError records on the session and do not
// abort the batch.
//
// MapError converts a technical error into a coded user-facing message
// for display. Codes are grouped by category:
//
//	SES001-SES099  session lifecycle
//	CNF001-CNF099  conflict resolution
//	CSV001-CSV099  file parsing
//	STO001-STO099  contact store
//	ERR000         fallback

import (
	"errors"
	"strings"
)

var (
	// ErrSessionNotFound is returned for unknown session ids,
	// including sessions removed by the cleanup sweep.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrConflictNotFound is returned for unknown conflict ids.
	ErrConflictNotFound = errors.New("import conflict not found")

	// ErrAlreadyProcessing is returned when a processing pass is
	// already running for the session. At most one pass runs at a time.
	ErrAlreadyProcessing = errors.New("import session is already processing")

	// ErrSessionNotPending is returned when processing is requested
	// for a session that already ran its pass.
	ErrSessionNotPending = errors.New("import session has already been processed")

	// ErrAlreadyResolved is returned when a conflict is resolved a
	// second time. Re-resolution is an error, not a no-op: callers
	// must track what they have already resolved.
	ErrAlreadyResolved = errors.New("import conflict is already resolved")

	// ErrInvalidResolution is returned for a resolution value other
	// than update or skip.
	ErrInvalidResolution = errors.New("resolution must be \"update\" or \"skip\"")
)

// ParseError wraps a CSV syntax error from the underlying parser. The
// parser's message is surfaced verbatim; there is no silent recovery.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid CSV: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UserMessage is a user-facing rendering of an error, with a code for
// support reference.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string
}

type errorMapping struct {
	match func(error) bool
	msg   UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func contains(substr string) func(error) bool {
	return func(err error) bool {
		return strings.Contains(strings.ToLower(err.Error()), substr)
	}
}

// errorMappings is evaluated in order; the first match wins, so
// specific matchers come before pattern fallbacks.
var errorMappings = []errorMapping{
	{is(ErrSessionNotFound), UserMessage{
		Message: "Import session not found",
		Action:  "The session may have expired. Start a new import",
		Code:    "SES001",
	}},
	{is(ErrAlreadyProcessing), UserMessage{
		Message: "This import is already running",
		Action:  "Wait for the current pass to finish and check its status",
		Code:    "SES002",
	}},
	{is(ErrSessionNotPending), UserMessage{
		Message: "This import has already run",
		Action:  "Resolve its remaining conflicts or start a new import",
		Code:    "SES003",
	}},
	{is(ErrTooManyImports), UserMessage{
		Message: "Too many imports are running",
		Action:  "Please wait a moment and try again",
		Code:    "SES004",
	}},
	{is(ErrConflictNotFound), UserMessage{
		Message: "Conflict not found",
		Action:  "Refresh the session status for the current conflict list",
		Code:    "CNF001",
	}},
	{is(ErrAlreadyResolved), UserMessage{
		Message: "This conflict was already resolved",
		Action:  "Refresh the session status; no further action is needed",
		Code:    "CNF002",
	}},
	{is(ErrInvalidResolution), UserMessage{
		Message: "Unknown resolution choice",
		Action:  "Choose either \"update\" or \"skip\"",
		Code:    "CNF003",
	}},
	{contains("empty file"), UserMessage{
		Message: "The file contains no data",
		Action:  "Check that the file has a header row and at least one data row",
		Code:    "CSV002",
	}},
	{contains("invalid csv"), UserMessage{
		Message: "The file is not a valid CSV",
		Action:  "Ensure the file is comma-separated with consistent quoting",
		Code:    "CSV001",
	}},
	{contains("connection refused"), UserMessage{
		Message: "Unable to reach the contact store",
		Action:  "Please try again in a few moments",
		Code:    "STO001",
	}},
	{contains("context deadline exceeded"), UserMessage{
		Message: "The operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "STO002",
	}},
	{contains("context canceled"), UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "STO003",
	}},
}

// MapError converts a technical error into a user-facing message.
// Unrecognized errors map to the ERR000 fallback; the technical detail
// belongs in server logs, not in the response.
func MapError(err error) UserMessage {
	for _, m := range errorMappings {
		if m.match(err) {
			return m.msg
		}
	}
	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}
