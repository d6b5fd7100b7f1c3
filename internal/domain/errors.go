package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks a capability failure that is safe to retry (timeout, reset, 429/5xx).
	ErrTransient = errors.New("transient capability failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a language model provider failure.
	ErrLLMProviderError = errors.New("language model provider error")
	// ErrRetrievalUnavailable signals that the retrieval index could not be searched.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrIntentExtraction signals that the model did not produce a valid intent.
	ErrIntentExtraction = errors.New("intent extraction failed")
	// ErrUnsupportedIntent signals an intent the query generator cannot compile.
	ErrUnsupportedIntent = errors.New("unsupported intent")
	// ErrValidationRejected signals a compiled query refused by the guard.
	ErrValidationRejected = errors.New("query rejected by validator")
	// ErrExecution signals a failed measurement query after retries.
	ErrExecution = errors.New("execution failed")

	// ErrStoreTimeout signals a measurement store timeout or dropped connection.
	ErrStoreTimeout = errors.New("measurement store timeout")
	// ErrStoreUnavailable signals a permanent measurement store failure.
	ErrStoreUnavailable = errors.New("measurement store unavailable")
	// ErrMalformedQuery signals SQL the store could not parse. Never expected after validation.
	ErrMalformedQuery = errors.New("malformed query")

	// ErrSessionExpired signals a session discarded after inactivity.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidRequest signals bad caller input.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorKind is the stable, caller-facing classification of a pipeline failure.
type ErrorKind string

// Error kinds reported to callers.
const (
	KindRetrievalUnavailable ErrorKind = "RetrievalUnavailable"
	KindIntentExtraction     ErrorKind = "IntentExtractionFailure"
	KindAmbiguousIntent      ErrorKind = "AmbiguousIntent"
	KindUnsupportedIntent    ErrorKind = "UnsupportedIntentError"
	KindValidationRejected   ErrorKind = "ValidationRejected"
	KindExecutionFailure     ErrorKind = "ExecutionFailure"
	KindSynthesisDegraded    ErrorKind = "SynthesisDegraded"
	KindSessionExpired       ErrorKind = "SessionExpired"
	KindInvalidRequest       ErrorKind = "InvalidRequest"
	KindInternal             ErrorKind = "Internal"
)

// IntentExtractionError carries the raw model output of the last failed attempt.
type IntentExtractionError struct {
	Raw        string
	Violations []string
	Err        error
}

func (e *IntentExtractionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrIntentExtraction.Error())
	if len(e.Violations) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Violations, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches ErrIntentExtraction.
func (e *IntentExtractionError) Is(target error) bool { return target == ErrIntentExtraction }

func (e *IntentExtractionError) Unwrap() error { return e.Err }

// UnsupportedIntentError names the intent field the generator could not handle.
type UnsupportedIntentError struct {
	Field string
	Value string
}

func (e *UnsupportedIntentError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnsupportedIntent.Error(), e.Field, e.Value)
}

func (e *UnsupportedIntentError) Unwrap() error { return ErrUnsupportedIntent }

// NewUnsupportedIntent creates an unsupported intent error.
func NewUnsupportedIntent(field, value string) error {
	return &UnsupportedIntentError{Field: field, Value: value}
}

// PipelineError is the terminal failure of a turn. Message is safe to show to users,
// Err keeps the internal cause for logs.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *PipelineError) Unwrap() error { return e.Err }

// userMessages are the stable texts shown for each kind.
var userMessages = map[ErrorKind]string{
	KindIntentExtraction:   "I couldn't understand that question well enough to query the data. Please rephrase it.",
	KindUnsupportedIntent:  "I can't answer that yet.",
	KindValidationRejected: "Something went wrong while preparing the query.",
	KindExecutionFailure:   "The measurement database is not responding right now. Please try again shortly.",
	KindSessionExpired:     "This conversation has expired. Start a new session to continue.",
	KindInvalidRequest:     "The request is invalid.",
	KindInternal:           "Something went wrong.",
}

// NewPipelineError classifies err into a PipelineError with a stable kind and message.
func NewPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	kind := KindOf(err)
	msg := userMessages[kind]
	var ue *UnsupportedIntentError
	if errors.As(err, &ue) {
		msg = fmt.Sprintf("I can't answer that yet: %s %q is not supported.", ue.Field, ue.Value)
	}
	return &PipelineError{Kind: kind, Message: msg, Err: err}
}

// KindOf maps an error to its caller-facing kind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrIntentExtraction):
		return KindIntentExtraction
	case errors.Is(err, ErrUnsupportedIntent):
		return KindUnsupportedIntent
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, ErrExecution):
		return KindExecutionFailure
	case errors.Is(err, ErrSessionExpired):
		return KindSessionExpired
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrRetrievalUnavailable):
		return KindRetrievalUnavailable
	default:
		return KindInternal
	}
}
