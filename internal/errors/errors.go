// Package errors provides structured error types for Chimera.
// It implements the error-kind taxonomy the core reports through: validation
// failures, authorization denials, illegal state transitions, port failures
// (with timeout as a typed subkind), and cooperative cancellation.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindValidation indicates invalid input at entry: malformed target,
	// empty fingerprint, unknown permission.
	KindValidation
	// KindAuthDenied indicates the policy engine returned DENY.
	KindAuthDenied
	// KindInvalidTransition indicates an illegal deployment or step
	// status transition. A caller bug; never expected in normal flow.
	KindInvalidTransition
	// KindPortFailure indicates an underlying port adapter failed:
	// build, sync, exec, session, network.
	KindPortFailure
	// KindCancelled indicates cooperative cancellation of a long-running
	// loop or fan-out.
	KindCancelled
	// KindConfig indicates a configuration load or validation error.
	KindConfig
	// KindNotFound indicates a requested resource does not exist.
	KindNotFound
	// KindInternal indicates a defect in the core itself.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthDenied:
		return "authorization_denied"
	case KindInvalidTransition:
		return "invalid_state_transition"
	case KindPortFailure:
		return "port_failure"
	case KindCancelled:
		return "cancelled"
	case KindConfig:
		return "configuration"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the structured error type used across the core.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error, if any.
	Err error
	// Recoverable indicates the caller may retry or otherwise proceed.
	Recoverable bool
	// Timeout marks a PortFailure as the typed timeout subkind (spec
	// §7: "Timeout is a typed PortFailure subkind").
	Timeout bool
	// Details carries structured context: node host, step id, and so on.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error by Kind (and Op, when the
// target names one) so sentinel-style comparisons via errors.Is work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetails merges details into the error and returns it.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key and returns the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// E builds an Error from mixed arguments: Kind sets the category, the
// first string sets Op, the second sets Message, an error or *Error sets
// the cause, map[string]any sets Details, bool sets Recoverable.
func E(args ...any) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else if e.Message == "" {
				e.Message = a
			}
		case *Error:
			e.Err = a
			if e.Kind == KindUnknown {
				e.Kind = a.Kind
			}
		case error:
			e.Err = a
		case map[string]any:
			e.Details = a
		case bool:
			e.Recoverable = a
		}
	}
	return e
}

// GetKind returns the Kind of an error, or KindUnknown if err is not (or
// does not wrap) an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable reports whether err is a recoverable *Error.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsTimeout reports whether err is a PortFailure carrying the Timeout
// subkind flag.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindPortFailure && e.Timeout
	}
	return false
}

// Validation creates a validation error. Validation failures are always
// recoverable in the sense that the caller can correct the input and
// retry; they never propagate as internal errors.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message, Recoverable: true}
}

// ValidationWrap wraps an error as a validation error.
func ValidationWrap(err error, op, message string) *Error {
	e := Wrap(err, KindValidation, op, message)
	e.Recoverable = true
	return e
}

// AuthDenied creates an authorization-denied error. Use cases that
// receive this abort cleanly and emit no state-change event.
func AuthDenied(op, subjectID, permission string) *Error {
	return (&Error{
		Kind:    KindAuthDenied,
		Op:      op,
		Message: fmt.Sprintf("subject %q denied permission %q", subjectID, permission),
	}).WithDetails(map[string]any{"subject": subjectID, "permission": permission})
}

// InvalidTransition creates an invalid-state-transition error. This
// indicates a programming bug at the call site: it should be logged and
// surfaced, never silently swallowed.
func InvalidTransition(op string, from, to string) *Error {
	return (&Error{
		Kind:    KindInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("illegal transition from %s to %s", from, to),
	}).WithDetails(map[string]any{"from": from, "to": to})
}

// PortFailure creates a port-failure error, optionally wrapping a cause.
func PortFailure(op, message string, cause error) *Error {
	return &Error{Kind: KindPortFailure, Op: op, Message: message, Err: cause, Recoverable: true}
}

// PortTimeout creates a port-failure error carrying the Timeout subkind.
func PortTimeout(op, message string, cause error) *Error {
	e := PortFailure(op, message, cause)
	e.Timeout = true
	return e
}

// Cancelled creates a cancellation error.
func Cancelled(op, message string) *Error {
	return &Error{Kind: KindCancelled, Op: op, Message: message}
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// NotFound creates a not-found error.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// Internal creates an internal error.
func Internal(op, message string) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: message}
}

// InternalWrap wraps an error as an internal error.
func InternalWrap(err error, op, message string) *Error {
	return Wrap(err, KindInternal, op, message)
}

// sensitivePatterns matches credentials that can end up embedded in port
// failure messages: SSH URLs with inline passwords, ITSM/notification
// bearer tokens, and webhook URLs with embedded secrets.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9_-]{20,}\b`),
	regexp.MustCompile(`://[^:]+:[^@]+@`),
	regexp.MustCompile(`\bhttps://hooks\.slack\.com/services/[A-Z0-9]+/[A-Z0-9]+/[a-zA-Z0-9]+\b`),
}

// RedactSensitive removes credentials and tokens from a string before it
// reaches logs or CLI output.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// RedactError returns err with sensitive data stripped from its message,
// or err unchanged if nothing needed redacting. Returns nil for a nil err.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}
