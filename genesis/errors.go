package genesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category classifies what kind of failure an error represents. Categories
// drive retry decisions; severity drives log routing only.
type Category string

const (
	CategoryInfrastructure    Category = "INFRASTRUCTURE"
	CategoryNetwork           Category = "NETWORK"
	CategoryValidation        Category = "VALIDATION"
	CategoryAuthentication    Category = "AUTHENTICATION"
	CategoryAuthorization     Category = "AUTHORIZATION"
	CategoryExternalService   Category = "EXTERNAL_SERVICE"
	CategoryRateLimit         Category = "RATE_LIMIT"
	CategoryResourceExhausted Category = "RESOURCE_EXHAUSTED"
	CategoryUnknown           Category = "UNKNOWN"
)

// Severity indicates how an error should be routed by log/alert pipelines.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Codes carried by errors the resilience components synthesize themselves,
// so monitoring can separate "dependency call failed" from "dependency
// protection engaged".
const (
	// CodeCircuitOpen marks failures rejected by an open circuit breaker.
	CodeCircuitOpen = "CIRCUIT_OPEN"
)

// Detail keys attached by the retry executor.
const (
	DetailAttemptsMade = "attempts_made"
	DetailLastDelay    = "last_delay"
)

// categoryCodes derives the stable wire code for each category.
var categoryCodes = map[Category]string{
	CategoryInfrastructure:    "INFRASTRUCTURE_ERROR",
	CategoryNetwork:           "NETWORK_ERROR",
	CategoryValidation:        "VALIDATION_ERROR",
	CategoryAuthentication:    "AUTHENTICATION_ERROR",
	CategoryAuthorization:     "AUTHORIZATION_ERROR",
	CategoryExternalService:   "EXTERNAL_SERVICE_ERROR",
	CategoryRateLimit:         "RATE_LIMIT_EXCEEDED",
	CategoryResourceExhausted: "RESOURCE_EXHAUSTED",
	CategoryUnknown:           "UNKNOWN_ERROR",
}

// categorySeverities is the default severity per category.
var categorySeverities = map[Category]Severity{
	CategoryInfrastructure: SeverityCritical,
	CategoryValidation:     SeverityWarning,
	CategoryRateLimit:      SeverityWarning,
}

// categoryRecoverable is the default retry eligibility per category.
// VALIDATION and AUTHORIZATION never become recoverable by default;
// transient categories do.
var categoryRecoverable = map[Category]bool{
	CategoryNetwork:           true,
	CategoryExternalService:   true,
	CategoryRateLimit:         true,
	CategoryInfrastructure:    true,
	CategoryResourceExhausted: true,
}

// Error is the structured failure type shared by every genesis component.
// It is immutable after construction apart from the single enrichment step
// the constructors and Handle perform.
type Error struct {
	Category    Category
	Severity    Severity
	Code        string
	Message     string
	Details     map[string]any
	Context     *Context
	Recoverable bool
	Timestamp   time.Time

	cause error
}

// New creates an Error of the given category with defaults derived from
// the category: code, severity and recoverability. The ambient operation
// Context in ctx is snapshotted (or a fresh one minted when none is active).
func New(ctx context.Context, category Category, message string) *Error {
	return &Error{
		Category:    category,
		Severity:    severityFor(category),
		Code:        CodeFor(category),
		Message:     message,
		Details:     map[string]any{},
		Context:     FromContextOrNew(ctx),
		Recoverable: categoryRecoverable[category],
		Timestamp:   time.Now().UTC(),
	}
}

// Wrap creates an Error around cause. The cause is exclusively owned by
// the returned Error and reachable through errors.Unwrap.
func Wrap(ctx context.Context, category Category, message string, cause error) *Error {
	gerr := New(ctx, category, message)
	gerr.cause = cause

	return gerr
}

// CodeFor returns the stable wire code derived from a category.
func CodeFor(category Category) string {
	if code, ok := categoryCodes[category]; ok {
		return code
	}

	return categoryCodes[CategoryUnknown]
}

func severityFor(category Category) Severity {
	if severity, ok := categorySeverities[category]; ok {
		return severity
	}

	return SeverityError
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithSeverity overrides the default severity. Part of the construction
// chain; do not call on errors already handed to callers.
func (e *Error) WithSeverity(severity Severity) *Error {
	e.Severity = severity
	return e
}

// WithCode overrides the derived code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithRecoverable overrides the default retry eligibility.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// WithDetail attaches one detail entry. Redaction of sensitive values is
// the caller's responsibility.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}

	e.Details[key] = value

	return e
}

// Detail returns a detail value previously attached with WithDetail.
func (e *Error) Detail(key string) (any, bool) {
	value, ok := e.Details[key]
	return value, ok
}

// Clone returns a shallow copy with its own Details map. Enrichment of an
// error that other holders may share goes through a clone so the held
// instances keep their original code and details.
func (e *Error) Clone() *Error {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details))

	for key, value := range e.Details {
		clone.Details[key] = value
	}

	return &clone
}

// wireError is the stable serialized form consumed by centralized log and
// error aggregation. Field names are a contract; do not rename.
type wireError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Category  Category       `json:"category"`
	Severity  Severity       `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
	Context   *Context       `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MarshalJSON serializes the error in the stable wire format.
func (e *Error) MarshalJSON() ([]byte, error) {
	var wire wireError

	wire.Error.Message = e.Message
	wire.Error.Code = e.Code
	wire.Category = e.Category
	wire.Severity = e.Severity
	wire.Details = e.Details
	wire.Context = e.Context
	wire.Timestamp = e.Timestamp

	return json.Marshal(wire)
}

// CategoryOf returns the category of err when it is (or wraps) a genesis
// Error, and CategoryUnknown otherwise.
func CategoryOf(err error) Category {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Category
	}

	return CategoryUnknown
}

// CodeOf returns the code of err when it is (or wraps) a genesis Error.
func CodeOf(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}

	return CodeFor(CategoryUnknown)
}
