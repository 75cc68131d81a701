package types

import "fmt"

// ErrorCode classifies a fatal error (§7 Error handling design, §4.12
// Error Classifier). Transient states (Unknown/Unavailable) are never
// represented as ErrorCode values — they are ordinary Scalar variants.
type ErrorCode string

const (
	// Configuration errors (schema/shape violations discovered at load time).
	ErrParse              ErrorCode = "PARSE"
	// ErrSyntaxError and ErrExpectedToken are the two parse-failure shapes
	// the lexer/parser raise directly (§4.1 "fails with ParseError(position,
	// message)"); ErrParse is the coarser code used outside the parser
	// itself (e.g. an unparseable collection-query string).
	ErrSyntaxError   ErrorCode = "SYNTAX_ERROR"
	ErrExpectedToken ErrorCode = "EXPECTED_TOKEN"
	ErrDuplicateSensorKey ErrorCode = "CONFIG_DUPLICATE_KEY"
	ErrUndefinedVariable  ErrorCode = "CONFIG_UNDEFINED_VARIABLE"
	ErrSchemaVersion      ErrorCode = "CONFIG_SCHEMA_VERSION"
	ErrEmptyDataSource    ErrorCode = "CONFIG_EMPTY_DATASOURCE"

	// Resolution errors (§4.3, §4.4).
	ErrMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrMissingAttribute  ErrorCode = "MISSING_ATTRIBUTE"

	// Dependency graph errors (§4.5).
	ErrCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// Handler dispatch errors (§4.7, §4.10).
	ErrHandler ErrorCode = "HANDLER_ERROR"

	// Resolver contract violations (§4.12 DataValidationError).
	ErrDataValidation ErrorCode = "DATA_VALIDATION"
)

// Error is the structured fatal-error type returned across every evaluator
// boundary (§9 design note: "Replace [exceptions] with a Result<Value,
// ErrorKind> return"). Transient propagation never constructs an Error; it
// is carried as a Scalar (KindUnknown/KindUnavailable) instead.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int // formula-text position; -1 if not applicable
	Formula  string // "main" or the attribute name, when known
	Name     string // the offending free name/sensor key, when known
	Err      error
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Position: -1}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Position >= 0 && e.Name != "":
		return fmt.Sprintf("%s: %s (name=%q, position=%d)", e.Code, e.Message, e.Name, e.Position)
	case e.Position >= 0:
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (name=%q)", e.Code, e.Message, e.Name)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the wrapped cause, if any, enabling errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// WithPosition attaches a formula-text position.
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// WithName attaches the offending free name or sensor key.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithFormula attaches which formula ("main" or an attribute name) raised the error.
func (e *Error) WithFormula(formula string) *Error {
	e.Formula = formula
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Fatal reports whether the code represents a fatal error under §7's
// taxonomy. All ErrorCode values are fatal by construction; the helper
// exists so call sites read as intent rather than a tautology.
func (e *Error) Fatal() bool { return true }

// SensorError is the diagnostic attribute a tripped sensor carries (§7 "A
// sensor in Error surfaces as an unavailable host entity with a diagnostic
// attribute listing the error kind, offending formula location, and
// unresolved dependency name(s)"). It is the durable, loggable shape
// derived from the *Error that tripped the sensor's circuit breaker.
type SensorError struct {
	Kind       ErrorCode
	Formula    string
	Position   int
	Unresolved []string
}

// ToSensorError renders e as the diagnostic attribute surfaced to Host and
// to structured logging.
func (e *Error) ToSensorError() SensorError {
	se := SensorError{Kind: e.Code, Formula: e.Formula, Position: e.Position}
	if e.Name != "" {
		se.Unresolved = []string{e.Name}
	}
	return se
}
