package compile

import (
	"errors"
	"fmt"
)

// RenderError reports a statement that cannot be rendered: a scope
// violation, a malformed IR node, or a feature the dialect lacks.
type RenderError struct {
	Code    RenderErrorCode
	Message string
	Dialect string
}

// RenderErrorCode categorizes render errors.
type RenderErrorCode string

const (
	ErrCodeDanglingSource    RenderErrorCode = "DANGLING_SOURCE"
	ErrCodeJoinTarget        RenderErrorCode = "JOIN_TARGET"
	ErrCodeMissingTarget     RenderErrorCode = "MISSING_TARGET"
	ErrCodeNegativeLimit     RenderErrorCode = "NEGATIVE_LIMIT"
	ErrCodeEmptyProjection   RenderErrorCode = "EMPTY_PROJECTION"
	ErrCodeNoAssignments     RenderErrorCode = "NO_ASSIGNMENTS"
	ErrCodeEmptyList         RenderErrorCode = "EMPTY_LIST"
	ErrCodeInvalidCase       RenderErrorCode = "INVALID_CASE"
	ErrCodeInvalidIdentifier RenderErrorCode = "INVALID_IDENTIFIER"
	ErrCodeCompositeArity    RenderErrorCode = "COMPOSITE_ARITY"
	ErrCodeUnsupported       RenderErrorCode = "UNSUPPORTED"
	ErrCodeUnknownNode       RenderErrorCode = "UNKNOWN_NODE"
)

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Dialect != "" {
		return fmt.Sprintf("%s: %s (dialect=%s)", e.Code, e.Message, e.Dialect)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRenderError returns true if err is or wraps a RenderError.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}

// IsUnsupported returns true for errors caused by a missing dialect feature.
func IsUnsupported(err error) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnsupported
	}
	return false
}

// ErrUnboundParam is returned when a statement with named parameters is
// used before all of them are bound.
var ErrUnboundParam = errors.New("unbound parameter")

func (c *Compiler) fail(code RenderErrorCode, format string, args ...any) error {
	return &RenderError{Code: code, Message: fmt.Sprintf(format, args...), Dialect: c.dialect.Name()}
}
