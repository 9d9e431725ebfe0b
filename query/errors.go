package query

import (
	"errors"
	"fmt"
)

// ConstructionError reports statically detectable misuse found when a
// statement is built.
type ConstructionError struct {
	// Code identifies the error category.
	Code ConstructionErrorCode

	// Message is a human-readable description.
	Message string

	// Table and Column locate the offending reference, when there is one.
	Table  string
	Column string
}

// ConstructionErrorCode categorizes construction errors.
type ConstructionErrorCode string

const (
	ErrCodeJoinTarget      ConstructionErrorCode = "JOIN_TARGET"
	ErrCodeInvalidTarget   ConstructionErrorCode = "INVALID_TARGET"
	ErrCodeEmptyProjection ConstructionErrorCode = "EMPTY_PROJECTION"
	ErrCodeNegativeLimit   ConstructionErrorCode = "NEGATIVE_LIMIT"
	ErrCodeMisplacedClause ConstructionErrorCode = "MISPLACED_CLAUSE"
	ErrCodeNoAssignments   ConstructionErrorCode = "NO_ASSIGNMENTS"
	ErrCodeRaggedRows      ConstructionErrorCode = "RAGGED_ROWS"
	ErrCodeForeignColumn   ConstructionErrorCode = "FOREIGN_COLUMN"
	ErrCodeUnknownColumn   ConstructionErrorCode = "UNKNOWN_COLUMN"
	ErrCodeTypeMismatch    ConstructionErrorCode = "TYPE_MISMATCH"
	ErrCodeNullViolation   ConstructionErrorCode = "NULL_VIOLATION"
	ErrCodeSetOpArity      ConstructionErrorCode = "SET_OP_ARITY"
	ErrCodeInvalidCase     ConstructionErrorCode = "INVALID_CASE"
	ErrCodeNilQuery        ConstructionErrorCode = "NIL_QUERY"
)

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("%s: %s (column=%s.%s)", e.Code, e.Message, e.Table, e.Column)
	case e.Table != "":
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConstructionError returns true if err is or wraps a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// ConstructionCode returns the code of a wrapped ConstructionError, or "".
func ConstructionCode(err error) ConstructionErrorCode {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func constructionErr(code ConstructionErrorCode, format string, args ...any) *ConstructionError {
	return &ConstructionError{Code: code, Message: fmt.Sprintf(format, args...)}
}
