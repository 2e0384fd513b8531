package resolver

import (
	"fmt"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// SQLSTATE codes reported on query errors.
const (
	CodeFeatureNotSupported = "0A000"
	CodeDataException       = "22000"
	CodeUndefinedTable      = "42P01"
	CodeUndefinedColumn     = "42703"
)

// QueryError reports a problem with the query being resolved. Span points at
// the offending token in the original SQL text when known.
type QueryError struct {
	Msg  string
	Code string
	Span pgast.Span
}

func (e *QueryError) Error() string {
	return e.Msg
}

// SQLState returns the five-character SQLSTATE code for the error.
func (e *QueryError) SQLState() string {
	if e.Code == "" {
		return CodeFeatureNotSupported
	}
	return e.Code
}

func errUnsupported(span pgast.Span, format string, args ...any) *QueryError {
	return &QueryError{
		Msg:  fmt.Sprintf(format, args...) + " is not supported",
		Code: CodeFeatureNotSupported,
		Span: span,
	}
}

func errQuery(span pgast.Span, format string, args ...any) *QueryError {
	return &QueryError{
		Msg:  fmt.Sprintf(format, args...),
		Code: CodeFeatureNotSupported,
		Span: span,
	}
}

func errData(span pgast.Span, format string, args ...any) *QueryError {
	return &QueryError{
		Msg:  fmt.Sprintf(format, args...),
		Code: CodeDataException,
		Span: span,
	}
}
