package services

import "fmt"

// ErrorKind tags every rejection on the query path so handlers can map it to
// a status code without string matching.
type ErrorKind string

const (
	ErrAuthenticationRequired ErrorKind = "AUTHENTICATION_REQUIRED"
	ErrIdentityNotFound       ErrorKind = "IDENTITY_NOT_FOUND"
	ErrMultipleStatements     ErrorKind = "MULTIPLE_STATEMENTS"
	ErrUnsafeOperation        ErrorKind = "UNSAFE_OPERATION"
	ErrUnrecognizedQueryType  ErrorKind = "UNRECOGNIZED_QUERY_TYPE"
	ErrStore                  ErrorKind = "STORE_ERROR"
)

type QueryError struct {
	Kind    ErrorKind
	Message string
}

func (e *QueryError) Error() string { return e.Message }

func newQueryError(kind ErrorKind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
