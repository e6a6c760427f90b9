// Package status defines the closed status-code taxonomy shared by every
// resource-handler operation, mirroring the tagged Result<T, Status> the
// core's upstream API returns.
package status

import "fmt"

// Code is the closed set of outcomes a resource-handler operation can
// report. The zero value is OK so a freshly constructed Status reads as
// success until explicitly set otherwise.
type Code int

const (
	OK Code = iota
	NotFound
	AlreadyExists
	InvalidArgument
	FailedPrecondition
	Unavailable
	Internal
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidArgument:
		return "InvalidArgument"
	case FailedPrecondition:
		return "FailedPrecondition"
	case Unavailable:
		return "Unavailable"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Status is the error type every exported operation in this module
// returns. It satisfies the error interface so it composes with
// fmt.Errorf's %w and errors.As/Is.
type Status struct {
	Code    Code
	Message string
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// New builds a Status with a formatted message.
func New(code Code, format string, args ...interface{}) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Status carrying the underlying error's message.
func Wrap(code Code, err error, context string) *Status {
	return &Status{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
}

// Is reports whether err is a *Status with the given code. It does not
// unwrap: err must itself be the *Status, which is how this module
// returns errors (it never buries a *Status behind a generic wrap).
func Is(err error, code Code) bool {
	s, ok := err.(*Status)
	return ok && s.Code == code
}

// Of returns err's code, or Internal if err is not a *Status produced by
// this module (an invariant violation worth surfacing loudly rather than
// silently mapping to OK).
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if s, ok := err.(*Status); ok {
		return s.Code
	}
	return Internal
}
