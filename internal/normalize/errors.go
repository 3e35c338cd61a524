package normalize

import (
	"fmt"

	"github.com/John-Robertt/clashforge/internal/model"
)

type Error struct {
	AppError model.AppError
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Diagnostic converts the failure into the recoverable form recorded by a
// compilation run.
func (e *Error) Diagnostic() model.Diagnostic {
	return model.Diagnostic{
		Code:    e.AppError.Code,
		Stage:   e.AppError.Stage,
		Subject: e.AppError.Snippet,
		Message: e.AppError.Message,
	}
}

func newError(d *model.Descriptor, code, msg string, cause error) *Error {
	subject := d.Tag
	if subject == "" {
		subject = fmt.Sprintf("%s %s:%d", d.Type, d.Server, d.ServerPort)
	}
	return &Error{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "normalize",
			Snippet: truncate(subject, 200),
		},
		Cause: cause,
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
