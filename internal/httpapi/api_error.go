package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/John-Robertt/clashforge/internal/compiler"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/John-Robertt/clashforge/internal/render"
	"github.com/John-Robertt/clashforge/internal/source"
	"github.com/John-Robertt/clashforge/internal/template"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func requestError(code, message, hint string) error {
	return &APIError{
		Status: http.StatusBadRequest,
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "validate_request",
			Hint:    hint,
		},
	}
}

// appErrorOf extracts the payload of every typed error the pipeline returns.
// User content errors map to 422.
func appErrorOf(err error) (int, model.AppError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status, ae.AppError, true
	}
	var se *source.ParseError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity, se.AppError, true
	}
	var pe *profile.ParseError
	if errors.As(err, &pe) {
		return http.StatusUnprocessableEntity, pe.AppError, true
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return http.StatusUnprocessableEntity, ce.AppError, true
	}
	var re *render.RenderError
	if errors.As(err, &re) {
		return http.StatusUnprocessableEntity, re.AppError, true
	}
	var te *template.TemplateError
	if errors.As(err, &te) {
		return http.StatusUnprocessableEntity, te.AppError, true
	}
	return 0, model.AppError{}, false
}

func writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if status, app, ok := appErrorOf(err); ok {
		WriteError(w, status, app)
		return
	}
	// Fallback: internal bug.
	WriteError(w, http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	})
}
