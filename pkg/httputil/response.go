package httputil

import (
	"context"
	"net/http"
	"strings"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// StatusCode maps err to an HTTP status. A deadline anywhere in the chain is a 504,
// then errors that know their status win. Anything else is a 500.
func StatusCode(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return http.StatusInternalServerError
}

// Message is the user-visible text for err. Internal causes are not exposed.
func Message(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timeout"
	}
	if verr, ok := errors.AsValidation(err); ok {
		return verr.Error()
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// FieldErrors returns the per-field failures carried by err, or nil.
func FieldErrors(err error) []errors.FieldError {
	if verr, ok := errors.AsValidation(err); ok {
		return verr.Fields
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
