package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/composer"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorDetail is the data of an error response.
type ErrorDetail struct {
	Fields    []errors.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	VisitID   string              `json:"visit_id,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewErrorResponseFrom builds the error envelope for err.
func NewErrorResponseFrom(err error, requestID string) *Response {
	resp := NewErrorResponse(httputil.Message(err))
	detail := ErrorDetail{Fields: httputil.FieldErrors(err), RequestID: requestID}

	var commitErr *composer.CommitError
	if errors.As(err, &commitErr) && commitErr.OrphanedVisit() {
		detail.VisitID = commitErr.VisitID.String()
	}
	resp.Data = detail
	return resp
}

// Abort hands err to the error middleware and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
