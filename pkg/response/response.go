// Package response centralizes HTTP response shapes and helpers.
// Every endpoint answers with the same envelope so clients can branch on "success" alone.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/validation"
)

// Envelope is the body of every response.
type Envelope struct {
	Success    bool                    `json:"success"`
	Data       any                     `json:"data,omitempty"`
	Error      string                  `json:"error,omitempty"`
	StatusCode int                     `json:"statusCode"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
}

// Paging describes one page of a list endpoint.
type Paging struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// Paged is the list payload carried in Envelope.Data.
type Paged[T any] struct {
	Data   []T    `json:"data"`
	Paging Paging `json:"paging"`
}

// NewPaged builds a page with totalPages = ceil(total/limit). Items are never encoded as null.
func NewPaged[T any](items []T, total int64, page, limit int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	var pages int64
	if limit > 0 && total > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Paged[T]{
		Data:   items,
		Paging: Paging{Total: total, Page: page, Limit: limit, TotalPages: pages},
	}
}

// Success writes {"success":true,"data":payload,"statusCode":status}. A zero status means 200.
func Success(c *gin.Context, status int, payload any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, successEnvelope{Success: true, Data: payload, StatusCode: status})
}

// successEnvelope keeps "data" even when the payload is nil.
type successEnvelope struct {
	Success    bool `json:"success"`
	Data       any  `json:"data"`
	StatusCode int  `json:"statusCode"`
}

// Error writes the failure envelope and aborts the handler chain. A zero status means 500.
// Field errors are attached as "errors" when supplied.
func Error(c *gin.Context, status int, message string, errs ...validation.FieldError) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, Envelope{
		Success:    false,
		Error:      message,
		StatusCode: status,
		Errors:     errs,
	})
}
