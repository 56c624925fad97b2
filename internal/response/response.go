// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"errors"
	"math"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with data and pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total, TotalPages: pages},
	})
}

// BadRequest writes 400 with an INVALID_INPUT error.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "INVALID_INPUT", message)
}

// Fail writes an error envelope with an explicit status.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

// Error maps a comparison error to its status and writes it. The message is the
// human-readable cause class, so addresses and upstream details stay out of responses.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	Fail(c, StatusFor(err), route.Code(err), route.Cause(err))
}

// StatusFor returns the HTTP status for a comparison error.
func StatusFor(err error) int {
	err = route.Dominant(err)
	switch {
	case errors.Is(err, route.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, route.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.Is(err, route.ErrNoRoutes):
		return http.StatusBadGateway
	case errors.Is(err, route.ErrAddressNotFound), errors.Is(err, route.ErrComparisonNotFound):
		return http.StatusNotFound
	case errors.Is(err, route.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, route.ErrMalformedPolyline),
		errors.Is(err, route.ErrNoRouteSection),
		errors.Is(err, route.ErrResolutionTransport),
		errors.Is(err, route.ErrRouteTransport):
		return http.StatusBadGateway
	case errors.Is(err, route.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
