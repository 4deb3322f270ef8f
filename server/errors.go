package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/dicomweb/data"
)

// ErrorResponse is the body of every request-level failure.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

const messageInternal = "internal storage failure"

// statusOf maps an error onto the HTTP status reported to the client.
func statusOf(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, data.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, data.ErrInvalid):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes), errors.Is(err, data.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error body. Server-side failures only expose a
// generic message; the cause goes to the log.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("%s %s failed - %v", c.Request.Method, c.Request.URL.Path, err)
		message = messageInternal
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:  message,
		Status: status,
	})
}
