package gateway

import (
	"net/http"

	"go-errorhandler/internal/errorhandling"
	"go-errorhandler/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ErrCodeNotFound     = "not_found"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
	ErrCodeRouteFailure = "route_failure"
)

type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get(requestIDHeader),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		loggerFrom(c).WithFields(logrus.Fields{
			"status": status,
			"code":   code,
		}).Error(msg)
	}

	c.AbortWithStatusJSON(status, resp)
}

// render writes the route's resulting message as the HTTP response. The
// status comes from the response code header, 200 when absent; a code that
// is not a valid HTTP status is a route failure. An empty body is sent as no
// body at all.
func render(c *gin.Context, msg *models.Message) {
	status := http.StatusOK
	if code, ok := msg.HeaderInt(models.HeaderHTTPResponseCode); ok {
		if !errorhandling.ValidStatusCode(code) {
			loggerFrom(c).WithField("response_code", code).Warn("Route set an invalid response code")
			fail(c, http.StatusInternalServerError, ErrCodeRouteFailure, "request could not be processed")
			return
		}
		status = code
	}

	if id := msg.ID; id != "" {
		c.Header("X-Message-ID", id)
	}

	if len(msg.Body) == 0 {
		c.Status(status)
		c.Writer.WriteHeaderNow()
		return
	}

	contentType, ok := msg.HeaderString("content-type")
	if !ok {
		contentType = "application/json"
	}
	c.Data(status, contentType, msg.Body)
}
