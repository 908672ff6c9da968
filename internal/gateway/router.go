// Package gateway is the HTTP leg in front of the route context. Requests are
// turned into exchanges, sent through the named route, and the resulting
// message is rendered back: the response code header picks the status and
// the message body becomes the response body.
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go-errorhandler/internal/observability"
	"go-errorhandler/internal/route"
	"go-errorhandler/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const defaultMaxBodyBytes = 1 << 20

type Options struct {
	// Routes backs POST /routes/:id; without it only the ops endpoints
	// are served
	Routes *route.Context
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil
	Gatherer prometheus.Gatherer
	// Health backs /healthz; always healthy when nil
	Health       func(ctx context.Context) error
	Logger       *logrus.Entry
	MaxBodyBytes int64
}

type handler struct {
	routes  *route.Context
	health  func(ctx context.Context) error
	maxBody int64
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = observability.WithComponent("gateway")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &handler{
		routes:  opts.Routes,
		health:  opts.Health,
		maxBody: opts.MaxBodyBytes,
	}

	r := gin.New()
	r.Use(RequestID(), Logger(opts.Logger), Recovery())

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	if opts.Routes != nil {
		r.POST("/routes/:id", h.send)
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	})

	return r
}

func (h *handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) send(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body could not be read")
		return
	}

	ex := models.NewExchange(h.toMessage(c, body))

	err = h.routes.Send(c.Request.Context(), c.Param("id"), ex)
	switch {
	case errors.Is(err, route.ErrRouteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	case err != nil:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeRouteFailure, "request could not be processed")
		return
	}

	render(c, ex.In)
}

// toMessage copies the body, the X-* headers and the content type
func (h *handler) toMessage(c *gin.Context, body []byte) *models.Message {
	msg := models.NewMessage(c.GetHeader("X-Message-Key"), body)
	msg.ID = c.GetString(requestIDKey)
	msg.SetHeader(models.HeaderMessageID, msg.ID)

	for name, values := range c.Request.Header {
		if len(values) == 0 || !strings.HasPrefix(name, "X-") {
			continue
		}
		msg.SetHeader(strings.ToLower(name), values[0])
	}
	if ct := c.GetHeader("Content-Type"); ct != "" {
		msg.SetHeader("content-type", ct)
	}
	return msg
}
