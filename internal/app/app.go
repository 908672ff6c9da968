// Package app assembles the route context shared by the consumer and the
// gateway.
package app

import (
	"fmt"

	"go-errorhandler/internal/config"
	"go-errorhandler/internal/errorhandling"
	"go-errorhandler/internal/observability"
	"go-errorhandler/internal/route"
	"go-errorhandler/internal/service"
)

// RequestsRoute is the route every inbound request is sent through
const RequestsRoute = "requests"

type App struct {
	Routes        *route.Context
	ErrorHandling *errorhandling.Action
}

// New defines the routes, attaches error handling to all of them and applies
// the configured status code before any message can flow.
func New(cfg *config.Config, metrics observability.MetricsCollector) (*App, error) {
	code := cfg.ErrorHandling.StatusCode
	if !errorhandling.ValidStatusCode(code) {
		return nil, fmt.Errorf("error handling status code %d is not a valid HTTP status", code)
	}

	rc := route.NewContext(route.Options{
		Logger:  observability.WithComponent("route"),
		Metrics: metrics,
	})

	requests := route.NewDefinition(RequestsRoute)
	if err := rc.AddRoute(requests); err != nil {
		return nil, fmt.Errorf("failed to define routes: %w", err)
	}

	action := errorhandling.New(rc)
	action.SetStatusCode(code)

	requests.Process(
		action.Setup,
		service.NewMessageProcessor().Process,
	)

	return &App{
		Routes:        rc,
		ErrorHandling: action,
	}, nil
}
