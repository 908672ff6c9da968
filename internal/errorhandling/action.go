// Package errorhandling provides the "handle errors" action. Once attached to
// a route context it takes over failure handling on every route: failures are
// caught, and the failed message is rewritten into an empty response carrying
// the configured HTTP status code.
//
// The action must be configured before it is attached and before routes
// start receiving messages. Reconfiguring a live action is not synchronized.
package errorhandling

import (
	"context"

	"go-errorhandler/internal/observability"
	"go-errorhandler/internal/route"
	"go-errorhandler/pkg/models"

	"github.com/sirupsen/logrus"
)

// StatusCodeHeader is the message header carrying the configured status code
// from Setup to HandleErrors. It is private to the route: attached routes
// drop it when the traversal ends.
const StatusCodeHeader = "go-errorhandler/internal/errorhandling.statusCode"

// DefaultStatusCode is the status code used when configuration does not
// provide one.
const DefaultStatusCode = 400

// ValidStatusCode reports whether code can be sent as an HTTP status line
func ValidStatusCode(code int) bool {
	return code >= 100 && code <= 599
}

// RouteSource exposes the routes an action is attached to
type RouteSource interface {
	Routes() []*route.Definition
}

// Action installs the failure strategy and marks messages with the status code
type Action struct {
	statusCode *int
	strategy   *failureStrategy
	logger     *logrus.Entry
}

// New creates an action and attaches it to every route in routes.
// The status code starts unset.
func New(routes RouteSource) *Action {
	a := &Action{
		strategy: &failureStrategy{logHandled: true},
		logger:   observability.WithComponent("errorhandling"),
	}
	a.Attach(routes)
	return a
}

// Attach makes the action's failure strategy the strategy of every route.
// The same strategy instance is shared by all routes.
func (a *Action) Attach(routes RouteSource) {
	defs := routes.Routes()
	for _, def := range defs {
		def.SetFailureStrategy(a.strategy)
	}
	a.logger.WithField("routes", len(defs)).Debug("Error handling attached")
}

func (a *Action) SetStatusCode(code int) {
	a.statusCode = &code
}

// ResetStatusCode returns the action to its unconfigured state
func (a *Action) ResetStatusCode() {
	a.statusCode = nil
}

func (a *Action) StatusCode() (int, bool) {
	if a.statusCode == nil {
		return 0, false
	}
	return *a.statusCode, true
}

// FailureStrategy returns the strategy installed on attached routes
func (a *Action) FailureStrategy() route.FailureStrategy {
	return a.strategy
}

// Setup writes the configured status code onto the inbound message. With no
// status code configured the header is removed, which HandleErrors treats as
// "not handled". Setup has the route.Processor signature so it can be placed
// as the first step of a route.
func (a *Action) Setup(_ context.Context, ex *models.Exchange) error {
	if a.statusCode == nil {
		ex.In.SetHeader(StatusCodeHeader, nil)
		return nil
	}
	ex.In.SetHeader(StatusCodeHeader, *a.statusCode)
	return nil
}

// HandleErrors resolves a caught failure. Messages without a status code
// header get the handled flag forced to false so the engine's default failure
// path runs; all others get the status code as HTTP response code and an
// empty body.
func HandleErrors(ex *models.Exchange) {
	res := Resolve(ex.In)

	code, handled := res.StatusCode()
	if !handled {
		ex.SetProperty(models.PropertyErrorHandlerHandled, false)
		return
	}

	ex.In.SetHeader(models.HeaderHTTPResponseCode, code)
	ex.In.Body = nil
}

// Resolve decides the outcome of a failure from the message alone
func Resolve(msg *models.Message) Resolution {
	code, ok := msg.HeaderInt(StatusCodeHeader)
	if !ok {
		return Unhandled()
	}
	return Handled(code)
}

// failureStrategy treats every failure alike: Classify always reports it as
// handled and the final decision is taken by HandleErrors. On completion it
// removes the marker so the header never leaves the route.
type failureStrategy struct {
	logHandled bool
}

var _ route.CompletionHook = (*failureStrategy)(nil)

func (*failureStrategy) Classify(error) bool {
	return true
}

func (*failureStrategy) OnFailureOccurred(ex *models.Exchange) {
	HandleErrors(ex)
}

func (s *failureStrategy) LogHandled() bool {
	return s.logHandled
}

func (*failureStrategy) OnCompletion(ex *models.Exchange) {
	ex.In.RemoveHeader(StatusCodeHeader)
}
