// Package route is a small linear routing engine. A route is an ordered list
// of processing steps; when a step fails, the route's FailureStrategy decides
// whether the failure is absorbed or handed back to the caller.
package route

import (
	"context"
	"runtime/debug"

	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Processor is a single step of a route
type Processor func(ctx context.Context, ex *models.Exchange) error

// FailureStrategy governs how failures raised on a route are resolved.
//
// Run calls Classify first and stores the result as the exchange's handled
// flag, then calls OnFailureOccurred, and only then reads the flag back.
// OnFailureOccurred may therefore reverse the classification.
type FailureStrategy interface {
	Classify(err error) bool
	OnFailureOccurred(ex *models.Exchange)
	LogHandled() bool
}

// CompletionHook is an optional extension of FailureStrategy. OnCompletion
// is called once per Run after the traversal ends, whatever the outcome.
type CompletionHook interface {
	OnCompletion(ex *models.Exchange)
}

// DefaultStrategy leaves every failure unhandled
type DefaultStrategy struct{}

func (DefaultStrategy) Classify(error) bool                { return false }
func (DefaultStrategy) OnFailureOccurred(*models.Exchange) {}
func (DefaultStrategy) LogHandled() bool                   { return false }

// Definition is a route: an ID, its steps and its failure strategy.
// Steps and strategy are configured before the route starts receiving
// exchanges and are read without locking afterwards.
type Definition struct {
	id       string
	steps    []Processor
	strategy FailureStrategy
	logger   *logrus.Entry
	metrics  observability.MetricsCollector
}

func NewDefinition(id string) *Definition {
	return &Definition{
		id:      id,
		logger:  observability.WithComponent("route").WithField("route_id", id),
		metrics: observability.NewInMemoryMetrics(),
	}
}

func (d *Definition) ID() string {
	return d.id
}

// Process appends steps to the route
func (d *Definition) Process(steps ...Processor) *Definition {
	d.steps = append(d.steps, steps...)
	return d
}

func (d *Definition) SetFailureStrategy(s FailureStrategy) {
	d.strategy = s
}

// FailureStrategy returns the configured strategy, or DefaultStrategy
func (d *Definition) FailureStrategy() FailureStrategy {
	if d.strategy == nil {
		return DefaultStrategy{}
	}
	return d.strategy
}

// Run sends the exchange through every step. It returns nil when all steps
// succeed or when a failure was handled by the strategy, and an
// *UnhandledError otherwise. A strategy implementing CompletionHook sees the
// exchange last.
func (d *Definition) Run(ctx context.Context, ex *models.Exchange) error {
	ex.SetProperty(models.PropertyRouteID, d.id)
	if hook, ok := d.FailureStrategy().(CompletionHook); ok {
		defer hook.OnCompletion(ex)
	}

	for i, step := range d.steps {
		if err := ctx.Err(); err != nil {
			ex.SetErr(err)
			d.metrics.IncFailureUnhandled(d.id)
			return &UnhandledError{RouteID: d.id, Err: errors.Wrapf(err, "before step %d", i)}
		}

		if err := invoke(ctx, step, ex); err != nil {
			ex.SetProperty(models.PropertyFailureEndpoint, i)
			return d.fail(ex, errors.Wrapf(err, "step %d", i))
		}
	}

	return nil
}

func (d *Definition) fail(ex *models.Exchange, err error) error {
	ex.SetErr(err)
	strategy := d.FailureStrategy()

	ex.SetProperty(models.PropertyErrorHandlerHandled, strategy.Classify(err))
	strategy.OnFailureOccurred(ex)

	logger := d.logger.WithFields(logrus.Fields{
		"exchange_id": ex.ID,
		"message_id":  ex.In.ID,
	}).WithError(err)

	if handled, _ := ex.Handled(); handled {
		d.metrics.IncFailureHandled(d.id)
		if strategy.LogHandled() {
			logger.Warn("Route failure handled")
		}
		return nil
	}

	d.metrics.IncFailureUnhandled(d.id)
	logger.Error("Route failure not handled")
	return &UnhandledError{RouteID: d.id, Err: err}
}

func invoke(ctx context.Context, step Processor, ex *models.Exchange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return step(ctx, ex)
}
