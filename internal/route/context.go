package route

import (
	"context"
	"sync"

	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Context holds every route defined for an application
type Context struct {
	mu      sync.RWMutex
	routes  []*Definition
	byID    map[string]*Definition
	logger  *logrus.Entry
	metrics observability.MetricsCollector
}

type Options struct {
	Logger  *logrus.Entry
	Metrics observability.MetricsCollector
}

func NewContext(opts Options) *Context {
	if opts.Logger == nil {
		opts.Logger = observability.WithComponent("route")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewInMemoryMetrics()
	}

	return &Context{
		byID:    make(map[string]*Definition),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// AddRoute registers a route; it inherits the context's logger and metrics
func (c *Context) AddRoute(def *Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[def.id]; exists {
		return errors.Wrap(ErrDuplicateRoute, def.id)
	}

	def.logger = c.logger.WithField("route_id", def.id)
	def.metrics = c.metrics

	c.routes = append(c.routes, def)
	c.byID[def.id] = def
	return nil
}

// Routes returns the routes in registration order
func (c *Context) Routes() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	routes := make([]*Definition, len(c.routes))
	copy(routes, c.routes)
	return routes
}

func (c *Context) Route(id string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byID[id]
	return def, ok
}

// Send runs the exchange through the route with the given ID
func (c *Context) Send(ctx context.Context, id string, ex *models.Exchange) error {
	def, ok := c.Route(id)
	if !ok {
		return errors.Wrap(ErrRouteNotFound, id)
	}
	return def.Run(ctx, ex)
}

// Handler binds a route to the consumer handler signature
func (c *Context) Handler(id string) func(ctx context.Context, ex *models.Exchange) error {
	return func(ctx context.Context, ex *models.Exchange) error {
		return c.Send(ctx, id, ex)
	}
}
