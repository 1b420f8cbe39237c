package ensemble

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"golang.org/x/sync/errgroup"
)

// FailureFunc is invoked whenever a handler, Activate, or Deactivate panics.
// kind is the Actor or Service descriptor involved; id is nil for a service
// failure. The coordinator's default hook only logs; register your own to
// feed a dead-letter queue or alerting.
type FailureFunc func(kind any, id any, reason any)

// SystemCoordinator owns the whole runtime: the actor router, the service
// router, and the broker that connects them, plus the ambient concerns
// (config, logging, scheduling) every router needs a way back to.
type SystemCoordinator struct {
	Actors   *ActorRouter
	Services *ServiceRouter
	Broker   *Broker

	config Config
	logger *slog.Logger

	failureHook FailureFunc
}

// NewSystemCoordinator builds a coordinator with cfg's tunables. Passing
// the zero Config is valid; DefaultConfig is only a convenience starting
// point.
func NewSystemCoordinator(cfg Config, opts ...CoordinatorOption) *SystemCoordinator {
	c := &SystemCoordinator{
		config: cfg,
		logger: slog.Default(),
	}
	c.Actors = newActorRouter(c)
	c.Services = newServiceRouter(c)
	c.Broker = newBroker(c.Services)

	for _, opt := range opts {
		opt(c)
	}

	if c.failureHook == nil {
		c.failureHook = c.logFailure
	}

	return c
}

// CoordinatorOption configures a SystemCoordinator at construction time.
type CoordinatorOption func(*SystemCoordinator)

// WithFailureHook overrides the default log-only failure handler.
func WithFailureHook(hook FailureFunc) CoordinatorOption {
	return func(c *SystemCoordinator) { c.failureHook = hook }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *SystemCoordinator) { c.logger = logger }
}

// WithAuditTrail turns on the broker's opt-in watermill-backed publish
// audit trail.
func WithAuditTrail() CoordinatorOption {
	return func(c *SystemCoordinator) {
		c.Broker.enableAudit(watermill.NewSlogLogger(c.logger))
	}
}

func (c *SystemCoordinator) reportFailure(kind any, id any, reason any) {
	c.failureHook(kind, id, reason)
}

func (c *SystemCoordinator) logFailure(kind any, id any, reason any) {
	c.logger.Error("ensemble: handler panic recovered",
		slog.Any("kind", kind),
		slog.Any("id", id),
		slog.Any("reason", reason),
	)
}

// Stop asks both routers to end. It does not block; use AwaitStopped.
func (c *SystemCoordinator) Stop() {
	c.Actors.Stop()
	c.Services.Stop()
}

// AwaitStopped blocks until both routers have fully drained, or ctx is
// cancelled first. Uses errgroup so either router's failure to converge
// surfaces immediately rather than waiting for the slower one to time out
// on its own.
func (c *SystemCoordinator) AwaitStopped(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.Actors.AwaitStopped(ctx) })
	g.Go(func() error { return c.Services.AwaitStopped(ctx) })

	return g.Wait()
}

// Statistics aggregates a snapshot from both routers.
func (c *SystemCoordinator) Statistics() Statistics {
	return Statistics{
		Actors:   c.Actors.Statistics(),
		Services: c.Services.Statistics(),
	}
}
