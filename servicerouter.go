package ensemble

import (
	"context"
	"reflect"
	"sync"

	"github.com/sony/gobreaker"
)

// ServiceRouter is the top-level registry of service worker sets, one per
// kind. Mirrors ActorRouter's shape; services have no identity axis, so
// there is one set per kind rather than a set per (kind, id).
type ServiceRouter struct {
	coordinator *SystemCoordinator

	mu   sync.Mutex
	sets map[reflect.Type]*serviceWorkerSet

	breakers   sync.Map // reflect.Type -> *gobreaker.CircuitBreaker
	ending     bool
	done       chan struct{}
}

func newServiceRouter(coordinator *SystemCoordinator) *ServiceRouter {
	return &ServiceRouter{
		coordinator: coordinator,
		sets:        make(map[reflect.Type]*serviceWorkerSet),
		done:        make(chan struct{}),
	}
}

func (r *ServiceRouter) setFor(kind Service) *serviceWorkerSet {
	kindType := reflect.TypeOf(kind)

	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.sets[kindType]; ok {
		return set
	}

	set := newServiceWorkerSet(r, kind, kindType)
	r.sets[kindType] = set
	return set
}

// removeIfPresent deletes set from the registry iff it is still the set
// registered for kindType (a concurrent setFor could have already replaced
// it with a fresh one). Called by a worker set's last worker right before
// it exits.
func (r *ServiceRouter) removeIfPresent(kindType reflect.Type, set *serviceWorkerSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sets[kindType]; ok && current == set {
		delete(r.sets, kindType)
	}
}

// Preload eagerly runs kind's Initialize so the first Send/Call pays no
// setup cost on the hot path. Idempotent per kind: setFor memoizes by
// reflect.Type, so a second Preload of the same kind is a no-op.
func (r *ServiceRouter) Preload(kind Service) {
	r.setFor(kind)
}

func (r *ServiceRouter) send(kind Service, value any) {
	r.setFor(kind).dispatch(newFireAndForgetMessage(value))
}

func (r *ServiceRouter) breakerFor(kind Service) *gobreaker.CircuitBreaker {
	kindType := reflect.TypeOf(kind)

	if b, ok := r.breakers.Load(kindType); ok {
		return b.(*gobreaker.CircuitBreaker)
	}

	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: kindType.String(),
	})
	actual, _ := r.breakers.LoadOrStore(kindType, b)
	return actual.(*gobreaker.CircuitBreaker)
}

// call delivers value to one of kind's workers and blocks for a response,
// through a per-kind circuit breaker: repeated ErrCallFailed/timeouts trip
// the breaker open, failing fast instead of piling up calls against a
// service kind whose workers have stopped responding.
func (r *ServiceRouter) call(ctx context.Context, kind Service, value any) (any, error) {
	breaker := r.breakerFor(kind)

	result, err := breaker.Execute(func() (any, error) {
		msg, responder := newCallMessage(value)
		r.setFor(kind).dispatch(msg)

		select {
		case v, ok := <-responder:
			if !ok {
				return nil, ErrCallFailed
			}
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stop ends every registered worker set. Workers finish their current
// message, then exit once their queue drains and is closed. Stop itself
// does not block; done closes once every set's workers have actually
// returned, which is what AwaitStopped waits on.
func (r *ServiceRouter) Stop() {
	r.mu.Lock()
	r.ending = true
	sets := make([]*serviceWorkerSet, 0, len(r.sets))
	for _, s := range r.sets {
		sets = append(sets, s)
	}
	r.mu.Unlock()

	for _, s := range sets {
		s.end()
	}

	go func() {
		for _, s := range sets {
			<-s.done
		}
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}()
}

// AwaitStopped blocks until Stop has been called and acted on, or ctx is
// cancelled first.
func (r *ServiceRouter) AwaitStopped(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Statistics returns a snapshot report for every currently registered
// worker set.
func (r *ServiceRouter) Statistics() []ServiceWorkerSetReport {
	r.mu.Lock()
	sets := make([]*serviceWorkerSet, 0, len(r.sets))
	for _, s := range r.sets {
		sets = append(sets, s)
	}
	r.mu.Unlock()

	reports := make([]ServiceWorkerSetReport, 0, len(sets))
	for _, s := range sets {
		reports = append(reports, s.statistics())
	}
	return reports
}

// SendToService delivers value to one of kind's workers, activating the
// worker set on first contact. Never blocks. All workers of a kind pull
// from one shared queue, so the message goes to whichever worker is free
// first; there is no round-robin assignment of messages to workers.
func SendToService(r *ServiceRouter, kind Service, value any) {
	r.send(kind, value)
}

// CallService delivers value to one of kind's workers (whichever is free
// first, as for SendToService) and blocks for exactly one response, through
// kind's circuit breaker.
func CallService(ctx context.Context, r *ServiceRouter, kind Service, value any) (any, error) {
	return r.call(ctx, kind, value)
}
