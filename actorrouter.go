package ensemble

import (
	"context"
	"reflect"
	"sync"
)

// ActorRouter is the top-level registry of actor pools, one per kind: a
// mutex-guarded map[reflect.Type]*actorPool, since the pools themselves
// already carry their own fine-grained locking.
type ActorRouter struct {
	coordinator *SystemCoordinator

	mu    sync.Mutex
	pools map[reflect.Type]*actorPool

	ending bool
	done   chan struct{}
}

func newActorRouter(coordinator *SystemCoordinator) *ActorRouter {
	return &ActorRouter{
		coordinator: coordinator,
		pools:       make(map[reflect.Type]*actorPool),
		done:        make(chan struct{}),
	}
}

func (r *ActorRouter) lockEntries()   { r.mu.Lock() }
func (r *ActorRouter) unlockEntries() { r.mu.Unlock() }

// removeIfPresentLocked deletes pool from the registry iff it is still the
// pool registered for kindType (a concurrent Preload/dispatch could have
// already replaced it with a fresh one). Caller holds r.mu.
func (r *ActorRouter) removeIfPresentLocked(kindType reflect.Type, pool *actorPool) bool {
	if current, ok := r.pools[kindType]; ok && current == pool {
		delete(r.pools, kindType)
		return true
	}
	return false
}

// signalPoolRemoved is invoked (router mutex held) right after a pool took
// itself out of the registry. Once every pool is gone and the router itself
// is ending, AwaitStopped's waiters are released.
func (r *ActorRouter) signalPoolRemoved() {
	if r.ending && len(r.pools) == 0 {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
}

func (r *ActorRouter) poolFor(kind Actor) *actorPool {
	kindType := reflect.TypeOf(kind)

	r.mu.Lock()
	defer r.mu.Unlock()

	if pool, ok := r.pools[kindType]; ok {
		return pool
	}

	pool := newActorPool(r, kind, kindType, r.coordinator.config.ActorIdleWindow, r.coordinator.config.ActorMailboxCapacity)
	r.pools[kindType] = pool
	return pool
}

// Preload eagerly creates kind's pool so the first Send/Call pays no
// pool-creation cost on the hot path. It activates no identity: each
// mailbox still runs Activate on its first message. Calling it twice for
// the same kind is a no-op: poolFor already memoizes by reflect.Type.
func (r *ActorRouter) Preload(kind Actor) {
	r.poolFor(kind)
}

// send is the untyped core behind the generic SendToActor helper.
func (r *ActorRouter) send(kind Actor, id any, value any) {
	r.poolFor(kind).inbound.Push(poolDispatch{id: id, msg: newFireAndForgetMessage(value)})
}

// call is the untyped core behind CallActor.
func (r *ActorRouter) call(ctx context.Context, kind Actor, id any, value any) (any, error) {
	msg, responder := newCallMessage(value)
	r.poolFor(kind).inbound.Push(poolDispatch{id: id, msg: msg})

	select {
	case v, ok := <-responder:
		if !ok {
			return nil, ErrCallFailed
		}
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *ActorRouter) sendToAll(kind Actor, value any) {
	r.poolFor(kind).inbound.Push(poolDispatchAll{msg: value})
}

func (r *ActorRouter) stopActor(kind Actor, id any) {
	r.poolFor(kind).inbound.Push(poolStopActor{id: id})
}

// Stop asks every pool to end. Pools finish draining asynchronously; use
// AwaitStopped to block until they have.
func (r *ActorRouter) Stop() {
	r.mu.Lock()
	r.ending = true
	pools := make([]*actorPool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	empty := len(pools) == 0
	r.mu.Unlock()

	if empty {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
		return
	}

	for _, p := range pools {
		p.end()
	}
}

// AwaitStopped blocks until every actor pool has fully drained and
// unregistered, or ctx is cancelled first.
func (r *ActorRouter) AwaitStopped(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Statistics returns a snapshot report for every currently registered pool.
func (r *ActorRouter) Statistics() []ActorPoolReport {
	r.mu.Lock()
	pools := make([]*actorPool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.mu.Unlock()

	reports := make([]ActorPoolReport, 0, len(pools))
	for _, p := range pools {
		reports = append(reports, p.statistics())
	}
	return reports
}

// SendToActor delivers value to the identity id within kind's pool,
// activating the mailbox on first contact. It never blocks: the pool's
// inbound queue is unbounded; only the pool's own dispatcher goroutine can
// block, against the target mailbox's bounded channel.
func SendToActor[Id comparable](r *ActorRouter, kind Actor, id Id, value any) {
	r.send(kind, id, value)
}

// CallActor delivers value to identity id and blocks for exactly one
// response, or until ctx is cancelled. A handler that never calls
// Message.Respond surfaces as ErrCallFailed.
func CallActor[Id comparable](ctx context.Context, r *ActorRouter, kind Actor, id Id, value any) (any, error) {
	return r.call(ctx, kind, id, value)
}

// SendToAllActors fans value out to every mailbox currently resident in
// kind's pool. Recipients created after this call do not see it.
func SendToAllActors(r *ActorRouter, kind Actor, value any) {
	r.sendToAll(kind, value)
}

// StopActor asks the single mailbox for (kind, id) to reclaim itself.
func StopActor[Id comparable](r *ActorRouter, kind Actor, id Id) {
	r.stopActor(kind, id)
}
