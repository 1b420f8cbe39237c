package ensemble

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterKind is a test actor: one *int per identity, incremented by
// increment{} sends and read back by get{} calls.
type counterKind struct {
	activations atomic.Int32
}

type increment struct{ by int }
type get struct{}

func (k *counterKind) Activate(a *ActorAssistant) any {
	k.activations.Add(1)
	n := 0
	return &n
}

func (k *counterKind) Receive(value any, msg *Message, a *ActorAssistant) {
	counter := value.(*int)

	switch v := msg.Value.(type) {
	case increment:
		*counter += v.by
	case get:
		msg.Respond(*counter)
	}
}

func newTestCoordinator(idle time.Duration) *SystemCoordinator {
	cfg := DefaultConfig()
	cfg.ActorIdleWindow = idle
	return NewSystemCoordinator(cfg)
}

func TestSendThenCallRoundTrip(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	SendToActor(c.Actors, kind, "alice", increment{by: 5})
	SendToActor(c.Actors, kind, "alice", increment{by: 2})

	v, err := CallActor(context.Background(), c.Actors, kind, "alice", get{})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSeparateIdentitiesHaveSeparateState(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	SendToActor(c.Actors, kind, "alice", increment{by: 1})
	SendToActor(c.Actors, kind, "bob", increment{by: 100})

	va, err := CallActor(context.Background(), c.Actors, kind, "alice", get{})
	require.NoError(t, err)
	vb, err := CallActor(context.Background(), c.Actors, kind, "bob", get{})
	require.NoError(t, err)

	assert.Equal(t, 1, va)
	assert.Equal(t, 100, vb)
}

func TestCallFailsWhenHandlerNeverResponds(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	// increment never calls msg.Respond, so a Call against it must surface
	// ErrCallFailed rather than hang.
	_, err := CallActor(context.Background(), c.Actors, kind, "alice", increment{by: 1})
	assert.ErrorIs(t, err, ErrCallFailed)
}

// slowKind sleeps on every message, so its mailbox backs up against its
// bounded capacity fast enough to make backpressure deterministic to test.
type slowKind struct{ delay time.Duration }

func (k *slowKind) Activate(a *ActorAssistant) any { return nil }

func (k *slowKind) Receive(value any, msg *Message, a *ActorAssistant) {
	time.Sleep(k.delay)
	if _, isGet := msg.Value.(get); isGet {
		msg.Respond(0)
	}
}

func TestCallRespectsContextCancellation(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &slowKind{delay: 20 * time.Millisecond}

	// Each send is non-blocking (the pool's inbound queue is unbounded), so
	// issuing these in program order guarantees they queue ahead of the
	// Call below; the slow handler then backs the bounded mailbox channel
	// up long enough for the context deadline to win the race.
	for i := 0; i < mailboxCapacity+5; i++ {
		SendToActor(c.Actors, kind, "alice", increment{by: 1})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := CallActor(ctx, c.Actors, kind, "alice", get{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendToAllActorsFansOutToResidentMailboxesOnly(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	SendToActor(c.Actors, kind, "alice", increment{by: 0})
	SendToActor(c.Actors, kind, "bob", increment{by: 0})
	time.Sleep(20 * time.Millisecond) // let both mailboxes activate

	SendToAllActors(c.Actors, kind, increment{by: 9})

	va, err := CallActor(context.Background(), c.Actors, kind, "alice", get{})
	require.NoError(t, err)
	vb, err := CallActor(context.Background(), c.Actors, kind, "bob", get{})
	require.NoError(t, err)

	assert.Equal(t, 9, va)
	assert.Equal(t, 9, vb)

	// carol had no mailbox when the fan-out ran, so it never saw it.
	vc, err := CallActor(context.Background(), c.Actors, kind, "carol", get{})
	require.NoError(t, err)
	assert.Equal(t, 0, vc)
}

func TestIdleMailboxIsReclaimedAndReactivated(t *testing.T) {
	c := newTestCoordinator(15 * time.Millisecond)
	kind := &counterKind{}

	SendToActor(c.Actors, kind, "alice", increment{by: 1})
	time.Sleep(100 * time.Millisecond) // outlast the idle window

	assert.Equal(t, int32(1), kind.activations.Load())

	// A later send must recreate the mailbox from scratch: state resets.
	v, err := CallActor(context.Background(), c.Actors, kind, "alice", get{})
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	assert.Equal(t, int32(2), kind.activations.Load())
}

func TestStopActorReclaimsMailbox(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	SendToActor(c.Actors, kind, "alice", increment{by: 3})
	StopActor(c.Actors, kind, "alice")
	time.Sleep(30 * time.Millisecond)

	v, err := CallActor(context.Background(), c.Actors, kind, "alice", get{})
	require.NoError(t, err)
	assert.Equal(t, 0, v) // reactivated from a clean slate
}

// chainKind forwards each increment to the next identity, stopping at a
// ceiling. Exercises a long send chain: many sequential sends through
// distinct, lazily-activated mailboxes.
type chainKind struct {
	ceiling int
	done    chan struct{}
	once    sync.Once
}

type chainStep struct{ n int }

func (k *chainKind) Activate(a *ActorAssistant) any { return nil }

func (k *chainKind) Receive(value any, msg *Message, a *ActorAssistant) {
	step := msg.Value.(chainStep)
	if step.n >= k.ceiling {
		k.once.Do(func() { close(k.done) })
		return
	}
	a.Send(k, step.n+1, chainStep{n: step.n + 1})
}

func TestLongActorChain(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &chainKind{ceiling: 2000, done: make(chan struct{})}

	SendToActor(c.Actors, kind, 0, chainStep{n: 0})

	select {
	case <-kind.done:
	case <-time.After(10 * time.Second):
		t.Fatal("chain never reached its ceiling")
	}
}

func TestPreloadIsIdempotent(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &counterKind{}

	c.Actors.Preload(kind)
	c.Actors.Preload(kind)

	assert.Len(t, c.Actors.Statistics(), 1)
}
