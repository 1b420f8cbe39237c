package ensemble

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoordinatorStopDrainsBothRouters(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	actorKind := &counterKind{}
	serviceKind := &sumKind{}

	SendToActor(c.Actors, actorKind, "alice", increment{by: 1})
	SendToService(c.Services, serviceKind, increment{by: 1})
	time.Sleep(20 * time.Millisecond)

	c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.AwaitStopped(ctx)
	require.NoError(t, err)
}

type panickingKind struct {
	panicked atomic.Bool
}

func (k *panickingKind) Activate(a *ActorAssistant) any { return nil }

func (k *panickingKind) Receive(value any, msg *Message, a *ActorAssistant) {
	k.panicked.Store(true)
	panic("boom")
}

func TestFailureHookIsInvokedOnHandlerPanic(t *testing.T) {
	var gotKind any
	var gotReason any

	cfg := DefaultConfig()
	cfg.ActorIdleWindow = time.Minute
	c := NewSystemCoordinator(cfg, WithFailureHook(func(kind, id, reason any) {
		gotKind = kind
		gotReason = reason
	}))

	kind := &panickingKind{}
	SendToActor(c.Actors, kind, "x", increment{by: 1})

	require.Eventually(t, func() bool { return gotReason != nil }, time.Second, 5*time.Millisecond)
	require.Equal(t, kind, gotKind)
	require.Equal(t, "boom", gotReason)
	require.True(t, kind.panicked.Load())
}

func TestCallSurfacesErrCallFailedWhenActivatePanics(t *testing.T) {
	c := newTestCoordinator(time.Minute)
	kind := &activatePanicsKind{}

	_, err := CallActor(context.Background(), c.Actors, kind, "x", get{})
	require.ErrorIs(t, err, ErrCallFailed)
}

type activatePanicsKind struct{}

func (activatePanicsKind) Activate(a *ActorAssistant) any {
	panic("activation exploded")
}

func (activatePanicsKind) Receive(value any, msg *Message, a *ActorAssistant) {}
