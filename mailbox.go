package ensemble

import (
	"fmt"
	"sync/atomic"
	"time"
)

// mailboxCapacity bounds how many envelopes can queue against one identity
// before a sender blocks.
const mailboxCapacity = 5

// mailbox serializes delivery to one actor identity. Exactly one Receive
// invocation is ever in flight per mailbox.
type mailbox struct {
	pool *actorPool
	id   any

	ch            chan command
	idleWindow    time.Duration
	lastMessageAt atomic.Int64 // unix nanoseconds
}

func newMailbox(pool *actorPool, id any, idleWindow time.Duration, capacity int) *mailbox {
	mb := &mailbox{
		pool:       pool,
		id:         id,
		ch:         make(chan command, capacity),
		idleWindow: idleWindow,
	}
	mb.lastMessageAt.Store(time.Now().UnixNano())
	return mb
}

func (mb *mailbox) String() string {
	return fmt.Sprintf("%s/%v", mb.pool.kindName, mb.id)
}

// deliver hands one command to this mailbox. Blocking when the bounded
// channel is full is the backpressure mechanism: a slow identity pushes
// back on its own dispatcher rather than letting its queue grow unbounded.
func (mb *mailbox) deliver(cmd command) {
	mb.ch <- cmd
}

func (mb *mailbox) report() IdentityReport {
	return IdentityReport{
		ID:            mb.id,
		LastMessageAt: time.Unix(0, mb.lastMessageAt.Load()),
		QueueLength:   len(mb.ch),
	}
}

// run is the mailbox's goroutine body: activate once, then loop dispatching
// envelopes or handling stop/idle-timeout per the reclamation protocol
// below.
func (mb *mailbox) run() {
	assistant := newActorAssistant(mb.pool.router.coordinator, mb.id, mb.pool.kindType, mb.pool)

	value, activated := mb.activate(assistant)
	if !activated {
		// Activation itself panicked; nothing to deactivate or run, but the
		// pool still needs the slot cleared via the usual protocol so a
		// later send can retry activation from scratch.
		mb.forceRemove()
		return
	}

	timer := time.NewTimer(mb.idleWindow)
	defer timer.Stop()

	for {
		select {
		case cmd := <-mb.ch:
			mb.lastMessageAt.Store(time.Now().UnixNano())

			if cmd.isStop() {
				if mb.reclaim(value, assistant) {
					return
				}
				resetTimer(timer, mb.idleWindow)
				continue
			}

			mb.handle(value, assistant, cmd.(dispatchCommand))
			resetTimer(timer, mb.idleWindow)

		case <-timer.C:
			if mb.reclaim(value, assistant) {
				return
			}
			resetTimer(timer, mb.idleWindow)
		}
	}
}

func (mb *mailbox) activate(assistant *ActorAssistant) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			mb.pool.reportFailure(mb.id, r)
			ok = false
		}
	}()
	return mb.pool.kind.Activate(assistant), true
}

// handle invokes the user's Receive, recovering from panics at the loop
// boundary so a handler fault never poisons the mailbox, and guaranteeing
// every call's response channel is resolved one way or another.
func (mb *mailbox) handle(value any, assistant *ActorAssistant, cmd dispatchCommand) {
	_, span := traceDispatch(mb.pool.router.coordinator.config.TracingEnabled, mb.pool.kindName, mb.id)
	defer span.End()

	defer cmd.msg.closeIfUnanswered()
	defer func() {
		if r := recover(); r != nil {
			mb.pool.reportFailure(mb.id, r)
		}
	}()
	mb.pool.kind.Receive(value, cmd.msg, assistant)
}

// reclaim runs the race-free teardown protocol: collapse pending stop
// sentinels, then take the pool's entry hold and re-check before removing
// this identity, so a send racing the removal always sees one consistent
// outcome. Returns true once the mailbox has actually terminated and
// unregistered itself.
func (mb *mailbox) reclaim(value any, assistant *ActorAssistant) bool {
	// Steps 1-2: collapse consecutive stop sentinels; if a real envelope
	// turns up, requeue a stop behind it, dispatch it, and resume the loop.
	for {
		select {
		case cmd := <-mb.ch:
			if cmd.isStop() {
				continue
			}
			mb.requeueStop()
			mb.handle(value, assistant, cmd.(dispatchCommand))
			return false
		default:
		}
		break
	}

	// Step 3: acquire the exclusive hold on this identity's slot.
	mb.pool.lockEntries()

	// Step 4: re-check under the hold.
	select {
	case cmd := <-mb.ch:
		mb.pool.unlockEntries()
		if cmd.isStop() {
			mb.requeueStop()
			return false
		}
		mb.requeueStop()
		mb.handle(value, assistant, cmd.(dispatchCommand))
		return false
	default:
	}

	// Step 5: still empty under the hold — remove, release, deactivate.
	mb.pool.removeLocked(mb.id)
	mb.pool.unlockEntries()

	mb.deactivate(value, assistant)
	mb.pool.signalMailboxRemoved()
	return true
}

func (mb *mailbox) deactivate(value any, assistant *ActorAssistant) {
	d, ok := mb.pool.kind.(Deactivatable)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			mb.pool.reportFailure(mb.id, r)
		}
	}()
	d.Deactivate(value, newDeactivateAssistant(assistant))
}

// forceRemove is used only when Activate itself panicked: there is no
// value to deactivate, but the slot still needs clearing through the same
// locked path so subsequent sends reliably retry activation. Anything
// already queued ahead of the panic — most importantly a pending Call's
// message — gets its response channel closed here; without this a caller
// blocked in Call would otherwise wait forever for a mailbox that will
// never run again.
func (mb *mailbox) forceRemove() {
	mb.pool.lockEntries()
	mb.pool.removeLocked(mb.id)

	for {
		select {
		case cmd := <-mb.ch:
			if dc, ok := cmd.(dispatchCommand); ok {
				dc.msg.closeIfUnanswered()
			}
			continue
		default:
		}
		break
	}

	mb.pool.unlockEntries()
	mb.pool.signalMailboxRemoved()
}

func (mb *mailbox) requeueStop() {
	// Never blocks the mailbox goroutine: if concurrent senders have refilled
	// the channel, the sentinel is handed to a goroutine that waits for room.
	select {
	case mb.ch <- stopCommand{}:
	default:
		go func() { mb.ch <- stopCommand{} }()
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
