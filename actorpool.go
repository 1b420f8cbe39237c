package ensemble

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// actorPool is the per-actor-kind registry: {identity → mailbox} plus the
// unbounded inbound queue every sender of that kind funnels through. Its
// single mutex doubles as the "entry hold" a mailbox takes before removing
// its own slot, standing in for per-entry locking on a concurrent map.
type actorPool struct {
	router   *ActorRouter
	kind     Actor
	kindType reflect.Type
	kindName string

	idleWindow time.Duration
	mailboxCap int

	mu        sync.Mutex
	mailboxes map[any]*mailbox
	idType    reflect.Type // set from the first id seen; must never change after

	inbound *unboundedQueue
	ending  atomic.Bool

	reclaimed *lru.Cache[string, time.Time]
}

type poolDispatch struct {
	id  any
	msg *Message
}

type poolDispatchAll struct {
	msg any
}

type poolStopActor struct {
	id any
}

func newActorPool(router *ActorRouter, kind Actor, kindType reflect.Type, idleWindow time.Duration, mailboxCap int) *actorPool {
	reclaimed, _ := lru.New[string, time.Time](64)

	if mailboxCap <= 0 {
		mailboxCap = mailboxCapacity
	}

	p := &actorPool{
		router:     router,
		kind:       kind,
		kindType:   kindType,
		kindName:   kindType.String(),
		idleWindow: idleWindow,
		mailboxCap: mailboxCap,
		mailboxes:  make(map[any]*mailbox),
		inbound:    newUnboundedQueue(),
		reclaimed:  reclaimed,
	}
	go p.run()
	return p
}

func (p *actorPool) run() {
	for {
		item, ok := p.inbound.Pop()
		if !ok {
			return
		}

		switch cmd := item.(type) {
		case poolDispatch:
			p.dispatch(cmd.id, cmd.msg)
		case poolDispatchAll:
			p.dispatchToAll(cmd.msg)
		case poolStopActor:
			p.stopOne(cmd.id)
		}
	}
}

func (p *actorPool) checkID(id any) {
	t := reflect.TypeOf(id)

	p.mu.Lock()
	if p.idType == nil {
		p.idType = t
	}
	mismatch := p.idType != t
	p.mu.Unlock()

	if mismatch {
		panic(fmt.Sprintf("ensemble: actor %s received id of type %s, want %s: identity type must never change for a kind",
			p.kindName, t, p.idType))
	}
}

// dispatch looks up or creates id's mailbox and hands it msg. It holds the
// pool mutex across the (possibly blocking) mailbox send: that hold is what
// makes a mailbox's own entry-hold acquisition during reclamation effective,
// since the mailbox cannot remove its own slot while this call has not yet
// finished handing it the envelope.
func (p *actorPool) dispatch(id any, msg *Message) {
	p.checkID(id)

	p.mu.Lock()

	mb, exists := p.mailboxes[id]
	if !exists {
		mb = newMailbox(p, id, p.idleWindow, p.mailboxCap)
		p.mailboxes[id] = mb
		go mb.run()
	}

	mb.deliver(dispatchCommand{msg: msg})

	ending := p.ending.Load()
	p.mu.Unlock()

	if !exists && ending {
		mb.deliver(stopCommand{})
	}
}

// dispatchToAll realizes DispatchToAll: a snapshot fan-out to currently
// resident mailboxes, never spawning new ones. The whole iteration holds
// the pool mutex so no targeted mailbox can reclaim itself mid-broadcast.
func (p *actorPool) dispatchToAll(msg any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, mb := range p.mailboxes {
		clone := cloneForFanOut(msg)
		mb.deliver(dispatchCommand{msg: newFireAndForgetMessage(clone)})
	}
}

func (p *actorPool) stopOne(id any) {
	p.mu.Lock()
	mb, exists := p.mailboxes[id]
	if exists {
		mb.deliver(stopCommand{})
	}
	p.mu.Unlock()
}

// end flags the pool ending and asks every resident mailbox to stop.
func (p *actorPool) end() {
	p.ending.Store(true)

	p.mu.Lock()
	mailboxes := make([]*mailbox, 0, len(p.mailboxes))
	for _, mb := range p.mailboxes {
		mailboxes = append(mailboxes, mb)
	}
	p.mu.Unlock()

	for _, mb := range mailboxes {
		mb.deliver(stopCommand{})
	}

	p.checkRemovable()
}

func (p *actorPool) reportFailure(id, reason any) {
	p.router.coordinator.reportFailure(p.kind, id, reason)
}

// lockEntries/unlockEntries/removeLocked expose the pool mutex to mailbox's
// reclamation protocol as the "exclusive hold on the mailbox's slot".
func (p *actorPool) lockEntries()   { p.mu.Lock() }
func (p *actorPool) unlockEntries() { p.mu.Unlock() }

func (p *actorPool) removeLocked(id any) {
	delete(p.mailboxes, id)
	p.reclaimed.Add(fmt.Sprint(id), time.Now())
}

// signalMailboxRemoved is called by a mailbox right after it unregisters.
// It re-checks pool-level removability and, once every condition holds,
// removes itself from the ActorRouter under the same entry-hold discipline.
func (p *actorPool) signalMailboxRemoved() {
	p.checkRemovable()
}

func (p *actorPool) checkRemovable() {
	if !p.readyToRemove() {
		return
	}

	p.router.lockEntries()
	defer p.router.unlockEntries()

	if !p.readyToRemove() {
		return
	}

	if p.router.removeIfPresentLocked(p.kindType, p) {
		p.router.signalPoolRemoved()
	}
}

func (p *actorPool) readyToRemove() bool {
	if !p.ending.Load() {
		return false
	}

	p.mu.Lock()
	empty := len(p.mailboxes) == 0
	p.mu.Unlock()

	return empty && p.inbound.Len() == 0
}

func (p *actorPool) isEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mailboxes) == 0 && p.inbound.Len() == 0
}

func (p *actorPool) statistics() ActorPoolReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := ActorPoolReport{Kind: p.kindName}
	for _, mb := range p.mailboxes {
		report.Identities = append(report.Identities, mb.report())
	}

	for _, key := range p.reclaimed.Keys() {
		if ts, ok := p.reclaimed.Get(key); ok {
			report.RecentlyReclaimed = append(report.RecentlyReclaimed, ReclaimedReport{
				ID:          key,
				ReclaimedAt: ts,
			})
		}
	}

	return report
}
