package ensemble

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// serviceWorkerSet is the per-service-kind worker pool. Unlike an actor
// pool there is no per-identity fan-out: every message goes to one of N
// concurrent workers sharing the same initialized value.
type serviceWorkerSet struct {
	router   *ServiceRouter
	kind     Service
	kindType reflect.Type
	kindName string

	value  any
	config ServiceConfig

	// inbound is shared by every worker in the set: N goroutines pulling
	// from one queue gives the same delivery fairness round-robin
	// dispatch would, without an idle worker ever going unfed while
	// another backs up.
	inbound *unboundedQueue

	workerCount int

	// remaining counts workers that haven't yet observed inbound's close.
	// The last one to return closes done, so AwaitStopped can tell an
	// ending set apart from one still draining its backlog.
	remaining atomic.Int32
	done      chan struct{}
}

func newServiceWorkerSet(router *ServiceRouter, kind Service, kindType reflect.Type) *serviceWorkerSet {
	assistant := newServiceAssistant(router.coordinator, kind)
	value, config := kind.Initialize(assistant)

	zeroSized := reflect.TypeOf(value) == nil || reflect.TypeOf(value).Size() == 0

	s := &serviceWorkerSet{
		router:   router,
		kind:     kind,
		kindType: kindType,
		kindName: kindType.String(),
		value:    value,
		config:   config,
		inbound:  newUnboundedQueue(),
		done:     make(chan struct{}),
	}
	s.workerCount = config.Concurrency.workerCount(zeroSized)
	s.remaining.Store(int32(s.workerCount))

	for i := 0; i < s.workerCount; i++ {
		go s.runWorker()
	}
	return s
}

func (s *serviceWorkerSet) runWorker() {
	assistant := newServiceAssistant(s.router.coordinator, s.kind)
	defer func() {
		if s.remaining.Add(-1) == 0 {
			s.router.removeIfPresent(s.kindType, s)
			close(s.done)
		}
	}()

	for {
		item, ok := s.inbound.Pop()
		if !ok {
			return
		}

		msg := item.(*Message)

		if s.config.Concurrency.unlimited(s.zeroSized()) {
			go s.handle(assistant, msg)
			continue
		}

		s.handle(assistant, msg)
	}
}

func (s *serviceWorkerSet) zeroSized() bool {
	t := reflect.TypeOf(s.value)
	return t == nil || t.Size() == 0
}

func (s *serviceWorkerSet) handle(assistant *ServiceAssistant, msg *Message) {
	defer msg.closeIfUnanswered()
	defer func() {
		if r := recover(); r != nil {
			s.router.coordinator.reportFailure(s.kind, nil, r)
		}
	}()
	s.kind.Receive(s.value, msg, assistant)
}

func (s *serviceWorkerSet) dispatch(msg *Message) {
	s.inbound.Push(msg)
}

func (s *serviceWorkerSet) end() {
	s.inbound.Close()
}

func (s *serviceWorkerSet) statistics() ServiceWorkerSetReport {
	return ServiceWorkerSetReport{
		Kind:        s.kindName,
		Workers:     s.workerCount,
		QueueLength: s.inbound.Len(),
	}
}

func (s *serviceWorkerSet) String() string {
	return fmt.Sprintf("service/%s", s.kindName)
}
