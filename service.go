package ensemble

import "runtime"

// Service is implemented by a "kind" descriptor for a service type: a
// user-supplied value shared read-only across N concurrent workers.
type Service interface {
	// Initialize runs exactly once per ServiceWorkerSet lifetime, before the
	// first message is delivered (or eagerly, if the router's Preload is
	// called). It returns the shared value and the concurrency it wants.
	Initialize(assistant *ServiceAssistant) (any, ServiceConfig)

	// Receive processes one message against the shared value. Unlike an
	// actor's Receive, the same value is handed to every concurrent worker;
	// synchronizing any interior mutability is the implementor's job.
	Receive(value any, msg *Message, assistant *ServiceAssistant)
}

// ServiceConfig is returned by Service.Initialize.
type ServiceConfig struct {
	Concurrency Concurrency
}

// concurrencyKind enumerates the Concurrency variants.
type concurrencyKind int

const (
	concurrencyNone concurrencyKind = iota
	concurrencyOnePerCore
	concurrencyOneEachTwoCore
	concurrencyFixed
	concurrencyUnlimited
	concurrencyAutomatic
)

// Concurrency picks how many workers a ServiceWorkerSet runs. Build one with
// the constructors below; the zero value is ConcurrencyNone.
type Concurrency struct {
	kind  concurrencyKind
	fixed int
}

// ConcurrencyNone runs the service on a single worker goroutine.
func ConcurrencyNone() Concurrency { return Concurrency{kind: concurrencyNone} }

// ConcurrencyOnePerCore runs one worker goroutine per logical CPU.
func ConcurrencyOnePerCore() Concurrency { return Concurrency{kind: concurrencyOnePerCore} }

// ConcurrencyOneEachTwoCore runs one worker goroutine per two logical CPUs.
func ConcurrencyOneEachTwoCore() Concurrency { return Concurrency{kind: concurrencyOneEachTwoCore} }

// ConcurrencyFixed runs exactly n worker goroutines.
func ConcurrencyFixed(n int) Concurrency { return Concurrency{kind: concurrencyFixed, fixed: n} }

// ConcurrencyUnlimited runs a single receiving loop that spawns a detached
// goroutine per message, never awaiting it.
func ConcurrencyUnlimited() Concurrency { return Concurrency{kind: concurrencyUnlimited} }

// ConcurrencyAutomatic resolves to Unlimited for a zero-sized service value
// and OnePerCore otherwise.
func ConcurrencyAutomatic() Concurrency { return Concurrency{kind: concurrencyAutomatic} }

// unlimited reports whether this config resolves to the spawn-detached mode.
func (c Concurrency) unlimited(valueIsZeroSized bool) bool {
	switch c.kind {
	case concurrencyUnlimited:
		return true
	case concurrencyAutomatic:
		return valueIsZeroSized
	default:
		return false
	}
}

// workerCount resolves how many worker goroutines a Concurrency setting
// needs. Returns 1 whenever the config resolves to Unlimited (single
// receiving loop; fan-out happens per message via detached goroutines, not
// via extra loops).
func (c Concurrency) workerCount(valueIsZeroSized bool) int {
	if c.unlimited(valueIsZeroSized) {
		return 1
	}

	switch c.kind {
	case concurrencyOnePerCore:
		return runtime.NumCPU()
	case concurrencyOneEachTwoCore:
		n := runtime.NumCPU() / 2
		if n < 1 {
			n = 1
		}
		return n
	case concurrencyFixed:
		if c.fixed < 1 {
			return 1
		}
		return c.fixed
	case concurrencyAutomatic:
		return runtime.NumCPU()
	case concurrencyNone:
		fallthrough
	default:
		return 1
	}
}
