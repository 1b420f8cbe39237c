package ensemble

import "time"

// Config holds the tunables for one SystemCoordinator instance.
type Config struct {
	// ActorIdleWindow is how long a mailbox waits without a delivery before
	// attempting reclamation.
	ActorIdleWindow time.Duration `json:"actorIdleWindow"`

	// ActorMailboxCapacity bounds each mailbox's channel. Zero falls back
	// to the package default of 5.
	ActorMailboxCapacity int `json:"actorMailboxCapacity"`

	// ScheduleJitter caps the random jitter added to ActorAssistant.ScheduleSend
	// delays, so a burst of identical schedules doesn't wake in lockstep.
	ScheduleJitter time.Duration `json:"scheduleJitter"`

	// TracingEnabled turns on span emission around dispatch.
	TracingEnabled bool `json:"tracingEnabled"`
}

// DefaultConfig returns the tunables this package was built and tested
// against.
func DefaultConfig() Config {
	return Config{
		ActorIdleWindow:      300 * time.Second,
		ActorMailboxCapacity: mailboxCapacity,
		ScheduleJitter:       0,
		TracingEnabled:       false,
	}
}
