package ensemble

import "time"

// IdentityReport describes one resident actor mailbox.
type IdentityReport struct {
	ID            any
	LastMessageAt time.Time
	QueueLength   int
}

// ReclaimedReport names an identity recently removed from a pool, kept
// around only for operational visibility (a bounded LRU, not a ledger).
type ReclaimedReport struct {
	ID          string
	ReclaimedAt time.Time
}

// ActorPoolReport is a point-in-time snapshot of one actor kind's pool.
type ActorPoolReport struct {
	Kind              string
	Identities        []IdentityReport
	RecentlyReclaimed []ReclaimedReport
}

// ServiceWorkerSetReport is a point-in-time snapshot of one service kind's
// worker set.
type ServiceWorkerSetReport struct {
	Kind        string
	Workers     int
	QueueLength int
}

// Statistics aggregates every router's reports for the whole system.
type Statistics struct {
	Actors   []ActorPoolReport
	Services []ServiceWorkerSetReport
}
