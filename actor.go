package ensemble

// Actor is implemented by a "kind" descriptor — one value per actor type,
// shared read-only by every identity of that type. Activate builds the
// per-identity state once; Receive then handles every message sent to
// that identity against it.
type Actor interface {
	// Activate creates the per-identity value. Called exactly once per
	// (kind, id) mailbox lifetime, before the first message is dispatched.
	// assistant.ID() recovers the identity being activated.
	Activate(assistant *ActorAssistant) any

	// Receive processes one message against the activated value. Implementors
	// type-switch on msg.Value and call msg.Respond(v) when answering a call;
	// msg.Respond is a no-op for a plain send.
	Receive(value any, msg *Message, assistant *ActorAssistant)
}

// Deactivatable is implemented by kinds that need teardown logic. Optional;
// a kind without it gets a no-op deactivate.
type Deactivatable interface {
	Deactivate(value any, assistant *DeactivateAssistant)
}
