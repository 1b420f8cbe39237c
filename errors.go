package ensemble

import "errors"

// ErrCallFailed is returned by CallActor/CallService when the handler
// returns without ever calling Message.Respond, leaving the response
// channel closed with nothing to receive.
var ErrCallFailed = errors.New("ensemble: call failed: handler did not respond")

// ErrSystemStopping names the shutdown condition. No operation in this
// package returns it: sends issued after Stop are accepted like any other
// send rather than rejected.
var ErrSystemStopping = errors.New("ensemble: system is stopping")

// ErrUnknownService names an unregistered service kind. No operation in
// this package returns it: SendToService and CallService create a kind's
// worker set on first contact.
var ErrUnknownService = errors.New("ensemble: unknown service kind")

// ErrAuditTrailDisabled is returned by Broker.AuditTrail when
// WithAuditTrail was never passed to NewSystemCoordinator.
var ErrAuditTrailDisabled = errors.New("ensemble: audit trail not enabled")
