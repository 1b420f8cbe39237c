// Package ensemble is an in-process actor/service runtime: it lets
// application code declare actor types (identified, stateful, serially
// processed instances) and service types (unidentified, concurrent
// handlers), dispatch typed messages to them, optionally receive typed
// responses, subscribe services to broadcast messages, and let the runtime
// transparently spawn, route, throttle, and reclaim those handlers.
//
// There is no distribution, no persistence of actor state, and no delivery
// guarantees across crashes: everything here is in-process and best-effort
// after acceptance.
package ensemble
