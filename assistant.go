package ensemble

import (
	"context"
	"reflect"
	"time"
)

// ActorAssistant is handed to Actor.Activate and Actor.Receive. It is the
// actor's only way to reach the rest of the system: send to itself or other
// actors, call a service, publish, schedule, or ask to be stopped.
type ActorAssistant struct {
	coordinator *SystemCoordinator
	id          any
	kindType    reflect.Type
	pool        *actorPool
}

func newActorAssistant(coordinator *SystemCoordinator, id any, kindType reflect.Type, pool *actorPool) *ActorAssistant {
	return &ActorAssistant{coordinator: coordinator, id: id, kindType: kindType, pool: pool}
}

// ID returns the identity of the mailbox this assistant was handed to.
func (a *ActorAssistant) ID() any { return a.id }

// Send delivers value to identity id within kind's pool without waiting for
// a response.
func (a *ActorAssistant) Send(kind Actor, id any, value any) {
	a.coordinator.Actors.send(kind, id, value)
}

// Call delivers value to identity id and blocks for exactly one response.
func (a *ActorAssistant) Call(ctx context.Context, kind Actor, id any, value any) (any, error) {
	return a.coordinator.Actors.call(ctx, kind, id, value)
}

// SendToAll fans value out to every mailbox currently resident in kind's
// pool.
func (a *ActorAssistant) SendToAll(kind Actor, value any) {
	a.coordinator.Actors.sendToAll(kind, value)
}

// SendToService delivers value to whichever worker of kind's service is
// free first, as the package-level SendToService does.
func (a *ActorAssistant) SendToService(kind Service, value any) {
	a.coordinator.Services.send(kind, value)
}

// CallService delivers value to whichever worker of kind's service is free
// first and blocks for exactly one response.
func (a *ActorAssistant) CallService(ctx context.Context, kind Service, value any) (any, error) {
	return a.coordinator.Services.call(ctx, kind, value)
}

// Publish hands value to the broker for fan-out to every service subscribed
// to value's type.
func (a *ActorAssistant) Publish(value any) {
	a.coordinator.Broker.publish(value)
}

// ScheduleSend arranges for value to be delivered to identity id after d
// elapses. The schedule is not cancellable, and SystemCoordinator.Stop does
// not cancel it either: a schedule that fires after shutdown has begun is
// delivered like any other post-Stop send, to the ending pool if it is still
// registered or to a freshly created pool if it was already removed.
func (a *ActorAssistant) ScheduleSend(d time.Duration, kind Actor, id any, value any) ScheduleID {
	return a.coordinator.scheduleSend(d, kind, id, value)
}

// Stop asks this actor's own mailbox to reclaim itself once its mailbox
// drains, same as an external StopActor call.
func (a *ActorAssistant) Stop() {
	a.coordinator.Actors.stopActor(a.pool.kind, a.id)
}

// StopSystem asks the whole coordinator to shut down.
func (a *ActorAssistant) StopSystem() {
	a.coordinator.Stop()
}

// DeactivateAssistant is handed to Deactivatable.Deactivate. It deliberately
// lacks Call/CallService: a deactivating actor has already committed to
// leaving and must not be able to block its own teardown waiting on a
// round trip.
type DeactivateAssistant struct {
	id          any
	coordinator *SystemCoordinator
}

func newDeactivateAssistant(a *ActorAssistant) *DeactivateAssistant {
	return &DeactivateAssistant{id: a.id, coordinator: a.coordinator}
}

// ID returns the identity that is being deactivated.
func (d *DeactivateAssistant) ID() any { return d.id }

// Send delivers value to another actor without waiting for a response.
// Still available during teardown: notifying peers that this identity is
// gone is a common deactivation duty.
func (d *DeactivateAssistant) Send(kind Actor, id any, value any) {
	d.coordinator.Actors.send(kind, id, value)
}

// Publish hands value to the broker, same as ActorAssistant.Publish.
func (d *DeactivateAssistant) Publish(value any) {
	d.coordinator.Broker.publish(value)
}

// ServiceAssistant is handed to Service.Initialize and Service.Receive.
type ServiceAssistant struct {
	coordinator *SystemCoordinator
	kind        Service
}

func newServiceAssistant(coordinator *SystemCoordinator, kind Service) *ServiceAssistant {
	return &ServiceAssistant{coordinator: coordinator, kind: kind}
}

// Send delivers value to identity id within an actor kind's pool.
func (s *ServiceAssistant) Send(kind Actor, id any, value any) {
	s.coordinator.Actors.send(kind, id, value)
}

// Call delivers value to identity id and blocks for exactly one response.
func (s *ServiceAssistant) Call(ctx context.Context, kind Actor, id any, value any) (any, error) {
	return s.coordinator.Actors.call(ctx, kind, id, value)
}

// SendToService delivers value to whichever worker of another service kind
// is free first.
func (s *ServiceAssistant) SendToService(kind Service, value any) {
	s.coordinator.Services.send(kind, value)
}

// CallService delivers value to whichever worker of another service kind is
// free first and blocks for exactly one response.
func (s *ServiceAssistant) CallService(ctx context.Context, kind Service, value any) (any, error) {
	return s.coordinator.Services.call(ctx, kind, value)
}

// Publish hands value to the broker.
func (s *ServiceAssistant) Publish(value any) {
	s.coordinator.Broker.publish(value)
}

// StopSystem asks the whole coordinator to shut down.
func (s *ServiceAssistant) StopSystem() {
	s.coordinator.Stop()
}
