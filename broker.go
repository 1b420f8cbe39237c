package ensemble

import (
	"context"
	"reflect"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Broker is the publish/subscribe fan-out keyed by message type identity:
// Publish(msg) delivers a clone of msg to every service kind subscribed to
// msg's concrete type.
//
// Delivery itself is plain in-process dispatch through ServiceRouter, not
// watermill: a subscriber's Receive gets the real Go value (matching the
// Cloner contract exactly), whereas routing it through watermill would
// force a wire encoding no handler asked for. The watermill bus below is an
// optional, best-effort audit trail — every Publish also emits a message
// carrying the published value's type name onto it when enabled, for an
// operator tailing "everything that was ever published" without touching
// delivery semantics.
type Broker struct {
	router *ServiceRouter

	mu            sync.RWMutex
	subscriptions map[reflect.Type][]Service

	auditPub   message.Publisher
	auditSub   message.Subscriber
	auditTopic string
}

func newBroker(router *ServiceRouter) *Broker {
	return &Broker{
		router:        router,
		subscriptions: make(map[reflect.Type][]Service),
	}
}

// enableAudit wires an in-memory watermill pub/sub as a lossy, opt-in audit
// trail of every Publish call. It never gates or reorders real delivery: a
// slow or absent subscriber to the audit topic simply misses events
// (gochannel's default is non-blocking per-subscriber buffering).
func (b *Broker) enableAudit(logger watermill.LoggerAdapter) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	b.mu.Lock()
	b.auditPub = pubSub
	b.auditSub = pubSub
	b.auditTopic = "ensemble.published"
	b.mu.Unlock()
}

// AuditTrail returns the subscriber side of the opt-in publish audit trail,
// or a nil channel and ErrAuditTrailDisabled if WithAuditTrail was never
// passed to NewSystemCoordinator. Each
// message's payload is the published value's type name.
func (b *Broker) AuditTrail(ctx context.Context) (<-chan *message.Message, string, error) {
	b.mu.RLock()
	sub, topic := b.auditSub, b.auditTopic
	b.mu.RUnlock()

	if sub == nil {
		return nil, "", ErrAuditTrailDisabled
	}

	ch, err := sub.Subscribe(ctx, topic)
	return ch, topic, err
}

// Subscribe registers the service that owns a to receive every future
// Publish of M. Valid only from within Service.Initialize: a subscription
// is something a service does for itself, never something done to a third
// party, and a's kind is fixed for the lifetime of its worker set. There is
// no unsubscribe — a subscription lives as long as the Broker.
func Subscribe[M any](a *ServiceAssistant) {
	var zero M
	a.coordinator.Broker.subscribe(reflect.TypeOf(zero), a.kind)
}

func (b *Broker) subscribe(t reflect.Type, kind Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions[t] = append(b.subscriptions[t], kind)
}

// Publish fans msg out to every service subscribed to msg's type. Each
// recipient gets an independent copy via Cloner if msg implements it.
func Publish[M any](b *Broker, msg M) {
	b.publish(msg)
}

func (b *Broker) publish(msg any) {
	t := reflect.TypeOf(msg)

	b.mu.RLock()
	kinds := append([]Service(nil), b.subscriptions[t]...)
	auditPub := b.auditPub
	auditTopic := b.auditTopic
	b.mu.RUnlock()

	for _, kind := range kinds {
		b.router.send(kind, cloneForFanOut(msg))
	}

	if auditPub != nil {
		b.publishAudit(auditPub, auditTopic, t.String())
	}
}

func (b *Broker) publishAudit(pub message.Publisher, topic, typeName string) {
	env := message.NewMessage(watermill.NewUUID(), []byte(typeName))
	_ = pub.Publish(topic, env)
}

// subscriberCount reports how many services are subscribed to M, mostly
// useful from tests asserting fan-out width.
func subscriberCount[M any](b *Broker) int {
	var zero M
	t := reflect.TypeOf(zero)

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions[t])
}
