// Package realtime fan-outs entity-change and activity events to long-lived
// streaming connections.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/obs"
)

// Event names emitted over the stream.
const (
	EventEntityChange = "entity_change"
	EventLogActivity  = "log_activity"
	EventPing         = "ping"
)

// Sink receives named events. A returned error marks the connection dead and
// removes the subscriber.
type Sink interface {
	Send(event string, data any) error
}

// EntityChange is the payload published on create/update/delete/approve/reject
// of any tracked record type.
type EntityChange struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	Data   any       `json:"data"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

type subscriber struct {
	id          string
	userID      string
	role        auth.Role
	sink        Sink
	connectedAt time.Time
}

// Broker owns the subscriber set. It is safe for concurrent use from
// connection lifecycles and publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]*subscriber

	log  *zap.Logger
	stop chan struct{}
	once sync.Once
}

// NewBroker initialises an empty broker.
func NewBroker(log *zap.Logger) *Broker {
	return &Broker{
		subs: make(map[string]*subscriber),
		log:  log,
		stop: make(chan struct{}),
	}
}

// Subscribe registers a connection and returns its subscription id.
func (b *Broker) Subscribe(userID string, role auth.Role, sink Sink) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.subs[id] = &subscriber{
		id:          id,
		userID:      userID,
		role:        role,
		sink:        sink,
		connectedAt: time.Now(),
	}
	b.mu.Unlock()
	obs.SubscriberGauge(1)
	return id
}

// Unsubscribe removes a subscriber. Idempotent.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	_, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		obs.SubscriberGauge(-1)
	}
}

// Publish delivers a named event. Visibility is decided per subscriber at
// publish time: roles with organization-wide sight receive everything, other
// subscribers only events whose ownerID matches their account. Delivery is
// best-effort; a failing sink is dropped without aborting the fan-out.
func (b *Broker) Publish(event string, payload any, ownerID string) {
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		if !sub.role.SeesAll() && (ownerID == "" || sub.userID != ownerID) {
			continue
		}
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.sink.Send(event, payload); err != nil {
			b.log.Debug("realtime: dropping subscriber",
				zap.String("subscription", sub.id), zap.Error(err))
			b.Unsubscribe(sub.id)
		}
	}
}

// PublishEntityChange publishes an entity_change event scoped to ownerID.
func (b *Broker) PublishEntityChange(entity, action string, data any, ownerID string) {
	b.Publish(EventEntityChange, EntityChange{
		Entity: entity,
		Action: action,
		Data:   data,
		UserID: ownerID,
		At:     time.Now().UTC(),
	}, ownerID)
}

// StartHeartbeat publishes a ping to every subscriber on the interval so
// intermediaries do not reap idle connections. Stops when Close is called.
func (b *Broker) StartHeartbeat(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				b.heartbeat()
			}
		}
	}()
}

func (b *Broker) heartbeat() {
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	payload := map[string]int64{"ts": time.Now().UnixMilli()}
	for _, sub := range targets {
		if err := sub.sink.Send(EventPing, payload); err != nil {
			b.Unsubscribe(sub.id)
		}
	}
}

// Len reports the current subscriber count.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops the heartbeat and drops every subscriber.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.stop) })
	b.mu.Lock()
	n := len(b.subs)
	b.subs = make(map[string]*subscriber)
	b.mu.Unlock()
	obs.SubscriberGauge(float64(-n))
}
