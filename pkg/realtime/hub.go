package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Observer is one live connection. Send must be safe for sequential use
// by the hub; implementations serialize their own writes so delivery
// order within one observer follows broadcast order.
type Observer interface {
	// Handle identifies the connection for its connected lifetime. There
	// is no stable identity across reconnects.
	Handle() string
	Send(data []byte) error
	Close() error
}

// Hub owns the observer registry and fans envelopes out to every
// connected observer. Delivery is at-most-once: no acknowledgement, no
// redelivery, no backlog for observers that reconnect later. A
// reconnecting client falls back to sync pull to catch up.
//
// The hub is an explicitly constructed instance wired in at startup;
// shut it down with Shutdown when the process stops.
type Hub struct {
	mu        sync.Mutex
	observers map[string]Observer

	now func() time.Time
	log zerolog.Logger
}

type HubOption func(*Hub)

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func WithHubLogger(log zerolog.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		observers: make(map[string]Observer),
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds obs to the registry. Registering the same handle twice
// is a no-op.
func (h *Hub) Register(obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[obs.Handle()]; ok {
		return
	}
	h.observers[obs.Handle()] = obs
	h.log.Debug().Str("handle", obs.Handle()).Int("observers", len(h.observers)).Msg("observer registered")
}

// Unregister removes the handle from the registry. Unknown handles and
// repeated calls are no-ops.
func (h *Hub) Unregister(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[handle]; !ok {
		return
	}
	delete(h.observers, handle)
	h.log.Debug().Str("handle", handle).Int("observers", len(h.observers)).Msg("observer unregistered")
}

// Len reports the current registry size.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Broadcast serializes env once and delivers it to every registered
// observer. The registry is snapshotted under the lock and delivery
// happens outside it, so a slow or stalled consumer never starves
// concurrent Register/Unregister/Broadcast calls. A failed delivery
// removes that observer and does not affect the others.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Str("type", env.Type).Msg("envelope not serializable, dropped")
		return
	}

	h.mu.Lock()
	snapshot := make([]Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		snapshot = append(snapshot, obs)
	}
	h.mu.Unlock()

	var dead []Observer
	for _, obs := range snapshot {
		if err := obs.Send(data); err != nil {
			h.log.Debug().Err(err).Str("handle", obs.Handle()).Msg("delivery failed, dropping observer")
			dead = append(dead, obs)
		}
	}

	for _, obs := range dead {
		h.Unregister(obs.Handle())
		_ = obs.Close()
	}
}

// Announce builds an envelope stamped with the hub clock and broadcasts
// it. This is the entry point mutation paths use; it satisfies the sync
// gateway's announcer port.
func (h *Hub) Announce(kind string, data any) {
	h.Broadcast(NewEnvelope(kind, h.now().UTC(), data))
}

// Shutdown closes and removes every observer. Called on process stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	observers := h.observers
	h.observers = make(map[string]Observer)
	h.mu.Unlock()

	for _, obs := range observers {
		_ = obs.Close()
	}
}
