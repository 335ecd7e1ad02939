package events

import (
	"sync"

	"goat-rush/logger"
)

// EventType labels what happened.
type EventType string

const (
	EventProfileRefreshed EventType = "profile_refreshed"
	EventRoundStarted     EventType = "round_started"
	EventRoundSettled     EventType = "round_settled"
)

// Event carries a payload for one wallet.
type Event struct {
	Type   EventType      `json:"type"`
	Wallet string         `json:"wallet"`
	Data   map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

type subscription struct {
	id      uint64
	wallet  string
	handler Handler
}

// Emitter is a pub/sub broker keyed by wallet. An empty wallet subscribes to all.
type Emitter struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventType][]subscription
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[EventType][]subscription)}
}

// Subscribe registers h for typ events of wallet and returns a function
// that removes the registration.
func (e *Emitter) Subscribe(typ EventType, wallet string, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.subs[typ] = append(e.subs[typ], subscription{id: id, wallet: wallet, handler: h})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		list := e.subs[typ]
		for i, s := range list {
			if s.id == id {
				e.subs[typ] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev synchronously. Each handler is guarded by panic recovery
// so one broken subscriber cannot take down the caller.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	var targets []Handler
	for _, s := range e.subs[ev.Type] {
		if s.wallet == "" || s.wallet == ev.Wallet {
			targets = append(targets, s.handler)
		}
	}
	e.mu.RUnlock()

	for _, h := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(map[string]interface{}{
						"event":  ev.Type,
						"wallet": ev.Wallet,
					}).Errorf("[events] handler panicked: %v", r)
				}
			}()
			h(ev)
		}()
	}
}
