package events

import "testing"

func TestEmitterFiltersByWallet(t *testing.T) {
	e := NewEmitter()
	var mine, all int
	e.Subscribe(EventProfileRefreshed, "w1", func(Event) { mine++ })
	e.Subscribe(EventProfileRefreshed, "", func(Event) { all++ })

	e.Emit(Event{Type: EventProfileRefreshed, Wallet: "w1"})
	e.Emit(Event{Type: EventProfileRefreshed, Wallet: "w2"})
	e.Emit(Event{Type: EventRoundSettled, Wallet: "w1"})

	if mine != 1 {
		t.Errorf("wallet subscriber: got %d want 1", mine)
	}
	if all != 2 {
		t.Errorf("wildcard subscriber: got %d want 2", all)
	}
}

func TestEmitterUnsubscribe(t *testing.T) {
	e := NewEmitter()
	calls := 0
	unsub := e.Subscribe(EventRoundSettled, "w1", func(Event) { calls++ })
	e.Emit(Event{Type: EventRoundSettled, Wallet: "w1"})
	unsub()
	unsub()
	e.Emit(Event{Type: EventRoundSettled, Wallet: "w1"})
	if calls != 1 {
		t.Errorf("calls: got %d want 1", calls)
	}
}

func TestEmitterRecoversFromPanickingHandler(t *testing.T) {
	e := NewEmitter()
	reached := false
	e.Subscribe(EventRoundStarted, "", func(Event) { panic("boom") })
	e.Subscribe(EventRoundStarted, "", func(Event) { reached = true })

	e.Emit(Event{Type: EventRoundStarted, Wallet: "w1"})
	if !reached {
		t.Error("second handler should run after the first panics")
	}
}
