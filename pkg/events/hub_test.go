package events

import (
	"testing"
)

func TestEventHub(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers())
	}

	h.Publish(BatchCompleted, BatchCompletedEvent{ID: "abc", Method: "poly_fit", Outputs: []string{"output_a.csv"}})

	ev := <-ch
	if ev.Name != BatchCompleted {
		t.Fatalf("event name = %q, want %q", ev.Name, BatchCompleted)
	}
	payload, err := DecodeAs[BatchCompletedEvent](ev)
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if payload.ID != "abc" || len(payload.Outputs) != 1 {
		t.Errorf("payload = %+v", payload)
	}

	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel not closed after Unsubscribe")
	}
	h.Unsubscribe(ch)

	var nilHub *EventHub
	nilHub.Publish(ConfigChanged, nil)
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < cap(ch)+5; i++ {
		h.Publish(ConfigChanged, ConfigChangedEvent{Key: "degree", Value: i})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered events = %d, want %d", len(ch), cap(ch))
	}
}

func TestDecodeAsEmpty(t *testing.T) {
	v, err := DecodeAs[ConfigChangedEvent](Event{Name: ConfigChanged})
	if err != nil || v.Key != "" {
		t.Errorf("DecodeAs(empty) = %+v, %v", v, err)
	}
}
