package events

import (
	"context"
	"testing"
)

func TestDispatcherInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		got = append(got, event)
		return nil
	})

	if err := d.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated, TicketID: "t1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := d.Publish(context.Background(), Event{ID: "e2", Type: EventQuoteRaised, TicketID: "t1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 (type-filtered)", len(got))
	}
	if got[0].ID != "e1" {
		t.Fatalf("delivered %s, want e1", got[0].ID)
	}
}
