package domain

import "testing"

func TestNormalizeTicketStatus(t *testing.T) {
	tests := []struct {
		in   TicketStatus
		want TicketStatus
	}{
		{"CLOSED", TicketStatusResolved},
		{TicketStatusOpen, TicketStatusOpen},
		{TicketStatusShipped, TicketStatusShipped},
	}
	for _, tc := range tests {
		if got := NormalizeTicketStatus(tc.in); got != tc.want {
			t.Fatalf("NormalizeTicketStatus(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestIsTerminalTicketStatus(t *testing.T) {
	terminal := []TicketStatus{TicketStatusResolved, TicketStatusShipped, TicketStatusCancelled}
	for _, status := range terminal {
		if !IsTerminalTicketStatus(status) {
			t.Fatalf("%s should be terminal", status)
		}
	}
	open := []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingParts}
	for _, status := range open {
		if IsTerminalTicketStatus(status) {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}
