package service

import (
	"context"
	"testing"

	"github.com/printops/servicedesk/internal/domain"
)

func TestAssignmentToggling(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	current := ticket
	// repeated toggling always lands on the same pair of states
	for i := 0; i < 3; i++ {
		assigned, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, current.Version, "tech-7")
		if err != nil {
			t.Fatalf("assign round %d: %v", i, err)
		}
		if assigned.Status != domain.TicketStatusInProgress {
			t.Fatalf("round %d: status = %s, want IN_PROGRESS", i, assigned.Status)
		}
		if assigned.AssignedTo == nil || *assigned.AssignedTo != "tech-7" {
			t.Fatalf("round %d: assignee not set", i)
		}
		if assigned.AssignedAt == nil {
			t.Fatalf("round %d: assigned_at not stamped", i)
		}

		cleared, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, assigned.Version, "")
		if err != nil {
			t.Fatalf("clear round %d: %v", i, err)
		}
		if cleared.Status != domain.TicketStatusOpen {
			t.Fatalf("round %d: status = %s, want OPEN", i, cleared.Status)
		}
		if cleared.AssignedTo != nil || cleared.AssignedAt != nil {
			t.Fatalf("round %d: assignment not cleared", i)
		}
		current = cleared
	}
}

func TestAssignCreatesCompanyNotification(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	if _, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, ticket.Version, "tech-7"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	list, err := env.notifications.ListForCompany(context.Background(), companyActor, testCompanyID, false, 20, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var found bool
	for _, n := range list {
		if n.Type == domain.NotificationTypeAssignment {
			found = true
		}
	}
	if !found {
		t.Fatalf("no assignment notification, got %+v", list)
	}
}

func TestAssignStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	if _, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, ticket.Version, "tech-7"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, ticket.Version, "tech-8")
	if code := errCode(t, err); code != "CONFLICT" {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
}

func TestAssignClosedTicketFails(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	resolved, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	_, err = env.assignments.Assign(context.Background(), adminActor, ticket.ID, resolved.Version, "tech-7")
	if code := errCode(t, err); code != "INVALID_STATE" {
		t.Fatalf("code = %s, want INVALID_STATE", code)
	}
}
