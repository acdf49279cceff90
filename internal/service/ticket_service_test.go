package service

import (
	"context"
	"testing"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/repository"
)

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		actor domain.Actor
		input TicketCreateInput
	}{
		{"missing subject", companyActor, TicketCreateInput{Message: "broken"}},
		{"missing message", companyActor, TicketCreateInput{Subject: "broken"}},
		{"admin without company", adminActor, TicketCreateInput{Subject: "broken", Message: "details"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tickets.Create(context.Background(), tc.actor, tc.input)
			if code := errCode(t, err); code != "VALIDATION_FAILED" {
				t.Fatalf("code = %s, want VALIDATION_FAILED", code)
			}
		})
	}
}

func TestCreateTicketDefaults(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority = %s, want MEDIUM default", ticket.Priority)
	}
	if ticket.CompanyID != testCompanyID {
		t.Fatalf("company = %s, want the actor's company", ticket.CompanyID)
	}
	if ticket.Version != 1 {
		t.Fatalf("version = %d, want 1", ticket.Version)
	}

	events, err := env.tickets.ListEvents(context.Background(), adminActor, ticket.ID, 10, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != domain.EventTypeCreated {
		t.Fatalf("events = %+v, want single created entry", events)
	}
}

func TestUpdateFieldsEmitsPerFieldEvents(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	subject := "Printer jams on duplex trays"
	priority := domain.TicketPriorityHigh
	printer := "printer-17"
	updated, err := env.tickets.UpdateFields(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketPatch{
		Subject:   &subject,
		Priority:  &priority,
		PrinterID: &printer,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Subject != subject || updated.Priority != priority {
		t.Fatalf("fields not applied: %+v", updated)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}

	entries, err := env.tickets.ListEvents(context.Background(), adminActor, ticket.ID, 10, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	types := map[domain.TicketEventType]bool{}
	for _, entry := range entries {
		types[entry.EventType] = true
	}
	for _, want := range []domain.TicketEventType{
		domain.EventTypeSubjectChanged,
		domain.EventTypePriorityChanged,
		domain.EventTypePrinterChanged,
	} {
		if !types[want] {
			t.Fatalf("missing %s event, got %v", want, types)
		}
	}
}

func TestUpdateFieldsStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	subject := "new subject"
	if _, err := env.tickets.UpdateFields(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketPatch{Subject: &subject}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	other := "competing subject"
	_, err := env.tickets.UpdateFields(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketPatch{Subject: &other})
	if code := errCode(t, err); code != "CONFLICT" {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
}

func TestSetStatusNormalizesLegacyClosed(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	updated, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, "CLOSED")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != domain.TicketStatusResolved {
		t.Fatalf("status = %s, want RESOLVED", updated.Status)
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	_, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, "ARCHIVED")
	if code := errCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestSetStatusSameValueStillAudited(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	if _, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketStatusOpen); err != nil {
		t.Fatalf("set status: %v", err)
	}

	entries, err := env.tickets.ListEvents(context.Background(), adminActor, ticket.ID, 10, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	found := false
	for _, entry := range entries {
		if entry.EventType == domain.EventTypeStatusChanged {
			found = true
		}
	}
	if !found {
		t.Fatalf("no status_changed entry for a no-op override")
	}
}

func TestCompanyScoping(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	// hidden tickets disappear from the company view
	hidden := false
	current, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := env.tickets.UpdateFields(context.Background(), adminActor, ticket.ID, current.Version, domain.TicketPatch{VisibleToCompany: &hidden}); err != nil {
		t.Fatalf("hide: %v", err)
	}

	if _, err := env.tickets.Get(context.Background(), companyActor, ticket.ID); err == nil {
		t.Fatalf("company read of hidden ticket should fail")
	}

	outsider := domain.Actor{ID: "user-9", Role: domain.RoleCompany, CompanyID: "99999999-9999-9999-9999-999999999999"}
	list, err := env.tickets.List(context.Background(), outsider, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("outsider sees %d tickets, want 0", len(list))
	}
}

func TestCompanyListPaginatesVisibleRows(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTicket(t)
	concealed := env.createTicket(t)
	second := env.createTicket(t)

	hidden := false
	current, err := env.tickets.Get(context.Background(), adminActor, concealed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := env.tickets.UpdateFields(context.Background(), adminActor, concealed.ID, current.Version, domain.TicketPatch{VisibleToCompany: &hidden}); err != nil {
		t.Fatalf("hide: %v", err)
	}

	// the hidden ticket must not occupy a page slot
	page, err := env.tickets.List(context.Background(), companyActor, repository.TicketFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page = %d rows, want 2 visible rows", len(page))
	}
	if page[0].ID != second.ID || page[1].ID != first.ID {
		t.Fatalf("page = [%s %s], want newest-first visible tickets", page[0].ID, page[1].ID)
	}
}

func TestDeleteTicketCascades(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 1, 10)

	if err := env.tickets.Delete(context.Background(), companyActor, ticket.ID); err == nil {
		t.Fatalf("non-admin delete should fail")
	}
	if err := env.tickets.Delete(context.Background(), adminActor, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.tickets.Get(context.Background(), adminActor, ticket.ID); err == nil {
		t.Fatalf("ticket still readable after delete")
	}
	if _, _, err := env.workOrders.Get(context.Background(), order.ID); err == nil {
		t.Fatalf("work order survived the cascade")
	}
}
