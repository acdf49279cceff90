package service

import (
	"context"
	"testing"

	"github.com/printops/servicedesk/internal/domain"
)

func (e *testEnv) raiseQuote(t *testing.T, workOrderID string) *domain.Quote {
	t.Helper()
	quote, err := e.quotes.Raise(context.Background(), adminActor, workOrderID, RaiseInput{Notes: "parts plus labor"})
	if err != nil {
		t.Fatalf("raise quote: %v", err)
	}
	return quote
}

func TestRaiseQuoteSnapshotsTotals(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)

	quote := env.raiseQuote(t, order.ID)
	if quote.Status != domain.QuoteStatusPending {
		t.Fatalf("status = %s, want PENDING", quote.Status)
	}
	if quote.GrandTotal != 80 {
		t.Fatalf("grand total = %v, want 80", quote.GrandTotal)
	}
	if quote.Currency != "EUR" {
		t.Fatalf("currency = %s, want EUR default", quote.Currency)
	}

	// later item edits must not touch the snapshot
	env.addPartItem(t, order.ID, 10, 100)
	stored, err := env.quotes.Get(context.Background(), adminActor, quote.ID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if stored.GrandTotal != 80 {
		t.Fatalf("snapshot changed after item edit: %v", stored.GrandTotal)
	}
}

func TestRaiseQuotePutsWorkOnHold(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)

	env.raiseQuote(t, order.ID)

	held, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if held.Status != domain.WorkOrderStatusOnHold {
		t.Fatalf("work order status = %s, want ON_HOLD", held.Status)
	}
	if held.HoldReason == nil || *held.HoldReason == "" {
		t.Fatalf("hold reason missing")
	}

	waiting, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if waiting.Status != domain.TicketStatusWaitingParts {
		t.Fatalf("ticket status = %s, want WAITING_PARTS", waiting.Status)
	}
}

func TestRaiseQuoteWithoutItemsFails(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)

	_, err := env.quotes.Raise(context.Background(), adminActor, order.ID, RaiseInput{})
	if code := errCode(t, err); code != "PREREQUISITE_FAILED" {
		t.Fatalf("code = %s, want PREREQUISITE_FAILED", code)
	}
}

func TestApproveQuoteResumesWork(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)
	quote := env.raiseQuote(t, order.ID)

	approved, err := env.quotes.Approve(context.Background(), companyActor, quote.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.QuoteStatusApproved {
		t.Fatalf("status = %s, want APPROVED", approved.Status)
	}
	if approved.ApprovedAt == nil {
		t.Fatalf("approved_at not stamped")
	}

	resumed, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if resumed.Status != domain.WorkOrderStatusInProgress {
		t.Fatalf("work order status = %s, want IN_PROGRESS", resumed.Status)
	}
	if resumed.HoldReason != nil {
		t.Fatalf("hold reason not cleared: %v", *resumed.HoldReason)
	}

	inProgress, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if inProgress.Status != domain.TicketStatusInProgress {
		t.Fatalf("ticket status = %s, want IN_PROGRESS", inProgress.Status)
	}
}

func TestRejectQuoteLeavesWorkOnHold(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)
	quote := env.raiseQuote(t, order.ID)

	rejected, err := env.quotes.Reject(context.Background(), companyActor, quote.ID, "too expensive")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.QuoteStatusRejected {
		t.Fatalf("status = %s, want REJECTED", rejected.Status)
	}
	if rejected.RejectReason == nil || *rejected.RejectReason != "too expensive" {
		t.Fatalf("reject reason not stored")
	}

	held, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if held.Status != domain.WorkOrderStatusOnHold {
		t.Fatalf("work order status = %s, want ON_HOLD after rejection", held.Status)
	}
}

func TestQuoteDoubleDecisionFails(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)
	quote := env.raiseQuote(t, order.ID)

	if _, err := env.quotes.Approve(context.Background(), companyActor, quote.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := env.quotes.Approve(context.Background(), companyActor, quote.ID)
	if code := errCode(t, err); code != "INVALID_STATE" {
		t.Fatalf("re-approve code = %s, want INVALID_STATE", code)
	}
	_, err = env.quotes.Reject(context.Background(), companyActor, quote.ID, "")
	if code := errCode(t, err); code != "INVALID_STATE" {
		t.Fatalf("reject after approve code = %s, want INVALID_STATE", code)
	}
}

func TestQuoteDecisionRequiresOwningCompany(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)
	quote := env.raiseQuote(t, order.ID)

	outsider := domain.Actor{ID: "user-9", Role: domain.RoleCompany, CompanyID: "99999999-9999-9999-9999-999999999999"}
	_, err := env.quotes.Approve(context.Background(), outsider, quote.ID)
	if code := errCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("code = %s, want FORBIDDEN", code)
	}
}

func TestListQuotesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 2, 40)

	first := env.raiseQuote(t, order.ID)
	if _, err := env.quotes.Reject(context.Background(), companyActor, first.ID, "revise"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	second := env.raiseQuote(t, order.ID)

	quotes, err := env.quotes.ListByTicket(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("len = %d, want 2", len(quotes))
	}
	if quotes[0].ID != second.ID {
		t.Fatalf("head quote = %s, want newest %s", quotes[0].ID, second.ID)
	}
}
