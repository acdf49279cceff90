package service

import (
	"context"
	"testing"

	"github.com/printops/servicedesk/internal/domain"
)

func TestEnsureForTicketIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	first := env.createWorkOrder(t, ticket.ID)
	if first.Status != domain.WorkOrderStatusNew {
		t.Fatalf("status = %s, want NEW", first.Status)
	}

	second := env.createWorkOrder(t, ticket.ID)
	if second.ID != first.ID {
		t.Fatalf("second ensure created a new work order: %s != %s", second.ID, first.ID)
	}
}

func TestAddLineItemAutoStartsOnce(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)

	env.addPartItem(t, order.ID, 2, 40)

	started, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if started.Status != domain.WorkOrderStatusInProgress {
		t.Fatalf("status after first item = %s, want IN_PROGRESS", started.Status)
	}
	if started.StartedAt == nil {
		t.Fatalf("started_at not stamped")
	}
	firstStart := *started.StartedAt

	// the ticket is dragged along
	updated, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("ticket status = %s, want IN_PROGRESS", updated.Status)
	}

	env.addPartItem(t, order.ID, 1, 15)
	env.addPartItem(t, order.ID, 3, 7.5)

	again, items, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if again.Status != domain.WorkOrderStatusInProgress {
		t.Fatalf("status after more items = %s, want IN_PROGRESS", again.Status)
	}
	if !again.StartedAt.Equal(firstStart) {
		t.Fatalf("started_at changed on subsequent items: %v != %v", again.StartedAt, firstStart)
	}
}

func TestLineItemAmountIsDerived(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)

	tests := []struct {
		name  string
		input LineItemInput
		want  float64
	}{
		{
			name: "part",
			input: LineItemInput{
				Kind: domain.LineItemKindPart, Description: "toner",
				Qty: floatPtr(3), UnitPrice: floatPtr(45.50),
			},
			want: 136.5,
		},
		{
			name: "labor",
			input: LineItemInput{
				Kind: domain.LineItemKindLabor, Description: "on-site repair",
				Hours: floatPtr(2.5), HourlyRate: floatPtr(80),
			},
			want: 200,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item, err := env.workOrders.AddLineItem(context.Background(), adminActor, order.ID, tc.input)
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			if item.Amount != tc.want {
				t.Fatalf("amount = %v, want %v", item.Amount, tc.want)
			}
		})
	}
}

func TestUpdateLineItemRecomputesAmount(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	item := env.addPartItem(t, order.ID, 2, 40)

	updated, err := env.workOrders.UpdateLineItem(context.Background(), adminActor, order.ID, item.ID, LineItemInput{
		Kind: domain.LineItemKindPart, Description: "fuser unit",
		Qty: floatPtr(5), UnitPrice: floatPtr(40),
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Amount != 200 {
		t.Fatalf("amount = %v, want 200", updated.Amount)
	}
}

func TestUpdateLineItemChangesKind(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	item := env.addPartItem(t, order.ID, 2, 40)

	updated, err := env.workOrders.UpdateLineItem(context.Background(), adminActor, order.ID, item.ID, LineItemInput{
		Kind: domain.LineItemKindLabor, Description: "on-site repair",
		Hours: floatPtr(3), HourlyRate: floatPtr(60),
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Kind != domain.LineItemKindLabor {
		t.Fatalf("kind = %s, want LABOR", updated.Kind)
	}
	if updated.Amount != 180 {
		t.Fatalf("amount = %v, want 180", updated.Amount)
	}

	// the kind change must reach storage, not just the returned value
	stored, err := env.store.Repos().WorkOrders.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if stored.Kind != domain.LineItemKindLabor {
		t.Fatalf("stored kind = %s, want LABOR", stored.Kind)
	}

	totals, err := env.workOrders.Totals(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.PartsTotal != 0 || totals.LaborTotal != 180 {
		t.Fatalf("totals = %+v, want all labor", totals)
	}
}

func TestAddLineItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)

	tests := []struct {
		name  string
		input LineItemInput
	}{
		{"part without factors", LineItemInput{Kind: domain.LineItemKindPart}},
		{"labor without factors", LineItemInput{Kind: domain.LineItemKindLabor}},
		{"zero qty", LineItemInput{Kind: domain.LineItemKindPart, Qty: floatPtr(0), UnitPrice: floatPtr(10)}},
		{"negative hours", LineItemInput{Kind: domain.LineItemKindLabor, Hours: floatPtr(-1), HourlyRate: floatPtr(50)}},
		{"unknown kind", LineItemInput{Kind: "SHIPPING"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.workOrders.AddLineItem(context.Background(), adminActor, order.ID, tc.input)
			if code := errCode(t, err); code != "VALIDATION_FAILED" {
				t.Fatalf("code = %s, want VALIDATION_FAILED", code)
			}
		})
	}
}

func TestWorkOrderTransitions(t *testing.T) {
	tests := []struct {
		name     string
		to       domain.WorkOrderStatus
		hold     string
		wantCode string
	}{
		{"in progress to done", domain.WorkOrderStatusDone, "", ""},
		{"in progress to hold with reason", domain.WorkOrderStatusOnHold, "waiting for part delivery", ""},
		{"hold requires reason", domain.WorkOrderStatusOnHold, "", "VALIDATION_FAILED"},
		{"in progress to new is invalid", domain.WorkOrderStatusNew, "", "INVALID_TRANSITION"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			ticket := env.createTicket(t)
			order := env.createWorkOrder(t, ticket.ID)
			env.addPartItem(t, order.ID, 1, 10) // auto-start to IN_PROGRESS

			current, _, err := env.workOrders.Get(context.Background(), order.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			moved, err := env.workOrders.Transition(context.Background(), adminActor, order.ID, current.Version, tc.to, tc.hold)
			if tc.wantCode != "" {
				if code := errCode(t, err); code != tc.wantCode {
					t.Fatalf("code = %s, want %s", code, tc.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if moved.Status != tc.to {
				t.Fatalf("status = %s, want %s", moved.Status, tc.to)
			}
		})
	}
}

func TestWorkOrderDoneResolvesTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 1, 10)

	current, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	done, err := env.workOrders.Transition(context.Background(), adminActor, order.ID, current.Version, domain.WorkOrderStatusDone, "")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}

	resolved, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Fatalf("ticket status = %s, want RESOLVED", resolved.Status)
	}
}

func TestWorkOrderHoldMovesTicketToWaitingParts(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 1, 10)

	current, _, err := env.workOrders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := env.workOrders.Transition(context.Background(), adminActor, order.ID, current.Version, domain.WorkOrderStatusOnHold, "waiting for toner shipment"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	waiting, err := env.tickets.Get(context.Background(), adminActor, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if waiting.Status != domain.TicketStatusWaitingParts {
		t.Fatalf("ticket status = %s, want WAITING_PARTS", waiting.Status)
	}
}

func TestWorkOrderTransitionStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)
	env.addPartItem(t, order.ID, 1, 10) // bumps the version via auto-start

	_, err := env.workOrders.Transition(context.Background(), adminActor, order.ID, order.Version, domain.WorkOrderStatusDone, "")
	if code := errCode(t, err); code != "CONFLICT" {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
}

func TestWorkOrderTotals(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	order := env.createWorkOrder(t, ticket.ID)

	env.addPartItem(t, order.ID, 2, 40)
	if _, err := env.workOrders.AddLineItem(context.Background(), adminActor, order.ID, LineItemInput{
		Kind: domain.LineItemKindLabor, Description: "repair",
		Hours: floatPtr(1.5), HourlyRate: floatPtr(60),
	}); err != nil {
		t.Fatalf("add labor: %v", err)
	}

	totals, err := env.workOrders.Totals(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.PartsTotal != 80 || totals.LaborTotal != 90 || totals.GrandTotal != 170 {
		t.Fatalf("totals = %+v, want parts 80 labor 90 grand 170", totals)
	}
}
