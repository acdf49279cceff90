package service

import (
	"context"
	"testing"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/repository/memory"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

const testCompanyID = "11111111-1111-1111-1111-111111111111"

var (
	adminActor   = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	companyActor = domain.Actor{ID: "user-1", Role: domain.RoleCompany, CompanyID: testCompanyID}
)

type testEnv struct {
	store         *memory.Store
	tickets       *TicketService
	workOrders    *WorkOrderService
	quotes        *QuoteService
	assignments   *AssignmentService
	notifications *NotificationService
	sla           *SLAService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	store.SetCompanyName(testCompanyID, "Acme Print Works")

	sync := lifecycle.New()
	dispatcher := events.NewInMemoryDispatcher()

	return &testEnv{
		store:         store,
		tickets:       NewTicketService(store, sync, dispatcher),
		workOrders:    NewWorkOrderService(store, sync, dispatcher),
		quotes:        NewQuoteService(store, sync, dispatcher),
		assignments:   NewAssignmentService(store, sync, dispatcher),
		notifications: NewNotificationService(store, dispatcher),
		sla:           NewSLAService(store, 10),
	}
}

func (e *testEnv) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.Create(context.Background(), companyActor, TicketCreateInput{
		Subject:          "Printer jams on duplex",
		Message:          "Paper jams every time duplex printing is used.",
		Category:         "repair",
		VisibleToCompany: true,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (e *testEnv) createWorkOrder(t *testing.T, ticketID string) *domain.WorkOrder {
	t.Helper()
	order, err := e.workOrders.EnsureForTicket(context.Background(), adminActor, ticketID)
	if err != nil {
		t.Fatalf("ensure work order: %v", err)
	}
	return order
}

func (e *testEnv) addPartItem(t *testing.T, workOrderID string, qty, unitPrice float64) *domain.LineItem {
	t.Helper()
	item, err := e.workOrders.AddLineItem(context.Background(), adminActor, workOrderID, LineItemInput{
		Kind:        domain.LineItemKindPart,
		Description: "fuser unit",
		Qty:         &qty,
		UnitPrice:   &unitPrice,
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}
	return item
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	domainErr := apperrors.ToDomainError(err)
	return domainErr.Code
}

func floatPtr(v float64) *float64 { return &v }
