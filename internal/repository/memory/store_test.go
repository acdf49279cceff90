package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/repository"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repos repository.Repos) error {
		ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen, CompanyID: "c1"}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if err := repos.Events.Append(ctx, &domain.TicketEvent{TicketID: ticket.ID, EventType: domain.EventTypeCreated}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	tickets, err := store.Repos().Tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("tickets = %d, want 0 after rollback", len(tickets))
	}
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var id string
	err := store.WithinTx(ctx, func(repos repository.Repos) error {
		ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen, CompanyID: "c1"}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		id = ticket.ID
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if _, err := store.Repos().Tickets.GetByID(ctx, id); err != nil {
		t.Fatalf("get after commit: %v", err)
	}
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repos()

	ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen, CompanyID: "c1"}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := *ticket
	if err := repos.Tickets.Update(ctx, ticket); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := repos.Tickets.Update(ctx, &stale); !errors.Is(err, repository.ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repos()

	ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen, CompanyID: "c1"}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	order := &domain.WorkOrder{TicketID: ticket.ID, Status: domain.WorkOrderStatusNew}
	if err := repos.WorkOrders.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	item := &domain.LineItem{WorkOrderID: order.ID, Kind: domain.LineItemKindPart}
	if err := repos.WorkOrders.AddItem(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := repos.Tickets.Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repos.WorkOrders.GetByID(ctx, order.ID); err != pgx.ErrNoRows {
		t.Fatalf("order err = %v, want ErrNoRows", err)
	}
	if _, err := repos.WorkOrders.GetItem(ctx, item.ID); err != pgx.ErrNoRows {
		t.Fatalf("item err = %v, want ErrNoRows", err)
	}
}
