package service

import (
	"context"
	"testing"
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

func TestBusinessDaysBetween(t *testing.T) {
	// anchored dates: 2024-03-01 is a Friday
	friday := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", friday, friday.Add(2 * time.Hour), 0},
		{"friday to monday", friday, friday.AddDate(0, 0, 3), 1},
		{"friday to saturday", friday, friday.AddDate(0, 0, 1), 0},
		{"friday to sunday", friday, friday.AddDate(0, 0, 2), 0},
		{"friday to next friday", friday, friday.AddDate(0, 0, 7), 5},
		{"monday to friday same week", friday.AddDate(0, 0, 3), friday.AddDate(0, 0, 7), 4},
		{"three full weeks", friday, friday.AddDate(0, 0, 21), 15},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := BusinessDaysBetween(tc.from, tc.to); got != tc.want {
				t.Fatalf("BusinessDaysBetween = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestOutliersUseThresholdAndTerminalStatus(t *testing.T) {
	env := newTestEnv(t)
	old := env.createTicket(t)
	fresh := env.createTicket(t)
	closed := env.createTicket(t)
	if _, err := env.tickets.SetStatus(context.Background(), adminActor, closed.ID, closed.Version, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// age the first and third tickets past the threshold
	backdate(t, env, old.ID, 21)
	backdate(t, env, closed.ID, 21)

	outliers, err := env.sla.Outliers(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("outliers: %v", err)
	}
	if len(outliers) != 1 {
		t.Fatalf("outliers = %d, want 1 (aged non-terminal only)", len(outliers))
	}
	got := outliers[0]
	if got.TicketID != old.ID {
		t.Fatalf("outlier = %s, want %s", got.TicketID, old.ID)
	}
	if got.BusinessDays != 15 {
		t.Fatalf("business days = %d, want 15 over a 21 calendar day span", got.BusinessDays)
	}
	if got.CompanyName != "Acme Print Works" {
		t.Fatalf("company name = %q, want resolved name", got.CompanyName)
	}
	_ = fresh
}

func TestOutliersRestartClockOnReopen(t *testing.T) {
	env := newTestEnv(t)
	reopened := env.createTicket(t)
	stale := env.createTicket(t)
	backdate(t, env, reopened.ID, 21)
	backdate(t, env, stale.ID, 21)

	// cycle the first ticket off OPEN and back today; its age clock
	// restarts at the reset
	current, err := env.store.Repos().Tickets.GetByID(context.Background(), reopened.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	progressed, err := env.tickets.SetStatus(context.Background(), adminActor, reopened.ID, current.Version, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := env.tickets.SetStatus(context.Background(), adminActor, reopened.ID, progressed.Version, domain.TicketStatusOpen); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	outliers, err := env.sla.Outliers(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("outliers: %v", err)
	}
	if len(outliers) != 1 {
		t.Fatalf("outliers = %d, want only the untouched aged ticket", len(outliers))
	}
	if outliers[0].TicketID != stale.ID {
		t.Fatalf("outlier = %s, want %s", outliers[0].TicketID, stale.ID)
	}
}

func TestKPIRollupOmitsEmptyBuckets(t *testing.T) {
	env := newTestEnv(t)

	buckets, err := env.sla.KPIRollup(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if len(buckets) != 0 {
		t.Fatalf("buckets = %d, want none for an empty store", len(buckets))
	}
}

func TestKPIRollupAggregates(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)
	if _, err := env.assignments.Assign(context.Background(), adminActor, ticket.ID, ticket.Version, "tech-7"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	plain := env.createTicket(t)

	buckets, err := env.sla.KPIRollup(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	// one bucket per technician: assigned and unassigned split
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}

	var assigned, unassigned *KPIBucket
	for i := range buckets {
		if buckets[i].TechnicianID == "tech-7" {
			assigned = &buckets[i]
		} else {
			unassigned = &buckets[i]
		}
	}
	if assigned == nil || unassigned == nil {
		t.Fatalf("missing buckets: %+v", buckets)
	}

	if assigned.TotalTickets != 1 || assigned.AssignedCount != 1 {
		t.Fatalf("assigned bucket = %+v", assigned)
	}
	if assigned.StatusCounts[string(domain.TicketStatusInProgress)] != 1 {
		t.Fatalf("status counts = %v", assigned.StatusCounts)
	}
	if assigned.AvgFirstResponseHrs == nil || assigned.AvgAssignmentHrs == nil {
		t.Fatalf("averages should be set for the assigned bucket: %+v", assigned)
	}
	if assigned.AvgResolutionHrs != nil {
		t.Fatalf("resolution average should be nil for an open ticket")
	}

	// the untouched ticket has no qualifying events: nil, not zero
	if unassigned.AvgFirstResponseHrs != nil || unassigned.AvgAssignmentHrs != nil {
		t.Fatalf("averages must be nil with no data: %+v", unassigned)
	}
	_ = plain
}

func TestKPIRollupCountsReopens(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	progressed, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, progressed.Version, domain.TicketStatusOpen); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	buckets, err := env.sla.KPIRollup(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	if buckets[0].ReopenedCount != 1 {
		t.Fatalf("reopened = %d, want 1", buckets[0].ReopenedCount)
	}
}

func TestKPIRollupResolutionAverage(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	if _, err := env.tickets.SetStatus(context.Background(), adminActor, ticket.ID, ticket.Version, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	buckets, err := env.sla.KPIRollup(context.Background(), ReportFilter{})
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	if buckets[0].AvgResolutionHrs == nil {
		t.Fatalf("resolution average missing for a resolved ticket")
	}
}

// backdate rewrites a ticket's created_at so age computations see an old
// record.
func backdate(t *testing.T, env *testEnv, ticketID string, days int) {
	t.Helper()
	repos := env.store.Repos()
	ticket, err := repos.Tickets.GetByID(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ticket.CreatedAt = ticket.CreatedAt.AddDate(0, 0, -days)
	if err := repos.Tickets.Update(context.Background(), ticket); err != nil {
		t.Fatalf("backdate: %v", err)
	}
}
