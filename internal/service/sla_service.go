package service

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

const slaPageSize = 500

// SLAService computes the two read models consumed by the reporting UI and
// the scheduled email report: business-day SLA outliers and the daily KPI
// rollup. Both are pure queries and safe to recompute at any time.
type SLAService struct {
	runner    repository.Runner
	threshold int
	now       func() time.Time
}

// NewSLAService constructs the service. threshold is the outlier cutoff in
// business days; zero or negative falls back to 10.
func NewSLAService(runner repository.Runner, threshold int) *SLAService {
	if threshold <= 0 {
		threshold = 10
	}
	return &SLAService{runner: runner, threshold: threshold, now: time.Now}
}

// ReportFilter scopes an SLA or KPI query.
type ReportFilter struct {
	From         time.Time
	To           time.Time
	CompanyID    string
	TechnicianID string
}

// Outlier is a ticket whose unresolved business-day age exceeds the
// threshold.
type Outlier struct {
	TicketID     string    `json:"ticket_id"`
	CompanyID    string    `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	TechnicianID *string   `json:"technician_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	BusinessDays int       `json:"business_days"`
}

// KPIBucket aggregates one (day, company, technician) group. Average fields
// are nil when no qualifying ticket exists, which is distinct from zero.
type KPIBucket struct {
	Day                 string         `json:"day"`
	CompanyID           string         `json:"company_id"`
	TechnicianID        string         `json:"technician_id,omitempty"`
	TotalTickets        int            `json:"total_tickets"`
	AssignedCount       int            `json:"assigned_count"`
	StatusCounts        map[string]int `json:"status_counts"`
	HighPriorityCount   int            `json:"high_priority_count"`
	ReopenedCount       int            `json:"reopened_count"`
	AvgFirstResponseHrs *float64       `json:"avg_first_response_hours"`
	AvgResolutionHrs    *float64       `json:"avg_resolution_hours"`
	AvgAssignmentHrs    *float64       `json:"avg_assignment_hours"`
}

// BusinessDaysBetween counts weekdays d with from < d <= to, by calendar
// date. A Friday-to-Monday span therefore counts as one business day.
func BusinessDaysBetween(from, to time.Time) int {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	count := 0
	for d := fromDate.AddDate(0, 0, 1); !d.After(toDate); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// Outliers returns non-terminal tickets older than the threshold in
// business days, newest first within equal ages. The age clock starts at
// creation and restarts whenever the ticket is reset to OPEN.
func (s *SLAService) Outliers(ctx context.Context, filter ReportFilter) ([]Outlier, error) {
	repos := s.runner.Repos()
	now := s.now()

	tickets, err := s.collectTickets(ctx, repos, filter)
	if err != nil {
		return nil, err
	}

	// A reset can only shrink the age, so tickets young by creation date
	// need no history lookup.
	var candidates []domain.Ticket
	for _, ticket := range tickets {
		if domain.IsTerminalTicketStatus(ticket.Status) {
			continue
		}
		if BusinessDaysBetween(ticket.CreatedAt, now) <= s.threshold {
			continue
		}
		candidates = append(candidates, ticket)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	resets, err := s.lastOpenResets(ctx, repos, candidates)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	var outliers []Outlier
	for _, ticket := range candidates {
		start := ticket.CreatedAt
		if reset, ok := resets[ticket.ID]; ok && reset.After(start) {
			start = reset
		}
		age := BusinessDaysBetween(start, now)
		if age <= s.threshold {
			continue
		}
		name, ok := names[ticket.CompanyID]
		if !ok {
			name, err = repos.Companies.GetName(ctx, ticket.CompanyID)
			if err == pgx.ErrNoRows {
				name = ""
			} else if err != nil {
				return nil, apperrors.MapError(err)
			}
			names[ticket.CompanyID] = name
		}
		outliers = append(outliers, Outlier{
			TicketID:     ticket.ID,
			CompanyID:    ticket.CompanyID,
			CompanyName:  name,
			TechnicianID: ticket.AssignedTo,
			Status:       string(ticket.Status),
			CreatedAt:    ticket.CreatedAt,
			BusinessDays: age,
		})
	}

	sort.Slice(outliers, func(i, j int) bool {
		if outliers[i].BusinessDays != outliers[j].BusinessDays {
			return outliers[i].BusinessDays > outliers[j].BusinessDays
		}
		return outliers[i].TicketID < outliers[j].TicketID
	})
	return outliers, nil
}

// lastOpenResets returns, per ticket, the timestamp of the most recent
// status_changed event that re-entered OPEN.
func (s *SLAService) lastOpenResets(ctx context.Context, repos repository.Repos, tickets []domain.Ticket) (map[string]time.Time, error) {
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	history, err := repos.Events.ListByTicketIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	resets := make(map[string]time.Time)
	for _, event := range history {
		if event.EventType != domain.EventTypeStatusChanged {
			continue
		}
		to, _ := event.Payload["to"].(string)
		if to != string(domain.TicketStatusOpen) {
			continue
		}
		if event.CreatedAt.After(resets[event.TicketID]) {
			resets[event.TicketID] = event.CreatedAt
		}
	}
	return resets, nil
}

// KPIRollup aggregates tickets created inside the range into per-day,
// per-company, per-technician buckets. Empty buckets are omitted.
func (s *SLAService) KPIRollup(ctx context.Context, filter ReportFilter) ([]KPIBucket, error) {
	repos := s.runner.Repos()

	tickets, err := s.collectTickets(ctx, repos, filter)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	history, err := repos.Events.ListByTicketIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byTicket := make(map[string][]domain.TicketEvent, len(tickets))
	for _, event := range history {
		byTicket[event.TicketID] = append(byTicket[event.TicketID], event)
	}

	type bucketKey struct {
		day, company, technician string
	}
	type accumulator struct {
		bucket        KPIBucket
		firstResponse []float64
		resolution    []float64
		assignment    []float64
	}
	buckets := map[bucketKey]*accumulator{}

	for _, ticket := range tickets {
		tech := ""
		if ticket.AssignedTo != nil {
			tech = *ticket.AssignedTo
		}
		key := bucketKey{
			day:        ticket.CreatedAt.UTC().Format("2006-01-02"),
			company:    ticket.CompanyID,
			technician: tech,
		}
		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{bucket: KPIBucket{
				Day:          key.day,
				CompanyID:    key.company,
				TechnicianID: key.technician,
				StatusCounts: map[string]int{},
			}}
			buckets[key] = acc
		}

		acc.bucket.TotalTickets++
		acc.bucket.StatusCounts[string(ticket.Status)]++
		if ticket.AssignedTo != nil {
			acc.bucket.AssignedCount++
		}
		if ticket.Priority == domain.TicketPriorityHigh || ticket.Priority == domain.TicketPriorityUrgent {
			acc.bucket.HighPriorityCount++
		}

		metrics := deriveTicketMetrics(ticket, byTicket[ticket.ID])
		if metrics.reopened {
			acc.bucket.ReopenedCount++
		}
		if metrics.firstResponse != nil {
			acc.firstResponse = append(acc.firstResponse, *metrics.firstResponse)
		}
		if metrics.resolution != nil {
			acc.resolution = append(acc.resolution, *metrics.resolution)
		}
		if metrics.assignment != nil {
			acc.assignment = append(acc.assignment, *metrics.assignment)
		}
	}

	result := make([]KPIBucket, 0, len(buckets))
	for _, acc := range buckets {
		acc.bucket.AvgFirstResponseHrs = average(acc.firstResponse)
		acc.bucket.AvgResolutionHrs = average(acc.resolution)
		acc.bucket.AvgAssignmentHrs = average(acc.assignment)
		result = append(result, acc.bucket)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Day != result[j].Day {
			return result[i].Day < result[j].Day
		}
		if result[i].CompanyID != result[j].CompanyID {
			return result[i].CompanyID < result[j].CompanyID
		}
		return result[i].TechnicianID < result[j].TechnicianID
	})
	return result, nil
}

type ticketMetrics struct {
	reopened      bool
	firstResponse *float64
	resolution    *float64
	assignment    *float64
}

// deriveTicketMetrics walks a ticket's audit history in chronological
// order. First response is the earliest status_changed or assigned event;
// resolution is the first transition into RESOLVED or SHIPPED; a ticket is
// reopened when a status_changed event re-enters OPEN.
func deriveTicketMetrics(ticket domain.Ticket, history []domain.TicketEvent) ticketMetrics {
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})

	var m ticketMetrics
	for _, event := range history {
		switch event.EventType {
		case domain.EventTypeStatusChanged:
			if m.firstResponse == nil {
				m.firstResponse = hoursSince(ticket.CreatedAt, event.CreatedAt)
			}
			to, _ := event.Payload["to"].(string)
			if to == string(domain.TicketStatusOpen) {
				m.reopened = true
			}
			if m.resolution == nil && (to == string(domain.TicketStatusResolved) || to == string(domain.TicketStatusShipped)) {
				m.resolution = hoursSince(ticket.CreatedAt, event.CreatedAt)
			}
		case domain.EventTypeAssigned:
			if m.firstResponse == nil {
				m.firstResponse = hoursSince(ticket.CreatedAt, event.CreatedAt)
			}
			if m.assignment == nil && event.Payload["new_assignee"] != nil {
				m.assignment = hoursSince(ticket.CreatedAt, event.CreatedAt)
			}
		}
	}
	return m
}

func hoursSince(from, to time.Time) *float64 {
	h := to.Sub(from).Hours()
	if h < 0 {
		h = 0
	}
	return &h
}

func average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

// collectTickets pages through the ticket store applying the filter.
func (s *SLAService) collectTickets(ctx context.Context, repos repository.Repos, filter ReportFilter) ([]domain.Ticket, error) {
	ticketFilter := repository.TicketFilter{Limit: slaPageSize}
	if filter.CompanyID != "" {
		companyID := filter.CompanyID
		ticketFilter.CompanyID = &companyID
	}
	if filter.TechnicianID != "" {
		tech := filter.TechnicianID
		ticketFilter.AssignedTo = &tech
	}
	if !filter.From.IsZero() {
		from := filter.From
		ticketFilter.CreatedFrom = &from
	}
	if !filter.To.IsZero() {
		to := filter.To
		ticketFilter.CreatedTo = &to
	}

	var all []domain.Ticket
	for {
		page, err := repos.Tickets.List(ctx, ticketFilter)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		all = append(all, page...)
		if len(page) < slaPageSize {
			return all, nil
		}
		ticketFilter.Offset += slaPageSize
	}
}
