// Package worker runs the scheduled KPI email report. Rendering and actual
// delivery belong to the external email dispatcher; this worker computes
// the rows and hands them over.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/printops/servicedesk/internal/config"
	"github.com/printops/servicedesk/internal/service"
)

// EmailSender delivers a computed KPI rollup to a recipient.
type EmailSender interface {
	SendKPIReport(ctx context.Context, recipient string, from, to time.Time, buckets []service.KPIBucket) error
}

// LogEmailSender is the default sender used when no delivery integration is
// configured. It only logs what would have been sent.
type LogEmailSender struct {
	Logger *zap.Logger
}

func (s *LogEmailSender) SendKPIReport(ctx context.Context, recipient string, from, to time.Time, buckets []service.KPIBucket) error {
	s.Logger.Info("kpi report computed",
		zap.String("recipient", recipient),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("buckets", len(buckets)),
	)
	return nil
}

// ReportWorker schedules the daily KPI report.
type ReportWorker struct {
	cfg    config.ReportConfig
	sla    *service.SLAService
	sender EmailSender
	logger *zap.Logger
	cron   *cron.Cron
}

// NewReportWorker constructs the worker. A nil sender falls back to
// LogEmailSender.
func NewReportWorker(cfg config.ReportConfig, sla *service.SLAService, sender EmailSender, logger *zap.Logger) *ReportWorker {
	if sender == nil {
		sender = &LogEmailSender{Logger: logger}
	}
	return &ReportWorker{
		cfg:    cfg,
		sla:    sla,
		sender: sender,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the cron entry and begins scheduling. No-op when the
// report is disabled.
func (w *ReportWorker) Start() error {
	if !w.cfg.Enabled {
		w.logger.Info("scheduled kpi report disabled")
		return nil
	}
	if w.cfg.Recipient == "" {
		return fmt.Errorf("REPORT_RECIPIENT is required when REPORT_ENABLED is set")
	}
	if _, err := w.cron.AddFunc(w.cfg.CronSpec, w.runOnce); err != nil {
		return fmt.Errorf("invalid REPORT_CRON %q: %w", w.cfg.CronSpec, err)
	}
	w.cron.Start()
	w.logger.Info("scheduled kpi report started",
		zap.String("cron", w.cfg.CronSpec),
		zap.String("recipient", w.cfg.Recipient),
	)
	return nil
}

// Stop halts scheduling and waits for a running report to finish.
func (w *ReportWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// runOnce reports on the previous calendar day.
func (w *ReportWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -1)

	buckets, err := w.sla.KPIRollup(ctx, service.ReportFilter{From: from, To: to})
	if err != nil {
		w.logger.Error("kpi report computation failed", zap.Error(err))
		return
	}
	if err := w.sender.SendKPIReport(ctx, w.cfg.Recipient, from, to, buckets); err != nil {
		w.logger.Error("kpi report delivery failed", zap.Error(err))
	}
}
