package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"woordjes/internal/amqp"
	"woordjes/internal/log"
	"woordjes/internal/sheets"
	"woordjes/internal/storage"
)

// DefaultBatchSize bounds one sweep of unexported sessions.
const DefaultBatchSize = 50

type ExportStore interface {
	SessionForExport(ctx context.Context, id int64) (storage.SessionExport, error)
	PendingExports(ctx context.Context, limit int) ([]storage.SessionExport, error)
	MarkSessionExported(ctx context.Context, id int64, at time.Time) error
}

// ExportWorker copies finished sessions into the spreadsheet.
type ExportWorker struct {
	store     ExportStore
	exporter  sheets.SessionExporter
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

func NewExportWorker(store ExportStore, exporter sheets.SessionExporter, batchSize int, logger *log.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleSessionCompleted exports the session named by msg. Sessions that
// are gone or already exported are acknowledged without work.
func (w *ExportWorker) HandleSessionCompleted(ctx context.Context, msg *amqp.SessionCompletedMessage) error {
	w.logger.InfoContext(ctx, "Processing session completed message",
		log.FieldSessionID, msg.SessionID,
		log.FieldUserID, msg.UserID)

	s, err := w.store.SessionForExport(ctx, msg.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Session no longer exists, dropping message", log.FieldSessionID, msg.SessionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get session from storage: %w", err)
	}
	if s.Exported {
		w.logger.DebugContext(ctx, "Session already exported", log.FieldSessionID, s.ID)
		return nil
	}
	return w.export(ctx, s)
}

// HandleMedalAwarded records that a podium was stored.
func (w *ExportWorker) HandleMedalAwarded(ctx context.Context, msg *amqp.MedalAwardedMessage) error {
	w.logger.InfoContext(ctx, "Medals awarded",
		log.FieldMedalKind, msg.Kind,
		log.FieldPeriodStart, msg.PeriodStart.Format(time.DateOnly),
		"count", msg.Count)
	return nil
}

// Handlers routes broker messages to the worker.
func (w *ExportWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		SessionCompleted: w.HandleSessionCompleted,
		MedalAwarded:     w.HandleMedalAwarded,
	}
}

// ExportPending sweeps sessions whose message was lost or failed. It stops
// at the first export failure and returns how many rows were written.
func (w *ExportWorker) ExportPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Exporting pending sessions", "count", len(pending))
	exported := 0
	for _, s := range pending {
		if err := w.export(ctx, s); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, s storage.SessionExport) error {
	ref, err := w.exporter.AppendSession(ctx, sheets.SessionRow{
		SessionID: s.ID,
		Username:  s.Username,
		Level:     string(s.Level),
		Score:     s.Score,
		Correct:   s.CorrectCount,
		Total:     s.TotalCount,
		PlayedAt:  s.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSessionExported(ctx, s.ID, w.now()); err != nil {
		// The row is in the sheet; a later sweep may append it twice.
		w.logger.ErrorContext(ctx, "Failed to mark session exported",
			log.FieldSessionID, s.ID,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Session exported",
		log.FieldSessionID, s.ID,
		log.FieldSheetsRef, ref,
		log.FieldOperation, log.OpExport)
	return nil
}
