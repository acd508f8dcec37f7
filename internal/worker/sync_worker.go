// Package worker replays locally queued report mutations against the remote
// store. The local database is the source of truth for ordering: operations
// replay oldest first, and a failure stops the batch so a delete can never
// overtake the add it depends on.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/amqp"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/storage"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

// errStopBatch halts a drain without surfacing an error to the caller.
var errStopBatch = errors.New("stop batch")

type SyncWorker struct {
	local       *storage.Repository
	remote      store.ReportStore
	batchSize   int
	maxAttempts int
}

func NewSyncWorker(local *storage.Repository, remote store.ReportStore, batchSize, maxAttempts int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &SyncWorker{
		local:       local,
		remote:      remote,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// HandleSyncMessage processes one AMQP wake-up. The message only says that
// work exists; the queue itself decides what replays next.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "report_id", msg.ReportID)
	return w.Drain(ctx)
}

// Drain replays pending operations until the queue is empty or an operation
// fails.
func (w *SyncWorker) Drain(ctx context.Context) error {
	for {
		ops, err := w.local.PendingOps(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("get pending ops: %w", err)
		}
		if len(ops) == 0 {
			return nil
		}

		for _, op := range ops {
			if err := w.replay(ctx, op); err != nil {
				if errors.Is(err, errStopBatch) {
					return nil
				}
				return err
			}
		}
		if len(ops) < w.batchSize {
			return nil
		}
	}
}

// StartupSyncCheck drains whatever accumulated while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	ops, err := w.local.PendingOps(ctx, 1)
	if err != nil {
		return fmt.Errorf("get pending ops for startup check: %w", err)
	}
	if len(ops) == 0 {
		slog.InfoContext(ctx, "No pending operations found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending operations on startup, draining")
	start := time.Now()
	if err := w.Drain(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Startup drain completed", "elapsed", time.Since(start).String())
	return nil
}

func (w *SyncWorker) replay(ctx context.Context, op storage.PendingOp) error {
	var err error
	switch op.Op {
	case "add":
		err = w.remote.AddItem(ctx, op.ReportID, op.Item)
	case "delete":
		err = w.remote.DeleteItem(ctx, op.ReportID, op.Category, op.Sequence)
		// The remote may have never seen the item if its add previously
		// exhausted the attempt budget. Treat that as done.
		if errors.Is(err, store.ErrItemNotFound) {
			slog.WarnContext(ctx, "Delete target missing remotely, skipping",
				"op_id", op.ID,
				"report_id", op.ReportID,
				"category", op.Category,
				"sequence", op.Sequence)
			err = nil
		}
	default:
		slog.ErrorContext(ctx, "Unknown queued operation", "op_id", op.ID, "op", op.Op)
		return w.local.MarkSyncError(ctx, op.ID, 1)
	}

	if err != nil {
		slog.ErrorContext(ctx, "Failed to replay operation",
			"op_id", op.ID,
			"op", op.Op,
			"report_id", op.ReportID,
			"error", err)
		if markErr := w.local.MarkSyncError(ctx, op.ID, w.maxAttempts); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "op_id", op.ID, "error", markErr)
		}
		// Stop here so later ops for the report keep their order.
		return errStopBatch
	}

	if err := w.local.MarkSynced(ctx, op.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "op_id", op.ID, "error", err)
		// The replay itself worked; retrying it would duplicate the item.
		return errStopBatch
	}

	slog.InfoContext(ctx, "Replayed operation",
		"op_id", op.ID,
		"op", op.Op,
		"report_id", op.ReportID,
		"category", op.Category)
	return nil
}
