// Package digest batches queued webhook events into per-recipient HTML
// email digests: visibility filtering, rendering, a run-once engine and a
// reconfigurable schedule.
package digest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"webhook-digest-service/internal/extract"
	"webhook-digest-service/internal/logging"
	"webhook-digest-service/internal/models"
)

// Store is the persistence surface the engine needs for one digest run.
type Store interface {
	GetUnprocessedEvents(ctx context.Context) ([]models.QueuedEvent, error)
	MarkProcessed(ctx context.Context, ids []int64) error
	GetActiveRecipients(ctx context.Context) ([]models.Recipient, error)
	GetRecipientProjects(ctx context.Context, recipientID int64) ([]models.RecipientProject, error)
	SetLastSentAt(ctx context.Context, ts time.Time) error
}

// Mailer delivers one rendered digest.
type Mailer interface {
	Send(to, subject, html string) error
}

// ErrRunInProgress is returned when RunOnce is invoked while another run is
// still active. Overlapping timer fires and manual triggers are skipped
// instead of writing the processed flag concurrently.
var ErrRunInProgress = errors.New("digest run already in progress")

// RunResult reports one digest run: recipients emailed and events marked
// processed.
type RunResult struct {
	Sent   int `json:"sent"`
	Events int `json:"events"`
}

// Engine pulls unprocessed events, computes per-recipient visible subsets,
// sends one email per recipient with a non-empty subset and marks the whole
// batch processed.
type Engine struct {
	store   Store
	mailer  Mailer
	logger  *logging.Logger
	running atomic.Bool
}

func NewEngine(store Store, mailer Mailer, logger *logging.Logger) *Engine {
	return &Engine{store: store, mailer: mailer, logger: logger}
}

// RunOnce executes a single digest cycle. A send failure for one recipient
// is logged and never aborts the rest of the batch; a store failure aborts
// before anything is marked processed, leaving the events for the next run.
func (e *Engine) RunOnce(ctx context.Context) (RunResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return RunResult{}, ErrRunInProgress
	}
	defer e.running.Store(false)

	events, err := e.store.GetUnprocessedEvents(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetch unprocessed events: %w", err)
	}
	if len(events) == 0 {
		return RunResult{}, nil
	}

	recipients, err := e.store.GetActiveRecipients(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetch active recipients: %w", err)
	}
	if len(recipients) == 0 {
		e.logger.Infof("No active recipients, leaving %d events queued", len(events))
		return RunResult{}, nil
	}

	batch := make([]Event, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, q := range events {
		info := extract.Parse(q.EventType, q.Payload)
		info.ReceivedAt = q.ReceivedAt
		batch = append(batch, Event{Queued: q, Info: info})
		ids = append(ids, q.ID)
	}

	sent := 0
	for _, r := range recipients {
		access, err := e.store.GetRecipientProjects(ctx, r.ID)
		if err != nil {
			return RunResult{}, fmt.Errorf("fetch project access for recipient %d: %w", r.ID, err)
		}
		allowed := make(map[string]bool, len(access))
		for _, a := range access {
			allowed[a.ProjectID] = true
		}

		visible := VisibleEvents(r, allowed, batch)
		if len(visible) == 0 {
			e.logger.Debugf("No visible events for %s, skipping", r.Email)
			continue
		}

		html, err := Render(visible, r.Name)
		if err != nil {
			e.logger.Errorf("Render digest for %s failed: %v", r.Email, err)
			continue
		}
		if err := e.mailer.Send(r.Email, Subject(len(visible)), html); err != nil {
			e.logger.Errorf("Send digest to %s failed: %v", r.Email, err)
			continue
		}
		sent++
		e.logger.Infof("Digest sent to %s with %d event(s)", r.Email, len(visible))
	}

	// The batch is marked regardless of individual send outcomes; a failed
	// recipient loses this batch rather than blocking the queue.
	if err := e.store.MarkProcessed(ctx, ids); err != nil {
		return RunResult{Sent: sent}, fmt.Errorf("mark events processed: %w", err)
	}
	if err := e.store.SetLastSentAt(ctx, time.Now()); err != nil {
		e.logger.Errorf("Update last_sent_at failed: %v", err)
	}

	return RunResult{Sent: sent, Events: len(events)}, nil
}
