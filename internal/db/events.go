package db

import (
	"context"
	"fmt"
	"sort"

	"webhook-digest-service/internal/extract"
	"webhook-digest-service/internal/models"
)

// QueueEvent appends one webhook event to the queue and returns the stored
// row. Events are queued unconditionally; the event filter table never
// blocks ingestion.
func (d *DB) QueueEvent(ctx context.Context, eventType, payload string) (models.QueuedEvent, error) {
	ev := models.QueuedEvent{EventType: eventType, Payload: payload}
	err := d.Pool.QueryRow(ctx,
		`INSERT INTO event_queue (event_type, payload) VALUES ($1, $2)
		 RETURNING id, received_at`,
		eventType, payload).Scan(&ev.ID, &ev.ReceivedAt)
	if err != nil {
		return models.QueuedEvent{}, fmt.Errorf("failed to queue event: %w", err)
	}
	return ev, nil
}

// GetUnprocessedEvents returns queued events not yet included in a digest,
// oldest first.
func (d *DB) GetUnprocessedEvents(ctx context.Context) ([]models.QueuedEvent, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT id, event_type, payload, received_at, processed
		 FROM event_queue
		 WHERE processed = false
		 ORDER BY received_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get unprocessed events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetRecentEvents returns the newest events, processed or not, for the
// admin event log.
func (d *DB) GetRecentEvents(ctx context.Context, limit int) ([]models.QueuedEvent, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT id, event_type, payload, received_at, processed
		 FROM event_queue
		 ORDER BY received_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (d *DB) CountUnprocessedEvents(ctx context.Context) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx,
		`SELECT count(*) FROM event_queue WHERE processed = false`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unprocessed events: %w", err)
	}
	return n, nil
}

// MarkProcessed flips the processed flag for the given event ids.
func (d *DB) MarkProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Pool.Exec(ctx,
		`UPDATE event_queue SET processed = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to mark events processed: %w", err)
	}
	return nil
}

// KnownProjects scans the queued payloads for embedded projects and returns
// the deduplicated set, sorted by name.
func (d *DB) KnownProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := d.Pool.Query(ctx, `SELECT payload FROM event_queue`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payloads for projects: %w", err)
	}
	defer rows.Close()

	seen := map[string]string{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan payload: %w", err)
		}
		for _, p := range extract.Projects(payload) {
			seen[p.ID] = p.Name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan payloads for projects: %w", err)
	}

	projects := make([]models.Project, 0, len(seen))
	for id, name := range seen {
		projects = append(projects, models.Project{ID: id, Name: name})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows pgxRows) ([]models.QueuedEvent, error) {
	var events []models.QueuedEvent
	for rows.Next() {
		var ev models.QueuedEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Payload, &ev.ReceivedAt, &ev.Processed); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
