package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"webhook-digest-service/internal/models"
)

func (d *DB) GetSmtpSettings(ctx context.Context) (models.SmtpSettings, error) {
	var s models.SmtpSettings
	err := d.Pool.QueryRow(ctx,
		`SELECT host, port, secure, username, password, from_email, from_name
		 FROM smtp_settings WHERE id = 1`).Scan(
		&s.Host, &s.Port, &s.Secure, &s.Username, &s.Password, &s.FromEmail, &s.FromName)
	if err != nil {
		return models.SmtpSettings{}, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	return s, nil
}

func (d *DB) UpdateSmtpSettings(ctx context.Context, s models.SmtpSettings) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE smtp_settings SET
		   host = $1, port = $2, secure = $3, username = $4,
		   password = $5, from_email = $6, from_name = $7
		 WHERE id = 1`,
		s.Host, s.Port, s.Secure, s.Username, s.Password, s.FromEmail, s.FromName)
	if err != nil {
		return fmt.Errorf("failed to update smtp settings: %w", err)
	}
	return nil
}

func (d *DB) GetDigestSettings(ctx context.Context) (models.DigestSettings, error) {
	var s models.DigestSettings
	err := d.Pool.QueryRow(ctx,
		`SELECT interval_minutes, last_sent_at FROM digest_settings WHERE id = 1`).Scan(
		&s.IntervalMinutes, &s.LastSentAt)
	if err != nil {
		return models.DigestSettings{}, fmt.Errorf("failed to get digest settings: %w", err)
	}
	return s, nil
}

func (d *DB) UpdateDigestInterval(ctx context.Context, intervalMinutes int) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE digest_settings SET interval_minutes = $1 WHERE id = 1`, intervalMinutes)
	if err != nil {
		return fmt.Errorf("failed to update digest interval: %w", err)
	}
	return nil
}

func (d *DB) SetLastSentAt(ctx context.Context, ts time.Time) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE digest_settings SET last_sent_at = $1 WHERE id = 1`, ts)
	if err != nil {
		return fmt.Errorf("failed to set last_sent_at: %w", err)
	}
	return nil
}

func (d *DB) GetEventFilters(ctx context.Context) ([]models.EventFilter, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT event_type, enabled, description FROM event_filters ORDER BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to get event filters: %w", err)
	}
	defer rows.Close()

	var filters []models.EventFilter
	for rows.Next() {
		var f models.EventFilter
		if err := rows.Scan(&f.EventType, &f.Enabled, &f.Description); err != nil {
			return nil, fmt.Errorf("failed to scan event filter: %w", err)
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event filters: %w", err)
	}
	return filters, nil
}

func (d *DB) UpdateEventFilter(ctx context.Context, eventType string, enabled bool) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE event_filters SET enabled = $1 WHERE event_type = $2`, enabled, eventType)
	if err != nil {
		return fmt.Errorf("failed to update event filter: %w", err)
	}
	return nil
}

// IsEventEnabled reports the advisory filter flag for an event type.
// Unknown types count as disabled. Queuing never depends on this.
func (d *DB) IsEventEnabled(ctx context.Context, eventType string) (bool, error) {
	var enabled bool
	err := d.Pool.QueryRow(ctx,
		`SELECT enabled FROM event_filters WHERE event_type = $1`, eventType).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check event filter: %w", err)
	}
	return enabled, nil
}

func (d *DB) GetAdminPasswordHash(ctx context.Context) (string, error) {
	var hash string
	err := d.Pool.QueryRow(ctx,
		`SELECT password_hash FROM admin ORDER BY id LIMIT 1`).Scan(&hash)
	if err != nil {
		return "", fmt.Errorf("failed to get admin password hash: %w", err)
	}
	return hash, nil
}

func (d *DB) UpdateAdminPassword(ctx context.Context, hash string) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE admin SET password_hash = $1 WHERE id = (SELECT min(id) FROM admin)`, hash)
	if err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
	}
	return nil
}
