package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS admin (
    id SERIAL PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS smtp_settings (
    id INT PRIMARY KEY DEFAULT 1,
    host TEXT NOT NULL DEFAULT '',
    port INT NOT NULL DEFAULT 587,
    secure BOOLEAN NOT NULL DEFAULT false,
    username TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    from_email TEXT NOT NULL DEFAULT '',
    from_name TEXT NOT NULL DEFAULT 'Planka Notifications'
);

CREATE TABLE IF NOT EXISTS recipients (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT true
);
CREATE UNIQUE INDEX IF NOT EXISTS recipients_email_idx ON recipients (lower(email));

CREATE TABLE IF NOT EXISTS event_filters (
    id SERIAL PRIMARY KEY,
    event_type TEXT NOT NULL UNIQUE,
    enabled BOOLEAN NOT NULL DEFAULT true,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS digest_settings (
    id INT PRIMARY KEY DEFAULT 1,
    interval_minutes INT NOT NULL DEFAULT 15,
    last_sent_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS event_queue (
    id BIGSERIAL PRIMARY KEY,
    event_type TEXT NOT NULL,
    payload TEXT NOT NULL,
    received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS recipient_projects (
    id BIGSERIAL PRIMARY KEY,
    recipient_id BIGINT NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
    project_id TEXT NOT NULL,
    project_name TEXT NOT NULL DEFAULT '',
    UNIQUE (recipient_id, project_id)
);
`

// defaultFilters seeds one row per known event type at first boot. Enabled
// flags match the webhook types the digest is meant to surface by default.
var defaultFilters = []struct {
	eventType   string
	description string
	enabled     bool
}{
	{"cardCreate", "Card created", true},
	{"cardUpdate", "Card updated", true},
	{"cardDelete", "Card deleted", true},
	{"cardMembershipCreate", "Member added to card", true},
	{"cardMembershipDelete", "Member removed from card", false},
	{"cardLabelCreate", "Label added to card", false},
	{"commentCreate", "Comment added", true},
	{"attachmentCreate", "Attachment added", false},
	{"listCreate", "List created", false},
	{"listUpdate", "List updated", false},
	{"listDelete", "List deleted", false},
	{"notificationCreate", "Notification created", false},
	{"notificationUpdate", "Notification updated", false},
	{"webhookUpdate", "Webhook updated", false},
	{"webhookDelete", "Webhook deleted", false},
	{"userUpdate", "User updated", false},
}

// Init creates the schema and seeds the single-row settings, default event
// filters and the admin account when missing.
func (d *DB) Init(ctx context.Context, initialPassword string) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := d.Pool.Exec(ctx,
		`INSERT INTO smtp_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("failed to seed smtp settings: %w", err)
	}
	if _, err := d.Pool.Exec(ctx,
		`INSERT INTO digest_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("failed to seed digest settings: %w", err)
	}

	for _, f := range defaultFilters {
		if _, err := d.Pool.Exec(ctx,
			`INSERT INTO event_filters (event_type, description, enabled)
			 VALUES ($1, $2, $3) ON CONFLICT (event_type) DO NOTHING`,
			f.eventType, f.description, f.enabled); err != nil {
			return fmt.Errorf("failed to seed event filter %s: %w", f.eventType, err)
		}
	}

	var admins int
	if err := d.Pool.QueryRow(ctx, `SELECT count(*) FROM admin`).Scan(&admins); err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if admins == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash initial password: %w", err)
		}
		if _, err := d.Pool.Exec(ctx,
			`INSERT INTO admin (password_hash) VALUES ($1)`, string(hash)); err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
	}

	return nil
}
