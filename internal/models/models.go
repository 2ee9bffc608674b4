package models

import "time"

// QueuedEvent is one webhook event held in the queue. The payload is kept
// verbatim as received; only the processed flag ever changes.
type QueuedEvent struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	Processed  bool      `json:"processed"`
}

// Recipient is a digest email recipient managed via the admin API.
type Recipient struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// RecipientProject is one row of a recipient's project allow-list. A
// recipient with no rows is unrestricted.
type RecipientProject struct {
	RecipientID int64  `json:"recipient_id"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// EventFilter marks whether an event type is enabled. Queuing happens
// unconditionally either way; the flag is advisory for the admin UI.
type EventFilter struct {
	EventType   string `json:"event_type"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// DigestSettings is the single-row digest configuration.
type DigestSettings struct {
	IntervalMinutes int        `json:"interval_minutes"`
	LastSentAt      *time.Time `json:"last_sent_at"`
}

// SmtpSettings is the single-row SMTP transport configuration. The mailer
// counts as unconfigured while Host or FromEmail is empty.
type SmtpSettings struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

// Project is a board project as discovered from queued event payloads.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
