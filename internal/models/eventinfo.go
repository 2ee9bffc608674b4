package models

import "time"

// FieldChange is one before/after pair for a tracked card field. Before or
// After may be empty when the snapshot carried no value.
type FieldChange struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// EventInfo is the canonical view of one board event, normalized out of the
// raw webhook payload. Every field is best-effort; missing data stays empty.
type EventInfo struct {
	EventType    string        `json:"event_type"`
	ActorName    string        `json:"actor_name"`
	ActorEmail   string        `json:"actor_email"`
	CardName     string        `json:"card_name"`
	BoardName    string        `json:"board_name"`
	ListName     string        `json:"list_name"`
	ProjectID    string        `json:"project_id"`
	ProjectName  string        `json:"project_name"`
	CommentText  string        `json:"comment_text"`
	FieldChanges []FieldChange `json:"field_changes,omitempty"`
	ReceivedAt   time.Time     `json:"received_at"`
}
