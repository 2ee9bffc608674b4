package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-digest-service/internal/logging"
	"webhook-digest-service/internal/models"
)

type fakeStore struct {
	mu         sync.Mutex
	events     []models.QueuedEvent
	recipients []models.Recipient
	access     map[int64][]models.RecipientProject
	lastSent   []time.Time

	eventsErr error
	accessErr error
	markErr   error
}

func (s *fakeStore) GetUnprocessedEvents(ctx context.Context) ([]models.QueuedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsErr != nil {
		return nil, s.eventsErr
	}
	var out []models.QueuedEvent
	for _, ev := range s.events {
		if !ev.Processed {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range s.events {
		if set[s.events[i].ID] {
			s.events[i].Processed = true
		}
	}
	return nil
}

func (s *fakeStore) GetActiveRecipients(ctx context.Context) ([]models.Recipient, error) {
	return s.recipients, nil
}

func (s *fakeStore) GetRecipientProjects(ctx context.Context, recipientID int64) ([]models.RecipientProject, error) {
	if s.accessErr != nil {
		return nil, s.accessErr
	}
	return s.access[recipientID], nil
}

func (s *fakeStore) SetLastSentAt(ctx context.Context, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent = append(s.lastSent, ts)
	return nil
}

func (s *fakeStore) unprocessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if !ev.Processed {
			n++
		}
	}
	return n
}

type sentMail struct {
	to      string
	subject string
	html    string
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []sentMail
	fail  map[string]error
}

func (m *fakeMailer) Send(to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[to]; err != nil {
		return err
	}
	m.sends = append(m.sends, sentMail{to: to, subject: subject, html: html})
	return nil
}

func queuedEvent(id int64, actorEmail, projectID string) models.QueuedEvent {
	payload := fmt.Sprintf(`{"user":{"name":"Actor","email":"%s"},"item":{"name":"Card %d"`, actorEmail, id)
	if projectID != "" {
		payload += fmt.Sprintf(`,"projectId":"%s"`, projectID)
	}
	payload += `}}`
	return models.QueuedEvent{
		ID:         id,
		EventType:  "cardCreate",
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	store := &fakeStore{recipients: []models.Recipient{{ID: 1, Email: "alice@example.com", Active: true}}}
	mail := &fakeMailer{}
	engine := NewEngine(store, mail, logging.Discard())

	result, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 0, Events: 0}, result)
	assert.Empty(t, mail.sends)
	assert.Empty(t, store.lastSent)
}

func TestRunOnceTwoRecipientsOneRestricted(t *testing.T) {
	store := &fakeStore{
		events: []models.QueuedEvent{
			queuedEvent(1, "carol@example.com", "P1"),
			queuedEvent(2, "carol@example.com", "P2"),
			queuedEvent(3, "carol@example.com", ""),
		},
		recipients: []models.Recipient{
			{ID: 1, Email: "alice@example.com", Name: "Alice", Active: true},
			{ID: 2, Email: "bob@example.com", Name: "Bob", Active: true},
		},
		access: map[int64][]models.RecipientProject{
			2: {{RecipientID: 2, ProjectID: "P1", ProjectName: "Website"}},
		},
	}
	mail := &fakeMailer{}
	engine := NewEngine(store, mail, logging.Discard())

	result, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 2, Events: 3}, result)

	require.Len(t, mail.sends, 2)
	bySender := map[string]sentMail{}
	for _, s := range mail.sends {
		bySender[s.to] = s
	}
	// Alice is unrestricted and sees all three events
	assert.Equal(t, "Planka Digest: 3 new notifications", bySender["alice@example.com"].subject)
	// Bob sees the P1 event plus the unresolvable-project event
	assert.Equal(t, "Planka Digest: 2 new notifications", bySender["bob@example.com"].subject)
	assert.NotContains(t, bySender["bob@example.com"].html, "Card 2")

	assert.Equal(t, 0, store.unprocessedCount())
	assert.Len(t, store.lastSent, 1)
}

func TestRunOnceSelfActionsLeaveRecipientWithoutMail(t *testing.T) {
	store := &fakeStore{
		events: []models.QueuedEvent{
			queuedEvent(1, "alice@example.com", ""),
		},
		recipients: []models.Recipient{
			{ID: 1, Email: "alice@example.com", Active: true},
		},
	}
	mail := &fakeMailer{}
	engine := NewEngine(store, mail, logging.Discard())

	result, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	// Nothing visible for the only recipient, but the batch is still marked
	assert.Equal(t, RunResult{Sent: 0, Events: 1}, result)
	assert.Empty(t, mail.sends)
	assert.Equal(t, 0, store.unprocessedCount())
}

func TestRunOnceMailFailureIsolated(t *testing.T) {
	store := &fakeStore{
		events: []models.QueuedEvent{
			queuedEvent(1, "carol@example.com", ""),
		},
		recipients: []models.Recipient{
			{ID: 1, Email: "alice@example.com", Active: true},
			{ID: 2, Email: "bob@example.com", Active: true},
		},
	}
	mail := &fakeMailer{fail: map[string]error{"alice@example.com": errors.New("smtp down")}}
	engine := NewEngine(store, mail, logging.Discard())

	result, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 1, Events: 1}, result)
	require.Len(t, mail.sends, 1)
	assert.Equal(t, "bob@example.com", mail.sends[0].to)
	// The failed recipient does not keep the batch unprocessed
	assert.Equal(t, 0, store.unprocessedCount())
	assert.Len(t, store.lastSent, 1)
}

func TestRunOnceIdempotentAcrossCalls(t *testing.T) {
	store := &fakeStore{
		events: []models.QueuedEvent{
			queuedEvent(1, "carol@example.com", ""),
		},
		recipients: []models.Recipient{
			{ID: 1, Email: "alice@example.com", Active: true},
		},
	}
	mail := &fakeMailer{}
	engine := NewEngine(store, mail, logging.Discard())

	first, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 1, Events: 1}, first)

	second, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 0, Events: 0}, second)

	assert.Len(t, mail.sends, 1)
	assert.Len(t, store.lastSent, 1)
}

func TestRunOnceNoActiveRecipientsLeavesQueueUntouched(t *testing.T) {
	store := &fakeStore{
		events: []models.QueuedEvent{
			queuedEvent(1, "carol@example.com", ""),
		},
	}
	mail := &fakeMailer{}
	engine := NewEngine(store, mail, logging.Discard())

	result, err := engine.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Sent: 0, Events: 0}, result)
	assert.Equal(t, 1, store.unprocessedCount())
	assert.Empty(t, store.lastSent)
}

func TestRunOnceStoreFailureAbortsBeforeMarking(t *testing.T) {
	t.Run("fetch events fails", func(t *testing.T) {
		store := &fakeStore{eventsErr: errors.New("db gone")}
		engine := NewEngine(store, &fakeMailer{}, logging.Discard())

		_, err := engine.RunOnce(context.Background())
		assert.Error(t, err)
	})

	t.Run("project access fails", func(t *testing.T) {
		store := &fakeStore{
			events: []models.QueuedEvent{
				queuedEvent(1, "carol@example.com", ""),
			},
			recipients: []models.Recipient{
				{ID: 1, Email: "alice@example.com", Active: true},
			},
			accessErr: errors.New("db gone"),
		}
		engine := NewEngine(store, &fakeMailer{}, logging.Discard())

		_, err := engine.RunOnce(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 1, store.unprocessedCount())
		assert.Empty(t, store.lastSent)
	})
}

func TestRunOnceSkipsWhileRunInProgress(t *testing.T) {
	engine := NewEngine(&fakeStore{}, &fakeMailer{}, logging.Discard())
	engine.running.Store(true)

	_, err := engine.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	engine.running.Store(false)
	_, err = engine.RunOnce(context.Background())
	assert.NoError(t, err)
}
