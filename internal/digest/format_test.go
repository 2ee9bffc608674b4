package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-digest-service/internal/models"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "Planka Digest: 1 new notification", Subject(1))
	assert.Equal(t, "Planka Digest: 3 new notifications", Subject(3))
}

func TestRenderSingleEvent(t *testing.T) {
	events := []Event{{
		Info: models.EventInfo{
			EventType:   "cardCreate",
			ActorName:   "Carol",
			CardName:    "Fix login",
			BoardName:   "Sprint Board",
			ListName:    "In Progress",
			ProjectName: "Website",
			ReceivedAt:  time.Date(2026, 8, 28, 14, 30, 0, 0, time.Local),
		},
	}}

	html, err := Render(events, "Alice")
	require.NoError(t, err)

	assert.Contains(t, html, "Planka Activity Digest")
	assert.Contains(t, html, "Hello Alice,")
	assert.Contains(t, html, "You have 1 new notification:")
	assert.Contains(t, html, "Card Created")
	assert.Contains(t, html, "Fix login")
	assert.Contains(t, html, "Sprint Board")
	assert.Contains(t, html, "In Progress")
	assert.Contains(t, html, "Website")
	assert.Contains(t, html, "by Carol")
	assert.Contains(t, html, "28.08.2026, 14:30")
}

func TestRenderPluralLeadAndNoGreeting(t *testing.T) {
	events := []Event{
		{Info: models.EventInfo{EventType: "cardCreate", CardName: "One"}},
		{Info: models.EventInfo{EventType: "cardDelete", CardName: "Two"}},
	}

	html, err := Render(events, "")
	require.NoError(t, err)

	assert.Contains(t, html, "You have 2 new notifications:")
	assert.NotContains(t, html, "Hello")
}

func TestRenderUnknownEventTypeShowsRawTag(t *testing.T) {
	events := []Event{{Info: models.EventInfo{EventType: "boardSparkle"}}}

	html, err := Render(events, "")
	require.NoError(t, err)
	assert.Contains(t, html, "boardSparkle")
}

func TestRenderOmitsEmptyRows(t *testing.T) {
	events := []Event{{Info: models.EventInfo{EventType: "cardCreate", CardName: "Solo"}}}

	html, err := Render(events, "")
	require.NoError(t, err)
	assert.Contains(t, html, "Card:")
	assert.NotContains(t, html, "Board:")
	assert.NotContains(t, html, "List:")
	assert.NotContains(t, html, "Project:")
}

func TestRenderCommentExcerptTruncated(t *testing.T) {
	long := strings.Repeat("a", 250)
	events := []Event{{Info: models.EventInfo{
		EventType:   "commentCreate",
		CommentText: long,
	}}}

	html, err := Render(events, "")
	require.NoError(t, err)
	assert.Contains(t, html, strings.Repeat("a", 200)+"…")
	assert.NotContains(t, html, strings.Repeat("a", 201))
}

func TestRenderShortCommentKeptVerbatim(t *testing.T) {
	events := []Event{{Info: models.EventInfo{
		EventType:   "commentCreate",
		CommentText: "short note",
	}}}

	html, err := Render(events, "")
	require.NoError(t, err)
	assert.Contains(t, html, "short note")
	assert.NotContains(t, html, "…")
}

func TestRenderFieldChangeTable(t *testing.T) {
	events := []Event{{Info: models.EventInfo{
		EventType: "cardUpdate",
		CardName:  "Fix login",
		FieldChanges: []models.FieldChange{
			{Field: "name", Label: "Title", Before: "A", After: "B"},
			{Field: "description", Label: "Description", Before: "", After: "added"},
		},
	}}}

	html, err := Render(events, "")
	require.NoError(t, err)

	assert.Contains(t, html, "Title")
	assert.Contains(t, html, ">A<")
	assert.Contains(t, html, ">B<")
	// Missing before-value renders as the absence marker
	assert.Contains(t, html, "—")
	assert.Contains(t, html, "added")
}

func TestRenderEscapesPayloadContent(t *testing.T) {
	events := []Event{{Info: models.EventInfo{
		EventType: "cardCreate",
		CardName:  `<script>alert("x")</script>`,
	}}}

	html, err := Render(events, "")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
