package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatPayload = `{
  "user": {"name": "Carol", "email": "carol@example.com"},
  "item": {"id": "C1", "name": "Fix login", "boardId": "B1", "listId": "L1"},
  "included": {
    "boards": [{"id": "B1", "name": "Sprint Board", "projectId": "P1"}],
    "lists": [{"id": "L1", "name": "In Progress"}],
    "projects": [{"id": "P1", "name": "Website"}]
  }
}`

const nestedPayload = `{
  "user": {"name": "Dave", "email": "dave@example.com"},
  "data": {
    "item": {"id": "C2", "name": "Ship release", "boardId": "B2", "listId": "L2"},
    "included": {
      "boards": [{"id": "B2", "name": "Release Board", "projectId": "P2"}],
      "lists": [{"id": "L2", "name": "Done"}],
      "projects": [{"id": "P2", "name": "Mobile App"}]
    }
  }
}`

func TestParseFlatShape(t *testing.T) {
	info := Parse("cardCreate", flatPayload)

	assert.Equal(t, "Carol", info.ActorName)
	assert.Equal(t, "carol@example.com", info.ActorEmail)
	assert.Equal(t, "Fix login", info.CardName)
	assert.Equal(t, "Sprint Board", info.BoardName)
	assert.Equal(t, "In Progress", info.ListName)
	assert.Equal(t, "P1", info.ProjectID)
	assert.Equal(t, "Website", info.ProjectName)
}

func TestParseNestedShape(t *testing.T) {
	info := Parse("cardCreate", nestedPayload)

	assert.Equal(t, "Dave", info.ActorName)
	assert.Equal(t, "Ship release", info.CardName)
	assert.Equal(t, "Release Board", info.BoardName)
	assert.Equal(t, "Done", info.ListName)
	assert.Equal(t, "P2", info.ProjectID)
	assert.Equal(t, "Mobile App", info.ProjectName)
}

func TestParseActorFromIncludedUsers(t *testing.T) {
	info := Parse("commentCreate", `{
	  "item": {"text": "Looks good to me"},
	  "included": {
	    "users": [{"name": "Erin", "email": "erin@example.com"}],
	    "cards": [{"id": "C3", "name": "Review PR"}]
	  }
	}`)

	assert.Equal(t, "Erin", info.ActorName)
	assert.Equal(t, "erin@example.com", info.ActorEmail)
	assert.Equal(t, "Review PR", info.CardName)
	assert.Equal(t, "Looks good to me", info.CommentText)
}

func TestParseUnmatchedReferenceFallsBackToRawID(t *testing.T) {
	info := Parse("cardCreate", `{
	  "item": {"name": "Orphan", "boardId": "B9", "listId": "L9"},
	  "included": {"boards": [{"id": "B1", "name": "Other"}]}
	}`)

	assert.Equal(t, "B9", info.BoardName)
	assert.Equal(t, "L9", info.ListName)
}

func TestParseIsTotal(t *testing.T) {
	t.Run("invalid JSON", func(t *testing.T) {
		info := Parse("cardCreate", "{not json")
		assert.Equal(t, "cardCreate", info.EventType)
		assert.Empty(t, info.ActorName)
		assert.Empty(t, info.ProjectID)
	})

	t.Run("nil document", func(t *testing.T) {
		info := Extract("cardDelete", nil)
		assert.Equal(t, "cardDelete", info.EventType)
		assert.Empty(t, info.CardName)
	})

	t.Run("wrong value types", func(t *testing.T) {
		info := Parse("cardCreate", `{"item": "nope", "included": 42, "user": ["x"]}`)
		assert.Empty(t, info.ActorName)
		assert.Empty(t, info.BoardName)
	})
}

func TestFieldChangesOnlyChangedFields(t *testing.T) {
	info := Parse("cardUpdate", `{
	  "prevData": {"item": {"name": "A", "listId": "L1"}},
	  "data": {"item": {"name": "B", "listId": "L1"}}
	}`)

	require.Len(t, info.FieldChanges, 1)
	change := info.FieldChanges[0]
	assert.Equal(t, "name", change.Field)
	assert.Equal(t, "A", change.Before)
	assert.Equal(t, "B", change.After)
}

func TestFieldChangesResolveAgainstOwnSnapshot(t *testing.T) {
	// The list was renamed between the snapshots; each side must resolve
	// against its own included collection.
	info := Parse("cardUpdate", `{
	  "prevData": {
	    "item": {"name": "Card", "listId": "L1"},
	    "included": {"lists": [{"id": "L1", "name": "Backlog"}]}
	  },
	  "data": {
	    "item": {"name": "Card", "listId": "L2"},
	    "included": {"lists": [{"id": "L2", "name": "In Review"}]}
	  }
	}`)

	require.Len(t, info.FieldChanges, 1)
	change := info.FieldChanges[0]
	assert.Equal(t, "listId", change.Field)
	assert.Equal(t, "List", change.Label)
	assert.Equal(t, "Backlog", change.Before)
	assert.Equal(t, "In Review", change.After)
}

func TestFieldChangesAbsentValueStaysEmpty(t *testing.T) {
	info := Parse("cardUpdate", `{
	  "prevData": {"item": {"name": "Card"}},
	  "data": {"item": {"name": "Card", "description": "now documented"}}
	}`)

	require.Len(t, info.FieldChanges, 1)
	assert.Equal(t, "description", info.FieldChanges[0].Field)
	assert.Empty(t, info.FieldChanges[0].Before)
	assert.Equal(t, "now documented", info.FieldChanges[0].After)
}

func TestFieldChangesIgnoredWithoutSnapshots(t *testing.T) {
	info := Parse("cardUpdate", `{"item": {"name": "Solo"}}`)
	assert.Empty(t, info.FieldChanges)
}

func TestProjects(t *testing.T) {
	projects := Projects(flatPayload)
	require.Len(t, projects, 1)
	assert.Equal(t, "P1", projects[0].ID)
	assert.Equal(t, "Website", projects[0].Name)

	assert.Empty(t, Projects("{broken"))
	assert.Empty(t, Projects(`{"included": {"projects": [{"id": "P1"}]}}`))
}
