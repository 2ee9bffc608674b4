// Package extract normalizes the heterogeneous webhook payloads sent by the
// kanban board into a canonical EventInfo. Extraction is best-effort and
// total: any JSON-like document yields a result, missing data stays empty.
package extract

import (
	"encoding/json"
	"strconv"

	"webhook-digest-service/internal/models"
)

// trackedFields are the card fields compared between the before and after
// snapshots of an update event.
var trackedFields = []struct {
	field string
	label string
}{
	{"name", "Title"},
	{"description", "Description"},
	{"listId", "List"},
	{"boardId", "Board"},
}

// Parse decodes a raw payload document and extracts event details. Invalid
// JSON yields an EventInfo carrying only the event type.
func Parse(eventType, rawPayload string) models.EventInfo {
	var doc map[string]any
	_ = json.Unmarshal([]byte(rawPayload), &doc)
	return Extract(eventType, doc)
}

// Extract pulls actor, card, board, list, project and comment details out
// of a payload document, trying each known document shape in order.
func Extract(eventType string, doc map[string]any) models.EventInfo {
	info := models.EventInfo{EventType: eventType}

	snap := resolve(doc)
	item, inc := snap.item, snap.included

	// Actor: top-level user block first, then embedded users
	users := collection(inc, "users")
	if u := getMap(doc, "user"); u != nil {
		info.ActorName = getString(u, "name")
		info.ActorEmail = getString(u, "email")
	}
	if info.ActorName == "" {
		info.ActorName = getString(first(users), "name")
	}
	if info.ActorEmail == "" {
		info.ActorEmail = getString(first(users), "email")
	}

	// Card: the item itself for card events, embedded cards otherwise
	info.CardName = getString(item, "name")
	if info.CardName == "" {
		info.CardName = getString(first(collection(inc, "cards")), "name")
	}

	boards := collection(inc, "boards")
	lists := collection(inc, "lists")
	projects := collection(inc, "projects")

	info.BoardName = resolveName(boards, getString(item, "boardId"))
	info.ListName = resolveName(lists, getString(item, "listId"))

	// Project id: directly on the item, via the item's board, or the first
	// embedded project
	projectID := getString(item, "projectId")
	if projectID == "" {
		if b := findByID(boards, getString(item, "boardId")); b != nil {
			projectID = getString(b, "projectId")
		}
	}
	if projectID == "" {
		projectID = getString(first(projects), "id")
	}
	info.ProjectID = projectID
	info.ProjectName = resolveName(projects, projectID)

	info.CommentText = getString(item, "text")

	if eventType == "cardUpdate" {
		info.FieldChanges = fieldChanges(doc)
	}

	return info
}

// Projects lists the projects embedded in a raw payload document.
func Projects(rawPayload string) []models.Project {
	var doc map[string]any
	if err := json.Unmarshal([]byte(rawPayload), &doc); err != nil {
		return nil
	}
	var out []models.Project
	for _, p := range collection(resolve(doc).included, "projects") {
		id := getString(p, "id")
		name := getString(p, "name")
		if id != "" && name != "" {
			out = append(out, models.Project{ID: id, Name: name})
		}
	}
	return out
}

// snapshot is one (item, included) view of a payload document.
type snapshot struct {
	item     map[string]any
	included map[string]any
}

// resolve tries the known document shapes in order: a flat {item, included}
// document first, then the {data: {item, included}} nesting. The first
// shape carrying each part wins.
func resolve(doc map[string]any) snapshot {
	snap := snapshot{item: getMap(doc, "item"), included: getMap(doc, "included")}
	if data := getMap(doc, "data"); data != nil {
		if snap.item == nil {
			snap.item = getMap(data, "item")
		}
		if snap.included == nil {
			snap.included = getMap(data, "included")
		}
	}
	return snap
}

// fieldChanges diffs the before and after item snapshots of an update
// event across the tracked fields. List and board references are resolved
// against their own snapshot's embedded collections, since either may have
// been renamed or moved between the two.
func fieldChanges(doc map[string]any) []models.FieldChange {
	prev := resolve(getMap(doc, "prevData"))
	curr := resolve(doc)
	if prev.item == nil || curr.item == nil {
		return nil
	}

	var changes []models.FieldChange
	for _, f := range trackedFields {
		before := getString(prev.item, f.field)
		after := getString(curr.item, f.field)
		if before == after {
			continue
		}
		switch f.field {
		case "listId":
			before = displayRef(prev.included, "lists", before)
			after = displayRef(curr.included, "lists", after)
		case "boardId":
			before = displayRef(prev.included, "boards", before)
			after = displayRef(curr.included, "boards", after)
		}
		changes = append(changes, models.FieldChange{
			Field:  f.field,
			Label:  f.label,
			Before: before,
			After:  after,
		})
	}
	return changes
}

// displayRef maps a foreign key to a display name within one snapshot.
func displayRef(included map[string]any, collName, id string) string {
	if id == "" {
		return ""
	}
	return resolveName(collection(included, collName), id)
}

// resolveName returns the display name for a foreign key against an
// embedded collection: the matched entry's name, else the raw id, else the
// first entry's name when the item carries no id at all.
func resolveName(coll []map[string]any, id string) string {
	if id != "" {
		if m := findByID(coll, id); m != nil {
			return getString(m, "name")
		}
		return id
	}
	return getString(first(coll), "name")
}

func collection(included map[string]any, name string) []map[string]any {
	raw, _ := included[name].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func findByID(coll []map[string]any, id string) map[string]any {
	if id == "" {
		return nil
	}
	for _, m := range coll {
		if getString(m, "id") == id {
			return m
		}
	}
	return nil
}

func first(coll []map[string]any) map[string]any {
	if len(coll) == 0 {
		return nil
	}
	return coll[0]
}

func getMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func getString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		// numeric ids survive as their decimal form
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
