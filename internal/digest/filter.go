package digest

import (
	"strings"

	"webhook-digest-service/internal/models"
)

// Event pairs a queued event with its extracted details.
type Event struct {
	Queued models.QueuedEvent
	Info   models.EventInfo
}

// VisibleEvents returns the subset of events the recipient should see, in
// input order. An event is hidden when it is the recipient's own action or
// when it falls outside the recipient's project allow-list. An empty
// allow-list means unrestricted, and events without a resolvable project id
// are never excluded by the project rule.
func VisibleEvents(recipient models.Recipient, allowedProjects map[string]bool, events []Event) []Event {
	var visible []Event
	for _, ev := range events {
		if isSelfAction(recipient, ev.Info) {
			continue
		}
		if len(allowedProjects) > 0 && ev.Info.ProjectID != "" && !allowedProjects[ev.Info.ProjectID] {
			continue
		}
		visible = append(visible, ev)
	}
	return visible
}

// isSelfAction reports whether the event was caused by the recipient. An
// event without a resolvable actor email never counts as a self-action.
func isSelfAction(recipient models.Recipient, info models.EventInfo) bool {
	return info.ActorEmail != "" && strings.EqualFold(info.ActorEmail, recipient.Email)
}
