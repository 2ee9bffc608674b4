package digest

import (
	"fmt"
	"html/template"
	"strings"

	"webhook-digest-service/internal/models"
)

const commentExcerptLimit = 200

// eventLabels maps event-type tags to their digest headings. Unknown tags
// fall back to the raw tag.
var eventLabels = map[string]string{
	"cardCreate":           "Card Created",
	"cardUpdate":           "Card Updated",
	"cardDelete":           "Card Deleted",
	"cardMembershipCreate": "Member Added to Card",
	"cardMembershipDelete": "Member Removed from Card",
	"cardLabelCreate":      "Label Added to Card",
	"commentCreate":        "New Comment",
	"attachmentCreate":     "Attachment Added",
	"listCreate":           "List Created",
	"listUpdate":           "List Updated",
	"listDelete":           "List Deleted",
	"notificationCreate":   "Notification Created",
	"notificationUpdate":   "Notification Updated",
	"webhookUpdate":        "Webhook Updated",
	"webhookDelete":        "Webhook Deleted",
	"userUpdate":           "User Updated",
}

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"dash": func(s string) string {
		if s == "" {
			return "—"
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333; border-bottom: 2px solid #4f46e5; padding-bottom: 10px;">
    Planka Activity Digest
  </h2>
{{- if .Greeting}}
  <p style="color: #333;">{{.Greeting}}</p>
{{- end}}
  <p style="color: #666;">{{.Lead}}</p>
  <table style="width: 100%; border-collapse: collapse;">
{{- range .Blocks}}
    <tr>
      <td style="padding: 10px; border-bottom: 1px solid #eee;">
        <strong>{{.Label}}</strong><br>
{{- range .Rows}}
        <span style="color: #666;">{{.Name}}: <strong>{{.Value}}</strong></span><br>
{{- end}}
{{- if .Comment}}
        <span style="color: #666; font-style: italic;">&quot;{{.Comment}}&quot;</span><br>
{{- end}}
{{- if .Changes}}
        <table style="border-collapse: collapse; margin: 6px 0;">
          <tr>
            <th style="text-align: left; padding: 2px 8px; color: #333;">Field</th>
            <th style="text-align: left; padding: 2px 8px; color: #333;">Before</th>
            <th style="text-align: left; padding: 2px 8px; color: #333;">After</th>
          </tr>
{{- range .Changes}}
          <tr>
            <td style="padding: 2px 8px; color: #666;">{{.Label}}</td>
            <td style="padding: 2px 8px; color: #666;">{{dash .Before}}</td>
            <td style="padding: 2px 8px; color: #666;">{{dash .After}}</td>
          </tr>
{{- end}}
        </table>
{{- end}}
{{- if .Actor}}
        <span style="color: #666;">by {{.Actor}}</span><br>
{{- end}}
        <small style="color: #999;">{{.Time}}</small>
      </td>
    </tr>
{{- end}}
  </table>
  <p style="color: #999; font-size: 12px; margin-top: 20px; border-top: 1px solid #eee; padding-top: 10px;">
    This is an automated digest from your Planka Webhook Receiver.
  </p>
</body>
</html>
`))

type digestView struct {
	Greeting string
	Lead     string
	Blocks   []eventBlock
}

type eventBlock struct {
	Label   string
	Rows    []detailRow
	Comment string
	Changes []models.FieldChange
	Actor   string
	Time    string
}

type detailRow struct {
	Name  string
	Value string
}

// Subject returns the digest subject line for a visible event count.
func Subject(count int) string {
	if count == 1 {
		return "Planka Digest: 1 new notification"
	}
	return fmt.Sprintf("Planka Digest: %d new notifications", count)
}

// Render produces one HTML digest document for a recipient. Missing
// optional fields drop their row instead of erroring.
func Render(events []Event, displayName string) (string, error) {
	view := digestView{Lead: lead(len(events))}
	if displayName != "" {
		view.Greeting = fmt.Sprintf("Hello %s,", displayName)
	}

	for _, ev := range events {
		info := ev.Info
		block := eventBlock{
			Label: eventLabel(info.EventType),
			Actor: info.ActorName,
			Time:  info.ReceivedAt.Format("02.01.2006, 15:04"),
		}
		for _, r := range []detailRow{
			{"Card", info.CardName},
			{"Board", info.BoardName},
			{"List", info.ListName},
			{"Project", info.ProjectName},
		} {
			if r.Value != "" {
				block.Rows = append(block.Rows, r)
			}
		}
		if info.EventType == "commentCreate" {
			block.Comment = excerpt(info.CommentText, commentExcerptLimit)
		}
		block.Changes = info.FieldChanges
		view.Blocks = append(view.Blocks, block)
	}

	var b strings.Builder
	if err := digestTmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return b.String(), nil
}

func eventLabel(eventType string) string {
	if label, ok := eventLabels[eventType]; ok {
		return label
	}
	return eventType
}

func lead(count int) string {
	if count == 1 {
		return "You have 1 new notification:"
	}
	return fmt.Sprintf("You have %d new notifications:", count)
}

// excerpt caps a comment at limit runes, appending an ellipsis when cut.
func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
