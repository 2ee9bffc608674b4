package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"webhook-digest-service/internal/extract"
)

// HandleWebhook is the board's ingress point. Accepted events are queued
// unconditionally; the event filter table is advisory and never blocks
// ingestion.
func (h *Handler) HandleWebhook(c *gin.Context) {
	if secret := h.config.Webhook.Secret; secret != "" {
		provided := c.GetHeader("X-Webhook-Secret")
		if provided == "" {
			provided = c.Query("secret")
		}
		if provided != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty payload"})
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	eventType := eventTypeOf(doc)
	if eventType == "" {
		h.logger.Warnf("Webhook rejected: could not determine event type")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event type"})
		return
	}

	info := extract.Extract(eventType, doc)
	h.logger.Infof("Webhook received: type=%s actor=%s board=%s list=%s card=%s",
		eventType, info.ActorName, info.BoardName, info.ListName, info.CardName)

	enabled, err := h.db.IsEventEnabled(c.Request.Context(), eventType)
	if err != nil {
		h.logger.Errorf("Failed to check event filter for %s: %v", eventType, err)
	} else if !enabled {
		h.logger.Infof("Event type %s not in filter, queuing anyway", eventType)
	}

	ev, err := h.db.QueueEvent(c.Request.Context(), eventType, string(body))
	if err != nil {
		h.logger.Errorf("Failed to queue event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue event"})
		return
	}

	info.ReceivedAt = ev.ReceivedAt
	h.hub.Broadcast(gin.H{
		"id":         ev.ID,
		"event_type": ev.EventType,
		"info":       info,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "queued": true})
}

// eventTypeOf reads the event-type discriminator, trying the tags the
// board is known to send.
func eventTypeOf(doc map[string]any) string {
	for _, key := range []string{"event", "type", "action"} {
		if s, ok := doc[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
