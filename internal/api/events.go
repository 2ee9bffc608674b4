package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type eventView struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	Payload    any       `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	Processed  bool      `json:"processed"`
}

// ListEvents returns the newest queued events with their payloads decoded
// for the admin UI.
func (h *Handler) ListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.db.GetRecentEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to get recent events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get events"})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		var payload any
		if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
			payload = ev.Payload
		}
		views = append(views, eventView{
			ID:         ev.ID,
			EventType:  ev.EventType,
			Payload:    payload,
			ReceivedAt: ev.ReceivedAt,
			Processed:  ev.Processed,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) PendingEvents(c *gin.Context) {
	count, err := h.db.CountUnprocessedEvents(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to count pending events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// EventsFeed upgrades to a websocket and streams accepted webhook events
// until the client disconnects.
func (h *Handler) EventsFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Feed upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)
	defer func() {
		h.hub.Remove(conn)
		conn.Close()
	}()

	// Reads are discarded; the socket exists only for pushes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
