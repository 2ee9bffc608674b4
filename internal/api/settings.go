package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"webhook-digest-service/internal/db"
	"webhook-digest-service/internal/digest"
	"webhook-digest-service/internal/models"
)

const passwordMask = "********"

func (h *Handler) GetSmtpSettings(c *gin.Context) {
	settings, err := h.db.GetSmtpSettings(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get smtp settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get smtp settings"})
		return
	}
	// Never return the stored password
	if settings.Password != "" {
		settings.Password = passwordMask
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSmtpSettings(c *gin.Context) {
	var req models.SmtpSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	current, err := h.db.GetSmtpSettings(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get smtp settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update smtp settings"})
		return
	}
	// A masked password means "unchanged"
	if req.Password == passwordMask {
		req.Password = current.Password
	}
	if req.Port == 0 {
		req.Port = 587
	}
	if req.FromName == "" {
		req.FromName = "Planka Notifications"
	}

	if err := h.db.UpdateSmtpSettings(c.Request.Context(), req); err != nil {
		h.logger.Errorf("Failed to update smtp settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update smtp settings"})
		return
	}
	h.logger.Infof("SMTP settings updated (host=%s)", req.Host)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) SendTestMail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email address required"})
		return
	}

	if err := h.mailer.SendTest(req.Email); err != nil {
		h.logger.Errorf("Test mail to %s failed: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetDigestSettings(c *gin.Context) {
	settings, err := h.db.GetDigestSettings(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get digest settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get digest settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateDigestSettings stores the new interval and restarts the schedule
// immediately, replacing the previous timer.
func (h *Handler) UpdateDigestSettings(c *gin.Context) {
	var req struct {
		IntervalMinutes int `json:"interval_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IntervalMinutes < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval"})
		return
	}

	if err := h.db.UpdateDigestInterval(c.Request.Context(), req.IntervalMinutes); err != nil {
		h.logger.Errorf("Failed to update digest interval: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update digest settings"})
		return
	}

	h.scheduler.Start(time.Duration(req.IntervalMinutes) * time.Minute)
	h.logger.Infof("Digest interval changed to %d minute(s)", req.IntervalMinutes)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) TriggerDigest(c *gin.Context) {
	result, err := h.engine.RunOnce(c.Request.Context())
	if errors.Is(err, digest.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "A digest run is already in progress"})
		return
	}
	if err != nil {
		h.logger.Errorf("Manual digest run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sent": result.Sent, "events": result.Events})
}

func (h *Handler) ListRecipients(c *gin.Context) {
	recipients, err := h.db.GetRecipients(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get recipients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recipients"})
		return
	}
	c.JSON(http.StatusOK, recipients)
}

func (h *Handler) AddRecipient(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
		return
	}

	id, err := h.db.AddRecipient(c.Request.Context(), req.Email, req.Name)
	if errors.Is(err, db.ErrDuplicateEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to add recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add recipient"})
		return
	}
	h.logger.Infof("Recipient added: %s", req.Email)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (h *Handler) UpdateRecipient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}

	var req struct {
		Email  string `json:"email" binding:"required,email"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
		return
	}

	err = h.db.UpdateRecipient(c.Request.Context(), id, req.Email, req.Name, req.Active)
	if errors.Is(err, db.ErrDuplicateEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to update recipient %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipient"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DeleteRecipient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}
	if err := h.db.DeleteRecipient(c.Request.Context(), id); err != nil {
		h.logger.Errorf("Failed to delete recipient %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipient"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListRecipientProjects(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}
	projects, err := h.db.GetRecipientProjects(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to get recipient projects: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recipient projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) AddRecipientProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}

	var req struct {
		ProjectID   string `json:"project_id" binding:"required"`
		ProjectName string `json:"project_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project ID required"})
		return
	}

	if err := h.db.AddRecipientProject(c.Request.Context(), id, req.ProjectID, req.ProjectName); err != nil {
		h.logger.Errorf("Failed to add recipient project: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add recipient project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) RemoveRecipientProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient id"})
		return
	}
	if err := h.db.RemoveRecipientProject(c.Request.Context(), id, c.Param("projectId")); err != nil {
		h.logger.Errorf("Failed to remove recipient project: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove recipient project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListKnownProjects(c *gin.Context) {
	projects, err := h.db.KnownProjects(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list known projects: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) ListEventFilters(c *gin.Context) {
	filters, err := h.db.GetEventFilters(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get event filters: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get event filters"})
		return
	}
	c.JSON(http.StatusOK, filters)
}

func (h *Handler) UpdateEventFilter(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	eventType := c.Param("eventType")
	if err := h.db.UpdateEventFilter(c.Request.Context(), eventType, req.Enabled); err != nil {
		h.logger.Errorf("Failed to update event filter %s: %v", eventType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event filter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
