package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webhook-digest-service/internal/config"
	"webhook-digest-service/internal/db"
	"webhook-digest-service/internal/digest"
	"webhook-digest-service/internal/logging"
	"webhook-digest-service/internal/mailer"
	"webhook-digest-service/internal/ws"
)

type Handler struct {
	db        *db.DB
	logger    *logging.Logger
	config    config.Config
	engine    *digest.Engine
	scheduler *digest.Scheduler
	mailer    *mailer.Mailer
	hub       *ws.Hub
}

func NewHandler(db *db.DB, logger *logging.Logger, cfg config.Config, engine *digest.Engine, scheduler *digest.Scheduler, m *mailer.Mailer, hub *ws.Hub) *Handler {
	return &Handler{
		db:        db,
		logger:    logger,
		config:    cfg,
		engine:    engine,
		scheduler: scheduler,
		mailer:    m,
		hub:       hub,
	}
}

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(h.logger))

	authRequired := AuthRequired(h.config.Auth.JWTSecret)

	api := r.Group("/api")
	{
		api.POST("/webhook", h.HandleWebhook)

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Login)
			auth.GET("/check", authRequired, h.CheckAuth)
			auth.POST("/change-password", authRequired, h.ChangePassword)
		}

		settings := api.Group("/settings", authRequired)
		{
			settings.GET("/smtp", h.GetSmtpSettings)
			settings.PUT("/smtp", h.UpdateSmtpSettings)
			settings.POST("/smtp/test", h.SendTestMail)

			settings.GET("/digest", h.GetDigestSettings)
			settings.PUT("/digest", h.UpdateDigestSettings)
			settings.POST("/digest/trigger", h.TriggerDigest)

			settings.GET("/recipients", h.ListRecipients)
			settings.POST("/recipients", h.AddRecipient)
			settings.PUT("/recipients/:id", h.UpdateRecipient)
			settings.DELETE("/recipients/:id", h.DeleteRecipient)

			settings.GET("/recipients/:id/projects", h.ListRecipientProjects)
			settings.POST("/recipients/:id/projects", h.AddRecipientProject)
			settings.DELETE("/recipients/:id/projects/:projectId", h.RemoveRecipientProject)

			settings.GET("/projects", h.ListKnownProjects)

			settings.GET("/filters", h.ListEventFilters)
			settings.PUT("/filters/:eventType", h.UpdateEventFilter)
		}

		events := api.Group("/events", authRequired)
		{
			events.GET("", h.ListEvents)
			events.GET("/pending", h.PendingEvents)
			events.GET("/ws", h.EventsFeed)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
