package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"erasure-portal/pkg/models"
	"erasure-portal/pkg/notify"
	"erasure-portal/pkg/services"
)

const (
	visitorCookie    = "visitor_id"
	visitorCookieAge = 365 * 24 * 60 * 60

	noIdentifierMessage = "We couldn't find an order reference. Redirecting you shortly..."
)

// Options holds the display settings the handlers need
type Options struct {
	NotificationDuration time.Duration
	RedirectDelay        time.Duration
	FallbackURL          string
	Location             *time.Location
	SecureCookies        bool
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	submissions services.SubmissionService
	resolver    *services.Resolver
	opts        Options
	logger      zerolog.Logger
	now         func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(submissions services.SubmissionService, resolver *services.Resolver, opts Options, logger zerolog.Logger) *Handlers {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Handlers{
		submissions: submissions,
		resolver:    resolver,
		opts:        opts,
		logger:      logger.With().Str("component", "api").Logger(),
		now:         time.Now,
	}
}

// Register mounts the API routes on the router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/health", h.HealthCheck)
	router.POST("/api/contact", h.HandleContactSubmission)
	router.GET("/api/orders/resolve", h.HandleOrderResolve)
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// HandleContactSubmission validates and dispatches the contact form.
// The response carries the form as it should now be displayed: cleared on success, untouched otherwise.
func (h *Handlers) HandleContactSubmission(c *gin.Context) {
	var form models.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Warn().Err(err).Msg("error parsing contact form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	slot := notify.NewSlot(h.opts.NotificationDuration)
	defer slot.Dismiss()

	sub := h.submissions.Submit(c.Request.Context(), &services.Session{Form: &form, Notices: slot})
	notification, _ := slot.Current()

	status := http.StatusOK
	switch {
	case sub.FieldErrors != nil:
		status = http.StatusUnprocessableEntity
	case !sub.Outcome.Succeeded():
		status = http.StatusBadGateway
	}

	body := gin.H{
		"submission_id": sub.ID,
		"status":        sub.Outcome.Status,
		"message":       notification.Message,
		"notification":  notification,
		"form":          form,
	}
	if sub.FieldErrors != nil {
		body["errors"] = sub.FieldErrors
	}
	c.JSON(status, body)
}

// HandleOrderResolve recovers the order behind the confirmation page
func (h *Handlers) HandleOrderResolve(c *gin.Context) {
	visitor := h.visitorID(c)
	candidates := models.Candidates{
		OrderID:   firstNonEmpty(c.Query("order_id"), c.Query("orderId")),
		SessionID: firstNonEmpty(c.Query("session_id"), c.Query("sessionId")),
	}

	record, err := h.resolver.Resolve(c.Request.Context(), visitor, candidates)
	if err != nil {
		var lookupErr *services.LookupError
		switch {
		case errors.Is(err, services.ErrNoIdentifier):
			c.JSON(http.StatusNotFound, gin.H{
				"error":             noIdentifierMessage,
				"redirect_url":      h.opts.FallbackURL,
				"redirect_after_ms": h.opts.RedirectDelay.Milliseconds(),
			})
		case errors.As(err, &lookupErr):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":        lookupErr.Message,
				"fallback_url": h.opts.FallbackURL,
			})
		default:
			h.logger.Error().Err(err).Msg("unexpected resolve error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":        "Something went wrong. Please try again later.",
				"fallback_url": h.opts.FallbackURL,
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":  record,
		"display": services.Project(record, h.opts.Location, h.now()),
	})
}

// visitorID identifies the browser so its last resolved order can be remembered
func (h *Handlers) visitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookie); err == nil {
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(visitorCookie, id, visitorCookieAge, "/", "", h.opts.SecureCookies, true)
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
