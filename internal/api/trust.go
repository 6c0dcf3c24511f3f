// Package api exposes the engine's services over HTTP with gin.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livva-hq/settlement/internal/trust"
	"go.uber.org/zap"
)

// TrustHandler handles HTTP requests for trust profiles and events.
type TrustHandler struct {
	ledger *trust.Ledger
	logger *zap.Logger
}

// NewTrustHandler creates a new TrustHandler.
func NewTrustHandler(ledger *trust.Ledger, logger *zap.Logger) *TrustHandler {
	return &TrustHandler{ledger: ledger, logger: logger}
}

// Register registers all trust routes on the given router group.
func (h *TrustHandler) Register(rg *gin.RouterGroup) {
	profiles := rg.Group("/trust")
	{
		profiles.GET("/profiles", h.ListProfiles)
		profiles.GET("/profiles/:email", h.GetProfile)
		profiles.GET("/profiles/:email/multiplier", h.GetMultiplier)
		profiles.POST("/events", h.RecordEvent)
	}
}

// ListProfiles handles GET /trust/profiles.
func (h *TrustHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.ledger.ListProfiles(c.Request.Context())
	if err != nil {
		h.logger.Error("list trust profiles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles"})
		return
	}
	if profiles == nil {
		profiles = []*trust.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles, "count": len(profiles)})
}

// GetProfile handles GET /trust/profiles/:email. A profile is created lazily
// at the default score when none exists yet.
func (h *TrustHandler) GetProfile(c *gin.Context) {
	profile, err := h.ledger.Profile(c.Request.Context(), c.Param("email"))
	if err != nil {
		var valErr *trust.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("get trust profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetMultiplier handles GET /trust/profiles/:email/multiplier.
func (h *TrustHandler) GetMultiplier(c *gin.Context) {
	email := c.Param("email")
	ctx := c.Request.Context()

	multiplier, err := h.ledger.DepositMultiplier(ctx, email)
	if err != nil {
		h.logger.Error("deposit multiplier", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute multiplier"})
		return
	}
	score, err := h.ledger.Score(ctx, email)
	if err != nil {
		h.logger.Error("trust score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":      email,
		"score":      score,
		"multiplier": multiplier,
	})
}

// RecordEvent handles POST /trust/events — appends an event to a profile.
func (h *TrustHandler) RecordEvent(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		EventType string `json:"event_type" binding:"required"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.ledger.RecordEvent(c.Request.Context(), req.Email, req.EventType, req.Reason)
	if err != nil {
		var valErr *trust.ErrValidation
		if errors.As(err, &valErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
			return
		}
		h.logger.Error("record trust event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
		return
	}

	recordTrustEvent(req.EventType)
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}
