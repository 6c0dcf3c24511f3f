package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livva-hq/settlement/internal/penalty"
	"go.uber.org/zap"
)

// PenaltyHandler handles HTTP requests for behavioral penalties.
type PenaltyHandler struct {
	ledger   *penalty.Ledger
	verifier *IdentityVerifier // nil = open mode; resets unprotected
	logger   *zap.Logger
}

// NewPenaltyHandler creates a new PenaltyHandler. verifier may be nil to
// leave the reset endpoints unauthenticated (development mode).
func NewPenaltyHandler(ledger *penalty.Ledger, verifier *IdentityVerifier, logger *zap.Logger) *PenaltyHandler {
	return &PenaltyHandler{ledger: ledger, verifier: verifier, logger: logger}
}

// Register registers all penalty routes on the given router group.
func (h *PenaltyHandler) Register(rg *gin.RouterGroup) {
	penalties := rg.Group("/penalties")
	{
		penalties.POST("", h.Apply)
		penalties.GET("", h.List)
		penalties.GET("/totals/:email", h.Totals)
		penalties.POST("/reset-daily", RequireIdentity(h.verifier), h.ResetDaily)
		penalties.POST("/reset-weekly", RequireIdentity(h.verifier), h.ResetWeekly)
	}
}

// Apply handles POST /penalties — applies a capped penalty.
func (h *PenaltyHandler) Apply(c *gin.Context) {
	var req struct {
		EventType string  `json:"event_type" binding:"required"`
		FromEmail string  `json:"from_email" binding:"required"`
		ToEmail   string  `json:"to_email" binding:"required"`
		Reason    string  `json:"reason"`
		Amount    float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.ledger.Apply(c.Request.Context(), penalty.ApplyRequest{
		EventType: req.EventType,
		FromEmail: req.FromEmail,
		ToEmail:   req.ToEmail,
		Reason:    req.Reason,
		Amount:    req.Amount,
	})
	if err != nil {
		var valErr *penalty.ErrValidation
		switch {
		case errors.As(err, &valErr):
			recordPenalty("rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
		case errors.Is(err, penalty.ErrCapExceeded):
			recordPenalty("capped")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.logger.Error("apply penalty", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply penalty"})
		}
		return
	}

	recordPenalty("applied")
	c.JSON(http.StatusCreated, gin.H{"penalty": ev})
}

// List handles GET /penalties?email= — returns events involving the identity,
// or every event when email is omitted.
func (h *PenaltyHandler) List(c *gin.Context) {
	events, err := h.ledger.Events(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.logger.Error("list penalties", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list penalties"})
		return
	}
	if events == nil {
		events = []*penalty.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"penalties": events, "count": len(events)})
}

// Totals handles GET /penalties/totals/:email — returns rolling cap totals.
func (h *PenaltyHandler) Totals(c *gin.Context) {
	email := c.Param("email")
	totals, err := h.ledger.TotalsFor(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("penalty totals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read totals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":      email,
		"daily":      totals.Daily,
		"weekly":     totals.Weekly,
		"daily_cap":  penalty.DailyCap,
		"weekly_cap": penalty.WeeklyCap,
	})
}

// ResetDaily handles POST /penalties/reset-daily.
func (h *PenaltyHandler) ResetDaily(c *gin.Context) {
	if err := h.ledger.ResetDaily(c.Request.Context()); err != nil {
		h.logger.Error("reset daily totals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset daily totals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "daily totals reset"})
}

// ResetWeekly handles POST /penalties/reset-weekly.
func (h *PenaltyHandler) ResetWeekly(c *gin.Context) {
	if err := h.ledger.ResetWeekly(c.Request.Context()); err != nil {
		h.logger.Error("reset weekly totals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset weekly totals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "weekly totals reset"})
}
