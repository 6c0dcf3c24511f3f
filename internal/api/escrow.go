package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livva-hq/settlement/internal/settlement"
	"go.uber.org/zap"
)

// EscrowHandler handles HTTP requests for deposit escrows.
type EscrowHandler struct {
	orch   *settlement.Orchestrator
	logger *zap.Logger
}

// NewEscrowHandler creates a new EscrowHandler.
func NewEscrowHandler(orch *settlement.Orchestrator, logger *zap.Logger) *EscrowHandler {
	return &EscrowHandler{orch: orch, logger: logger}
}

// Register registers all deposit routes on the given router group.
func (h *EscrowHandler) Register(rg *gin.RouterGroup) {
	deposits := rg.Group("/deposits")
	{
		deposits.POST("", h.CreateDeposit)
		deposits.GET("", h.ListDeposits)
		deposits.GET("/:id", h.GetDeposit)
		deposits.POST("/:id/release", h.Release)
		deposits.POST("/:id/fund", h.MarkFunded)
	}
}

// CreateDeposit handles POST /deposits — opens a trust-adjusted escrow.
func (h *EscrowHandler) CreateDeposit(c *gin.Context) {
	var req struct {
		ListingID        string  `json:"listing_id" binding:"required"`
		TenantEmail      string  `json:"tenant_email" binding:"required"`
		LandlordEmail    string  `json:"landlord_email"`
		BaseAmount       float64 `json:"base_amount" binding:"required"`
		Currency         string  `json:"currency"`
		PreferredChannel string  `json:"preferred_channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.orch.CreateDeposit(c.Request.Context(), settlement.CreateDepositRequest{
		ListingID:        req.ListingID,
		TenantEmail:      req.TenantEmail,
		LandlordEmail:    req.LandlordEmail,
		BaseAmount:       req.BaseAmount,
		Currency:         req.Currency,
		PreferredChannel: req.PreferredChannel,
	})
	if err != nil {
		var valErr *settlement.ErrValidation
		switch {
		case errors.As(err, &valErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
		case errors.Is(err, settlement.ErrNoChannelAvailable):
			h.logger.Error("create deposit", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no payment channel available"})
		default:
			h.logger.Error("create deposit", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create deposit"})
		}
		return
	}

	recordDeposit(res.Escrow.Channel)
	c.JSON(http.StatusCreated, res)
}

// ListDeposits handles GET /deposits?tenant= — tenant's escrows, or all.
func (h *EscrowHandler) ListDeposits(c *gin.Context) {
	ctx := c.Request.Context()

	var escrows []*settlement.Record
	var err error
	if tenant := c.Query("tenant"); tenant != "" {
		escrows, err = h.orch.ListByTenant(ctx, tenant)
	} else {
		escrows, err = h.orch.ListEscrows(ctx)
	}
	if err != nil {
		h.logger.Error("list deposits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deposits"})
		return
	}
	if escrows == nil {
		escrows = []*settlement.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"escrows": escrows, "count": len(escrows)})
}

// GetDeposit handles GET /deposits/:id.
func (h *EscrowHandler) GetDeposit(c *gin.Context) {
	escrow, err := h.orch.Escrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, settlement.ErrEscrowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "escrow not found"})
			return
		}
		h.logger.Error("get deposit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get escrow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": escrow})
}

// Release handles POST /deposits/:id/release — settles the escrow per its
// verification decision.
func (h *EscrowHandler) Release(c *gin.Context) {
	res, err := h.orch.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrEscrowNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "escrow not found"})
		case errors.Is(err, settlement.ErrEscrowSettled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("release escrow", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to release escrow"})
		}
		return
	}

	recordRelease(string(res.Escrow.Status))
	c.JSON(http.StatusOK, res)
}

// MarkFunded handles POST /deposits/:id/fund — payment confirmation,
// typically driven by the channel's webhook.
func (h *EscrowHandler) MarkFunded(c *gin.Context) {
	escrow, err := h.orch.MarkFunded(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrEscrowNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "escrow not found"})
		case errors.Is(err, settlement.ErrEscrowSettled), errors.Is(err, settlement.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("fund escrow", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fund escrow"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": escrow})
}
