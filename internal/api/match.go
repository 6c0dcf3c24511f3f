package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livva-hq/settlement/internal/match"
	"go.uber.org/zap"
)

// MatchHandler handles HTTP requests for listing-to-tenant match scoring.
type MatchHandler struct {
	logger *zap.Logger
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(logger *zap.Logger) *MatchHandler {
	return &MatchHandler{logger: logger}
}

// Register registers the match route on the given router group.
func (h *MatchHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/match", h.Rank)
}

// Rank handles POST /match — scores the submitted listings against the
// tenant profile and returns them ranked best-first.
func (h *MatchHandler) Rank(c *gin.Context) {
	var req struct {
		Tenant   match.TenantProfile `json:"tenant" binding:"required"`
		Listings []match.Listing     `json:"listings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Listings) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maximum 500 listings per request"})
		return
	}

	results := match.Rank(req.Tenant, req.Listings)
	c.JSON(http.StatusOK, gin.H{"matches": results, "count": len(results)})
}
