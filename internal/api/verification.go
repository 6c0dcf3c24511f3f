package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livva-hq/settlement/internal/verification"
	"go.uber.org/zap"
)

// VerificationHandler handles HTTP requests for move-in verification cases.
type VerificationHandler struct {
	engine *verification.Engine
	logger *zap.Logger
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(engine *verification.Engine, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{engine: engine, logger: logger}
}

// Register registers all verification routes on the given router group.
func (h *VerificationHandler) Register(rg *gin.RouterGroup) {
	cases := rg.Group("/verification")
	{
		cases.GET("/:escrowId", h.GetCase)
		cases.POST("/:escrowId/uploads", h.AddUpload)
		cases.POST("/:escrowId/dispute", h.FlagDispute)
	}
}

// GetCase handles GET /verification/:escrowId.
func (h *VerificationHandler) GetCase(c *gin.Context) {
	vc, err := h.engine.Case(c.Request.Context(), c.Param("escrowId"))
	if err != nil {
		if errors.Is(err, verification.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verification case not found"})
			return
		}
		h.logger.Error("get verification case", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get case"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": vc})
}

// AddUpload handles POST /verification/:escrowId/uploads — appends a piece
// of move-in evidence to the case.
func (h *VerificationHandler) AddUpload(c *gin.Context) {
	var req struct {
		Type       string `json:"type" binding:"required"`
		UploadedBy string `json:"uploaded_by" binding:"required"`
		URL        string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vc, err := h.engine.AddUpload(c.Request.Context(), c.Param("escrowId"), verification.Upload{
		Type:       verification.UploadType(req.Type),
		UploadedBy: verification.Role(req.UploadedBy),
		URL:        req.URL,
	})
	if err != nil {
		var valErr *verification.ErrValidation
		switch {
		case errors.As(err, &valErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Msg})
		case errors.Is(err, verification.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "verification case not found"})
		default:
			h.logger.Error("add upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add upload"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"case": vc})
}

// FlagDispute handles POST /verification/:escrowId/dispute — marks the case
// disputed. The flag is sticky; repeated calls are harmless.
func (h *VerificationHandler) FlagDispute(c *gin.Context) {
	vc, err := h.engine.FlagDispute(c.Request.Context(), c.Param("escrowId"))
	if err != nil {
		if errors.Is(err, verification.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verification case not found"})
			return
		}
		h.logger.Error("flag dispute", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to flag dispute"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": vc})
}
