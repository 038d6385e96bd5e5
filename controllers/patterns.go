package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/game"
)

type positionsRequest struct {
	Positions []any `json:"positions" binding:"required"`
}

func (h *Handler) ListPatterns(c *gin.Context) {
	patterns, err := h.svc.Catalog.Active(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patterns)
}

// GetPattern returns a pattern with its board layout.
func (h *Handler) GetPattern(c *gin.Context) {
	p, err := h.svc.Catalog.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pattern":      p,
		"position_map": game.PositionMap(p.Positions),
		"visual":       game.RenderPattern(p.Positions),
	})
}

// CreatePattern stores a new pattern after the same checks ValidatePattern runs.
func (h *Handler) CreatePattern(c *gin.Context) {
	var req struct {
		positionsRequest
		Name        string `json:"name" binding:"required"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	positions, err := game.ParsePositions(req.Positions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Catalog.Create(c.Request.Context(), req.Name, req.DisplayName, positions, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ValidatePattern checks a candidate layout without storing it.
func (h *Handler) ValidatePattern(c *gin.Context) {
	var req positionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	positions, err := game.ParsePositions(req.Positions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}
	if err := h.svc.Catalog.Validate(c.Request.Context(), positions); err != nil {
		c.JSON(statusFor(err), gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"positions":    positions,
		"position_map": game.PositionMap(positions),
		"visual":       game.RenderPattern(positions),
	})
}

func (h *Handler) ActivatePattern(c *gin.Context)   { h.setPatternActive(c, true) }
func (h *Handler) DeactivatePattern(c *gin.Context) { h.setPatternActive(c, false) }

func (h *Handler) setPatternActive(c *gin.Context, active bool) {
	p, err := h.svc.Catalog.SetActive(c.Request.Context(), c.Param("name"), active)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Infow("pattern toggled", "name", p.Name, "active", active, "by", currentUser(c).ID)
	c.JSON(http.StatusOK, p)
}
