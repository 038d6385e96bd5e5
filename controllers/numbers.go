package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/game"
)

// CallNumber records a called number and broadcasts it to the event.
func (h *Handler) CallNumber(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Number int `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cn, err := h.svc.Session.CallNumber(c.Request.Context(), participant(currentUser(c)), id, req.Number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"number":    cn.Value,
		"label":     game.Label(cn.Value),
		"seq":       cn.Seq,
		"called_at": cn.CalledAt,
	})
}

// DrawNumber calls a number picked by the server.
func (h *Handler) DrawNumber(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cn, err := h.svc.Session.DrawNumber(c.Request.Context(), participant(currentUser(c)), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"number":    cn.Value,
		"label":     game.Label(cn.Value),
		"seq":       cn.Seq,
		"called_at": cn.CalledAt,
	})
}

func (h *Handler) CalledNumbers(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	nums, err := h.svc.Numbers.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nums)
}

func (h *Handler) UndoLastNumber(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cn, err := h.svc.Session.UndoLast(c.Request.Context(), participant(currentUser(c)), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cn)
}

func (h *Handler) ResetNumbers(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	removed, err := h.svc.Session.Reset(c.Request.Context(), participant(currentUser(c)), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// CompletedBy tells which patterns a given call completed on a card.
func (h *Handler) CompletedBy(c *gin.Context) {
	cardID, ok := uintParam(c, "card_id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid number"})
		return
	}
	details, grid, err := h.svc.Numbers.CompletedBy(c.Request.Context(), cardID, number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"card_id":   cardID,
		"number":    number,
		"completed": details,
		"visual":    game.RenderCard(grid),
	})
}
