package controllers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/services"
)

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// PurchaseCards buys cards in the event for the caller.
func (h *Handler) PurchaseCards(c *gin.Context) {
	h.issueCards(c, func(c *gin.Context, eventID uint, qty int) (*services.PurchaseResult, error) {
		return h.svc.Purchases.PurchaseCards(c.Request.Context(), currentUser(c).ID, eventID, qty)
	})
}

// GenerateBulk issues cards to a seller without charging them.
func (h *Handler) GenerateBulk(c *gin.Context) {
	h.issueCards(c, func(c *gin.Context, eventID uint, qty int) (*services.PurchaseResult, error) {
		return h.svc.Purchases.GenerateBulk(c.Request.Context(), currentUser(c).ID, eventID, qty)
	})
}

// GenerateHouse issues unowned cards for in-person sale.
func (h *Handler) GenerateHouse(c *gin.Context) {
	h.issueCards(c, func(c *gin.Context, eventID uint, qty int) (*services.PurchaseResult, error) {
		return h.svc.Purchases.GenerateHouse(c.Request.Context(), eventID, qty)
	})
}

func (h *Handler) issueCards(c *gin.Context, fn func(*gin.Context, uint, int) (*services.PurchaseResult, error)) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := fn(c, id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ImportCards loads a JSON array of cards in any supported layout.
func (h *Handler) ImportCards(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	report, err := h.svc.Purchases.ImportCards(c.Request.Context(), id, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// MyCards lists the caller's cards, in one event when the route has an id.
func (h *Handler) MyCards(c *gin.Context) {
	var eventID uint
	if c.Param("id") != "" {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		eventID = id
	}
	cards, err := h.svc.Cards.ListForUser(c.Request.Context(), currentUser(c).ID, eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// MyPurchases lists the caller's purchase counters, optionally for one event.
func (h *Handler) MyPurchases(c *gin.Context) {
	var eventID uint
	if raw := c.Query("event_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		eventID = uint(id)
	}
	purchases, err := h.svc.Purchases.ListPurchases(c.Request.Context(), currentUser(c).ID, eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

// SellerBatches lists the card batches generated for the calling seller.
func (h *Handler) SellerBatches(c *gin.Context) {
	batches, err := h.svc.Purchases.ListBatches(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batches)
}

// ClaimWin checks the caller's card and announces the win to the event.
func (h *Handler) ClaimWin(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		CardID  uint   `json:"card_id" binding:"required"`
		Pattern string `json:"pattern"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Session.ClaimWin(c.Request.Context(), participant(currentUser(c)), id, req.CardID, req.Pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyCard evaluates any card against a pattern without marking it.
func (h *Handler) VerifyCard(c *gin.Context) {
	id, ok := uintParam(c, "card_id")
	if !ok {
		return
	}
	v, err := h.svc.Cards.Verify(c.Request.Context(), id, c.DefaultQuery("pattern", "bingo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// CardStatus shows progress on every pattern. Only the owner and staff may look.
func (h *Handler) CardStatus(c *gin.Context) {
	id, ok := uintParam(c, "card_id")
	if !ok {
		return
	}
	st, err := h.svc.Cards.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	user := currentUser(c)
	if !user.IsStaff && (st.Card.UserID == nil || *st.Card.UserID != user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "card belongs to another user"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) CardPrice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"price": h.svc.Purchases.CardPrice()})
}
