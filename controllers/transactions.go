package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bellapacxx/bingo-live/services"
)

func (h *Handler) Balance(c *gin.Context) {
	user := currentUser(c)
	bal, err := h.svc.Economy.Balance(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "balance": bal})
}

// Transactions lists the caller's ledger entries, newest first.
func (h *Handler) Transactions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	txs, err := h.svc.Economy.Transactions(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// Withdraw takes money out of the caller's balance.
func (h *Handler) Withdraw(c *gin.Context) {
	var req struct {
		Amount  decimal.Decimal `json:"amount"`
		Method  string          `json:"method"`
		Account string          `json:"account"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := services.NormalizeAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	ref := req.Method
	if req.Account != "" {
		ref += ":" + req.Account
	}
	user := currentUser(c)
	bal, err := h.svc.Economy.Withdraw(c.Request.Context(), user.ID, amount, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "amount": amount, "balance": bal})
}
