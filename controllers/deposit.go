package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
}

// RequestDeposit opens a pending deposit and returns the code the user
// quotes when paying.
func (h *Handler) RequestDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dep, err := h.svc.Deposits.Request(c.Request.Context(), currentUser(c).ID, req.Amount, req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dep)
}

// ConfirmDeposit attaches the payment reference to the caller's deposit.
func (h *Handler) ConfirmDeposit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reference string `json:"reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dep, err := h.svc.Deposits.Confirm(c.Request.Context(), currentUser(c).ID, id, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dep)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ApproveDeposit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	dep, bal, err := h.svc.Deposits.Approve(c.Request.Context(), id, currentUser(c).ID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit": dep, "balance": bal})
}

func (h *Handler) RejectDeposit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	dep, err := h.svc.Deposits.Reject(c.Request.Context(), id, currentUser(c).ID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dep)
}

func (h *Handler) MyDeposits(c *gin.Context) {
	deps, err := h.svc.Deposits.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deps)
}

func (h *Handler) PendingDeposits(c *gin.Context) {
	deps, err := h.svc.Deposits.Pending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deps)
}
