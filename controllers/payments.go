package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bellapacxx/bingo-live/services"
)

// PaymentMethods lists the methods players may deposit with.
func (h *Handler) PaymentMethods(c *gin.Context) {
	h.listMethods(c, true)
}

func (h *Handler) AllPaymentMethods(c *gin.Context) {
	h.listMethods(c, false)
}

func (h *Handler) listMethods(c *gin.Context, activeOnly bool) {
	methods, err := h.svc.Payments.Methods(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, methods)
}

func (h *Handler) CreatePaymentMethod(c *gin.Context) {
	var req struct {
		Name    string `json:"payment_method" binding:"required"`
		Details string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.Payments.CreateMethod(c.Request.Context(), req.Name, req.Details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) UpdatePaymentMethod(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.MethodUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.Payments.UpdateMethod(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) DeletePaymentMethod(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Payments.DeleteMethod(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rates returns the current exchange rates.
func (h *Handler) Rates(c *gin.Context) {
	rc, err := h.svc.Payments.Rates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (h *Handler) UpdateRates(c *gin.Context) {
	var req struct {
		Rates       map[string]decimal.Decimal `json:"rates" binding:"required"`
		Description *string                    `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.svc.Payments.UpdateRates(c.Request.Context(), req.Rates, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}
