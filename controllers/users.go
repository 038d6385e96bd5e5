package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/models"
	"github.com/bellapacxx/bingo-live/utils/auth"
)

type registerRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone"`
}

// RegisterUser creates the user on first contact from Telegram and returns a
// token. Known users get a fresh token.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("telegram_id = ?", req.TelegramID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{TelegramID: req.TelegramID, Name: strings.TrimSpace(req.Name), Phone: req.Phone}
		if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			respondError(c, err)
			return
		}
		status = http.StatusCreated
		log.Infow("user registered", "user_id", user.ID, "telegram_id", user.TelegramID)
	case err != nil:
		respondError(c, err)
		return
	}

	token, err := h.signer.Sign(auth.Claims{UserID: user.ID, Name: user.Name, Staff: user.IsStaff, Seller: user.IsSeller})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"user": user, "token": token})
}

// GetUser fetches a user by telegram_id.
func (h *Handler) GetUser(c *gin.Context) {
	tid, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("telegram_id = ?", tid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// UpdatePhone updates the caller's phone number.
func (h *Handler) UpdatePhone(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	if err := h.db.WithContext(c.Request.Context()).Model(user).Update("phone", req.Phone).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "phone": req.Phone})
}
