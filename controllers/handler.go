// Package controllers exposes the services over gin. Handlers only bind
// requests, resolve the caller and map service errors to status codes.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/models"
	"github.com/bellapacxx/bingo-live/services"
	"github.com/bellapacxx/bingo-live/utils/auth"
	"github.com/bellapacxx/bingo-live/utils/logger"
)

var log = logger.Named("controllers")

const userKey = "user"

// Services are the core operations the handlers call into.
type Services struct {
	Economy   *services.EconomyLedger
	Deposits  *services.DepositService
	Payments  *services.PaymentService
	Purchases *services.PurchaseService
	Catalog   *services.PatternCatalog
	Numbers   *services.NumberLedger
	Cards     *services.CardService
	Session   *services.Session
}

type Handler struct {
	db       *gorm.DB
	signer   *auth.Signer
	upgrader *websocket.Upgrader
	svc      Services
}

func New(db *gorm.DB, signer *auth.Signer, upgrader *websocket.Upgrader, svc Services) *Handler {
	return &Handler{db: db, signer: signer, upgrader: upgrader, svc: svc}
}

// RequireAuth resolves the bearer token to a user. Roles are read from the
// database so revoking staff takes effect before the token expires.
func (h *Handler) RequireAuth(c *gin.Context) {
	u, err := h.userFromToken(c, c.GetHeader("Authorization"))
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func (h *Handler) RequireStaff(c *gin.Context) {
	if u := currentUser(c); u == nil || !u.IsStaff {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
		return
	}
	c.Next()
}

func (h *Handler) userFromToken(c *gin.Context, raw string) (*models.User, error) {
	claims, err := h.signer.Parse(raw)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := h.db.WithContext(c.Request.Context()).First(&u, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return &u, nil
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func participant(u *models.User) services.Participant {
	if u == nil {
		return services.Participant{}
	}
	return services.Participant{UserID: u.ID, Name: u.Name, Staff: u.IsStaff, Authenticated: true}
}

// uintParam parses a positive id path parameter, answering 400 when it is not one.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNoWin):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
