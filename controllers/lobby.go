package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/models"
)

// EventWebSocket attaches a client to an event's live feed. The token may come
// in the query string, since browsers cannot set headers on websocket
// requests. Without a token the client watches anonymously.
func (h *Handler) EventWebSocket(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	raw := c.Query("token")
	if raw == "" {
		raw = c.GetHeader("Authorization")
	}
	var user *models.User
	if raw != "" {
		u, err := h.userFromToken(c, raw)
		if err != nil {
			respondError(c, err)
			return
		}
		user = u
	}

	if err := h.svc.Session.Connect(c.Request.Context(), h.upgrader, c.Writer, c.Request, participant(user), id); err != nil {
		respondError(c, err)
		return
	}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
}
