package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

type createEventRequest struct {
	Name            string    `json:"name" binding:"required"`
	Prize           string    `json:"prize"`
	StartsAt        time.Time `json:"starts_at" binding:"required"`
	EndsAt          time.Time `json:"ends_at" binding:"required"`
	AllowedPatterns []string  `json:"allowed_patterns"`
}

// CreateEvent schedules an event, optionally limited to some patterns.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	ev := models.Event{Name: strings.TrimSpace(req.Name), Prize: req.Prize, StartsAt: req.StartsAt, EndsAt: req.EndsAt}
	if err := h.db.WithContext(c.Request.Context()).Create(&ev).Error; err != nil {
		respondError(c, err)
		return
	}
	if len(req.AllowedPatterns) > 0 {
		if err := h.svc.Catalog.SetAllowed(c.Request.Context(), ev.ID, req.AllowedPatterns); err != nil {
			respondError(c, err)
			return
		}
	}
	log.Infow("event created", "event_id", ev.ID, "name", ev.Name, "by", currentUser(c).ID)
	c.JSON(http.StatusCreated, ev)
}

// ListEvents returns all events, soonest first.
func (h *Handler) ListEvents(c *gin.Context) {
	var events []models.Event
	if err := h.db.WithContext(c.Request.Context()).Order("starts_at ASC").Find(&events).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEvent returns the same snapshot websocket clients get on connect.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	info, err := h.svc.Session.Snapshot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// EventPatterns lists the patterns that can be claimed in the event.
func (h *Handler) EventPatterns(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	catalog, err := h.svc.Catalog.PatternsFor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]game.Pattern, 0, len(catalog))
	for _, name := range catalog.Names() {
		p := catalog[name]
		p.DisplayName = p.Title()
		out = append(out, p)
	}
	c.JSON(http.StatusOK, out)
}

type patternNames struct {
	Patterns []string `json:"patterns"`
}

// SetAllowedPatterns replaces the event's allow list. An empty list lifts
// the restriction.
func (h *Handler) SetAllowedPatterns(c *gin.Context) {
	h.eventPatternsChange(c, func(c *gin.Context, id uint, names []string) error {
		return h.svc.Catalog.SetAllowed(c.Request.Context(), id, names)
	})
}

func (h *Handler) AddAllowedPatterns(c *gin.Context) {
	h.eventPatternsChange(c, func(c *gin.Context, id uint, names []string) error {
		return h.svc.Catalog.AddAllowed(c.Request.Context(), id, names...)
	})
}

func (h *Handler) DisablePatterns(c *gin.Context) {
	h.eventPatternsChange(c, func(c *gin.Context, id uint, names []string) error {
		return h.svc.Catalog.Disable(c.Request.Context(), id, names...)
	})
}

func (h *Handler) RemoveAllowedPattern(c *gin.Context) {
	h.eventPatternChange(c, func(c *gin.Context, id uint, name string) error {
		return h.svc.Catalog.RemoveAllowed(c.Request.Context(), id, name)
	})
}

func (h *Handler) EnablePattern(c *gin.Context) {
	h.eventPatternChange(c, func(c *gin.Context, id uint, name string) error {
		return h.svc.Catalog.Enable(c.Request.Context(), id, name)
	})
}

func (h *Handler) eventPatternsChange(c *gin.Context, fn func(*gin.Context, uint, []string) error) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req patternNames
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := fn(c, id, req.Patterns); err != nil {
		respondError(c, err)
		return
	}
	h.EventPatterns(c)
}

func (h *Handler) eventPatternChange(c *gin.Context, fn func(*gin.Context, uint, string) error) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := fn(c, id, c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	h.EventPatterns(c)
}
