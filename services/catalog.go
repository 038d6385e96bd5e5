package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

// PatternCatalog serves patterns from the database with per-event allowed
// and disabled lists. While the patterns table is empty it defers to
// fallback.
type PatternCatalog struct {
	db           *gorm.DB
	fallback     game.PatternSource
	minPositions int
}

func NewPatternCatalog(db *gorm.DB, fallback game.PatternSource, minPositions int) *PatternCatalog {
	if fallback == nil {
		fallback = game.NewDefaultSource()
	}
	if minPositions < 1 {
		minPositions = 1
	}
	return &PatternCatalog{db: db, fallback: fallback, minPositions: minPositions}
}

// PatternsFor resolves the claimable patterns of an event: active patterns,
// narrowed to the allowed list when the event has one, minus the disabled
// list.
func (c *PatternCatalog) PatternsFor(ctx context.Context, eventID uint) (game.Catalog, error) {
	var total int64
	if err := c.db.WithContext(ctx).Model(&models.Pattern{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 {
		return c.fallback.PatternsFor(ctx, eventID)
	}

	var ev models.Event
	err := c.db.WithContext(ctx).
		Preload("AllowedPatterns").
		Preload("DisabledPatterns").
		First(&ev, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("event")
		}
		return nil, err
	}

	active, err := c.Active(ctx)
	if err != nil {
		return nil, err
	}
	allowed := make(map[uint]bool, len(ev.AllowedPatterns))
	for _, p := range ev.AllowedPatterns {
		allowed[p.ID] = true
	}
	disabled := make(map[uint]bool, len(ev.DisabledPatterns))
	for _, p := range ev.DisabledPatterns {
		disabled[p.ID] = true
	}

	out := make(game.Catalog, len(active))
	for _, p := range active {
		if len(allowed) > 0 && !allowed[p.ID] {
			continue
		}
		if disabled[p.ID] {
			continue
		}
		out[p.Name] = ToGamePattern(p)
	}
	return out, nil
}

// Validate checks that positions can become a new pattern.
func (c *PatternCatalog) Validate(ctx context.Context, positions []int) error {
	if err := game.ValidatePositions(positions); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(positions) < c.minPositions {
		return validationf("pattern needs at least %d positions", c.minPositions)
	}
	active, err := c.Active(ctx)
	if err != nil {
		return err
	}
	for _, p := range active {
		if game.SameShape(p.Positions, positions) {
			return fmt.Errorf("%w (%s)", ErrDuplicatePattern, p.Name)
		}
	}
	return nil
}

// Create stores a new active pattern.
func (c *PatternCatalog) Create(ctx context.Context, name, displayName string, positions []int, createdBy uint) (*models.Pattern, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !validPatternName(name) {
		return nil, validationf("pattern name must be 1-50 characters of a-z, 0-9 or _")
	}
	if name == game.AnyLine {
		return nil, validationf("%q is reserved", game.AnyLine)
	}
	if err := c.Validate(ctx, positions); err != nil {
		return nil, err
	}

	p := models.Pattern{
		Name:        name,
		DisplayName: strings.TrimSpace(displayName),
		Positions:   append([]int(nil), positions...),
		IsActive:    true,
	}
	if createdBy != 0 {
		p.CreatedByID = &createdBy
	}
	if err := c.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: pattern %q exists", ErrConflict, name)
		}
		return nil, err
	}
	log.Infow("pattern created", "name", p.Name, "positions", len(positions), "created_by", createdBy)
	return &p, nil
}

// SetActive soft-enables or soft-disables a pattern everywhere.
func (c *PatternCatalog) SetActive(ctx context.Context, name string, active bool) (*models.Pattern, error) {
	p, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(p).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	p.IsActive = active
	return p, nil
}

func (c *PatternCatalog) Active(ctx context.Context) ([]models.Pattern, error) {
	var out []models.Pattern
	err := c.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&out).Error
	return out, err
}

func (c *PatternCatalog) Get(ctx context.Context, name string) (*models.Pattern, error) {
	var p models.Pattern
	if err := c.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("pattern " + name)
		}
		return nil, err
	}
	return &p, nil
}

// SetAllowed replaces the event's allowed list. An empty list allows every
// active pattern.
func (c *PatternCatalog) SetAllowed(ctx context.Context, eventID uint, names []string) error {
	return c.associate(ctx, eventID, "AllowedPatterns", names, func(a *gorm.Association, ps []*models.Pattern) error {
		if len(ps) == 0 {
			return a.Clear()
		}
		return a.Replace(ps)
	})
}

func (c *PatternCatalog) AddAllowed(ctx context.Context, eventID uint, names ...string) error {
	return c.associate(ctx, eventID, "AllowedPatterns", names, func(a *gorm.Association, ps []*models.Pattern) error {
		if len(ps) == 0 {
			return nil
		}
		return a.Append(ps)
	})
}

func (c *PatternCatalog) RemoveAllowed(ctx context.Context, eventID uint, names ...string) error {
	return c.associate(ctx, eventID, "AllowedPatterns", names, func(a *gorm.Association, ps []*models.Pattern) error {
		if len(ps) == 0 {
			return nil
		}
		return a.Delete(ps)
	})
}

// Disable blocks patterns in one event, overriding the allowed list.
func (c *PatternCatalog) Disable(ctx context.Context, eventID uint, names ...string) error {
	return c.associate(ctx, eventID, "DisabledPatterns", names, func(a *gorm.Association, ps []*models.Pattern) error {
		if len(ps) == 0 {
			return nil
		}
		return a.Append(ps)
	})
}

func (c *PatternCatalog) Enable(ctx context.Context, eventID uint, names ...string) error {
	return c.associate(ctx, eventID, "DisabledPatterns", names, func(a *gorm.Association, ps []*models.Pattern) error {
		if len(ps) == 0 {
			return nil
		}
		return a.Delete(ps)
	})
}

func (c *PatternCatalog) associate(ctx context.Context, eventID uint, field string, names []string, fn func(*gorm.Association, []*models.Pattern) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev models.Event
		if err := tx.First(&ev, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("event")
			}
			return err
		}
		ps, err := patternsByName(tx, names)
		if err != nil {
			return err
		}
		return fn(tx.Model(&ev).Association(field), ps)
	})
}

func patternsByName(tx *gorm.DB, names []string) ([]*models.Pattern, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var ps []*models.Pattern
	if err := tx.Where("name IN ?", names).Find(&ps).Error; err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(ps))
	for _, p := range ps {
		found[p.Name] = true
	}
	for _, n := range names {
		if !found[n] {
			return nil, notFound("pattern " + n)
		}
	}
	return ps, nil
}

// ToGamePattern converts a stored pattern for the evaluator.
func ToGamePattern(p models.Pattern) game.Pattern {
	return game.Pattern{
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Positions:   append([]int(nil), p.Positions...),
	}
}

func validPatternName(name string) bool {
	if name == "" || len(name) > 50 {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
