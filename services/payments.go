package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/models"
)

// PaymentService keeps the payment methods deposits may use and the exchange
// rates shown next to them.
type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// Methods lists payment methods by name.
func (s *PaymentService) Methods(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	out := []models.PaymentMethod{}
	return out, q.Find(&out).Error
}

func (s *PaymentService) CreateMethod(ctx context.Context, name, details string) (*models.PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("payment method name is required")
	}
	m := models.PaymentMethod{Name: name, Details: strings.TrimSpace(details), IsActive: true}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: payment method %q exists", ErrConflict, name)
		}
		return nil, err
	}
	log.Infow("payment method created", "name", name)
	return &m, nil
}

// MethodUpdate holds the fields to change; nil fields are left alone.
type MethodUpdate struct {
	Details  *string `json:"details"`
	IsActive *bool   `json:"is_active"`
}

func (s *PaymentService) UpdateMethod(ctx context.Context, id uint, upd MethodUpdate) (*models.PaymentMethod, error) {
	changes := map[string]any{}
	if upd.Details != nil {
		changes["details"] = strings.TrimSpace(*upd.Details)
	}
	if upd.IsActive != nil {
		changes["is_active"] = *upd.IsActive
	}
	var m models.PaymentMethod
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("payment method")
			}
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&m).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PaymentService) DeleteMethod(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.PaymentMethod{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("payment method")
	}
	return nil
}

// acceptedMethod checks a deposit's payment method against the active
// methods. Until staff configure any, every method is accepted.
func acceptedMethod(db *gorm.DB, name string) error {
	var active []string
	if err := db.Model(&models.PaymentMethod{}).Where("is_active = ?", true).Pluck("name", &active).Error; err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	for _, m := range active {
		if strings.EqualFold(m, name) {
			return nil
		}
	}
	return validationf("payment method %q is not accepted", name)
}

// Rates returns the current rates, creating the empty table on first use.
func (s *PaymentService) Rates(ctx context.Context) (*models.RatesConfig, error) {
	var rc models.RatesConfig
	err := s.db.WithContext(ctx).
		Order("id ASC").
		Attrs(models.RatesConfig{Rates: datatypes.JSON("{}")}).
		FirstOrCreate(&rc).Error
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// UpdateRates replaces the rate table. A nil description keeps the old one.
func (s *PaymentService) UpdateRates(ctx context.Context, rates map[string]decimal.Decimal, description *string) (*models.RatesConfig, error) {
	if len(rates) == 0 {
		return nil, validationf("rates are required")
	}
	for code, rate := range rates {
		if strings.TrimSpace(code) == "" {
			return nil, validationf("rate currency is empty")
		}
		if !rate.IsPositive() {
			return nil, validationf("rate for %s must be positive", code)
		}
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return nil, err
	}
	if _, err := s.Rates(ctx); err != nil {
		return nil, err
	}

	var rc models.RatesConfig
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("id ASC").First(&rc).Error; err != nil {
			return err
		}
		rc.Rates = datatypes.JSON(raw)
		if description != nil {
			rc.Description = strings.TrimSpace(*description)
		}
		return tx.Save(&rc).Error
	})
	if err != nil {
		return nil, err
	}
	log.Infow("rates updated", "currencies", len(rates))
	return &rc, nil
}
