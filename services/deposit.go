package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/models"
)

// DepositService tracks deposits from request to staff approval. Money only
// reaches the balance on Approve.
type DepositService struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewDepositService(db *gorm.DB) *DepositService {
	return &DepositService{db: db, clock: time.Now}
}

// Request opens a pending deposit with a short code the user quotes when paying.
func (s *DepositService) Request(ctx context.Context, userID uint, amount decimal.Decimal, method string) (*models.Deposit, error) {
	amount, err := NormalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Select("id").First(&models.User{}, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	method = strings.TrimSpace(method)
	if err := acceptedMethod(s.db.WithContext(ctx), method); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		dep := models.Deposit{
			UserID:        userID,
			Amount:        amount,
			UniqueCode:    depositCode(),
			PaymentMethod: method,
			Status:        models.DepositPending,
		}
		err := s.db.WithContext(ctx).Create(&dep).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create deposit: %w", err)
		}
		log.Infow("deposit requested", "deposit_id", dep.ID, "user_id", userID, "amount", amount.StringFixed(2))
		return &dep, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a deposit code", ErrConflict)
}

// Confirm attaches the payer's reference to their own pending deposit.
func (s *DepositService) Confirm(ctx context.Context, userID, depositID uint, reference string) (*models.Deposit, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, validationf("reference is required")
	}
	var dep models.Deposit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadDeposit(tx, depositID, &dep); err != nil {
			return err
		}
		if dep.UserID != userID {
			return fmt.Errorf("%w: deposit belongs to another user", ErrForbidden)
		}
		res := tx.Model(&models.Deposit{}).
			Where("id = ? AND status = ?", depositID, models.DepositPending).
			Update("reference", reference)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDepositNotPending
		}
		dep.Reference = &reference
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

// Approve marks a pending deposit approved and credits its amount, both or
// neither. A deposit that is no longer pending yields ErrDepositNotPending.
func (s *DepositService) Approve(ctx context.Context, depositID, approverID uint, notes string) (*models.Deposit, decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "deposit.Approve", trace.WithAttributes(attribute.Int64("deposit.id", int64(depositID))))
	defer span.End()

	var dep models.Deposit
	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadDeposit(tx, depositID, &dep); err != nil {
			return err
		}
		if err := s.process(tx, &dep, models.DepositApproved, approverID, notes); err != nil {
			return err
		}
		b, err := credit(tx, dep.UserID, dep.Amount, models.DepositTransaction, dep.UniqueCode)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	log.Infow("deposit approved", "deposit_id", dep.ID, "user_id", dep.UserID, "approved_by", approverID, "amount", dep.Amount.StringFixed(2))
	return &dep, balance, nil
}

// Reject closes a pending deposit without moving money.
func (s *DepositService) Reject(ctx context.Context, depositID, approverID uint, notes string) (*models.Deposit, error) {
	var dep models.Deposit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadDeposit(tx, depositID, &dep); err != nil {
			return err
		}
		return s.process(tx, &dep, models.DepositRejected, approverID, notes)
	})
	if err != nil {
		return nil, err
	}
	log.Infow("deposit rejected", "deposit_id", dep.ID, "rejected_by", approverID)
	return &dep, nil
}

func (s *DepositService) ListForUser(ctx context.Context, userID uint) ([]models.Deposit, error) {
	var out []models.Deposit
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&out).Error
	return out, err
}

func (s *DepositService) Pending(ctx context.Context) ([]models.Deposit, error) {
	var out []models.Deposit
	err := s.db.WithContext(ctx).Where("status = ?", models.DepositPending).Order("id ASC").Find(&out).Error
	return out, err
}

// process moves a deposit out of pending. The status filter in the UPDATE is
// what keeps two approvals from both succeeding.
func (s *DepositService) process(tx *gorm.DB, dep *models.Deposit, status models.DepositStatus, by uint, notes string) error {
	now := s.clock()
	res := tx.Model(&models.Deposit{}).
		Where("id = ? AND status = ?", dep.ID, models.DepositPending).
		Updates(map[string]any{
			"status":          status,
			"processed_by_id": by,
			"processed_at":    now,
			"admin_notes":     strings.TrimSpace(notes),
		})
	if res.Error != nil {
		return fmt.Errorf("update deposit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDepositNotPending
	}
	dep.Status = status
	dep.ProcessedByID = &by
	dep.ProcessedAt = &now
	dep.AdminNotes = strings.TrimSpace(notes)
	return nil
}

func loadDeposit(tx *gorm.DB, id uint, dep *models.Deposit) error {
	if err := tx.First(dep, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("deposit")
		}
		return err
	}
	return nil
}

func depositCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
