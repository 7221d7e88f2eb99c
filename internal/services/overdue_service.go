// internal/services/overdue_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/finance"
	"github.com/agrilink/agrilink-backend/internal/models"
)

// OverdueService charges late fees on missed installments and defaults loans
// that stay overdue for too long.
type OverdueService struct {
	db     *gorm.DB
	config config.LoanConfig
	loans  *LoanService
	now    func() time.Time
}

type SweepResult struct {
	MarkedOverdue int `json:"markedOverdue"`
	Defaulted     int `json:"defaulted"`
	Failed        int `json:"failed"`
}

func NewOverdueService(db *gorm.DB, cfg config.LoanConfig, loans *LoanService) *OverdueService {
	return &OverdueService{
		db:     db,
		config: cfg,
		loans:  loans,
		now:    time.Now,
	}
}

func (s *OverdueService) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{}

	marked, err := s.markOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	result.MarkedOverdue = marked

	staleLoanIDs, err := s.staleLoans(ctx, now)
	if err != nil {
		return nil, err
	}

	for _, id := range staleLoanIDs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.loans.MarkDefault(id); err != nil {
			result.Failed++
			logrus.WithError(err).WithField("loan_id", id).Error("Failed to default overdue loan")
			continue
		}
		result.Defaulted++
	}

	logrus.WithFields(logrus.Fields{
		"marked_overdue": result.MarkedOverdue,
		"defaulted":      result.Defaulted,
		"failed":         result.Failed,
	}).Info("Overdue sweep completed")

	return result, nil
}

// markOverdue flips pending installments past their due date to overdue and
// charges the late fee once.
func (s *OverdueService) markOverdue(ctx context.Context, now time.Time) (int, error) {
	var payments []models.LoanPayment
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ? AND loan_id IN (?)", models.PaymentStatusPending, now, s.activeLoans()).
		Find(&payments).Error
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to find due installments: %w", err))
	}

	if len(payments) == 0 {
		return 0, nil
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, payment := range payments {
			err := tx.Model(&models.LoanPayment{}).
				Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
				Updates(map[string]interface{}{
					"status":    models.PaymentStatusOverdue,
					"late_fees": finance.Percent(payment.Amount, s.config.LateFeePercent),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to mark installments overdue: %w", err))
	}

	return len(payments), nil
}

// staleLoans lists active loans with an installment overdue for longer than
// the configured grace period.
func (s *OverdueService) staleLoans(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	cutoff := now.AddDate(0, 0, -s.config.DefaultAfterDays)

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.LoanPayment{}).
		Where("status = ? AND due_date < ? AND loan_id IN (?)", models.PaymentStatusOverdue, cutoff, s.activeLoans()).
		Distinct("loan_id").
		Pluck("loan_id", &ids).Error
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to find stale loans: %w", err))
	}
	return ids, nil
}

func (s *OverdueService) activeLoans() *gorm.DB {
	return s.db.Model(&models.Loan{}).Select("id").Where("status = ?", models.LoanStatusActive)
}
