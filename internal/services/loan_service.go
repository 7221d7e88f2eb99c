// internal/services/loan_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/finance"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

const (
	organicInterestRate  = 10.0
	standardInterestRate = 12.0
	largeInterestRate    = 14.0
	largeLoanThreshold   = 100000.0
)

type LoanService struct {
	db       *gorm.DB
	notifier LoanNotifier
	now      func() time.Time
}

type ApplyLoanRequest struct {
	LoanType        models.LoanType         `json:"loanType" validate:"required,oneof=crop_loan equipment_loan infrastructure_loan livestock_loan organic_farming_loan emergency_loan"`
	Amount          float64                 `json:"amount" validate:"required,gte=1000,lte=1000000"`
	Currency        string                  `json:"currency,omitempty" validate:"omitempty,oneof=INR USD EUR"`
	Purpose         string                  `json:"purpose" validate:"required,min=10,max=500"`
	Term            int                     `json:"term" validate:"required,gte=3,lte=60"`
	FarmDetails     *models.LoanFarmDetails `json:"farmDetails,omitempty"`
	Collateral      models.CollateralType   `json:"collateral,omitempty" validate:"omitempty,oneof=none land equipment livestock crops other"`
	CollateralValue float64                 `json:"collateralValue,omitempty" validate:"gte=0"`
	Guarantor       *models.Guarantor       `json:"guarantor,omitempty"`
}

type ApplyLoanResult struct {
	LoanID         uuid.UUID         `json:"loanId"`
	Status         models.LoanStatus `json:"status"`
	MonthlyPayment float64           `json:"monthlyPayment"`
	TotalAmount    float64           `json:"totalAmount"`
	DueDate        time.Time         `json:"dueDate"`
}

type UpdateLoanRequest struct {
	Purpose         string                  `json:"purpose,omitempty" validate:"omitempty,min=10,max=500"`
	FarmDetails     *models.LoanFarmDetails `json:"farmDetails,omitempty"`
	Collateral      models.CollateralType   `json:"collateral,omitempty" validate:"omitempty,oneof=none land equipment livestock crops other"`
	CollateralValue *float64                `json:"collateralValue,omitempty" validate:"omitempty,gte=0"`
	Guarantor       *models.Guarantor       `json:"guarantor,omitempty"`
}

type CalculateLoanRequest struct {
	Amount       float64 `json:"amount" validate:"required,gte=1000,lte=1000000"`
	Term         int     `json:"term" validate:"required,gte=3,lte=60"`
	InterestRate float64 `json:"interestRate" validate:"required,gte=1,lte=24"`
}

type LoanCalculation struct {
	LoanAmount     float64               `json:"loanAmount"`
	Term           int                   `json:"term"`
	InterestRate   float64               `json:"interestRate"`
	MonthlyPayment float64               `json:"monthlyPayment"`
	TotalAmount    float64               `json:"totalAmount"`
	TotalInterest  float64               `json:"totalInterest"`
	Schedule       []finance.Installment `json:"schedule,omitempty"`
}

type ApproveLoanRequest struct {
	InterestRate   *float64         `json:"interestRate,omitempty" validate:"omitempty,gte=1,lte=24"`
	CreditScore    *int             `json:"creditScore,omitempty" validate:"omitempty,gte=300,lte=900"`
	RiskAssessment models.RiskLevel `json:"riskAssessment,omitempty" validate:"omitempty,oneof=low medium high"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type RecordPaymentRequest struct {
	Reference string `json:"reference,omitempty" validate:"max=255"`
}

type AddLoanNoteRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

type LoanSearchParams struct {
	utils.PaginationParams
	ApplicantID *uuid.UUID
	Status      models.LoanStatus
}

func NewLoanService(db *gorm.DB, notifier LoanNotifier) *LoanService {
	return &LoanService{
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

// InterestRateFor picks the APR for a new application. The organic rate
// takes precedence over the large-amount rate.
func InterestRateFor(loanType models.LoanType, amount float64) float64 {
	switch {
	case loanType == models.LoanTypeOrganicFarming:
		return organicInterestRate
	case amount > largeLoanThreshold:
		return largeInterestRate
	default:
		return standardInterestRate
	}
}

func (s *LoanService) ApplyForLoan(applicantID uuid.UUID, req *ApplyLoanRequest) (*ApplyLoanResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	var openCount int64
	if err := s.db.Model(&models.Loan{}).
		Where("applicant_id = ? AND status IN ?", applicantID, models.OpenLoanStatuses).
		Count(&openCount).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to check open loans: %w", err))
	}
	if openCount > 0 {
		return nil, apperrors.ActiveLoanExists()
	}

	now := s.now()
	loan := &models.Loan{
		ApplicantID:     applicantID,
		LoanType:        req.LoanType,
		Currency:        req.Currency,
		Purpose:         req.Purpose,
		Status:          models.LoanStatusPending,
		ApplicationDate: now,
		Documents:       []models.LoanDocument{},
		FarmDetails:     req.FarmDetails,
		Collateral:      req.Collateral,
		CollateralValue: req.CollateralValue,
		Guarantor:       req.Guarantor,
		Notes:           []models.LoanNote{},
		IsActive:        true,
	}
	if loan.Currency == "" {
		loan.Currency = "INR"
	}
	if loan.Collateral == "" {
		loan.Collateral = models.CollateralNone
	}

	if _, err := loan.ApplyTerms(req.Amount, req.Term, InterestRateFor(req.LoanType, req.Amount), now); err != nil {
		return nil, err
	}

	if err := s.db.Create(loan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ActiveLoanExists()
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create loan: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"loan_id":      loan.ID,
		"applicant_id": applicantID,
		"amount":       loan.Amount,
		"rate":         loan.InterestRate,
	}).Info("Loan application submitted")

	return &ApplyLoanResult{
		LoanID:         loan.ID,
		Status:         loan.Status,
		MonthlyPayment: loan.MonthlyPayment,
		TotalAmount:    loan.TotalAmount,
		DueDate:        loan.DueDate,
	}, nil
}

// ListLoans returns loans newest first. ApplicantID narrows to one user.
func (s *LoanService) ListLoans(params LoanSearchParams) ([]models.Loan, int64, error) {
	query := s.db.Model(&models.Loan{})

	if params.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *params.ApplicantID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to count loans: %w", err))
	}

	if params.ApplicantID == nil {
		query = query.Preload("Applicant")
	}

	var loans []models.Loan
	err := utils.ApplyPagination(query, params.PaginationParams).
		Preload("Payments", orderBySequence).
		Order("created_at DESC").
		Find(&loans).Error
	if err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to list loans: %w", err))
	}

	now := s.now()
	for i := range loans {
		loans[i].Decorate(now)
	}

	return loans, total, nil
}

func (s *LoanService) GetLoan(id, userID uuid.UUID, isAdmin bool) (*models.Loan, error) {
	loan, err := s.findLoan(s.db, id)
	if err != nil {
		return nil, err
	}

	if loan.ApplicantID != userID && !isAdmin {
		return nil, apperrors.AccessDenied("loan")
	}

	loan.Decorate(s.now())
	return loan, nil
}

// UpdateLoan merges the editable application fields of a pending loan.
func (s *LoanService) UpdateLoan(id, userID uuid.UUID, req *UpdateLoanRequest) (*models.Loan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	loan, err := s.findOwnedPendingLoan(id, userID)
	if err != nil {
		return nil, err
	}

	if req.Purpose != "" {
		loan.Purpose = req.Purpose
	}
	if req.FarmDetails != nil {
		loan.FarmDetails = mergeFarmDetails(loan.FarmDetails, req.FarmDetails)
	}
	if req.Collateral != "" {
		loan.Collateral = req.Collateral
	}
	if req.CollateralValue != nil {
		loan.CollateralValue = *req.CollateralValue
	}
	if req.Guarantor != nil {
		loan.Guarantor = req.Guarantor
	}

	if _, err := loan.ApplyTerms(loan.Amount, loan.Term, loan.InterestRate, loan.ApplicationDate); err != nil {
		return nil, err
	}

	if err := s.db.Omit(clause.Associations).Save(loan).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update loan: %w", err))
	}

	loan.Decorate(s.now())
	return loan, nil
}

func (s *LoanService) CancelLoan(id, userID uuid.UUID) (*models.Loan, error) {
	loan, err := s.findOwnedPendingLoan(id, userID)
	if err != nil {
		return nil, err
	}

	if err := loan.TransitionTo(models.LoanStatusCancelled, s.now()); err != nil {
		return nil, err
	}

	if err := s.db.Omit(clause.Associations).Save(loan).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to cancel loan: %w", err))
	}

	loan.Decorate(s.now())
	return loan, nil
}

// AddDocument appends an uploaded document to a pending loan.
func (s *LoanService) AddDocument(id, userID uuid.UUID, doc models.LoanDocument) (*models.Loan, error) {
	loan, err := s.findOwnedPendingLoan(id, userID)
	if err != nil {
		return nil, err
	}

	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = s.now()
	}
	loan.Documents = append(loan.Documents, doc)

	if err := s.db.Omit(clause.Associations).Save(loan).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to attach document: %w", err))
	}

	return loan, nil
}

// Calculate quotes a loan without persisting anything.
func (s *LoanService) Calculate(req *CalculateLoanRequest, withSchedule bool) (*LoanCalculation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	quote, err := finance.Amortize(req.Amount, req.Term, req.InterestRate)
	if err != nil {
		return nil, err
	}

	calculation := &LoanCalculation{
		LoanAmount:     req.Amount,
		Term:           req.Term,
		InterestRate:   req.InterestRate,
		MonthlyPayment: quote.Installment.InexactFloat64(),
		TotalAmount:    quote.Total.InexactFloat64(),
		TotalInterest:  quote.Interest.InexactFloat64(),
	}
	if withSchedule {
		calculation.Schedule = quote.Schedule()
	}

	return calculation, nil
}

func (s *LoanService) ApproveLoan(id, adminID uuid.UUID, req *ApproveLoanRequest) (*models.Loan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	loan, err := s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		if err := loan.TransitionTo(models.LoanStatusApproved, now); err != nil {
			return err
		}
		if req.InterestRate != nil {
			if _, err := loan.ApplyTerms(loan.Amount, loan.Term, *req.InterestRate, loan.ApplicationDate); err != nil {
				return err
			}
		}
		if req.CreditScore != nil {
			loan.CreditScore = req.CreditScore
		}
		if req.RiskAssessment != "" {
			loan.RiskAssessment = req.RiskAssessment
		}
		return tx.Omit(clause.Associations).Save(loan).Error
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(loan, adminID)
	s.notifyStatus(loan)
	return loan, nil
}

func (s *LoanService) RejectLoan(id, adminID uuid.UUID, req *RejectLoanRequest) (*models.Loan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	loan, err := s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		if err := loan.TransitionTo(models.LoanStatusRejected, now); err != nil {
			return err
		}
		loan.RejectionReason = req.Reason
		return tx.Omit(clause.Associations).Save(loan).Error
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(loan, adminID)
	s.notifyStatus(loan)
	return loan, nil
}

// DisburseLoan activates an approved loan and writes its repayment schedule.
func (s *LoanService) DisburseLoan(id, adminID uuid.UUID) (*models.Loan, error) {
	loan, err := s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		if err := loan.TransitionTo(models.LoanStatusActive, now); err != nil {
			return err
		}

		quote, err := loan.ApplyTerms(loan.Amount, loan.Term, loan.InterestRate, now)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(loan).Error; err != nil {
			return err
		}

		loan.Payments = loan.BuildSchedule(quote, now)
		return tx.Create(&loan.Payments).Error
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(loan, adminID)
	s.notifyStatus(loan)
	return loan, nil
}

// RecordPayment settles the earliest unpaid installment. Paying the last one
// completes the loan.
func (s *LoanService) RecordPayment(id uuid.UUID, reference string) (*models.Loan, *models.LoanPayment, error) {
	if err := utils.ValidateStruct(&RecordPaymentRequest{Reference: reference}); err != nil {
		return nil, nil, apperrors.WrapValidation(err)
	}

	var paid *models.LoanPayment
	loan, err := s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		if loan.Status != models.LoanStatusActive {
			return apperrors.InvalidState(fmt.Sprintf("Payments can only be recorded on active loans, loan is %s", loan.Status))
		}

		paid = loan.NextUnpaidInstallment()
		if paid == nil {
			return apperrors.NoOutstandingInstallment(loan.ID.String())
		}

		paid.Status = models.PaymentStatusPaid
		paid.PaidDate = &now
		paid.Reference = reference
		if err := tx.Save(paid).Error; err != nil {
			return err
		}

		if loan.NextUnpaidInstallment() == nil {
			if err := loan.TransitionTo(models.LoanStatusCompleted, now); err != nil {
				return err
			}
			return tx.Omit(clause.Associations).Save(loan).Error
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"sequence":  paid.Sequence,
		"amount":    paid.AmountDue(),
		"reference": reference,
	}).Info("Loan installment recorded")

	if s.notifier != nil {
		loanCopy, paymentCopy := *loan, *paid
		go func() {
			if err := s.notifier.SendPaymentReceivedEmail(&loanCopy, &paymentCopy); err != nil {
				logrus.WithError(err).WithField("loan_id", loanCopy.ID).Warn("Failed to send payment e-mail")
			}
		}()
	}
	if loan.Status == models.LoanStatusCompleted {
		s.notifyStatus(loan)
	}

	return loan, paid, nil
}

// MarkDefault defaults an active loan and every installment still unpaid.
func (s *LoanService) MarkDefault(id uuid.UUID) (*models.Loan, error) {
	loan, err := s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		if err := loan.TransitionTo(models.LoanStatusDefaulted, now); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(loan).Error; err != nil {
			return err
		}

		for i := range loan.Payments {
			if loan.Payments[i].IsUnpaid() {
				loan.Payments[i].Status = models.PaymentStatusDefaulted
			}
		}
		return tx.Model(&models.LoanPayment{}).
			Where("loan_id = ? AND status IN ?", loan.ID,
				[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue}).
			Update("status", models.PaymentStatusDefaulted).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("loan_id", loan.ID).Warn("Loan marked as defaulted")
	s.notifyStatus(loan)
	return loan, nil
}

// AddNote appends an admin note; allowed in any state.
func (s *LoanService) AddNote(id, authorID uuid.UUID, req *AddLoanNoteRequest) (*models.Loan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	return s.transition(id, func(tx *gorm.DB, loan *models.Loan, now time.Time) error {
		loan.Notes = append(loan.Notes, models.LoanNote{
			Content:   req.Content,
			AuthorID:  authorID,
			CreatedAt: now,
		})
		return tx.Omit(clause.Associations).Save(loan).Error
	})
}

// transition loads the loan inside a transaction, applies fn and returns the
// decorated result.
func (s *LoanService) transition(id uuid.UUID, fn func(tx *gorm.DB, loan *models.Loan, now time.Time) error) (*models.Loan, error) {
	now := s.now()

	var loan *models.Loan
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		if loan, err = s.findLoan(tx, id); err != nil {
			return err
		}
		return fn(tx, loan, now)
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to update loan "+id.String())
	}

	loan.Decorate(now)
	return loan, nil
}

func (s *LoanService) findLoan(db *gorm.DB, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := db.Preload("Applicant").Preload("Payments", orderBySequence).
		First(&loan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.LoanNotFound(id.String())
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to load loan: %w", err))
	}
	return &loan, nil
}

func (s *LoanService) findOwnedPendingLoan(id, userID uuid.UUID) (*models.Loan, error) {
	loan, err := s.findLoan(s.db, id)
	if err != nil {
		return nil, err
	}

	if loan.ApplicantID != userID {
		return nil, apperrors.AccessDenied("loan")
	}
	if loan.Status != models.LoanStatusPending {
		return nil, apperrors.InvalidState("Only pending loans can be changed")
	}

	return loan, nil
}

func (s *LoanService) logTransition(loan *models.Loan, adminID uuid.UUID) {
	logrus.WithFields(logrus.Fields{
		"loan_id":  loan.ID,
		"status":   loan.Status,
		"admin_id": adminID,
	}).Info("Loan status changed")
}

func (s *LoanService) notifyStatus(loan *models.Loan) {
	if s.notifier == nil || loan.Applicant == nil {
		return
	}

	loanCopy := *loan
	go func() {
		if err := s.notifier.SendLoanStatusEmail(&loanCopy); err != nil {
			logrus.WithError(err).WithField("loan_id", loanCopy.ID).Warn("Failed to send loan status e-mail")
		}
	}()
}

func orderBySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func mergeFarmDetails(current, update *models.LoanFarmDetails) *models.LoanFarmDetails {
	merged := models.LoanFarmDetails{}
	if current != nil {
		merged = *current
	}

	if update.FarmSize != 0 {
		merged.FarmSize = update.FarmSize
	}
	if len(update.CurrentCrops) > 0 {
		merged.CurrentCrops = update.CurrentCrops
	}
	if update.ExpectedYield != "" {
		merged.ExpectedYield = update.ExpectedYield
	}
	if update.MarketValue != 0 {
		merged.MarketValue = update.MarketValue
	}
	return &merged
}
