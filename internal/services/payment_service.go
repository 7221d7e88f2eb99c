// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/finance"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

// Intent statuses shared by every gateway.
const (
	IntentSucceeded      = string(stripe.PaymentIntentStatusSucceeded)
	IntentRequiresAction = string(stripe.PaymentIntentStatusRequiresAction)
	IntentProcessing     = string(stripe.PaymentIntentStatusProcessing)
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// PaymentGateway creates and inspects card payment intents.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

type StripeGateway struct{}

// NewPaymentGateway returns a Stripe gateway, or nil when no secret key is
// configured.
func NewPaymentGateway(cfg config.PaymentConfig) PaymentGateway {
	if cfg.StripeSecretKey == "" {
		return nil
	}

	// Initialize Stripe
	stripe.Key = cfg.StripeSecretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx

	// Add metadata
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return fromStripeIntent(pi), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

type RepaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
	loans   *LoanService
}

type RepaymentIntentResponse struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Status          string  `json:"status"`
	Sequence        int     `json:"sequence"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type ConfirmRepaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required,max=255"`
}

type RepaymentResult struct {
	Loan    *models.Loan        `json:"loan"`
	Payment *models.LoanPayment `json:"payment"`
}

// NewRepaymentService accepts a nil gateway; card repayments then answer
// ServiceUnavailable.
func NewRepaymentService(db *gorm.DB, gateway PaymentGateway, loans *LoanService) *RepaymentService {
	return &RepaymentService{
		db:      db,
		gateway: gateway,
		loans:   loans,
	}
}

// CreateIntent starts a card payment for the next unpaid installment.
func (s *RepaymentService) CreateIntent(ctx context.Context, loanID, userID uuid.UUID) (*RepaymentIntentResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ServiceUnavailable("Payment", apperrors.ErrNotConfigured)
	}

	loan, installment, err := s.nextInstallment(loanID, userID)
	if err != nil {
		return nil, err
	}

	amountDue := installment.AmountDue()
	pi, err := s.gateway.CreatePaymentIntent(ctx, finance.ToMinorUnits(amountDue), loan.Currency, map[string]string{
		"loan_id":    loan.ID.String(),
		"payment_id": installment.ID.String(),
		"sequence":   fmt.Sprintf("%d", installment.Sequence),
		"user_id":    userID.String(),
	})
	if err != nil {
		return nil, apperrors.ServiceUnavailable("Payment", err)
	}

	logrus.WithFields(logrus.Fields{
		"loan_id":           loan.ID,
		"sequence":          installment.Sequence,
		"payment_intent_id": pi.ID,
	}).Info("Repayment intent created")

	return &RepaymentIntentResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Status:          pi.Status,
		Sequence:        installment.Sequence,
		Amount:          amountDue,
		Currency:        loan.Currency,
	}, nil
}

// ConfirmIntent records the installment once the intent has succeeded. A
// second confirmation of the same intent is a no-op.
func (s *RepaymentService) ConfirmIntent(ctx context.Context, loanID, userID uuid.UUID, req *ConfirmRepaymentRequest) (*RepaymentResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}
	if s.gateway == nil {
		return nil, apperrors.ServiceUnavailable("Payment", apperrors.ErrNotConfigured)
	}

	loan, err := s.loans.GetLoan(loanID, userID, false)
	if err != nil {
		return nil, err
	}

	var existing models.LoanPayment
	err = s.db.Where("loan_id = ? AND reference = ?", loan.ID, req.PaymentIntentID).First(&existing).Error
	if err == nil {
		return &RepaymentResult{Loan: loan, Payment: &existing}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(fmt.Errorf("failed to look up payment reference: %w", err))
	}

	pi, err := s.gateway.GetPaymentIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("Payment", err)
	}

	if pi.Metadata["loan_id"] != loan.ID.String() {
		return nil, apperrors.Validation("Payment intent does not belong to this loan")
	}

	switch pi.Status {
	case IntentSucceeded:
	case IntentRequiresAction, IntentProcessing:
		return nil, apperrors.InvalidState(fmt.Sprintf("Payment is not complete yet (%s)", pi.Status))
	default:
		return nil, apperrors.Validation(fmt.Sprintf("Payment failed with status %s", pi.Status))
	}

	updated, payment, err := s.loans.RecordPayment(loan.ID, pi.ID)
	if err != nil {
		return nil, err
	}

	return &RepaymentResult{Loan: updated, Payment: payment}, nil
}

func (s *RepaymentService) nextInstallment(loanID, userID uuid.UUID) (*models.Loan, *models.LoanPayment, error) {
	loan, err := s.loans.GetLoan(loanID, userID, false)
	if err != nil {
		return nil, nil, err
	}

	if loan.Status != models.LoanStatusActive {
		return nil, nil, apperrors.InvalidState(fmt.Sprintf("Only active loans can be repaid, loan is %s", loan.Status))
	}

	installment := loan.NextUnpaidInstallment()
	if installment == nil {
		return nil, nil, apperrors.NoOutstandingInstallment(loan.ID.String())
	}

	return loan, installment, nil
}
