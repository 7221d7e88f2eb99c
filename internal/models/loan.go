// internal/models/loan.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/finance"
)

type LoanFarmDetails struct {
	FarmSize      float64  `json:"farmSize,omitempty"`
	CurrentCrops  []string `json:"currentCrops,omitempty"`
	ExpectedYield string   `json:"expectedYield,omitempty"`
	MarketValue   float64  `json:"marketValue,omitempty"`
}

type Guarantor struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

type LoanDocument struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type LoanNote struct {
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Loan struct {
	BaseModel
	ApplicantID      uuid.UUID        `json:"applicantId" gorm:"type:uuid;not null;index"`
	LoanType         LoanType         `json:"loanType" gorm:"type:varchar(30);not null"`
	Amount           float64          `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency         string           `json:"currency" gorm:"size:3;not null"`
	Purpose          string           `json:"purpose" gorm:"type:text;not null"`
	Term             int              `json:"term" gorm:"not null"`
	InterestRate     float64          `json:"interestRate" gorm:"type:decimal(5,2);not null"`
	MonthlyPayment   float64          `json:"monthlyPayment" gorm:"type:decimal(12,2);not null"`
	TotalAmount      float64          `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	Status           LoanStatus       `json:"status" gorm:"type:varchar(20);not null;index"`
	ApplicationDate  time.Time        `json:"applicationDate" gorm:"not null"`
	ApprovalDate     *time.Time       `json:"approvalDate,omitempty"`
	DisbursementDate *time.Time       `json:"disbursementDate,omitempty"`
	DueDate          time.Time        `json:"dueDate" gorm:"not null"`
	Documents        []LoanDocument   `json:"documents" gorm:"serializer:json;type:jsonb"`
	FarmDetails      *LoanFarmDetails `json:"farmDetails,omitempty" gorm:"serializer:json;type:jsonb"`
	Collateral       CollateralType   `json:"collateral" gorm:"type:varchar(20);not null"`
	CollateralValue  float64          `json:"collateralValue" gorm:"type:decimal(12,2)"`
	Guarantor        *Guarantor       `json:"guarantor,omitempty" gorm:"serializer:json;type:jsonb"`
	CreditScore      *int             `json:"creditScore,omitempty"`
	RiskAssessment   RiskLevel        `json:"riskAssessment,omitempty" gorm:"type:varchar(10)"`
	RejectionReason  string           `json:"rejectionReason,omitempty" gorm:"type:text"`
	Notes            []LoanNote       `json:"notes" gorm:"serializer:json;type:jsonb"`
	IsActive         bool             `json:"isActive" gorm:"not null"`

	// Relationships
	Applicant *User         `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
	Payments  []LoanPayment `json:"payments" gorm:"foreignKey:LoanID"`

	// Read-only views, filled by Decorate
	RemainingBalance float64 `json:"remainingBalance" gorm:"-"`
	Overdue          bool    `json:"isOverdue" gorm:"-"`
	Progress         float64 `json:"progress" gorm:"-"`
}

type LoanPayment struct {
	BaseModel
	LoanID    uuid.UUID     `json:"loanId" gorm:"type:uuid;not null;index"`
	Sequence  int           `json:"sequence" gorm:"not null"`
	Amount    float64       `json:"amount" gorm:"type:decimal(12,2);not null"`
	DueDate   time.Time     `json:"dueDate" gorm:"not null;index"`
	PaidDate  *time.Time    `json:"paidDate,omitempty"`
	Status    PaymentStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	LateFees  float64       `json:"lateFees" gorm:"type:decimal(12,2);not null"`
	Reference string        `json:"reference,omitempty" gorm:"size:255"`
}

// AmountDue is the installment plus any late fees charged on it.
func (p *LoanPayment) AmountDue() float64 {
	return finance.RoundMoney(p.Amount + p.LateFees)
}

func (p *LoanPayment) IsUnpaid() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusOverdue
}

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected, LoanStatusCancelled},
	LoanStatusApproved: {LoanStatusActive},
	LoanStatusActive:   {LoanStatusCompleted, LoanStatusDefaulted},
}

// ApplyTerms sets amount, term and rate and recomputes every derived field
// from them. It is the only way the derived fields are written.
func (l *Loan) ApplyTerms(amount float64, term int, rate float64, from time.Time) (finance.Quote, error) {
	quote, err := finance.Amortize(amount, term, rate)
	if err != nil {
		return finance.Quote{}, err
	}

	l.Amount = amount
	l.Term = term
	l.InterestRate = rate
	l.MonthlyPayment = quote.Installment.InexactFloat64()
	l.TotalAmount = quote.Total.InexactFloat64()
	l.DueDate = from.AddDate(0, term, 0)

	return quote, nil
}

func (l *Loan) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[l.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the loan to next, stamping the lifecycle dates.
func (l *Loan) TransitionTo(next LoanStatus, at time.Time) error {
	if !l.CanTransitionTo(next) {
		return apperrors.InvalidTransition(string(l.Status), string(next))
	}

	switch next {
	case LoanStatusApproved:
		l.ApprovalDate = &at
	case LoanStatusActive:
		l.DisbursementDate = &at
	case LoanStatusRejected, LoanStatusCancelled, LoanStatusCompleted, LoanStatusDefaulted:
		l.IsActive = false
	}

	l.Status = next
	return nil
}

func (l *Loan) IsOpen() bool {
	for _, status := range OpenLoanStatuses {
		if l.Status == status {
			return true
		}
	}
	return false
}

func (l *Loan) PaidInstallments() int {
	paid := 0
	for _, payment := range l.Payments {
		if payment.Status == PaymentStatusPaid {
			paid++
		}
	}
	return paid
}

// OutstandingBalance is zero unless the loan is active.
func (l *Loan) OutstandingBalance() float64 {
	if l.Status != LoanStatusActive {
		return 0
	}
	remaining := l.Term - l.PaidInstallments()
	if remaining < 0 {
		remaining = 0
	}
	return finance.MultiplyMoney(l.MonthlyPayment, remaining)
}

// IsOverdueAt reports whether an active loan has missed its next payment.
// Without any payment the loan is overdue after its due date; otherwise one
// month after the latest payment.
func (l *Loan) IsOverdueAt(now time.Time) bool {
	if l.Status != LoanStatusActive {
		return false
	}

	var lastPaid *time.Time
	for i := range l.Payments {
		paidDate := l.Payments[i].PaidDate
		if l.Payments[i].Status != PaymentStatusPaid || paidDate == nil {
			continue
		}
		if lastPaid == nil || paidDate.After(*lastPaid) {
			lastPaid = paidDate
		}
	}

	if lastPaid == nil {
		return now.After(l.DueDate)
	}
	return now.After(lastPaid.AddDate(0, 1, 0))
}

func (l *Loan) ProgressPercent() float64 {
	if l.Status != LoanStatusActive || l.Term == 0 {
		return 0
	}
	return finance.RoundMoney(float64(l.PaidInstallments()) / float64(l.Term) * 100)
}

// NextUnpaidInstallment returns the earliest pending or overdue installment.
func (l *Loan) NextUnpaidInstallment() *LoanPayment {
	var next *LoanPayment
	for i := range l.Payments {
		payment := &l.Payments[i]
		if !payment.IsUnpaid() {
			continue
		}
		if next == nil || payment.Sequence < next.Sequence {
			next = payment
		}
	}
	return next
}

func (l *Loan) BuildSchedule(quote finance.Quote, start time.Time) []LoanPayment {
	amounts := quote.InstallmentAmounts()
	payments := make([]LoanPayment, len(amounts))
	for i, amount := range amounts {
		payments[i] = LoanPayment{
			LoanID:   l.ID,
			Sequence: i + 1,
			Amount:   amount,
			DueDate:  start.AddDate(0, i+1, 0),
			Status:   PaymentStatusPending,
		}
	}
	return payments
}

// Decorate fills the read-only view fields as of now.
func (l *Loan) Decorate(now time.Time) {
	l.RemainingBalance = l.OutstandingBalance()
	l.Overdue = l.IsOverdueAt(now)
	l.Progress = l.ProgressPercent()
}
