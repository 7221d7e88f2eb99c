package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
)

var applied = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func newActiveLoan(t *testing.T) *Loan {
	t.Helper()

	loan := &Loan{Status: LoanStatusPending, IsActive: true, ApplicationDate: applied}
	quote, err := loan.ApplyTerms(12000, 12, 0, applied)
	require.NoError(t, err)
	require.NoError(t, loan.TransitionTo(LoanStatusApproved, applied))

	disbursed := applied.AddDate(0, 0, 5)
	require.NoError(t, loan.TransitionTo(LoanStatusActive, disbursed))
	_, err = loan.ApplyTerms(loan.Amount, loan.Term, loan.InterestRate, disbursed)
	require.NoError(t, err)
	loan.Payments = loan.BuildSchedule(quote, disbursed)
	return loan
}

func TestLoan_ApplyTermsRecomputesDerivedFields(t *testing.T) {
	loan := &Loan{}

	_, err := loan.ApplyTerms(10000, 12, 12, applied)
	require.NoError(t, err)
	assert.Equal(t, 888.49, loan.MonthlyPayment)
	assert.Equal(t, 10661.88, loan.TotalAmount)
	assert.Equal(t, applied.AddDate(0, 12, 0), loan.DueDate)

	_, err = loan.ApplyTerms(10000, 12, 0, applied)
	require.NoError(t, err)
	assert.Equal(t, 833.33, loan.MonthlyPayment)
	assert.Equal(t, 10000.0, loan.TotalAmount)
}

func TestLoan_ApplyTermsRejectsInvalidInput(t *testing.T) {
	loan := &Loan{MonthlyPayment: 1, TotalAmount: 2}

	_, err := loan.ApplyTerms(10000, 0, 12, applied)
	require.Error(t, err)
	assert.Equal(t, 1.0, loan.MonthlyPayment, "derived fields untouched on failure")
	assert.Equal(t, 2.0, loan.TotalAmount)
}

func TestLoan_Transitions(t *testing.T) {
	tests := []struct {
		from    LoanStatus
		to      LoanStatus
		allowed bool
	}{
		{LoanStatusPending, LoanStatusApproved, true},
		{LoanStatusPending, LoanStatusRejected, true},
		{LoanStatusPending, LoanStatusCancelled, true},
		{LoanStatusPending, LoanStatusActive, false},
		{LoanStatusApproved, LoanStatusActive, true},
		{LoanStatusApproved, LoanStatusCancelled, false},
		{LoanStatusActive, LoanStatusCompleted, true},
		{LoanStatusActive, LoanStatusDefaulted, true},
		{LoanStatusActive, LoanStatusPending, false},
		{LoanStatusCancelled, LoanStatusPending, false},
		{LoanStatusRejected, LoanStatusApproved, false},
		{LoanStatusCompleted, LoanStatusActive, false},
		{LoanStatusDefaulted, LoanStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			loan := &Loan{Status: tt.from, IsActive: true}
			err := loan.TransitionTo(tt.to, applied)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, loan.Status)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
			assert.Equal(t, tt.from, loan.Status)
		})
	}
}

func TestLoan_TransitionSideEffects(t *testing.T) {
	loan := &Loan{Status: LoanStatusPending, IsActive: true}
	require.NoError(t, loan.TransitionTo(LoanStatusCancelled, applied))
	assert.False(t, loan.IsActive)
	assert.False(t, loan.IsOpen())

	loan = &Loan{Status: LoanStatusPending, IsActive: true}
	require.NoError(t, loan.TransitionTo(LoanStatusApproved, applied))
	require.NotNil(t, loan.ApprovalDate)
	assert.True(t, loan.IsActive)
	assert.True(t, loan.IsOpen())
}

func TestLoan_OutstandingBalance(t *testing.T) {
	pending := &Loan{Status: LoanStatusPending, Term: 12, MonthlyPayment: 1000}
	assert.Equal(t, 0.0, pending.OutstandingBalance())

	loan := newActiveLoan(t)
	assert.Equal(t, 12000.0, loan.OutstandingBalance())

	paidAt := applied.AddDate(0, 1, 0)
	loan.Payments[0].Status = PaymentStatusPaid
	loan.Payments[0].PaidDate = &paidAt
	assert.Equal(t, 11000.0, loan.OutstandingBalance())
	assert.Equal(t, 8.33, loan.ProgressPercent())
}

func TestLoan_IsOverdueAt(t *testing.T) {
	loan := newActiveLoan(t)

	assert.False(t, loan.IsOverdueAt(loan.DueDate.Add(-time.Hour)), "before due date without payments")
	assert.True(t, loan.IsOverdueAt(loan.DueDate.Add(time.Hour)), "after due date without payments")

	paidAt := applied.AddDate(0, 2, 0)
	loan.Payments[0].Status = PaymentStatusPaid
	loan.Payments[0].PaidDate = &paidAt
	assert.False(t, loan.IsOverdueAt(paidAt.AddDate(0, 0, 20)))
	assert.True(t, loan.IsOverdueAt(paidAt.AddDate(0, 1, 1)))

	loan.Status = LoanStatusCompleted
	assert.False(t, loan.IsOverdueAt(paidAt.AddDate(1, 0, 0)))
}

func TestLoan_ScheduleAndNextInstallment(t *testing.T) {
	loan := newActiveLoan(t)
	require.Len(t, loan.Payments, 12)

	total := 0.0
	for _, payment := range loan.Payments {
		total += payment.Amount
	}
	assert.InDelta(t, loan.TotalAmount, total, 0.001)
	assert.Equal(t, loan.DisbursementDate.AddDate(0, 1, 0), loan.Payments[0].DueDate)

	next := loan.NextUnpaidInstallment()
	require.NotNil(t, next)
	assert.Equal(t, 1, next.Sequence)

	loan.Payments[0].Status = PaymentStatusPaid
	loan.Payments[1].Status = PaymentStatusOverdue
	loan.Payments[1].LateFees = 20
	next = loan.NextUnpaidInstallment()
	assert.Equal(t, 2, next.Sequence)
	assert.Equal(t, 1020.0, next.AmountDue())
}

func TestLoan_Decorate(t *testing.T) {
	loan := newActiveLoan(t)
	loan.Decorate(applied)

	assert.Equal(t, 12000.0, loan.RemainingBalance)
	assert.False(t, loan.Overdue)
	assert.Equal(t, 0.0, loan.Progress)
}
