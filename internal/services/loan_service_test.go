package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/testutil"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

var loanClock = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

type LoanServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *LoanService
	notifier *recordingNotifier
	farmer   *models.User
	admin    *models.User
}

func (suite *LoanServiceTestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	suite.notifier = &recordingNotifier{}
	suite.service = NewLoanService(suite.db, suite.notifier)
	suite.service.now = func() time.Time { return loanClock }

	suite.farmer = testutil.CreateUser(suite.T(), suite.db, "farmer@example.com", models.UserTypeFarmer)
	suite.admin = testutil.CreateUser(suite.T(), suite.db, "admin@example.com", models.UserTypeAdmin)
}

func (suite *LoanServiceTestSuite) applyRequest(amount float64, loanType models.LoanType) *ApplyLoanRequest {
	return &ApplyLoanRequest{
		LoanType: loanType,
		Amount:   amount,
		Purpose:  "Buy seeds and fertilizer for kharif season",
		Term:     12,
	}
}

func (suite *LoanServiceTestSuite) apply(amount float64) uuid.UUID {
	result, err := suite.service.ApplyForLoan(suite.farmer.ID, suite.applyRequest(amount, models.LoanTypeCrop))
	suite.Require().NoError(err)
	return result.LoanID
}

func (suite *LoanServiceTestSuite) disbursed(amount float64) uuid.UUID {
	id := suite.apply(amount)
	_, err := suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{})
	suite.Require().NoError(err)
	_, err = suite.service.DisburseLoan(id, suite.admin.ID)
	suite.Require().NoError(err)
	return id
}

func (suite *LoanServiceTestSuite) TestApplyForLoan() {
	result, err := suite.service.ApplyForLoan(suite.farmer.ID, suite.applyRequest(10000, models.LoanTypeCrop))
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.LoanStatusPending, result.Status)
	assert.Equal(suite.T(), 888.49, result.MonthlyPayment)
	assert.Equal(suite.T(), 10661.88, result.TotalAmount)
	assert.Equal(suite.T(), loanClock.AddDate(0, 12, 0), result.DueDate.UTC())

	var loan models.Loan
	suite.Require().NoError(suite.db.First(&loan, "id = ?", result.LoanID).Error)
	assert.Equal(suite.T(), "INR", loan.Currency)
	assert.Equal(suite.T(), models.CollateralNone, loan.Collateral)
	assert.Equal(suite.T(), 12.0, loan.InterestRate)
	assert.True(suite.T(), loan.IsActive)
}

func (suite *LoanServiceTestSuite) TestApplyRejectsSecondOpenLoan() {
	suite.apply(10000)

	_, err := suite.service.ApplyForLoan(suite.farmer.ID, suite.applyRequest(20000, models.LoanTypeCrop))
	suite.Require().Error(err)
	assert.ErrorIs(suite.T(), err, apperrors.ErrActiveLoanExists)
	assert.Equal(suite.T(), apperrors.KindInvalidState, apperrors.KindOf(err))
}

func (suite *LoanServiceTestSuite) TestApplyAllowedAfterCancellation() {
	id := suite.apply(10000)
	_, err := suite.service.CancelLoan(id, suite.farmer.ID)
	suite.Require().NoError(err)

	_, err = suite.service.ApplyForLoan(suite.farmer.ID, suite.applyRequest(20000, models.LoanTypeCrop))
	assert.NoError(suite.T(), err)
}

func (suite *LoanServiceTestSuite) TestApplyValidation() {
	req := suite.applyRequest(500, models.LoanTypeCrop)
	_, err := suite.service.ApplyForLoan(suite.farmer.ID, req)
	suite.Require().Error(err)
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	req = suite.applyRequest(10000, "tractor_loan")
	_, err = suite.service.ApplyForLoan(suite.farmer.ID, req)
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	var count int64
	suite.db.Model(&models.Loan{}).Count(&count)
	assert.Zero(suite.T(), count)
}

func (suite *LoanServiceTestSuite) TestGetLoanAccess() {
	id := suite.apply(10000)
	stranger := testutil.CreateUser(suite.T(), suite.db, "stranger@example.com", models.UserTypeBuyer)

	loan, err := suite.service.GetLoan(id, suite.farmer.ID, false)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), id, loan.ID)
	assert.Zero(suite.T(), loan.RemainingBalance)

	_, err = suite.service.GetLoan(id, stranger.ID, false)
	assert.Equal(suite.T(), apperrors.KindAccessDenied, apperrors.KindOf(err))

	_, err = suite.service.GetLoan(id, stranger.ID, true)
	assert.NoError(suite.T(), err)

	_, err = suite.service.GetLoan(uuid.New(), suite.farmer.ID, false)
	assert.ErrorIs(suite.T(), err, apperrors.ErrLoanNotFound)
}

func (suite *LoanServiceTestSuite) TestUpdateLoanMergesFields() {
	id := suite.apply(10000)
	_, err := suite.service.UpdateLoan(id, suite.farmer.ID, &UpdateLoanRequest{
		FarmDetails: &models.LoanFarmDetails{FarmSize: 4, CurrentCrops: []string{"soybean"}},
	})
	suite.Require().NoError(err)

	value := 25000.0
	loan, err := suite.service.UpdateLoan(id, suite.farmer.ID, &UpdateLoanRequest{
		Purpose:         "Drip irrigation for two acres of vegetables",
		FarmDetails:     &models.LoanFarmDetails{MarketValue: 80000},
		Collateral:      models.CollateralLand,
		CollateralValue: &value,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "Drip irrigation for two acres of vegetables", loan.Purpose)
	assert.Equal(suite.T(), 4.0, loan.FarmDetails.FarmSize)
	assert.Equal(suite.T(), []string{"soybean"}, loan.FarmDetails.CurrentCrops)
	assert.Equal(suite.T(), 80000.0, loan.FarmDetails.MarketValue)
	assert.Equal(suite.T(), models.CollateralLand, loan.Collateral)
	assert.Equal(suite.T(), 888.49, loan.MonthlyPayment)
	assert.Equal(suite.T(), loanClock.AddDate(0, 12, 0), loan.DueDate.UTC())
}

func (suite *LoanServiceTestSuite) TestUpdateAndCancelRequirePendingOwner() {
	id := suite.apply(10000)
	stranger := testutil.CreateUser(suite.T(), suite.db, "stranger@example.com", models.UserTypeFarmer)

	_, err := suite.service.CancelLoan(id, stranger.ID)
	assert.Equal(suite.T(), apperrors.KindAccessDenied, apperrors.KindOf(err))

	_, err = suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateLoan(id, suite.farmer.ID, &UpdateLoanRequest{Purpose: "A brand new purpose text"})
	assert.Equal(suite.T(), apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = suite.service.CancelLoan(id, suite.farmer.ID)
	assert.Equal(suite.T(), apperrors.KindInvalidState, apperrors.KindOf(err))
}

func (suite *LoanServiceTestSuite) TestCancelLoan() {
	id := suite.apply(10000)

	loan, err := suite.service.CancelLoan(id, suite.farmer.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.LoanStatusCancelled, loan.Status)
	assert.False(suite.T(), loan.IsActive)
}

func (suite *LoanServiceTestSuite) TestApproveWithRateOverride() {
	id := suite.apply(10000)
	rate := 0.0
	_, err := suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{InterestRate: &rate})
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err), "override below 1% is rejected")

	rate = 18
	score := 720
	loan, err := suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{
		InterestRate:   &rate,
		CreditScore:    &score,
		RiskAssessment: models.RiskLow,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.LoanStatusApproved, loan.Status)
	assert.Equal(suite.T(), 18.0, loan.InterestRate)
	assert.Equal(suite.T(), 916.80, loan.MonthlyPayment)
	assert.Equal(suite.T(), 11001.6, loan.TotalAmount)
	require.NotNil(suite.T(), loan.ApprovalDate)
	assert.Equal(suite.T(), 720, *loan.CreditScore)

	assert.Eventually(suite.T(), func() bool {
		return len(suite.notifier.sentStatuses()) == 1
	}, time.Second, 10*time.Millisecond)
}

func (suite *LoanServiceTestSuite) TestRejectLoan() {
	id := suite.apply(10000)

	_, err := suite.service.RejectLoan(id, suite.admin.ID, &RejectLoanRequest{})
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	loan, err := suite.service.RejectLoan(id, suite.admin.ID, &RejectLoanRequest{Reason: "Incomplete documents"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.LoanStatusRejected, loan.Status)
	assert.Equal(suite.T(), "Incomplete documents", loan.RejectionReason)
	assert.False(suite.T(), loan.IsActive)

	_, err = suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{})
	assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidTransition)
}

func (suite *LoanServiceTestSuite) TestDisburseBuildsSchedule() {
	id := suite.apply(10000)

	_, err := suite.service.DisburseLoan(id, suite.admin.ID)
	assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidTransition, "pending loans cannot be disbursed")

	_, err = suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{})
	suite.Require().NoError(err)

	loan, err := suite.service.DisburseLoan(id, suite.admin.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.LoanStatusActive, loan.Status)
	require.NotNil(suite.T(), loan.DisbursementDate)

	var payments []models.LoanPayment
	suite.Require().NoError(suite.db.Where("loan_id = ?", id).Order("sequence ASC").Find(&payments).Error)
	suite.Require().Len(payments, 12)

	total := 0.0
	for _, payment := range payments {
		total += payment.Amount
		assert.Equal(suite.T(), models.PaymentStatusPending, payment.Status)
	}
	assert.InDelta(suite.T(), loan.TotalAmount, total, 0.001)
	assert.Equal(suite.T(), loanClock.AddDate(0, 1, 0), payments[0].DueDate.UTC())
	assert.Equal(suite.T(), 10661.88, loan.RemainingBalance)
}

func (suite *LoanServiceTestSuite) TestRecordPaymentCompletesLoan() {
	req := suite.applyRequest(1200, models.LoanTypeCrop)
	req.Term = 3
	result, err := suite.service.ApplyForLoan(suite.farmer.ID, req)
	suite.Require().NoError(err)
	id := result.LoanID

	_, _, err = suite.service.RecordPayment(id, "cash")
	assert.Equal(suite.T(), apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = suite.service.ApproveLoan(id, suite.admin.ID, &ApproveLoanRequest{})
	suite.Require().NoError(err)
	_, err = suite.service.DisburseLoan(id, suite.admin.ID)
	suite.Require().NoError(err)

	for i := 1; i <= 3; i++ {
		loan, payment, err := suite.service.RecordPayment(id, "receipt")
		suite.Require().NoError(err)
		assert.Equal(suite.T(), i, payment.Sequence)
		assert.Equal(suite.T(), models.PaymentStatusPaid, payment.Status)
		if i < 3 {
			assert.Equal(suite.T(), models.LoanStatusActive, loan.Status)
		} else {
			assert.Equal(suite.T(), models.LoanStatusCompleted, loan.Status)
			assert.False(suite.T(), loan.IsActive)
		}
	}

	_, _, err = suite.service.RecordPayment(id, "extra")
	assert.Equal(suite.T(), apperrors.KindInvalidState, apperrors.KindOf(err))

	assert.Eventually(suite.T(), func() bool {
		return len(suite.notifier.sentPayments()) == 3
	}, time.Second, 10*time.Millisecond)
}

func (suite *LoanServiceTestSuite) TestMarkDefault() {
	id := suite.disbursed(10000)
	_, _, err := suite.service.RecordPayment(id, "first")
	suite.Require().NoError(err)

	loan, err := suite.service.MarkDefault(id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.LoanStatusDefaulted, loan.Status)
	assert.False(suite.T(), loan.IsActive)

	var counts []struct {
		Status models.PaymentStatus
		Total  int
	}
	suite.Require().NoError(suite.db.Model(&models.LoanPayment{}).
		Select("status, count(*) as total").Where("loan_id = ?", id).
		Group("status").Order("status").Scan(&counts).Error)
	suite.Require().Len(counts, 2)
	assert.Equal(suite.T(), models.PaymentStatusDefaulted, counts[0].Status)
	assert.Equal(suite.T(), 11, counts[0].Total)
	assert.Equal(suite.T(), models.PaymentStatusPaid, counts[1].Status)

	_, err = suite.service.MarkDefault(id)
	assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidTransition)
}

func (suite *LoanServiceTestSuite) TestAddNoteAndDocument() {
	id := suite.apply(10000)

	loan, err := suite.service.AddDocument(id, suite.farmer.ID, models.LoanDocument{
		Name: "land-record.pdf", Type: "application/pdf", URL: "https://cdn.example.com/land-record.pdf",
	})
	suite.Require().NoError(err)
	suite.Require().Len(loan.Documents, 1)
	assert.Equal(suite.T(), loanClock, loan.Documents[0].UploadedAt)

	_, err = suite.service.RejectLoan(id, suite.admin.ID, &RejectLoanRequest{Reason: "Land record unreadable"})
	suite.Require().NoError(err)

	loan, err = suite.service.AddNote(id, suite.admin.ID, &AddLoanNoteRequest{Content: "Asked for a clearer scan"})
	suite.Require().NoError(err)
	suite.Require().Len(loan.Notes, 1)
	assert.Equal(suite.T(), suite.admin.ID, loan.Notes[0].AuthorID)

	reloaded, err := suite.service.GetLoan(id, suite.farmer.ID, false)
	suite.Require().NoError(err)
	assert.Len(suite.T(), reloaded.Documents, 1)
	assert.Len(suite.T(), reloaded.Notes, 1)
}

func (suite *LoanServiceTestSuite) TestListLoans() {
	first := suite.apply(10000)
	_, err := suite.service.CancelLoan(first, suite.farmer.ID)
	suite.Require().NoError(err)

	suite.service.now = func() time.Time { return loanClock.Add(time.Hour) }
	second := suite.apply(20000)

	params := LoanSearchParams{
		PaginationParams: utils.NormalizePagination(utils.PaginationParams{Page: 1, Limit: 10}),
		ApplicantID:      &suite.farmer.ID,
	}
	loans, total, err := suite.service.ListLoans(params)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), total)
	suite.Require().Len(loans, 2)

	params.Status = models.LoanStatusPending
	loans, total, err = suite.service.ListLoans(params)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), total)
	assert.Equal(suite.T(), second, loans[0].ID)
}

func TestLoanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoanServiceTestSuite))
}

func TestInterestRateFor(t *testing.T) {
	tests := []struct {
		name     string
		loanType models.LoanType
		amount   float64
		want     float64
	}{
		{"standard", models.LoanTypeCrop, 50000, 12},
		{"large amount", models.LoanTypeEquipment, 150000, 14},
		{"threshold is not large", models.LoanTypeEquipment, 100000, 12},
		{"organic", models.LoanTypeOrganicFarming, 50000, 10},
		{"organic wins over large", models.LoanTypeOrganicFarming, 500000, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterestRateFor(tt.loanType, tt.amount))
		})
	}
}

func TestLoanService_Calculate(t *testing.T) {
	service := NewLoanService(nil, nil)

	calculation, err := service.Calculate(&CalculateLoanRequest{Amount: 10000, Term: 12, InterestRate: 12}, true)
	require.NoError(t, err)
	assert.Equal(t, 888.49, calculation.MonthlyPayment)
	assert.Equal(t, 10661.88, calculation.TotalAmount)
	assert.Equal(t, 661.88, calculation.TotalInterest)
	require.Len(t, calculation.Schedule, 12)
	assert.Equal(t, 0.0, calculation.Schedule[11].Balance)

	_, err = service.Calculate(&CalculateLoanRequest{Amount: 10000, Term: 12, InterestRate: 30}, false)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = service.Calculate(&CalculateLoanRequest{Amount: 500, Term: 12, InterestRate: 12}, false)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
