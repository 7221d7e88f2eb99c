package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/testutil"
)

func TestSeedAdmin_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)

	created, err := database.SeedAdmin(db, " Admin@AgriLink.dev ", "changeme123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = database.SeedAdmin(db, "other@agrilink.dev", "changeme123")
	require.NoError(t, err)
	assert.False(t, created)

	var admin models.User
	require.NoError(t, db.Where("user_type = ?", models.UserTypeAdmin).First(&admin).Error)
	assert.Equal(t, "admin@agrilink.dev", admin.Email)
	assert.True(t, admin.IsActive)
	assert.NoError(t, admin.CheckPassword("changeme123"))
}

func TestRunMigrations_OneOpenLoanPerApplicant(t *testing.T) {
	db := testutil.NewTestDB(t)
	farmer := testutil.CreateUser(t, db, "farmer@example.com", models.UserTypeFarmer)

	first := &models.Loan{ApplicantID: farmer.ID, LoanType: models.LoanTypeCrop, Status: models.LoanStatusPending, IsActive: true}
	require.NoError(t, db.Create(first).Error)

	second := &models.Loan{ApplicantID: farmer.ID, LoanType: models.LoanTypeCrop, Status: models.LoanStatusApproved, IsActive: true}
	assert.Error(t, db.Create(second).Error)

	closed := &models.Loan{ApplicantID: farmer.ID, LoanType: models.LoanTypeCrop, Status: models.LoanStatusRejected}
	assert.NoError(t, db.Create(closed).Error)
}
