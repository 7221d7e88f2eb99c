// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/models"
)

// NewTestDB returns a migrated in-memory database bound to a single connection.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts an active, verified user of the given type.
func CreateUser(t *testing.T, db *gorm.DB, email string, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		FirstName:  "Test",
		LastName:   "User",
		Email:      models.NormalizeEmail(email),
		UserType:   userType,
		IsActive:   true,
		IsVerified: true,
		Address:    models.Address{City: "Pune", State: "Maharashtra", Country: "India"},
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts an active product listed by seller.
func CreateProduct(t *testing.T, db *gorm.DB, seller *models.User, name string, price float64) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID:         seller.ID,
		Name:             name,
		Category:         models.CategoryCrops,
		Description:      name + " fresh from the farm",
		Price:            price,
		Currency:         "INR",
		Unit:             models.UnitKg,
		Quantity:         100,
		MinOrderQuantity: 1,
		Status:           models.ProductStatusActive,
		Location:         models.ProductLocation{City: "Pune", State: "Maharashtra", Country: "India"},
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
