// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/finance"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type AdminService struct {
	db  *gorm.DB
	now func() time.Time
}

type AdminDashboardStats struct {
	TotalUsers         int64                          `json:"totalUsers"`
	ActiveUsers        int64                          `json:"activeUsers"`
	NewUsersThisMonth  int64                          `json:"newUsersThisMonth"`
	UsersByType        map[models.UserType]int64      `json:"usersByType"`
	ProductsByStatus   map[models.ProductStatus]int64 `json:"productsByStatus"`
	LoansByStatus      map[models.LoanStatus]int64    `json:"loansByStatus"`
	DisbursedPrincipal float64                        `json:"disbursedPrincipal"`
	OutstandingBalance float64                        `json:"outstandingBalance"`
	OverdueAmount      float64                        `json:"overdueAmount"`
	UserGrowth         float64                        `json:"userGrowth"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	UserType *models.UserType `json:"userType,omitempty"`
	IsActive *bool            `json:"isActive,omitempty"`
}

type UpdateUserStatusRequest struct {
	IsActive *bool  `json:"isActive" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"max=500"`
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{
		db:  db,
		now: time.Now,
	}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{
		UsersByType:      map[models.UserType]int64{},
		ProductsByStatus: map[models.ProductStatus]int64{},
		LoansByStatus:    map[models.LoanStatus]int64{},
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	// User statistics
	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to count users: %w", err))
	}
	s.db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers)
	s.db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth)

	users, err := s.countBy(&models.User{}, "user_type")
	if err != nil {
		return nil, err
	}
	for _, row := range users {
		stats.UsersByType[models.UserType(row.GroupKey)] = row.Count
	}

	// Marketplace statistics
	products, err := s.countBy(&models.Product{}, "status")
	if err != nil {
		return nil, err
	}
	for _, row := range products {
		stats.ProductsByStatus[models.ProductStatus(row.GroupKey)] = row.Count
	}

	// Loan statistics
	loans, err := s.countBy(&models.Loan{}, "status")
	if err != nil {
		return nil, err
	}
	for _, row := range loans {
		stats.LoansByStatus[models.LoanStatus(row.GroupKey)] = row.Count
	}

	disbursed := []models.LoanStatus{models.LoanStatusActive, models.LoanStatusCompleted, models.LoanStatusDefaulted}
	s.db.Model(&models.Loan{}).
		Where("status IN ?", disbursed).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.DisbursedPrincipal)

	activeLoans := s.db.Model(&models.Loan{}).Select("id").Where("status = ?", models.LoanStatusActive)
	s.db.Model(&models.LoanPayment{}).
		Where("status IN ? AND loan_id IN (?)", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue}, activeLoans).
		Select("COALESCE(SUM(amount + late_fees), 0)").Scan(&stats.OutstandingBalance)
	s.db.Model(&models.LoanPayment{}).
		Where("status = ? AND loan_id IN (?)", models.PaymentStatusOverdue, activeLoans).
		Select("COALESCE(SUM(amount + late_fees), 0)").Scan(&stats.OverdueAmount)

	stats.DisbursedPrincipal = finance.RoundMoney(stats.DisbursedPrincipal)
	stats.OutstandingBalance = finance.RoundMoney(stats.OutstandingBalance)
	stats.OverdueAmount = finance.RoundMoney(stats.OverdueAmount)

	// Growth calculations
	var lastMonthUsers int64
	s.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthUsers)

	if lastMonthUsers > 0 {
		stats.UserGrowth = finance.RoundMoney(float64(stats.NewUsersThisMonth-lastMonthUsers) / float64(lastMonthUsers) * 100)
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if filter.UserType != nil {
		query = query.Where("user_type = ?", *filter.UserType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		searchTerm := likePattern(filter.Search)
		query = query.Where("(LOWER(first_name) LIKE ?"+likeEscape+" OR LOWER(last_name) LIKE ?"+likeEscape+" OR LOWER(email) LIKE ?"+likeEscape+")",
			searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to count users: %w", err))
	}

	allowedSortFields := []string{"created_at", "updated_at", "first_name", "email", "user_type", "last_login"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to fetch users: %w", err))
	}

	return users, total, nil
}

// UpdateUserStatus activates or deactivates an account. Admins cannot
// deactivate themselves or other admins.
func (s *AdminService) UpdateUserStatus(userID, adminID uuid.UUID, req *UpdateUserStatusRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.UserNotFound(userID.String())
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get user: %w", err))
	}

	if user.IsAdmin() && !*req.IsActive {
		return nil, apperrors.AccessDenied("admin account")
	}

	if user.IsActive == *req.IsActive {
		return &user, nil
	}

	if err := s.db.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update user status: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"admin_id":  adminID,
		"is_active": *req.IsActive,
		"reason":    req.Reason,
	}).Info("User status updated")

	return &user, nil
}

func (s *AdminService) countBy(model interface{}, column string) ([]groupCount, error) {
	var rows []groupCount
	err := s.db.Model(model).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to group by %s: %w", column, err))
	}
	return rows, nil
}
