// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type UserService struct {
	db             *gorm.DB
	storageService *StorageService
}

// PublicProfile is what buyers see about a seller.
type PublicProfile struct {
	ID             uuid.UUID       `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	UserType       models.UserType `json:"userType"`
	Avatar         string          `json:"avatar,omitempty"`
	City           string          `json:"city,omitempty"`
	State          string          `json:"state,omitempty"`
	IsVerified     bool            `json:"isVerified"`
	ActiveProducts int64           `json:"activeProducts"`
	MemberSince    string          `json:"memberSince"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func NewUserService(db *gorm.DB, storageService *StorageService) *UserService {
	return &UserService{
		db:             db,
		storageService: storageService,
	}
}

func (s *UserService) GetPublicProfile(userID uuid.UUID) (*PublicProfile, error) {
	user, err := s.findActive(userID)
	if err != nil {
		return nil, err
	}

	profile := &PublicProfile{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		UserType:    user.UserType,
		Avatar:      user.Avatar,
		City:        user.Address.City,
		State:       user.Address.State,
		IsVerified:  user.IsVerified,
		MemberSince: user.CreatedAt.Format("2006-01"),
	}

	err = s.db.Model(&models.Product{}).
		Where("seller_id = ? AND status = ?", userID, models.ProductStatusActive).
		Count(&profile.ActiveProducts).Error
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to count products: %w", err))
	}

	return profile, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.User, error) {
	user, err := s.findActive(userID)
	if err != nil {
		return nil, err
	}

	result, err := s.storageService.UploadFile(ctx, file, header, s.storageService.GetDefaultUploadOptions(UploadCategoryAvatars))
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(user).Update("avatar", result.URL).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update avatar: %w", err))
	}

	return user, nil
}

// DeleteAccount deactivates the caller's account once they have no open
// loans. Their listings are withdrawn.
func (s *UserService) DeleteAccount(userID uuid.UUID, req *DeleteAccountRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return apperrors.WrapValidation(err)
	}

	user, err := s.findActive(userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return apperrors.InvalidCredentials()
	}

	var openLoans int64
	s.db.Model(&models.Loan{}).
		Where("applicant_id = ? AND status IN ?", userID, models.OpenLoanStatuses).
		Count(&openLoans)
	if openLoans > 0 {
		return apperrors.InvalidState("Accounts with open loans cannot be deleted")
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("seller_id = ? AND status <> ?", userID, models.ProductStatusDeleted).
			Update("status", models.ProductStatusDeleted).Error; err != nil {
			return err
		}
		return tx.Model(user).Update("is_active", false).Error
	})
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to delete account: %w", err))
	}

	logrus.WithField("user_id", userID).Info("Account deleted")
	return nil
}

func (s *UserService) findActive(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ? AND is_active = ?", userID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.UserNotFound(userID.String())
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get user: %w", err))
	}
	return &user, nil
}
