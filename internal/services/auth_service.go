// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/oauth"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

// WelcomeNotifier greets newly registered users.
type WelcomeNotifier interface {
	SendWelcomeEmail(user *models.User) error
}

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	google   oauth.GoogleVerifier
	notifier WelcomeNotifier
	now      func() time.Time
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Self-registration is limited to farmers and buyers. Admins are seeded.
type RegisterRequest struct {
	FirstName   string              `json:"firstName" validate:"required,min=2,max=50"`
	LastName    string              `json:"lastName" validate:"required,min=2,max=50"`
	Email       string              `json:"email" validate:"required,email,max=255"`
	Password    string              `json:"password" validate:"required,min=6,max=128"`
	Phone       string              `json:"phone,omitempty" validate:"omitempty,phone"`
	UserType    models.UserType     `json:"userType,omitempty" validate:"omitempty,oneof=farmer buyer"`
	Address     *models.Address     `json:"address,omitempty"`
	FarmDetails *models.FarmProfile `json:"farmDetails,omitempty"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName   string              `json:"firstName,omitempty" validate:"omitempty,min=2,max=50"`
	LastName    string              `json:"lastName,omitempty" validate:"omitempty,min=2,max=50"`
	Phone       string              `json:"phone,omitempty" validate:"omitempty,phone"`
	Avatar      string              `json:"avatar,omitempty" validate:"omitempty,url,max=500"`
	Address     *models.Address     `json:"address,omitempty"`
	FarmDetails *models.FarmProfile `json:"farmDetails,omitempty"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config, google oauth.GoogleVerifier, notifier WelcomeNotifier) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		google:   google,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	email := models.NormalizeEmail(req.Email)

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to check email: %w", err))
	}
	if count > 0 {
		return nil, apperrors.UserExists()
	}

	userType := req.UserType
	if userType == "" {
		userType = models.UserTypeFarmer
	}

	user := &models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Phone:       req.Phone,
		UserType:    userType,
		FarmDetails: req.FarmDetails,
		IsActive:    true,
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if user.Address.Country == "" {
		user.Address.Country = "India"
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.UserExists()
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"user_type": user.UserType,
	}).Info("User registered")

	s.sendWelcome(user)

	return s.issueTokens(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	var user models.User
	if err := s.db.Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.InvalidCredentials()
	}

	if !user.IsActive {
		return nil, apperrors.AccountInactive()
	}

	if err := s.touchLastLogin(&user); err != nil {
		return nil, err
	}

	return s.issueTokens(&user)
}

// GoogleLogin verifies a Google Sign-In credential and signs in the matching
// account, linking it by email or creating a farmer account on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, req *GoogleLoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	if s.google == nil {
		return nil, apperrors.ServiceUnavailable("Google login", apperrors.ErrNotConfigured)
	}

	identity, err := s.google.Verify(ctx, req.Credential)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Unauthorized("Invalid Google credential", err)
	}
	if identity.Email == "" {
		return nil, apperrors.Unauthorized("Google account has no email address", nil)
	}

	user, created, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.AccountInactive()
	}

	if err := s.touchLastLogin(user); err != nil {
		return nil, err
	}

	if created {
		s.sendWelcome(user)
	}

	return s.issueTokens(user)
}

func (s *AuthService) RefreshToken(req *RefreshTokenRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	userIDStr, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err)
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.AccountInactive()
	}

	return s.issueTokens(user)
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.UserNotFound(userID.String())
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get user: %w", err))
	}
	return &user, nil
}

func (s *AuthService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		user.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		user.LastName = strings.TrimSpace(req.LastName)
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.FarmDetails != nil {
		user.FarmDetails = req.FarmDetails
	}

	if err := s.db.Omit(clause.Associations).Save(user).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update profile: %w", err))
	}

	return user, nil
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, identity *oauth.GoogleIdentity) (*models.User, bool, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("google_id = ?", identity.Subject).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	err = db.Where("email = ?", identity.Email).First(&user).Error
	switch {
	case err == nil:
		user.GoogleID = &identity.Subject
		user.IsVerified = user.IsVerified || identity.EmailVerified
		if user.Avatar == "" {
			user.Avatar = identity.Picture
		}
		if err := db.Omit(clause.Associations).Save(&user).Error; err != nil {
			return nil, false, apperrors.Internal(fmt.Errorf("failed to link Google account: %w", err))
		}
		logrus.WithField("user_id", user.ID).Info("Google account linked")
		return &user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, apperrors.Internal(fmt.Errorf("failed to find user: %w", err))
	}

	password, err := utils.GenerateRandomString(32)
	if err != nil {
		return nil, false, apperrors.Internal(fmt.Errorf("failed to generate password: %w", err))
	}

	user = models.User{
		FirstName:  fallback(identity.GivenName, "Google"),
		LastName:   fallback(identity.FamilyName, "User"),
		Email:      identity.Email,
		UserType:   models.UserTypeFarmer,
		GoogleID:   &identity.Subject,
		Avatar:     identity.Picture,
		Address:    models.Address{Country: "India"},
		IsActive:   true,
		IsVerified: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, false, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, false, apperrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	logrus.WithField("user_id", user.ID).Info("User registered with Google")
	return &user, true, nil
}

func (s *AuthService) touchLastLogin(user *models.User) error {
	now := s.now()
	err := s.db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("last_login", now).Error
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to update last login: %w", err))
	}
	user.LastLogin = &now
	return nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.UserType), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate access token: %w", err))
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate refresh token: %w", err))
	}

	return &AuthResponse{
		User:         user,
		Token:        accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

func (s *AuthService) sendWelcome(user *models.User) {
	if s.notifier == nil {
		return
	}

	recipient := *user
	go func() {
		if err := s.notifier.SendWelcomeEmail(&recipient); err != nil {
			logrus.WithError(err).WithField("user_id", recipient.ID).Warn("Failed to send welcome email")
		}
	}()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
