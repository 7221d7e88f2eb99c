// internal/models/user.go
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
	Country string `json:"country,omitempty"`
}

type FarmProfile struct {
	FarmSize       float64  `json:"farmSize,omitempty"`
	FarmType       string   `json:"farmType,omitempty"`
	Crops          []string `json:"crops,omitempty"`
	SoilType       string   `json:"soilType,omitempty"`
	IrrigationType string   `json:"irrigationType,omitempty"`
}

type User struct {
	BaseModel
	FirstName    string       `json:"firstName" gorm:"size:50;not null"`
	LastName     string       `json:"lastName" gorm:"size:50;not null"`
	Email        string       `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string       `json:"-" gorm:"size:255;not null"`
	Phone        string       `json:"phone,omitempty" gorm:"size:20"`
	UserType     UserType     `json:"userType" gorm:"type:varchar(20);not null;index"`
	Address      Address      `json:"address" gorm:"serializer:json;type:jsonb"`
	FarmDetails  *FarmProfile `json:"farmDetails,omitempty" gorm:"serializer:json;type:jsonb"`
	GoogleID     *string      `json:"-" gorm:"uniqueIndex;size:64"`
	Avatar       string       `json:"avatar,omitempty" gorm:"size:500"`
	IsActive     bool         `json:"isActive" gorm:"not null"`
	IsVerified   bool         `json:"isVerified" gorm:"not null"`
	LastLogin    *time.Time   `json:"lastLogin,omitempty"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
