// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}

	return json.Unmarshal(data, j)
}

// Enums
type UserType string

const (
	UserTypeFarmer UserType = "farmer"
	UserTypeBuyer  UserType = "buyer"
	UserTypeAdmin  UserType = "admin"
)

type LoanType string

const (
	LoanTypeCrop           LoanType = "crop_loan"
	LoanTypeEquipment      LoanType = "equipment_loan"
	LoanTypeInfrastructure LoanType = "infrastructure_loan"
	LoanTypeLivestock      LoanType = "livestock_loan"
	LoanTypeOrganicFarming LoanType = "organic_farming_loan"
	LoanTypeEmergency      LoanType = "emergency_loan"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusCancelled LoanStatus = "cancelled"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// OpenLoanStatuses are the statuses that count towards the one-loan limit.
var OpenLoanStatuses = []LoanStatus{LoanStatusPending, LoanStatusApproved, LoanStatusActive}

type CollateralType string

const (
	CollateralNone      CollateralType = "none"
	CollateralLand      CollateralType = "land"
	CollateralEquipment CollateralType = "equipment"
	CollateralLivestock CollateralType = "livestock"
	CollateralCrops     CollateralType = "crops"
	CollateralOther     CollateralType = "other"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusDefaulted PaymentStatus = "defaulted"
)

type ProductCategory string

const (
	CategorySeeds       ProductCategory = "seeds"
	CategoryFertilizers ProductCategory = "fertilizers"
	CategoryPesticides  ProductCategory = "pesticides"
	CategoryTools       ProductCategory = "tools"
	CategoryMachinery   ProductCategory = "machinery"
	CategoryCrops       ProductCategory = "crops"
	CategoryLivestock   ProductCategory = "livestock"
	CategoryOrganic     ProductCategory = "organic"
	CategoryOther       ProductCategory = "other"
)

var ProductCategories = []ProductCategory{
	CategorySeeds, CategoryFertilizers, CategoryPesticides, CategoryTools, CategoryMachinery,
	CategoryCrops, CategoryLivestock, CategoryOrganic, CategoryOther,
}

type ProductUnit string

const (
	UnitKg       ProductUnit = "kg"
	UnitGram     ProductUnit = "g"
	UnitLiters   ProductUnit = "liters"
	UnitPieces   ProductUnit = "pieces"
	UnitAcres    ProductUnit = "acres"
	UnitHectares ProductUnit = "hectares"
	UnitBags     ProductUnit = "bags"
	UnitTons     ProductUnit = "tons"
)

var ProductUnits = []ProductUnit{
	UnitKg, UnitGram, UnitLiters, UnitPieces, UnitAcres, UnitHectares, UnitBags, UnitTons,
}

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusInactive   ProductStatus = "inactive"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
	ProductStatusDeleted    ProductStatus = "deleted"
)
