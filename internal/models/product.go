// internal/models/product.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

type ProductSpecifications struct {
	Brand          string     `json:"brand,omitempty" gorm:"size:100"`
	Model          string     `json:"model,omitempty" gorm:"size:100"`
	Weight         string     `json:"weight,omitempty" gorm:"size:50"`
	Dimensions     string     `json:"dimensions,omitempty" gorm:"size:100"`
	ExpiryDate     *time.Time `json:"expiryDate,omitempty"`
	Organic        bool       `json:"organic" gorm:"not null;index"`
	Certifications []string   `json:"certifications,omitempty" gorm:"serializer:json;type:jsonb"`
}

type ProductLocation struct {
	City      string   `json:"city" gorm:"size:100;not null;index"`
	State     string   `json:"state" gorm:"size:100;not null"`
	Country   string   `json:"country" gorm:"size:100;not null"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type ShippingTerms struct {
	Available     bool    `json:"available" gorm:"not null"`
	Cost          float64 `json:"cost" gorm:"type:decimal(10,2);not null"`
	EstimatedDays int     `json:"estimatedDays" gorm:"not null"`
}

type ProductRating struct {
	Average float64 `json:"average" gorm:"type:decimal(3,2);not null"`
	Count   int64   `json:"count" gorm:"not null"`
}

type Product struct {
	BaseModel
	SellerID         uuid.UUID             `json:"sellerId" gorm:"type:uuid;not null;index"`
	Name             string                `json:"name" gorm:"size:100;not null"`
	Category         ProductCategory       `json:"category" gorm:"type:varchar(20);not null;index"`
	Subcategory      string                `json:"subcategory,omitempty" gorm:"size:100"`
	Description      string                `json:"description" gorm:"type:text;not null"`
	Price            float64               `json:"price" gorm:"type:decimal(12,2);not null;index"`
	Currency         string                `json:"currency" gorm:"size:3;not null"`
	Unit             ProductUnit           `json:"unit" gorm:"type:varchar(20);not null"`
	Quantity         int                   `json:"quantity" gorm:"not null"`
	MinOrderQuantity int                   `json:"minOrderQuantity" gorm:"not null"`
	Images           []ProductImage        `json:"images" gorm:"serializer:json;type:jsonb"`
	Specifications   ProductSpecifications `json:"specifications" gorm:"embedded;embeddedPrefix:spec_"`
	Location         ProductLocation       `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Shipping         ShippingTerms         `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Rating           ProductRating         `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`
	Status           ProductStatus         `json:"status" gorm:"type:varchar(20);not null;index"`
	Tags             []string              `json:"tags" gorm:"serializer:json;type:jsonb"`
	Featured         bool                  `json:"featured" gorm:"not null;index"`
	Views            int64                 `json:"views" gorm:"not null"`
	FavoritesCount   int64                 `json:"favoritesCount" gorm:"not null"`

	// Relationships
	Seller  *User           `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Reviews []ProductReview `json:"reviews,omitempty" gorm:"foreignKey:ProductID"`

	// Read-only views, filled by Decorate
	IsAvailable  bool    `json:"isAvailable" gorm:"-"`
	PricePerUnit float64 `json:"pricePerUnit" gorm:"-"`
}

// ProductFavorite links a user to a product they marked as favorite.
type ProductFavorite struct {
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Product) Decorate() {
	p.IsAvailable = p.Status == ProductStatusActive && p.Quantity > 0
	p.PricePerUnit = 0
	if p.Quantity > 0 {
		p.PricePerUnit = p.Price / float64(p.Quantity)
	}
}
