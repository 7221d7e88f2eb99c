// internal/models/review.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductReview struct {
	BaseModel
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_product_reviews_product_user"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_product_reviews_product_user"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment,omitempty" gorm:"size:500"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ComputeRating derives the aggregate rating from the full review set.
func ComputeRating(reviews []ProductReview) ProductRating {
	if len(reviews) == 0 {
		return ProductRating{}
	}

	sum := int64(0)
	for _, review := range reviews {
		sum += int64(review.Rating)
	}

	count := int64(len(reviews))
	average := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(2)

	return ProductRating{
		Average: average.InexactFloat64(),
		Count:   count,
	}
}

// ApplyRating recomputes the product rating from reviews.
func (p *Product) ApplyRating(reviews []ProductReview) {
	p.Rating = ComputeRating(reviews)
}
