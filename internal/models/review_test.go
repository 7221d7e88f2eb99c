package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		average float64
		count   int64
	}{
		{"no reviews", nil, 0, 0},
		{"single review", []int{4}, 4, 1},
		{"repeating average", []int{5, 4, 4}, 4.33, 3},
		{"half rounds up", []int{5, 4, 4, 4, 4, 4, 4, 4}, 4.13, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]ProductReview, len(tt.ratings))
			for i, r := range tt.ratings {
				reviews[i] = ProductReview{Rating: r}
			}

			rating := ComputeRating(reviews)
			assert.Equal(t, tt.average, rating.Average)
			assert.Equal(t, tt.count, rating.Count)
		})
	}
}

func TestProduct_ApplyRatingAndDecorate(t *testing.T) {
	product := &Product{
		Price:    250,
		Currency: "INR",
		Unit:     UnitKg,
		Quantity: 10,
		Status:   ProductStatusActive,
	}

	product.ApplyRating([]ProductReview{{Rating: 3}, {Rating: 5}})
	product.Decorate()

	assert.Equal(t, 4.0, product.Rating.Average)
	assert.Equal(t, int64(2), product.Rating.Count)
	assert.True(t, product.IsAvailable)
	assert.Equal(t, 25.0, product.PricePerUnit)

	product.Quantity = 0
	product.Decorate()
	assert.False(t, product.IsAvailable)
	assert.Zero(t, product.PricePerUnit)
}

func TestUser_Password(t *testing.T) {
	user := &User{}
	assert.NoError(t, user.SetPassword("secret123"))
	assert.NoError(t, user.CheckPassword("secret123"))
	assert.Error(t, user.CheckPassword("wrong"))
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestJSONB_Scan(t *testing.T) {
	var fromBytes JSONB
	assert.NoError(t, fromBytes.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, float64(1), fromBytes["a"])

	var fromString JSONB
	assert.NoError(t, fromString.Scan(`{"b":"x"}`))
	assert.Equal(t, "x", fromString["b"])

	var fromNil JSONB
	assert.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	assert.Error(t, fromNil.Scan(42))
}
