package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/testutil"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type ProductServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ProductService
	seller  *models.User
	buyer   *models.User
}

func (suite *ProductServiceTestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	suite.service = NewProductService(suite.db)
	suite.seller = testutil.CreateUser(suite.T(), suite.db, "seller@example.com", models.UserTypeFarmer)
	suite.buyer = testutil.CreateUser(suite.T(), suite.db, "buyer@example.com", models.UserTypeBuyer)
}

func productRequest(name string, price float64) *ProductRequest {
	quantity := 50
	return &ProductRequest{
		Name:        name,
		Category:    models.CategorySeeds,
		Description: "High germination hybrid seeds",
		Price:       &price,
		Unit:        models.UnitKg,
		Quantity:    &quantity,
		Location:    ProductLocationRequest{City: "Nashik", State: "Maharashtra"},
	}
}

func pageOne() utils.PaginationParams {
	return utils.NormalizePagination(utils.PaginationParams{Page: 1, Limit: 12})
}

func (suite *ProductServiceTestSuite) TestCreateProductDefaults() {
	product, err := suite.service.CreateProduct(suite.seller.ID, productRequest("Hybrid Tomato Seeds", 450))
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.ProductStatusActive, product.Status)
	assert.Equal(suite.T(), "INR", product.Currency)
	assert.Equal(suite.T(), 1, product.MinOrderQuantity)
	assert.Equal(suite.T(), "India", product.Location.Country)
	assert.True(suite.T(), product.Shipping.Available)
	assert.Equal(suite.T(), 3, product.Shipping.EstimatedDays)
	assert.True(suite.T(), product.IsAvailable)
	assert.Equal(suite.T(), 9.0, product.PricePerUnit)
}

func (suite *ProductServiceTestSuite) TestCreateProductValidation() {
	req := productRequest("ab", 10)
	_, err := suite.service.CreateProduct(suite.seller.ID, req)
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	req = productRequest("Hybrid Tomato Seeds", 10)
	req.Location.State = ""
	_, err = suite.service.CreateProduct(suite.seller.ID, req)
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	req = productRequest("Hybrid Tomato Seeds", -1)
	_, err = suite.service.CreateProduct(suite.seller.ID, req)
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	req = productRequest("Free Cow Dung Manure", 0)
	_, err = suite.service.CreateProduct(suite.seller.ID, req)
	assert.NoError(suite.T(), err, "zero price is allowed")
}

func (suite *ProductServiceTestSuite) TestGetProductIncrementsViews() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)

	for i := 1; i <= 3; i++ {
		fetched, err := suite.service.GetProduct(product.ID)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), int64(i), fetched.Views)
	}

	suite.Require().NoError(suite.service.DeleteProduct(product.ID, suite.seller.ID))
	_, err := suite.service.GetProduct(product.ID)
	assert.ErrorIs(suite.T(), err, apperrors.ErrProductNotFound)

	var stored models.Product
	suite.Require().NoError(suite.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(suite.T(), int64(3), stored.Views, "failed fetches do not count")
}

func (suite *ProductServiceTestSuite) TestUpdateAndDeleteRequireOwner() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)

	_, err := suite.service.UpdateProduct(product.ID, suite.buyer.ID, productRequest("Basmati Rice Premium", 95))
	assert.Equal(suite.T(), apperrors.KindAccessDenied, apperrors.KindOf(err))

	err = suite.service.DeleteProduct(product.ID, suite.buyer.ID)
	assert.Equal(suite.T(), apperrors.KindAccessDenied, apperrors.KindOf(err))

	req := productRequest("Basmati Rice Premium", 95)
	req.Status = models.ProductStatusOutOfStock
	updated, err := suite.service.UpdateProduct(product.ID, suite.seller.ID, req)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Basmati Rice Premium", updated.Name)
	assert.Equal(suite.T(), 95.0, updated.Price)
	assert.Equal(suite.T(), models.ProductStatusOutOfStock, updated.Status)
	assert.False(suite.T(), updated.IsAvailable)
}

func (suite *ProductServiceTestSuite) TestUpdateKeepsConcurrentCounters() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)

	// Simulate a view, a review and a favorite landing after UpdateProduct
	// has read the row but before it writes it back.
	injected := false
	err := suite.db.Callback().Update().Before("gorm:update").Register("test:concurrent_counters", func(tx *gorm.DB) {
		if injected || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "products" {
			return
		}
		injected = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"UPDATE products SET views = views + 5, rating_average = 4, rating_count = 1, favorites_count = 2 WHERE id = ?",
			product.ID)
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateProduct(product.ID, suite.seller.ID, productRequest("Basmati Rice Premium", 95))
	suite.Require().NoError(err)
	suite.Require().True(injected)

	var stored models.Product
	suite.Require().NoError(suite.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(suite.T(), "Basmati Rice Premium", stored.Name)
	assert.Equal(suite.T(), 95.0, stored.Price)
	assert.Equal(suite.T(), int64(5), stored.Views)
	assert.Equal(suite.T(), 4.0, stored.Rating.Average)
	assert.Equal(suite.T(), int64(1), stored.Rating.Count)
	assert.Equal(suite.T(), int64(2), stored.FavoritesCount)
}

func (suite *ProductServiceTestSuite) TestSearchMatchesWildcardsLiterally() {
	testutil.CreateProduct(suite.T(), suite.db, suite.seller, "100% Pure Honey", 300)
	testutil.CreateProduct(suite.T(), suite.db, suite.seller, "1000 Seed Pack", 50)
	testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Cow_Dung Manure", 20)
	testutil.CreateProduct(suite.T(), suite.db, suite.seller, "CowXDung Compost", 20)

	for search, want := range map[string]string{"100%": "100% Pure Honey", "cow_dung": "Cow_Dung Manure"} {
		params := ProductSearchParams{PaginationParams: pageOne()}
		params.Search = search
		products, total, err := suite.service.SearchProducts(params)
		suite.Require().NoError(err, search)
		suite.Require().Len(products, 1, search)
		assert.Equal(suite.T(), int64(1), total, search)
		assert.Equal(suite.T(), want, products[0].Name, search)
	}
}

func (suite *ProductServiceTestSuite) TestSearchProducts() {
	organic := productRequest("Organic Wheat", 40)
	organic.Category = models.CategoryCrops
	organic.Specifications.Organic = true
	organic.Location.City = "Indore"
	_, err := suite.service.CreateProduct(suite.seller.ID, organic)
	suite.Require().NoError(err)

	_, err = suite.service.CreateProduct(suite.seller.ID, productRequest("Tomato Seeds", 450))
	suite.Require().NoError(err)
	_, err = suite.service.CreateProduct(suite.seller.ID, productRequest("Chilli Seeds", 300))
	suite.Require().NoError(err)

	hidden := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Hidden Seeds", 10)
	suite.Require().NoError(suite.db.Model(hidden).Update("status", models.ProductStatusInactive).Error)

	tests := []struct {
		name   string
		params ProductSearchParams
		want   []string
		total  int64
	}{
		{
			name:   "price ascending",
			params: ProductSearchParams{PaginationParams: utils.PaginationParams{Sort: "price", Order: "asc"}},
			want:   []string{"Organic Wheat", "Chilli Seeds", "Tomato Seeds"},
			total:  3,
		},
		{
			name:   "category",
			params: ProductSearchParams{Category: "seeds", PaginationParams: utils.PaginationParams{Sort: "name", Order: "asc"}},
			want:   []string{"Chilli Seeds", "Tomato Seeds"},
			total:  2,
		},
		{
			name:   "organic flag",
			params: ProductSearchParams{Organic: boolPtr(true)},
			want:   []string{"Organic Wheat"},
			total:  1,
		},
		{
			name:   "price range",
			params: ProductSearchParams{MinPrice: floatPtr(100), MaxPrice: floatPtr(400)},
			want:   []string{"Chilli Seeds"},
			total:  1,
		},
		{
			name:   "city substring ignores case",
			params: ProductSearchParams{Location: "indo"},
			want:   []string{"Organic Wheat"},
			total:  1,
		},
		{
			name:   "text search over name",
			params: ProductSearchParams{PaginationParams: utils.PaginationParams{Search: "TOMATO"}},
			want:   []string{"Tomato Seeds"},
			total:  1,
		},
		{
			name:   "paged",
			params: ProductSearchParams{PaginationParams: utils.PaginationParams{Page: 2, Limit: 2, Sort: "price", Order: "desc"}},
			want:   []string{"Organic Wheat"},
			total:  3,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			tt.params.PaginationParams = utils.NormalizePagination(tt.params.PaginationParams)
			products, total, err := suite.service.SearchProducts(tt.params)
			suite.Require().NoError(err)

			names := make([]string, len(products))
			for i, product := range products {
				names[i] = product.Name
			}
			assert.Equal(suite.T(), tt.want, names)
			assert.Equal(suite.T(), tt.total, total)
		})
	}
}

func (suite *ProductServiceTestSuite) TestListSellerProductsSkipsDeleted() {
	kept := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)
	gone := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Old Stock", 10)
	testutil.CreateProduct(suite.T(), suite.db, suite.buyer, "Someone Else", 10)
	suite.Require().NoError(suite.service.DeleteProduct(gone.ID, suite.seller.ID))

	products, total, err := suite.service.ListSellerProducts(suite.seller.ID, pageOne())
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), total)
	suite.Require().Len(products, 1)
	assert.Equal(suite.T(), kept.ID, products[0].ID)
}

func (suite *ProductServiceTestSuite) TestToggleFavorite() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)

	result, err := suite.service.ToggleFavorite(product.ID, suite.buyer.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), &FavoriteResult{IsFavorited: true, FavoritesCount: 1}, result)

	result, err = suite.service.ToggleFavorite(product.ID, suite.seller.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), result.FavoritesCount)

	result, err = suite.service.ToggleFavorite(product.ID, suite.buyer.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), &FavoriteResult{IsFavorited: false, FavoritesCount: 1}, result)

	_, err = suite.service.ToggleFavorite(uuid.New(), suite.buyer.ID)
	assert.ErrorIs(suite.T(), err, apperrors.ErrProductNotFound)
}

func (suite *ProductServiceTestSuite) TestReviewsRecomputeRating() {
	product := testutil.CreateProduct(suite.T(), suite.db, suite.seller, "Basmati Rice", 90)
	second := testutil.CreateUser(suite.T(), suite.db, "second@example.com", models.UserTypeBuyer)
	third := testutil.CreateUser(suite.T(), suite.db, "third@example.com", models.UserTypeFarmer)

	summary, err := suite.service.AddReview(product.ID, suite.buyer.ID, &ReviewRequest{Rating: 5, Comment: "Excellent aroma"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), &RatingSummary{AverageRating: 5, TotalReviews: 1}, summary)

	_, err = suite.service.AddReview(product.ID, second.ID, &ReviewRequest{Rating: 4})
	suite.Require().NoError(err)
	summary, err = suite.service.AddReview(product.ID, third.ID, &ReviewRequest{Rating: 4})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), &RatingSummary{AverageRating: 4.3, TotalReviews: 3}, summary)

	var stored models.Product
	suite.Require().NoError(suite.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(suite.T(), 4.33, stored.Rating.Average)
	assert.Equal(suite.T(), int64(3), stored.Rating.Count)

	_, err = suite.service.AddReview(product.ID, suite.buyer.ID, &ReviewRequest{Rating: 1})
	assert.ErrorIs(suite.T(), err, apperrors.ErrAlreadyReviewed)
	assert.Equal(suite.T(), apperrors.KindAlreadyReviewed, apperrors.KindOf(err))

	_, err = suite.service.AddReview(product.ID, suite.seller.ID, &ReviewRequest{Rating: 5})
	assert.ErrorIs(suite.T(), err, apperrors.ErrOwnProductReview)

	_, err = suite.service.AddReview(product.ID, second.ID, &ReviewRequest{Rating: 6})
	assert.Equal(suite.T(), apperrors.KindValidation, apperrors.KindOf(err))

	reviews, total, err := suite.service.ListReviews(product.ID, pageOne())
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), total)
	suite.Require().Len(reviews, 3)

	var buyerReview models.ProductReview
	suite.Require().NoError(suite.db.First(&buyerReview, "product_id = ? AND user_id = ?", product.ID, suite.buyer.ID).Error)

	_, err = suite.service.DeleteReview(product.ID, buyerReview.ID, second.ID, false)
	assert.Equal(suite.T(), apperrors.KindAccessDenied, apperrors.KindOf(err))

	summary, err = suite.service.DeleteReview(product.ID, buyerReview.ID, suite.buyer.ID, false)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), &RatingSummary{AverageRating: 4, TotalReviews: 2}, summary)

	_, err = suite.service.DeleteReview(product.ID, buyerReview.ID, suite.buyer.ID, false)
	assert.ErrorIs(suite.T(), err, apperrors.ErrReviewNotFound)
}

func (suite *ProductServiceTestSuite) TestReviewMissingProduct() {
	_, err := suite.service.AddReview(uuid.New(), suite.buyer.ID, &ReviewRequest{Rating: 4})
	assert.ErrorIs(suite.T(), err, apperrors.ErrProductNotFound)
}

func TestProductServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceTestSuite))
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }
