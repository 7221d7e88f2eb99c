// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

var productSortFields = []string{"created_at", "price", "name", "rating_average", "views"}

// productSortAliases accepts the camelCase keys clients send.
var productSortAliases = map[string]string{
	"createdAt": "created_at",
	"rating":    "rating_average",
}

type ProductService struct {
	db *gorm.DB
}

type ProductLocationRequest struct {
	City      string   `json:"city" validate:"required,max=100"`
	State     string   `json:"state" validate:"required,max=100"`
	Country   string   `json:"country,omitempty" validate:"max=100"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

type ProductRequest struct {
	Name             string                       `json:"name" validate:"required,min=3,max=100"`
	Category         models.ProductCategory       `json:"category" validate:"required,oneof=seeds fertilizers pesticides tools machinery crops livestock organic other"`
	Subcategory      string                       `json:"subcategory,omitempty" validate:"max=100"`
	Description      string                       `json:"description" validate:"required,min=10,max=1000"`
	Price            *float64                     `json:"price" validate:"required,gte=0"`
	Currency         string                       `json:"currency,omitempty" validate:"omitempty,oneof=INR USD EUR"`
	Unit             models.ProductUnit           `json:"unit" validate:"required,oneof=kg g liters pieces acres hectares bags tons"`
	Quantity         *int                         `json:"quantity" validate:"required,gte=0"`
	MinOrderQuantity int                          `json:"minOrderQuantity,omitempty" validate:"omitempty,gte=1"`
	Images           []models.ProductImage        `json:"images,omitempty" validate:"max=10"`
	Specifications   models.ProductSpecifications `json:"specifications"`
	Location         ProductLocationRequest       `json:"location"`
	Shipping         *models.ShippingTerms        `json:"shipping,omitempty"`
	Tags             []string                     `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Status           models.ProductStatus         `json:"status,omitempty" validate:"omitempty,oneof=active inactive out_of_stock"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Category    string
	Subcategory string
	Organic     *bool
	Featured    *bool
	MinPrice    *float64
	MaxPrice    *float64
	Location    string
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment,omitempty" validate:"max=500"`
}

type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int64   `json:"totalReviews"`
}

type FavoriteResult struct {
	IsFavorited    bool  `json:"isFavorited"`
	FavoritesCount int64 `json:"favoritesCount"`
}

type CatalogOptions struct {
	Categories []models.ProductCategory `json:"categories"`
	Units      []models.ProductUnit     `json:"units"`
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) CreateProduct(sellerID uuid.UUID, req *ProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	product := &models.Product{
		SellerID: sellerID,
		Status:   models.ProductStatusActive,
	}
	req.applyTo(product)

	if err := s.db.Create(product).Error; err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create product: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"seller_id":  sellerID,
		"category":   product.Category,
	}).Info("Product listed")

	product.Decorate()
	return product, nil
}

// GetProduct returns a product and counts the view.
func (s *ProductService) GetProduct(id uuid.UUID) (*models.Product, error) {
	result := s.db.Model(&models.Product{}).
		Where("id = ? AND status <> ?", id, models.ProductStatusDeleted).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to count product view: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ProductNotFound(id.String())
	}

	var product models.Product
	err := s.db.Preload("Seller").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Reviews.User").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load product: %w", err))
	}

	product.Decorate()
	return &product, nil
}

func (s *ProductService) UpdateProduct(id, sellerID uuid.UUID, req *ProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	product, err := s.findOwnedProduct(id, sellerID)
	if err != nil {
		return nil, err
	}

	req.applyTo(product)
	if req.Status != "" {
		product.Status = req.Status
	}

	// Counter columns are only written by their own operations.
	err = s.db.Omit(clause.Associations, "views", "rating_average", "rating_count", "favorites_count").
		Save(product).Error
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update product: %w", err))
	}

	product.Decorate()
	return product, nil
}

// DeleteProduct hides the product by moving it to the deleted status.
func (s *ProductService) DeleteProduct(id, sellerID uuid.UUID) error {
	product, err := s.findOwnedProduct(id, sellerID)
	if err != nil {
		return err
	}

	err = s.db.Model(product).Update("status", models.ProductStatusDeleted).Error
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to delete product: %w", err))
	}

	logrus.WithField("product_id", id).Info("Product deleted")
	return nil
}

func (s *ProductService) SearchProducts(params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Where("status = ?", models.ProductStatusActive)

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Subcategory != "" {
		query = query.Where("subcategory = ?", params.Subcategory)
	}
	if params.Organic != nil {
		query = query.Where("spec_organic = ?", *params.Organic)
	}
	if params.Featured != nil {
		query = query.Where("featured = ?", *params.Featured)
	}
	if params.MinPrice != nil {
		query = query.Where("price >= ?", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		query = query.Where("price <= ?", *params.MaxPrice)
	}
	if params.Location != "" {
		query = query.Where("LOWER(location_city) LIKE ?"+likeEscape, likePattern(params.Location))
	}
	if params.Search != "" {
		searchTerm := likePattern(params.Search)
		query = query.Where("(LOWER(name) LIKE ?"+likeEscape+" OR LOWER(description) LIKE ?"+likeEscape+")", searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to count products: %w", err))
	}

	params.PaginationParams = normalizeProductSort(params.PaginationParams)
	query = utils.ApplySort(query, params.PaginationParams, productSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Preload("Seller").Find(&products).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to search products: %w", err))
	}

	for i := range products {
		products[i].Decorate()
	}

	return products, total, nil
}

// ListSellerProducts returns every non-deleted product of the seller.
func (s *ProductService) ListSellerProducts(sellerID uuid.UUID, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).
		Where("seller_id = ? AND status <> ?", sellerID, models.ProductStatusDeleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to count products: %w", err))
	}

	var products []models.Product
	err := utils.ApplyPagination(query, params).Order("created_at DESC").Find(&products).Error
	if err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to list products: %w", err))
	}

	for i := range products {
		products[i].Decorate()
	}

	return products, total, nil
}

// ToggleFavorite adds the user to the product's favorites or removes them.
func (s *ProductService) ToggleFavorite(productID, userID uuid.UUID) (*FavoriteResult, error) {
	result := &FavoriteResult{}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if _, err := findVisibleProduct(tx, productID); err != nil {
			return err
		}

		favorite := models.ProductFavorite{ProductID: productID, UserID: userID}
		deleted := tx.Where("product_id = ? AND user_id = ?", productID, userID).Delete(&models.ProductFavorite{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			if err := tx.Create(&favorite).Error; err != nil {
				return err
			}
			result.IsFavorited = true
		}

		if err := tx.Model(&models.ProductFavorite{}).Where("product_id = ?", productID).Count(&result.FavoritesCount).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).Where("id = ?", productID).
			UpdateColumn("favorites_count", result.FavoritesCount).Error
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to toggle favorite")
	}

	return result, nil
}

// AddReview stores the caller's review and recomputes the product rating in
// the same transaction.
func (s *ProductService) AddReview(productID, userID uuid.UUID, req *ReviewRequest) (*RatingSummary, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.WrapValidation(err)
	}

	var summary *RatingSummary
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		product, err := findVisibleProduct(tx, productID)
		if err != nil {
			return err
		}
		if product.SellerID == userID {
			return apperrors.OwnProductReview()
		}

		var existing int64
		if err := tx.Model(&models.ProductReview{}).
			Where("product_id = ? AND user_id = ?", productID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.AlreadyReviewed()
		}

		review := &models.ProductReview{
			ProductID: productID,
			UserID:    userID,
			Rating:    req.Rating,
			Comment:   strings.TrimSpace(req.Comment),
		}
		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.AlreadyReviewed()
			}
			return err
		}

		summary, err = recomputeRating(tx, product)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to add review")
	}

	return summary, nil
}

// DeleteReview removes a review by its author or an admin and recomputes the
// product rating.
func (s *ProductService) DeleteReview(productID, reviewID, userID uuid.UUID, isAdmin bool) (*RatingSummary, error) {
	var summary *RatingSummary
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		product, err := findVisibleProduct(tx, productID)
		if err != nil {
			return err
		}

		var review models.ProductReview
		if err := tx.First(&review, "id = ? AND product_id = ?", reviewID, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ReviewNotFound(reviewID.String())
			}
			return err
		}
		if review.UserID != userID && !isAdmin {
			return apperrors.AccessDenied("review")
		}

		if err := tx.Delete(&review).Error; err != nil {
			return err
		}

		summary, err = recomputeRating(tx, product)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to delete review")
	}

	return summary, nil
}

func (s *ProductService) ListReviews(productID uuid.UUID, params utils.PaginationParams) ([]models.ProductReview, int64, error) {
	if _, err := findVisibleProduct(s.db, productID); err != nil {
		return nil, 0, wrapInternal(err, "failed to load product")
	}

	query := s.db.Model(&models.ProductReview{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to count reviews: %w", err))
	}

	var reviews []models.ProductReview
	err := utils.ApplyPagination(query, params).Preload("User").Order("created_at DESC").Find(&reviews).Error
	if err != nil {
		return nil, 0, apperrors.Internal(fmt.Errorf("failed to list reviews: %w", err))
	}

	return reviews, total, nil
}

func (s *ProductService) CatalogOptions() CatalogOptions {
	return CatalogOptions{
		Categories: models.ProductCategories,
		Units:      models.ProductUnits,
	}
}

func (s *ProductService) findOwnedProduct(id, sellerID uuid.UUID) (*models.Product, error) {
	product, err := findVisibleProduct(s.db, id)
	if err != nil {
		return nil, wrapInternal(err, "failed to load product")
	}

	if product.SellerID != sellerID {
		return nil, apperrors.AccessDenied("product")
	}

	return product, nil
}

func (req *ProductRequest) applyTo(product *models.Product) {
	product.Name = strings.TrimSpace(req.Name)
	product.Category = req.Category
	product.Subcategory = req.Subcategory
	product.Description = strings.TrimSpace(req.Description)
	product.Price = *req.Price
	product.Currency = req.Currency
	product.Unit = req.Unit
	product.Quantity = *req.Quantity
	product.MinOrderQuantity = req.MinOrderQuantity
	product.Images = req.Images
	product.Specifications = req.Specifications
	product.Location = models.ProductLocation{
		City:      strings.TrimSpace(req.Location.City),
		State:     strings.TrimSpace(req.Location.State),
		Country:   req.Location.Country,
		Latitude:  req.Location.Latitude,
		Longitude: req.Location.Longitude,
	}
	product.Tags = req.Tags

	if product.Currency == "" {
		product.Currency = "INR"
	}
	if product.MinOrderQuantity == 0 {
		product.MinOrderQuantity = 1
	}
	if product.Location.Country == "" {
		product.Location.Country = "India"
	}
	if product.Images == nil {
		product.Images = []models.ProductImage{}
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if req.Shipping != nil {
		product.Shipping = *req.Shipping
	} else if product.ID == uuid.Nil {
		product.Shipping = models.ShippingTerms{Available: true, Cost: 0, EstimatedDays: 3}
	}
}

func findVisibleProduct(db *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, "id = ? AND status <> ?", id, models.ProductStatusDeleted).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ProductNotFound(id.String())
		}
		return nil, err
	}
	return &product, nil
}

// recomputeRating derives the rating from the full review set and stores it.
func recomputeRating(tx *gorm.DB, product *models.Product) (*RatingSummary, error) {
	var reviews []models.ProductReview
	if err := tx.Where("product_id = ?", product.ID).Find(&reviews).Error; err != nil {
		return nil, err
	}

	product.ApplyRating(reviews)
	err := tx.Model(&models.Product{}).Where("id = ?", product.ID).UpdateColumns(map[string]interface{}{
		"rating_average": product.Rating.Average,
		"rating_count":   product.Rating.Count,
	}).Error
	if err != nil {
		return nil, err
	}

	return &RatingSummary{
		AverageRating: decimal.NewFromFloat(product.Rating.Average).Round(1).InexactFloat64(),
		TotalReviews:  product.Rating.Count,
	}, nil
}

func normalizeProductSort(params utils.PaginationParams) utils.PaginationParams {
	if alias, ok := productSortAliases[params.Sort]; ok {
		params.Sort = alias
	}
	return params
}

// likeEscaper makes % and _ match literally; queries pair it with likeEscape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const likeEscape = ` ESCAPE '\'`

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// wrapInternal passes domain errors through and wraps everything else.
func wrapInternal(err error, message string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", message, err))
}
