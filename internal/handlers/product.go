// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

// maxImagesPerUpload caps files accepted by one upload-images call.
const maxImagesPerUpload = 5

type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Category:         c.Query("category"),
		Subcategory:      c.Query("subcategory"),
		Location:         c.Query("location"),
		Organic:          queryBool(c, "organic"),
		Featured:         queryBool(c, "featured"),
		MinPrice:         queryFloat(c, "minPrice"),
		MaxPrice:         queryFloat(c, "maxPrice"),
	}

	products, total, err := h.productService.SearchProducts(searchParams)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, len(products), total, params)
	utils.PaginatedResponse(c, "products", "totalProducts", result)
}

// GET /products/categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	utils.SuccessResponse(c, h.productService.CatalogOptions())
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(sellerID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(id, sellerID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(id, sellerID); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

// GET /products/seller/me
func (h *ProductHandler) GetMyProducts(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	products, total, err := h.productService.ListSellerProducts(sellerID, params)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, len(products), total, params)
	utils.PaginatedResponse(c, "products", "totalProducts", result)
}

// GET /products/:id/reviews
func (h *ProductHandler) GetReviews(c *gin.Context) {
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	reviews, total, err := h.productService.ListReviews(id, params)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(reviews, len(reviews), total, params)
	utils.PaginatedResponse(c, "reviews", "totalReviews", result)
}

// POST /products/:id/reviews
func (h *ProductHandler) AddReview(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.productService.AddReview(id, userID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyReviewAdded),
		"averageRating": summary.AverageRating,
		"totalReviews":  summary.TotalReviews,
	})
}

// DELETE /products/:id/reviews/:reviewId
func (h *ProductHandler) DeleteReview(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "reviewId", "review ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.productService.DeleteReview(id, reviewID, userID, utils.IsAdminContext(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyReviewDeleted),
		"averageRating": summary.AverageRating,
		"totalReviews":  summary.TotalReviews,
	})
}

// POST /products/:id/favorite
func (h *ProductHandler) ToggleFavorite(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "product ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.productService.ToggleFavorite(id, userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	key := i18n.KeyFavoriteRemoved
	if result.IsFavorited {
		key = i18n.KeyFavoriteAdded
	}

	utils.SuccessResponse(c, gin.H{
		"message":        i18n.T(lang, key),
		"isFavorited":    result.IsFavorited,
		"favoritesCount": result.FavoritesCount,
	})
}

// POST /products/upload-images
func (h *ProductHandler) UploadProductImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if _, ok := currentUserID(c); !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "images"), nil)
		return
	}
	if len(files) > maxImagesPerUpload {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "images"),
			gin.H{"max": maxImagesPerUpload})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	options := h.storageService.GetDefaultUploadOptions(services.UploadCategoryProducts)
	uploaded := make([]*services.UploadResult, 0, len(files))

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
			return
		}

		result, err := h.storageService.UploadFile(ctx, file, fileHeader, options)
		file.Close()
		if err != nil {
			utils.HandleError(c, err)
			return
		}

		uploaded = append(uploaded, result)
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductImagesUploaded),
		"images":  uploaded,
	})
}
