// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
	MaxPage          = 10000
)

type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Search string `json:"search"`
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PaginationResult struct {
	Page        int         `json:"currentPage"`
	Limit       int         `json:"limit"`
	Total       int64       `json:"total"`
	TotalPages  int         `json:"totalPages"`
	HasNextPage bool        `json:"hasNextPage"`
	HasPrevPage bool        `json:"hasPrevPage"`
	Data        interface{} `json:"-"`
}

// Meta renders the pagination block, naming the total after the resource.
func (r PaginationResult) Meta(totalKey string) gin.H {
	return gin.H{
		"currentPage": r.Page,
		"limit":       r.Limit,
		"totalPages":  r.TotalPages,
		totalKey:      r.Total,
		"hasNextPage": r.HasNextPage,
		"hasPrevPage": r.HasPrevPage,
	}
}

func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	sort := c.DefaultQuery("sortBy", c.DefaultQuery("sort", "created_at"))
	order := strings.ToLower(c.DefaultQuery("sortOrder", c.DefaultQuery("order", "desc")))
	search := c.Query("search")

	return NormalizePagination(PaginationParams{
		Page:   page,
		Limit:  limit,
		Sort:   sort,
		Order:  order,
		Search: search,
	})
}

// NormalizePagination clamps page and limit and defaults the order.
func NormalizePagination(params PaginationParams) PaginationParams {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Page > MaxPage {
		params.Page = MaxPage
	}
	if params.Limit < 1 {
		params.Limit = DefaultPageLimit
	}
	if params.Limit > MaxPageLimit {
		params.Limit = MaxPageLimit
	}
	if params.Order != "asc" && params.Order != "desc" {
		params.Order = "desc"
	}
	return params
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	return db.Offset(params.Offset()).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is whitelisted, else by created_at.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string) *gorm.DB {
	sortField := "created_at"
	for _, field := range allowedSortFields {
		if field == params.Sort {
			sortField = field
			break
		}
	}

	order := "DESC"
	if params.Order == "asc" {
		order = "ASC"
	}

	return db.Order(pq.QuoteIdentifier(sortField) + " " + order)
}

func CreatePaginationResult(data interface{}, returned int, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:        params.Page,
		Limit:       params.Limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: int64(params.Offset()+returned) < total,
		HasPrevPage: params.Page > 1,
		Data:        data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}

// PaginatedResponse writes {<dataKey>: items, pagination: {...}}.
func PaginatedResponse(c *gin.Context, dataKey, totalKey string, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponse(c, gin.H{
		dataKey:      result.Data,
		"pagination": result.Meta(totalKey),
	})
}
