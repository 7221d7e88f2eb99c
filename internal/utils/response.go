// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/i18n"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var exposeErrorDetails bool

// SetExposeErrorDetails controls whether internal error causes reach clients.
func SetExposeErrorDetails(expose bool) {
	exposeErrorDetails = expose
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyValidationInvalid, "request")
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthRequired)
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAccessDenied)
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

// NotFoundResponse answers 404 with the translation of key.
func NotFoundResponse(c *gin.Context, key string) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, key), nil)
}

func TooManyRequestsResponse(c *gin.Context) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", i18n.T(lang, i18n.KeyRateLimited), nil)
}

func ServiceUnavailableResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyServiceUnavailable)
	}
	ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyInternalError)
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, i18n.KeyValidationInvalid, "input")
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, errors)
}

// errorMessageKeys localizes the domain error codes clients see most.
var errorMessageKeys = map[string]string{
	"INVALID_CREDENTIALS": i18n.KeyAuthInvalidCredentials,
	"ACCOUNT_INACTIVE":    i18n.KeyAuthAccountInactive,
	"USER_EXISTS":         i18n.KeyAuthUserExists,
	"USER_NOT_FOUND":      i18n.KeyUserNotFound,
	"LOAN_NOT_FOUND":      i18n.KeyLoanNotFound,
	"ACTIVE_LOAN_EXISTS":  i18n.KeyLoanActiveExists,
	"PRODUCT_NOT_FOUND":   i18n.KeyProductNotFound,
	"REVIEW_NOT_FOUND":    i18n.KeyReviewNotFound,
	"ALREADY_REVIEWED":    i18n.KeyReviewAlreadyDone,
	"LOCATION_NOT_FOUND":  i18n.KeyLocationNotFound,
}

var kindStatus = map[apperrors.Kind]int{
	apperrors.KindValidation:         http.StatusBadRequest,
	apperrors.KindAuth:               http.StatusUnauthorized,
	apperrors.KindAccessDenied:       http.StatusForbidden,
	apperrors.KindNotFound:           http.StatusNotFound,
	apperrors.KindInvalidState:       http.StatusBadRequest,
	apperrors.KindAlreadyReviewed:    http.StatusBadRequest,
	apperrors.KindServiceUnavailable: http.StatusServiceUnavailable,
	apperrors.KindInternal:           http.StatusInternalServerError,
}

// HandleError writes the envelope for err according to its Kind.
func HandleError(c *gin.Context, err error) {
	lang := GetLangFromContext(c)

	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}

	if appErr.Kind == apperrors.KindInternal {
		logrus.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err).Error("Request failed")

		var details interface{}
		if exposeErrorDetails && err != nil {
			details = err.Error()
		}
		ErrorResponse(c, http.StatusInternalServerError, appErr.Code, i18n.T(lang, i18n.KeyInternalError), details)
		return
	}

	message := appErr.Message
	if key, exists := errorMessageKeys[appErr.Code]; exists {
		message = i18n.T(lang, key)
	}

	var details interface{}
	if appErr.Kind == apperrors.KindValidation {
		if fieldErrors := GetValidationErrors(appErr.Err); len(fieldErrors) > 0 {
			details = fieldErrors
		}
	}
	if appErr.Kind == apperrors.KindServiceUnavailable {
		logrus.WithError(err).Warn("Upstream service unavailable")
	}

	status, exists := kindStatus[appErr.Kind]
	if !exists {
		status = http.StatusInternalServerError
	}
	ErrorResponse(c, status, appErr.Code, message, details)
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok {
			return userIDStr, true
		}
	}
	return "", false
}

// GetUserUUIDFromContext parses the authenticated user id.
func GetUserUUIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func GetUserTypeFromContext(c *gin.Context) (string, bool) {
	if userType, exists := c.Get("user_type"); exists {
		if userTypeStr, ok := userType.(string); ok {
			return userTypeStr, true
		}
	}
	return "", false
}

func IsAdminContext(c *gin.Context) bool {
	userType, ok := GetUserTypeFromContext(c)
	return ok && userType == "admin"
}
