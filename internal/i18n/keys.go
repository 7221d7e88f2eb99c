// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyHealthy = "health.ok"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthAccountInactive    = "auth.account_inactive"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthGoogleSuccess      = "auth.google_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthTokenRefreshed     = "auth.token_refreshed"

	// User Management
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"
	KeyUserActivated      = "user.activated"
	KeyUserDeactivated    = "user.deactivated"

	// Loans
	KeyLoanApplied         = "loan.applied"
	KeyLoanUpdated         = "loan.updated"
	KeyLoanCancelled       = "loan.cancelled"
	KeyLoanNotFound        = "loan.not_found"
	KeyLoanActiveExists    = "loan.active_exists"
	KeyLoanInvalidState    = "loan.invalid_state"
	KeyLoanApproved        = "loan.approved"
	KeyLoanRejected        = "loan.rejected"
	KeyLoanDisbursed       = "loan.disbursed"
	KeyLoanDefaulted       = "loan.defaulted"
	KeyLoanPaymentRecorded = "loan.payment_recorded"
	KeyLoanNoteAdded       = "loan.note_added"
	KeyLoanDocumentAdded   = "loan.document_added"

	// Repayments
	KeyPaymentIntentCreated = "payment.intent_created"
	KeyPaymentConfirmed     = "payment.confirmed"
	KeyPaymentFailed        = "payment.failed"

	// Products
	KeyProductCreated        = "product.created"
	KeyProductUpdated        = "product.updated"
	KeyProductDeleted        = "product.deleted"
	KeyProductNotFound       = "product.not_found"
	KeyProductImagesUploaded = "product.images_uploaded"

	// Reviews and favorites
	KeyReviewAdded       = "review.added"
	KeyReviewDeleted     = "review.deleted"
	KeyReviewNotFound    = "review.not_found"
	KeyReviewAlreadyDone = "review.already_reviewed"
	KeyFavoriteAdded     = "favorite.added"
	KeyFavoriteRemoved   = "favorite.removed"

	// External services
	KeyAIUnavailable      = "ai.unavailable"
	KeyWeatherUnavailable = "weather.unavailable"
	KeyLocationNotFound   = "location.not_found"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Errors
	KeyAccessDenied       = "error.access_denied"
	KeyInternalError      = "error.internal"
	KeyRateLimited        = "error.rate_limited"
	KeyRouteNotFound      = "error.route_not_found"
	KeyServiceUnavailable = "error.service_unavailable"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"
)
