// internal/handlers/loan.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type LoanHandler struct {
	loanService    *services.LoanService
	storageService *services.StorageService
}

func NewLoanHandler(loanService *services.LoanService, storageService *services.StorageService) *LoanHandler {
	return &LoanHandler{
		loanService:    loanService,
		storageService: storageService,
	}
}

// POST /loans/apply
func (h *LoanHandler) ApplyForLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	applicantID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ApplyLoanRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.loanService.ApplyForLoan(applicantID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":        i18n.T(lang, i18n.KeyLoanApplied),
		"loanId":         result.LoanID,
		"status":         result.Status,
		"monthlyPayment": result.MonthlyPayment,
		"totalAmount":    result.TotalAmount,
		"dueDate":        result.DueDate,
	})
}

// GET /loans/user
func (h *LoanHandler) GetUserLoans(c *gin.Context) {
	applicantID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	loans, total, err := h.loanService.ListLoans(services.LoanSearchParams{
		PaginationParams: params,
		ApplicantID:      &applicantID,
		Status:           models.LoanStatus(c.Query("status")),
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(loans, len(loans), total, params)
	utils.PaginatedResponse(c, "loans", "totalLoans", result)
}

// GET /loans/:id
func (h *LoanHandler) GetLoan(c *gin.Context) {
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.GetLoan(id, userID, utils.IsAdminContext(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"loan": loan,
	})
}

// PUT /loans/:id
func (h *LoanHandler) UpdateLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateLoanRequest
	if !bindJSON(c, &req) {
		return
	}

	loan, err := h.loanService.UpdateLoan(id, userID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanUpdated),
		"loan":    loan,
	})
}

// DELETE /loans/:id
func (h *LoanHandler) CancelLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.CancelLoan(id, userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanCancelled),
		"loan":    loan,
	})
}

// POST /loans/:id/documents
func (h *LoanHandler) UploadDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	// Ownership is checked before anything is stored.
	if _, err := h.loanService.GetLoan(id, userID, false); err != nil {
		utils.HandleError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	options := h.storageService.GetDefaultUploadOptions(services.UploadCategoryLoanDocuments)
	uploaded, err := h.storageService.UploadFile(ctx, file, fileHeader, options)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	loan, err := h.loanService.AddDocument(id, userID, models.LoanDocument{
		Name: c.DefaultPostForm("name", fileHeader.Filename),
		Type: c.DefaultPostForm("type", "other"),
		URL:  uploaded.URL,
	})
	if err != nil {
		// Drop the upload that no loan references.
		_ = h.storageService.DeleteFile(ctx, uploaded.Key)
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyLoanDocumentAdded),
		"document":  uploaded,
		"documents": loan.Documents,
	})
}

// POST /loans/calculate
func (h *LoanHandler) Calculate(c *gin.Context) {
	var req services.CalculateLoanRequest
	if !bindJSON(c, &req) {
		return
	}

	withSchedule := false
	if v := queryBool(c, "schedule"); v != nil {
		withSchedule = *v
	}

	calculation, err := h.loanService.Calculate(&req, withSchedule)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, calculation)
}
