// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	loanService  *services.LoanService
}

func NewAdminHandler(adminService *services.AdminService, loanService *services.LoanService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		loanService:  loanService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdminUserFilter{
		PaginationParams: params,
		IsActive:         queryBool(c, "isActive"),
	}
	if userType := c.Query("userType"); userType != "" {
		uType := models.UserType(userType)
		filter.UserType = &uType
	}

	users, total, err := h.adminService.GetUsers(filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, len(users), total, params)
	utils.PaginatedResponse(c, "users", "totalUsers", result)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := pathID(c, "id", "user ID")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.UpdateUserStatus(userID, adminID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	key := i18n.KeyUserDeactivated
	if user.IsActive {
		key = i18n.KeyUserActivated
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
		"user":    user,
	})
}

// GET /admin/loans
func (h *AdminHandler) GetLoans(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	search := services.LoanSearchParams{
		PaginationParams: params,
		Status:           models.LoanStatus(c.Query("status")),
	}
	if applicant := c.Query("applicantId"); applicant != "" {
		if applicantID, err := uuid.Parse(applicant); err == nil {
			search.ApplicantID = &applicantID
		}
	}

	loans, total, err := h.loanService.ListLoans(search)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(loans, len(loans), total, params)
	utils.PaginatedResponse(c, "loans", "totalLoans", result)
}

// PUT /admin/loans/:id/approve
func (h *AdminHandler) ApproveLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Every field is optional, so an empty body is accepted.
	var req services.ApproveLoanRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	loan, err := h.loanService.ApproveLoan(id, adminID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanApproved),
		"loan":    loan,
	})
}

// PUT /admin/loans/:id/reject
func (h *AdminHandler) RejectLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RejectLoanRequest
	if !bindJSON(c, &req) {
		return
	}

	loan, err := h.loanService.RejectLoan(id, adminID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanRejected),
		"loan":    loan,
	})
}

// PUT /admin/loans/:id/disburse
func (h *AdminHandler) DisburseLoan(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	loan, err := h.loanService.DisburseLoan(id, adminID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanDisbursed),
		"loan":    loan,
	})
}

// PUT /admin/loans/:id/default
func (h *AdminHandler) MarkDefault(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}

	loan, err := h.loanService.MarkDefault(id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanDefaulted),
		"loan":    loan,
	})
}

// POST /admin/loans/:id/payments
func (h *AdminHandler) RecordPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}

	var req services.RecordPaymentRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	loan, payment, err := h.loanService.RecordPayment(id, req.Reference)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanPaymentRecorded),
		"loan":    loan,
		"payment": payment,
	})
}

// POST /admin/loans/:id/notes
func (h *AdminHandler) AddNote(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.AddLoanNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	loan, err := h.loanService.AddNote(id, adminID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLoanNoteAdded),
		"notes":   loan.Notes,
	})
}
