// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

type RepaymentHandler struct {
	repaymentService *services.RepaymentService
}

func NewRepaymentHandler(repaymentService *services.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{
		repaymentService: repaymentService,
	}
}

// POST /loans/:id/repayments/intent
func (h *RepaymentHandler) CreateIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	loanID, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	intent, err := h.repaymentService.CreateIntent(ctx, loanID, userID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentIntentCreated),
		"intent":  intent,
	})
}

// POST /loans/:id/repayments/confirm
func (h *RepaymentHandler) ConfirmIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	loanID, ok := pathID(c, "id", "loan ID")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ConfirmRepaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.repaymentService.ConfirmIntent(ctx, loanID, userID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentConfirmed),
		"loan":    result.Loan,
		"payment": result.Payment,
	})
}
