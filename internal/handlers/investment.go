// internal/handlers/investment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arborvest/arbor-backend/internal/i18n"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

type InvestmentHandler struct {
	investmentService *services.InvestmentService
}

func NewInvestmentHandler(investmentService *services.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{
		investmentService: investmentService,
	}
}

// POST /investments
func (h *InvestmentHandler) InitiatePurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.InitiatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	investment, err := h.investmentService.InitiatePurchase(c.Request.Context(), userID, &req, clientMeta(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyInvestmentCreated),
		"investment": investment,
	})
}

// POST /investments/:id/confirm
func (h *InvestmentHandler) ConfirmPurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	if err := h.investmentService.ConfirmPurchase(investmentID, userID, clientMeta(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvestmentConfirmed),
	})
}

// POST /investments/:id/cancel
func (h *InvestmentHandler) CancelPurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	var req services.CancelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if err := h.investmentService.CancelPurchase(c.Request.Context(), investmentID, userID, &req, clientMeta(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvestmentCancelled),
	})
}

// POST /investments/:id/topup
func (h *InvestmentHandler) TopUp(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	var req services.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	investment, err := h.investmentService.TopUp(c.Request.Context(), investmentID, userID, &req, clientMeta(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyInvestmentToppedUp),
		"investment": investment,
	})
}

// GET /investments
func (h *InvestmentHandler) GetInvestments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := &services.InvestmentSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		UserID:           &userID,
	}

	if status := c.Query("status"); status != "" {
		investmentStatus := models.InvestmentStatus(status)
		params.Status = &investmentStatus
	}

	investments, total, err := h.investmentService.GetInvestments(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(investments, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /investments/:id
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	investment, err := h.investmentService.GetInvestment(investmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Investors can only see their own investments.
	userType, _ := utils.GetUserTypeFromContext(c)
	if investment.UserID != userID && userType != "admin" {
		utils.NotFoundResponse(c, i18n.T(lang, i18n.KeyInvestmentNotFound))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"investment": investment,
	})
}

// GET /payments/history
func (h *InvestmentHandler) GetPaymentHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	transactions, total, err := h.investmentService.GetPaymentHistory(userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}
