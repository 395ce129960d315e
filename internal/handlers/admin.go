// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arborvest/arbor-backend/internal/i18n"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	filter := services.AdminUserFilter{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		userStatus := models.UserStatus(status)
		filter.Status = &userStatus
	}
	if level := c.Query("verification_level"); level != "" {
		verificationLevel := models.VerificationLevel(level)
		filter.VerificationLevel = &verificationLevel
	}

	users, total, err := h.adminService.GetUsers(filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "user id"), nil)
		return
	}

	var req struct {
		Status models.UserStatus `json:"status" validate:"required"`
		Reason string            `json:"reason" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	user, err := h.adminService.UpdateUserStatus(userID, adminID, req.Status, req.Reason, clientMeta(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminActionSuccess),
		"user":    user,
	})
}

// PUT /admin/users/:id/verification
func (h *AdminHandler) SetVerificationLevel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "user id"), nil)
		return
	}

	var req struct {
		Level models.VerificationLevel `json:"level" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	user, err := h.adminService.SetVerificationLevel(userID, adminID, req.Level, clientMeta(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminActionSuccess),
		"user":    user,
	})
}

// POST /admin/investments/:id/mature
func (h *AdminHandler) MarkInvestmentMatured(c *gin.Context) {
	h.closeInvestment(c, h.adminService.MarkMatured)
}

// POST /admin/investments/:id/sell
func (h *AdminHandler) MarkInvestmentSold(c *gin.Context) {
	h.closeInvestment(c, h.adminService.MarkSold)
}

func (h *AdminHandler) closeInvestment(c *gin.Context, action func(uuid.UUID, uuid.UUID, services.ClientMeta) error) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	if err := action(investmentID, adminID, clientMeta(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminActionSuccess),
	})
}

// GET /admin/transactions
func (h *AdminHandler) GetTransactions(c *gin.Context) {
	filter := services.AdminTransactionFilter{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		transactionStatus := models.TransactionStatus(status)
		filter.Status = &transactionStatus
	}
	if txType := c.Query("type"); txType != "" {
		transactionType := models.TransactionType(txType)
		filter.TransactionType = &transactionType
	}

	transactions, total, err := h.adminService.GetTransactions(filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(transactions, total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /admin/fraud-alerts
func (h *AdminHandler) GetFraudAlerts(c *gin.Context) {
	filter := services.AdminFraudAlertFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Unresolved:       c.Query("unresolved") == "true",
	}

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			filter.UserID = &userID
		}
	}

	alerts, total, err := h.adminService.GetFraudAlerts(filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(alerts, total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// POST /admin/fraud-alerts/:id/resolve
func (h *AdminHandler) ResolveFraudAlert(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "alert id"), nil)
		return
	}

	alert, err := h.adminService.ResolveFraudAlert(alertID, adminID, clientMeta(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminAlertResolved),
		"alert":   alert,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.adminService.GetAuditLogs(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
