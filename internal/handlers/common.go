// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// handleServiceError translates a service error into the HTTP envelope.
// Typed service codes keep their code string in the response body so API
// clients can branch without parsing messages.
func handleServiceError(c *gin.Context, err error) {
	// A raw immutability sentinel can surface from the GORM hooks when code
	// bypasses AuditService; fold it into the taxonomy before mapping.
	err = services.TranslateImmutable(err)

	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case services.ErrCodeValidation:
		status = http.StatusBadRequest
	case services.ErrCodeNotFound:
		status = http.StatusNotFound
	case services.ErrCodeNotEligible, services.ErrCodeFraudBlocked:
		status = http.StatusForbidden
	case services.ErrCodeTreeNotInvestable,
		services.ErrCodeAmountBelowMinimum,
		services.ErrCodeAmountAboveMaximum,
		services.ErrCodeInvalidTransition,
		services.ErrCodeNotCancellable,
		services.ErrCodeImmutableRecord,
		services.ErrCodeAlreadyProcessed:
		status = http.StatusConflict
	case services.ErrCodeExternalUnavailable:
		status = http.StatusServiceUnavailable
	}

	utils.ErrorResponse(c, status, string(appErr.Code), appErr.Message, nil)
}

// currentUserID pulls the authenticated user id from the request context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}

func clientMeta(c *gin.Context) services.ClientMeta {
	return services.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
