// internal/handlers/tree.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arborvest/arbor-backend/internal/i18n"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

type TreeHandler struct {
	treeService *services.TreeService
}

func NewTreeHandler(treeService *services.TreeService) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
	}
}

// GET /trees
func (h *TreeHandler) GetTrees(c *gin.Context) {
	params := &services.TreeSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	params.Species = c.Query("species")
	if status := c.Query("status"); status != "" {
		treeStatus := models.TreeStatus(status)
		params.Status = &treeStatus
	}

	trees, total, err := h.treeService.GetTrees(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(trees, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /trees/:id
func (h *TreeHandler) GetTree(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	treeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "tree id"), nil)
		return
	}

	tree, err := h.treeService.GetTree(treeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"tree": tree,
	})
}

// GET /trees/:id/bounds
func (h *TreeHandler) GetInvestmentBounds(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	treeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "tree id"), nil)
		return
	}

	bounds, err := h.treeService.GetInvestmentBounds(treeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"bounds": bounds,
	})
}
