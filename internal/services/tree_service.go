// internal/services/tree_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// InvestmentBounds is the catalog's answer for one tree: the per-investment
// amount limits and whether new money is accepted at all.
type InvestmentBounds struct {
	Min        int64  `json:"min"`
	Max        int64  `json:"max"`
	Currency   string `json:"currency"`
	Investable bool   `json:"investable"`
}

type TreeSearchParams struct {
	utils.PaginationParams
	FarmID  *uuid.UUID         `json:"farm_id,omitempty"`
	Species string             `json:"species,omitempty"`
	Status  *models.TreeStatus `json:"status,omitempty"`
}

type TreeService struct {
	db *gorm.DB
}

func NewTreeService(db *gorm.DB) *TreeService {
	return &TreeService{db: db}
}

func (s *TreeService) GetTree(treeID uuid.UUID) (*models.Tree, error) {
	var tree models.Tree
	if err := s.db.First(&tree, treeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAppError(ErrCodeNotFound, "tree not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &tree, nil
}

// GetInvestmentBounds returns the declared [min, max] amount bounds for the
// tree and whether it currently accepts investment.
func (s *TreeService) GetInvestmentBounds(treeID uuid.UUID) (*InvestmentBounds, error) {
	tree, err := s.GetTree(treeID)
	if err != nil {
		return nil, err
	}

	return &InvestmentBounds{
		Min:        tree.MinInvestment,
		Max:        tree.MaxInvestment,
		Currency:   tree.Currency,
		Investable: tree.Investable(),
	}, nil
}

func (s *TreeService) GetTrees(params *TreeSearchParams) ([]models.Tree, int64, error) {
	query := s.db.Model(&models.Tree{})

	if params.FarmID != nil {
		query = query.Where("farm_id = ?", *params.FarmID)
	}
	if params.Species != "" {
		query = query.Where("species = ?", params.Species)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trees: %w", err)
	}

	allowedSortFields := []string{"created_at", "min_investment", "max_investment", "species"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var trees []models.Tree
	if err := query.Find(&trees).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch trees: %w", err)
	}

	return trees, total, nil
}
