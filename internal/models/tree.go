// internal/models/tree.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tree is one investable asset on a partner farm. Monetary bounds are in
// minor currency units (cents).
type Tree struct {
	BaseModel
	FarmID        uuid.UUID  `json:"farm_id" gorm:"type:uuid;not null;index"`
	Species       string     `json:"species" gorm:"size:100;not null"`
	Name          string     `json:"name" gorm:"size:255;not null"`
	Description   string     `json:"description" gorm:"type:text"`
	MinInvestment int64      `json:"min_investment" gorm:"not null"`
	MaxInvestment int64      `json:"max_investment" gorm:"not null"`
	Currency      string     `json:"currency" gorm:"size:3;not null;default:'usd'"`
	Status        TreeStatus `json:"status" gorm:"type:varchar(20);default:'available';index"`
	PlantedAt     *time.Time `json:"planted_at"`
	Attributes    JSONB      `json:"attributes" gorm:"type:jsonb"`

	// Relationships
	Investments []Investment `json:"investments,omitempty" gorm:"foreignKey:TreeID"`
}

// Investable reports whether new money may be placed on the tree.
func (t *Tree) Investable() bool {
	return t.Status == TreeStatusAvailable
}
