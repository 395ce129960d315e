// internal/models/investment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Investment is a user's monetary stake in one tree. Amount is in minor
// currency units and must stay within the tree's [min, max] bounds while
// the investment is pending_payment or active.
type Investment struct {
	BaseModel
	UserID        uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	TreeID        uuid.UUID        `json:"tree_id" gorm:"type:uuid;not null;index"`
	Amount        int64            `json:"amount" gorm:"not null"`
	Currency      string           `json:"currency" gorm:"size:3;not null;default:'usd'"`
	Status        InvestmentStatus `json:"status" gorm:"type:varchar(20);default:'pending_payment';index"`
	TransactionID *uuid.UUID       `json:"transaction_id" gorm:"type:uuid;index"`
	Metadata      JSONB            `json:"metadata" gorm:"type:jsonb"`
	PurchasedAt   *time.Time       `json:"purchased_at"`

	// Relationships
	User        User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tree        Tree         `json:"tree,omitempty" gorm:"foreignKey:TreeID"`
	Transaction *Transaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID"`
}
