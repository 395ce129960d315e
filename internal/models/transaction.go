// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one monetary movement. PaymentReference holds the payment
// processor's charge id once the gateway assigns one; the unique index on it
// is the idempotency key webhook deliveries are matched against.
type Transaction struct {
	BaseModel
	UserID           uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	Amount           int64             `json:"amount" gorm:"not null"`
	Currency         string            `json:"currency" gorm:"size:3;not null;default:'usd'"`
	PaymentReference *string           `json:"payment_reference" gorm:"size:255;uniqueIndex"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	FailureReason    string            `json:"failure_reason,omitempty" gorm:"type:text"`
	CompletedAt      *time.Time        `json:"completed_at"`
	Metadata         JSONB             `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// InvestmentID extracts the originating investment back-reference from the
// metadata map, if present.
func (t *Transaction) InvestmentID() (uuid.UUID, bool) {
	if t.Metadata == nil {
		return uuid.Nil, false
	}
	raw, ok := t.Metadata["investment_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
