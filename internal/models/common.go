// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns a UUID so models behave the same against Postgres
// and the sqlite database used by the test suites.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		bytes = []byte(str)
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeInvestor UserType = "investor"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type VerificationLevel string

const (
	VerificationLevelUnverified VerificationLevel = "unverified"
	VerificationLevelVerified   VerificationLevel = "verified"
	VerificationLevelPremium    VerificationLevel = "premium"
)

type TreeStatus string

const (
	TreeStatusAvailable   TreeStatus = "available"
	TreeStatusFullyFunded TreeStatus = "fully_funded"
	TreeStatusRetired     TreeStatus = "retired"
)

type InvestmentStatus string

const (
	InvestmentStatusPendingPayment InvestmentStatus = "pending_payment"
	InvestmentStatusActive         InvestmentStatus = "active"
	InvestmentStatusMatured        InvestmentStatus = "matured"
	InvestmentStatusSold           InvestmentStatus = "sold"
	InvestmentStatusCancelled      InvestmentStatus = "cancelled"
)

type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeTopUp      TransactionType = "top_up"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypePayout     TransactionType = "payout"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelElevated RiskLevel = "elevated"
	RiskLevelBlocked  RiskLevel = "blocked"
)

type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "low"
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)
