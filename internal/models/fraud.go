// internal/models/fraud.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// FraudAlert is an immutable risk signal raised by the fraud gate. Only the
// resolution timestamp may be set afterwards, by the review workflow.
type FraudAlert struct {
	BaseModel
	UserID     uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	RuleID     string        `json:"rule_id" gorm:"size:100;not null;index"`
	Severity   AlertSeverity `json:"severity" gorm:"type:varchar(20);not null"`
	Notes      string        `json:"notes" gorm:"type:text"`
	DetectedAt time.Time     `json:"detected_at" gorm:"not null;index"`
	ResolvedAt *time.Time    `json:"resolved_at"`
	ResolvedBy *uuid.UUID    `json:"resolved_by" gorm:"type:uuid"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
