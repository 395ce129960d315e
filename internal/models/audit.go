// internal/models/audit.go
package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrImmutableRecord is returned by any code path that reaches the storage
// layer's mutate or delete primitive for an audit log entry.
var ErrImmutableRecord = errors.New("audit log entries are immutable")

// AuditLog is the append-only ledger of financial and security events.
// ActorID is nil for system-originated events (webhook reconciliation).
// Ordering is by CreatedAt with the primary key as a stable tiebreak.
type AuditLog struct {
	BaseModel
	ActorID   *uuid.UUID `json:"actor_id" gorm:"type:uuid;index"`
	EventType string     `json:"event_type" gorm:"size:100;not null;index"`
	Payload   JSONB      `json:"payload" gorm:"type:jsonb"`
	IPAddress string     `json:"ip_address" gorm:"size:45"`
	UserAgent string     `json:"user_agent" gorm:"type:text"`

	// Relationships
	Actor *User `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
}

// BeforeUpdate rejects every update. Appending is the only write the ledger
// supports; this firing in production is a programming error.
func (AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects every delete, including soft deletes.
func (AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}
