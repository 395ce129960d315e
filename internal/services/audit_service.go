// internal/services/audit_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// ClientMeta carries the request-origin metadata recorded on audit entries.
// Zero value means system-originated (webhook reconciliation, jobs).
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService is the only way to write the audit ledger. There is no
// update or delete; the model's hooks and a database trigger reject both.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Append writes one entry inside the caller's transaction. A failed append
// must abort the caller's whole unit of work, so the error is returned
// rather than swallowed.
func (s *AuditService) Append(tx *gorm.DB, actorID *uuid.UUID, eventType string, payload models.JSONB, meta ClientMeta) (uuid.UUID, error) {
	if tx == nil {
		tx = s.db
	}

	entry := &models.AuditLog{
		ActorID:   actorID,
		EventType: eventType,
		Payload:   payload,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	if err := tx.Create(entry).Error; err != nil {
		return uuid.Nil, WrapAppError(ErrCodeExternalUnavailable, "audit ledger unavailable", err)
	}

	return entry.ID, nil
}

// List returns entries ordered newest first, created_at with the primary
// key as tiebreak.
func (s *AuditService) List(params utils.PaginationParams) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var entries []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC, id DESC"), params).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	return entries, total, nil
}

// Update always fails: the ledger has no mutate operation. Reaching this is
// a programming error and is logged at error severity.
func (s *AuditService) Update(id uuid.UUID, _ models.JSONB) error {
	logrus.WithField("audit_log_id", id).Error("Attempted update of immutable audit log entry")
	return WrapAppError(ErrCodeImmutableRecord, "audit log entries cannot be updated", models.ErrImmutableRecord)
}

// Delete always fails: the ledger has no delete operation.
func (s *AuditService) Delete(id uuid.UUID) error {
	logrus.WithField("audit_log_id", id).Error("Attempted delete of immutable audit log entry")
	return WrapAppError(ErrCodeImmutableRecord, "audit log entries cannot be deleted", models.ErrImmutableRecord)
}

// TranslateImmutable maps the model-level sentinel into the taxonomy for
// code paths that hit the GORM hooks directly.
func TranslateImmutable(err error) error {
	if errors.Is(err, models.ErrImmutableRecord) {
		return WrapAppError(ErrCodeImmutableRecord, "audit log entries are immutable", err)
	}
	return err
}
