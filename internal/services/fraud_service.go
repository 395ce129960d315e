// internal/services/fraud_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
)

// RuleVelocityLimit flags bursts of transactions from one user inside the
// configured trailing window.
const RuleVelocityLimit = "velocity_limit"

// FraudEvaluation is the gate's advice for one proposed monetary operation.
type FraudEvaluation struct {
	RiskLevel models.RiskLevel    `json:"risk_level"`
	Alerts    []models.FraudAlert `json:"alerts,omitempty"`
}

// Blocking reports whether the evaluation should stop the operation.
func (e *FraudEvaluation) Blocking() bool {
	return e.RiskLevel == models.RiskLevelBlocked
}

// FraudService evaluates pending monetary operations against recent
// activity. It only advises: it writes FraudAlert rows but never touches
// Investment or Transaction state.
type FraudService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewFraudService(db *gorm.DB, cfg *config.Config) *FraudService {
	return &FraudService{
		db:  db,
		cfg: cfg,
	}
}

// Evaluate runs the velocity rule inside the given transaction so the count
// it sees is consistent with the enclosing unit of work. It is deterministic
// for a given activity snapshot.
func (s *FraudService) Evaluate(tx *gorm.DB, userID uuid.UUID, amount int64) (*FraudEvaluation, error) {
	if tx == nil {
		tx = s.db
	}

	window := time.Duration(s.cfg.Fraud.VelocityWindowMinutes) * time.Minute
	since := time.Now().Add(-window)

	var recent int64
	if err := tx.Model(&models.Transaction{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&recent).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent transactions: %w", err)
	}

	if recent < int64(s.cfg.Fraud.VelocityThreshold) {
		return &FraudEvaluation{RiskLevel: models.RiskLevelLow}, nil
	}

	evaluation := &FraudEvaluation{RiskLevel: models.RiskLevelElevated}
	if s.cfg.Fraud.BlockingEnabled {
		evaluation.RiskLevel = models.RiskLevelBlocked
	}

	alert, err := s.raiseAlert(tx, userID, amount, recent)
	if err != nil {
		return nil, err
	}
	if alert != nil {
		evaluation.Alerts = append(evaluation.Alerts, *alert)
	}

	return evaluation, nil
}

// raiseAlert creates one FraudAlert unless an unresolved alert for the same
// user and rule already exists inside the debounce window. A race here can
// produce a duplicate alert, which is harmless; the blocking decision above
// never depends on the alert row.
func (s *FraudService) raiseAlert(tx *gorm.DB, userID uuid.UUID, amount, recent int64) (*models.FraudAlert, error) {
	debounce := time.Duration(s.cfg.Fraud.DebounceHours) * time.Hour
	cutoff := time.Now().Add(-debounce)

	var existing int64
	if err := tx.Model(&models.FraudAlert{}).
		Where("user_id = ? AND rule_id = ? AND detected_at > ? AND resolved_at IS NULL",
			userID, RuleVelocityLimit, cutoff).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing alerts: %w", err)
	}

	if existing > 0 {
		return nil, nil
	}

	alert := &models.FraudAlert{
		UserID:     userID,
		RuleID:     RuleVelocityLimit,
		Severity:   models.AlertSeverityHigh,
		Notes:      fmt.Sprintf("%d transactions in the last %d minutes (threshold %d), proposed amount %d", recent, s.cfg.Fraud.VelocityWindowMinutes, s.cfg.Fraud.VelocityThreshold, amount),
		DetectedAt: time.Now(),
	}

	if err := tx.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("failed to create fraud alert: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"rule_id": RuleVelocityLimit,
		"recent":  recent,
	}).Warn("Fraud alert raised")

	return alert, nil
}

// ResolveAlert records the review outcome. Setting the resolution timestamp
// is the only mutation a FraudAlert supports.
func (s *FraudService) ResolveAlert(alertID, adminID uuid.UUID) (*models.FraudAlert, error) {
	var alert models.FraudAlert
	if err := s.db.First(&alert, alertID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewAppError(ErrCodeNotFound, "fraud alert not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if alert.ResolvedAt != nil {
		return &alert, nil
	}

	now := time.Now()
	if err := s.db.Model(&alert).Updates(map[string]interface{}{
		"resolved_at": now,
		"resolved_by": adminID,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	alert.ResolvedAt = &now
	alert.ResolvedBy = &adminID
	return &alert, nil
}
