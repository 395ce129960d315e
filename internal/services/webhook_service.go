// internal/services/webhook_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/database"
	"github.com/arborvest/arbor-backend/internal/models"
)

const webhookProviderStripe = "stripe"

// CertificateStore archives an ownership certificate for an activated
// investment and returns its location.
type CertificateStore interface {
	StoreCertificate(ctx context.Context, investment *models.Investment) (string, error)
}

// WebhookService reconciles asynchronous payment gateway events with local
// state. Events arrive at least once and possibly out of order, so every
// event is claimed exactly once through a unique (provider, event_id) insert
// and applied under a row lock on the referenced transaction.
type WebhookService struct {
	db           *gorm.DB
	cfg          *config.Config
	investments  *InvestmentService
	audit        *AuditService
	notifier     Notifier
	certificates CertificateStore
}

func NewWebhookService(db *gorm.DB, cfg *config.Config, investments *InvestmentService, audit *AuditService, notifier Notifier, certificates CertificateStore) *WebhookService {
	return &WebhookService{
		db:           db,
		cfg:          cfg,
		investments:  investments,
		audit:        audit,
		notifier:     notifier,
		certificates: certificates,
	}
}

// HandleEvent applies one gateway event. Redelivery of an event that was
// already claimed returns an ALREADY_PROCESSED error so the transport layer
// can acknowledge without re-applying. Events for unknown charges and event
// types the platform does not act on are acknowledged and recorded, not
// failed, since the gateway also emits events for flows outside this system.
func (s *WebhookService) HandleEvent(ctx context.Context, eventID, eventType, chargeID string, payload []byte) error {
	var activated *models.Investment
	var failedUserID *uuid.UUID

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		event := &models.WebhookEvent{
			Provider:  webhookProviderStripe,
			EventID:   eventID,
			EventType: eventType,
			Payload:   string(payload),
		}
		if err := tx.Create(event).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return NewAppError(ErrCodeAlreadyProcessed, fmt.Sprintf("event %s was already processed", eventID))
			}
			return fmt.Errorf("failed to claim webhook event: %w", err)
		}

		outcome, handled := map[string]models.TransactionStatus{
			"payment_intent.succeeded":      models.TransactionStatusCompleted,
			"payment_intent.payment_failed": models.TransactionStatusFailed,
		}[eventType]
		if !handled {
			logrus.WithFields(logrus.Fields{
				"event_id":   eventID,
				"event_type": eventType,
			}).Debug("Ignoring webhook event type")
			return s.markProcessed(tx, event)
		}

		var transaction models.Transaction
		if err := database.LockForUpdate(tx).
			Where("payment_reference = ?", chargeID).
			First(&transaction).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logrus.WithFields(logrus.Fields{
					"event_id":  eventID,
					"charge_id": chargeID,
				}).Warn("Webhook references unknown charge")
				return s.markProcessed(tx, event)
			}
			return fmt.Errorf("failed to load transaction: %w", err)
		}

		if !models.CanTransitionTransaction(transaction.Status, outcome) {
			// A terminal transaction means the effect already landed
			// through an earlier delivery under a different event id.
			logrus.WithFields(logrus.Fields{
				"event_id":       eventID,
				"transaction_id": transaction.ID,
				"status":         transaction.Status,
			}).Info("Webhook outcome already applied")
			return s.markProcessed(tx, event)
		}

		switch outcome {
		case models.TransactionStatusCompleted:
			if err := tx.Model(&transaction).Updates(map[string]interface{}{
				"status":       models.TransactionStatusCompleted,
				"completed_at": tx.NowFunc(),
			}).Error; err != nil {
				return fmt.Errorf("failed to complete transaction: %w", err)
			}

			if investmentID, ok := transaction.InvestmentID(); ok {
				changed, investment, err := s.investments.confirmPurchaseTx(tx, investmentID)
				if err != nil && !IsCode(err, ErrCodeInvalidTransition) {
					return err
				}
				if changed {
					activated = investment
				}
			}

		case models.TransactionStatusFailed:
			reason := fmt.Sprintf("payment failed (%s)", eventType)
			if err := tx.Model(&transaction).Updates(map[string]interface{}{
				"status":         models.TransactionStatusFailed,
				"failure_reason": reason,
			}).Error; err != nil {
				return fmt.Errorf("failed to fail transaction: %w", err)
			}
			failedUserID = &transaction.UserID
		}

		if _, err := s.audit.Append(tx, nil, "payment.reconciled", models.JSONB{
			"event_id":       eventID,
			"event_type":     eventType,
			"transaction_id": transaction.ID.String(),
			"outcome":        string(outcome),
		}, ClientMeta{}); err != nil {
			return err
		}

		return s.markProcessed(tx, event)
	})
	if err != nil {
		return err
	}

	// Side effects run after commit: a notification or certificate failure
	// must never roll back a reconciled payment.
	if activated != nil {
		s.notifier.Notify(activated.UserID, "investment_activated", map[string]interface{}{
			"investment_id": activated.ID.String(),
			"amount":        activated.Amount,
			"currency":      activated.Currency,
		})
		go s.archiveCertificate(activated)
	}
	if failedUserID != nil {
		s.notifier.Notify(*failedUserID, "payment_failed", map[string]interface{}{
			"charge_id": chargeID,
		})
	}

	return nil
}

func (s *WebhookService) markProcessed(tx *gorm.DB, event *models.WebhookEvent) error {
	if err := tx.Model(event).Update("processed_at", tx.NowFunc()).Error; err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}
	return nil
}

func (s *WebhookService) archiveCertificate(investment *models.Investment) {
	if s.certificates == nil {
		return
	}
	location, err := s.certificates.StoreCertificate(context.Background(), investment)
	if err != nil {
		logrus.WithError(err).WithField("investment_id", investment.ID).
			Error("Failed to archive investment certificate")
		return
	}
	logrus.WithFields(logrus.Fields{
		"investment_id": investment.ID,
		"location":      location,
	}).Info("Investment certificate archived")
}
