// internal/services/webhook_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/models"
)

type WebhookServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	investments *InvestmentService
	webhooks    *WebhookService
	notifier    *fakeNotifier
	user        *models.User
	tree        *models.Tree
}

func (s *WebhookServiceTestSuite) SetupTest() {
	cfg := newTestConfig()
	s.db = newTestDB(s.T())
	s.notifier = &fakeNotifier{}
	gateway := &fakeGateway{}

	audit := NewAuditService(s.db)
	fraud := NewFraudService(s.db, cfg)
	users := NewUserService(s.db)
	trees := NewTreeService(s.db)
	s.investments = NewInvestmentService(s.db, cfg, gateway, fraud, audit, users, trees, s.notifier)
	s.webhooks = NewWebhookService(s.db, cfg, s.investments, audit, s.notifier, nil)

	s.user = createVerifiedUser(s.T(), s.db)
	s.tree = createTree(s.T(), s.db, 1000, 100000)
}

// newPendingPurchase opens a purchase and returns the investment plus the
// gateway charge reference its transaction carries.
func (s *WebhookServiceTestSuite) newPendingPurchase() (*models.Investment, string) {
	investment, err := s.investments.InitiatePurchase(context.Background(), s.user.ID, &InitiatePurchaseRequest{
		TreeID: s.tree.ID,
		Amount: 5000,
	}, ClientMeta{})
	require.NoError(s.T(), err)

	var transaction models.Transaction
	require.NoError(s.T(), s.db.First(&transaction, *investment.TransactionID).Error)
	require.NotNil(s.T(), transaction.PaymentReference)
	return investment, *transaction.PaymentReference
}

func (s *WebhookServiceTestSuite) reconciledCount() int64 {
	var n int64
	require.NoError(s.T(), s.db.Model(&models.AuditLog{}).
		Where("event_type = ?", "payment.reconciled").Count(&n).Error)
	return n
}

func (s *WebhookServiceTestSuite) TestSucceededEventActivatesInvestment() {
	investment, chargeID := s.newPendingPurchase()

	err := s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", chargeID, []byte(`{}`))
	require.NoError(s.T(), err)

	var transaction models.Transaction
	require.NoError(s.T(), s.db.First(&transaction, *investment.TransactionID).Error)
	assert.Equal(s.T(), models.TransactionStatusCompleted, transaction.Status)
	assert.NotNil(s.T(), transaction.CompletedAt)

	var reloaded models.Investment
	require.NoError(s.T(), s.db.First(&reloaded, investment.ID).Error)
	assert.Equal(s.T(), models.InvestmentStatusActive, reloaded.Status)
	assert.NotNil(s.T(), reloaded.PurchasedAt)

	var event models.WebhookEvent
	require.NoError(s.T(), s.db.Where("event_id = ?", "evt_001").First(&event).Error)
	assert.NotNil(s.T(), event.ProcessedAt)

	assert.Equal(s.T(), int64(1), s.reconciledCount())
	assert.Contains(s.T(), s.notifier.kinds(), "investment_activated")
}

func (s *WebhookServiceTestSuite) TestDuplicateEventIDIsRejectedWithoutEffect() {
	investment, chargeID := s.newPendingPurchase()

	require.NoError(s.T(), s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", chargeID, []byte(`{}`)))

	err := s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", chargeID, []byte(`{}`))
	assert.True(s.T(), IsCode(err, ErrCodeAlreadyProcessed))

	assert.Equal(s.T(), int64(1), s.reconciledCount())

	var reloaded models.Investment
	require.NoError(s.T(), s.db.First(&reloaded, investment.ID).Error)
	assert.Equal(s.T(), models.InvestmentStatusActive, reloaded.Status)
}

func (s *WebhookServiceTestSuite) TestRedeliveryUnderNewEventIDIsAcknowledged() {
	_, chargeID := s.newPendingPurchase()

	require.NoError(s.T(), s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", chargeID, []byte(`{}`)))

	// The gateway may redeliver the same outcome under a fresh event id; the
	// transaction is already terminal so nothing is re-applied.
	require.NoError(s.T(), s.webhooks.HandleEvent(context.Background(), "evt_002", "payment_intent.succeeded", chargeID, []byte(`{}`)))

	assert.Equal(s.T(), int64(1), s.reconciledCount())
}

func (s *WebhookServiceTestSuite) TestFailedEventMarksTransactionFailed() {
	investment, chargeID := s.newPendingPurchase()

	err := s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.payment_failed", chargeID, []byte(`{}`))
	require.NoError(s.T(), err)

	var transaction models.Transaction
	require.NoError(s.T(), s.db.First(&transaction, *investment.TransactionID).Error)
	assert.Equal(s.T(), models.TransactionStatusFailed, transaction.Status)
	assert.NotEmpty(s.T(), transaction.FailureReason)

	// The investment stays pending; the user can retry the payment.
	var reloaded models.Investment
	require.NoError(s.T(), s.db.First(&reloaded, investment.ID).Error)
	assert.Equal(s.T(), models.InvestmentStatusPendingPayment, reloaded.Status)

	assert.Contains(s.T(), s.notifier.kinds(), "payment_failed")
}

func (s *WebhookServiceTestSuite) TestLateFailureAfterSuccessIsIgnored() {
	investment, chargeID := s.newPendingPurchase()

	require.NoError(s.T(), s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", chargeID, []byte(`{}`)))
	require.NoError(s.T(), s.webhooks.HandleEvent(context.Background(), "evt_002", "payment_intent.payment_failed", chargeID, []byte(`{}`)))

	var transaction models.Transaction
	require.NoError(s.T(), s.db.First(&transaction, *investment.TransactionID).Error)
	assert.Equal(s.T(), models.TransactionStatusCompleted, transaction.Status)

	var reloaded models.Investment
	require.NoError(s.T(), s.db.First(&reloaded, investment.ID).Error)
	assert.Equal(s.T(), models.InvestmentStatusActive, reloaded.Status)
}

func (s *WebhookServiceTestSuite) TestUnknownChargeIsAcknowledged() {
	err := s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.succeeded", "pi_unknown", []byte(`{}`))
	require.NoError(s.T(), err)

	var event models.WebhookEvent
	require.NoError(s.T(), s.db.Where("event_id = ?", "evt_001").First(&event).Error)
	assert.NotNil(s.T(), event.ProcessedAt)
	assert.Zero(s.T(), s.reconciledCount())
}

func (s *WebhookServiceTestSuite) TestUnhandledEventTypeIsRecordedAndSkipped() {
	_, chargeID := s.newPendingPurchase()

	err := s.webhooks.HandleEvent(context.Background(), "evt_001", "payment_intent.canceled", chargeID, []byte(`{}`))
	require.NoError(s.T(), err)

	var transaction models.Transaction
	require.NoError(s.T(), s.db.Where("payment_reference = ?", chargeID).First(&transaction).Error)
	assert.Equal(s.T(), models.TransactionStatusProcessing, transaction.Status)
	assert.Zero(s.T(), s.reconciledCount())
}

func TestWebhookServiceSuite(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}
