// internal/services/fraud_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
)

type FraudServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	cfg   *config.Config
	fraud *FraudService
	user  *models.User
}

func (s *FraudServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.cfg = newTestConfig()
	s.fraud = NewFraudService(s.db, s.cfg)
	s.user = createVerifiedUser(s.T(), s.db)
}

func (s *FraudServiceTestSuite) seedTransactions(n int) {
	for i := 0; i < n; i++ {
		require.NoError(s.T(), s.db.Create(&models.Transaction{
			UserID:          s.user.ID,
			TransactionType: models.TransactionTypePurchase,
			Amount:          1000,
			Currency:        "usd",
			Status:          models.TransactionStatusCompleted,
		}).Error)
	}
}

func (s *FraudServiceTestSuite) alertCount() int64 {
	var n int64
	require.NoError(s.T(), s.db.Model(&models.FraudAlert{}).
		Where("user_id = ?", s.user.ID).Count(&n).Error)
	return n
}

func (s *FraudServiceTestSuite) TestBelowThresholdIsLowRisk() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold - 1)

	evaluation, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.RiskLevelLow, evaluation.RiskLevel)
	assert.False(s.T(), evaluation.Blocking())
	assert.Zero(s.T(), s.alertCount())
}

func (s *FraudServiceTestSuite) TestAtThresholdBlocksAndRaisesAlert() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	evaluation, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.RiskLevelBlocked, evaluation.RiskLevel)
	assert.True(s.T(), evaluation.Blocking())
	require.Len(s.T(), evaluation.Alerts, 1)
	assert.Equal(s.T(), RuleVelocityLimit, evaluation.Alerts[0].RuleID)
	assert.Equal(s.T(), models.AlertSeverityHigh, evaluation.Alerts[0].Severity)
	assert.Equal(s.T(), int64(1), s.alertCount())
}

func (s *FraudServiceTestSuite) TestBlockingDisabledStillRaisesAlert() {
	s.cfg.Fraud.BlockingEnabled = false
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	evaluation, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.RiskLevelElevated, evaluation.RiskLevel)
	assert.False(s.T(), evaluation.Blocking())
	assert.Equal(s.T(), int64(1), s.alertCount())
}

func (s *FraudServiceTestSuite) TestAlertIsDebounced() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	_, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)

	// A second breach inside the debounce window still blocks but raises no
	// additional alert.
	evaluation, err := s.fraud.Evaluate(nil, s.user.ID, 7000)
	require.NoError(s.T(), err)

	assert.True(s.T(), evaluation.Blocking())
	assert.Empty(s.T(), evaluation.Alerts)
	assert.Equal(s.T(), int64(1), s.alertCount())
}

func (s *FraudServiceTestSuite) TestExpiredDebounceWindowAllowsNewAlert() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	first, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)
	require.Len(s.T(), first.Alerts, 1)

	// Age the alert past the debounce window; the next breach raises a fresh
	// one even though the old alert is still unresolved.
	stale := time.Now().Add(-time.Duration(s.cfg.Fraud.DebounceHours+1) * time.Hour)
	require.NoError(s.T(), s.db.Model(&models.FraudAlert{}).
		Where("id = ?", first.Alerts[0].ID).
		Update("detected_at", stale).Error)

	second, err := s.fraud.Evaluate(nil, s.user.ID, 6000)
	require.NoError(s.T(), err)
	assert.Len(s.T(), second.Alerts, 1)
	assert.Equal(s.T(), int64(2), s.alertCount())
}

func (s *FraudServiceTestSuite) TestResolvedAlertAllowsNewOne() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	first, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)
	require.Len(s.T(), first.Alerts, 1)

	admin := uuid.New()
	_, err = s.fraud.ResolveAlert(first.Alerts[0].ID, admin)
	require.NoError(s.T(), err)

	second, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)
	assert.Len(s.T(), second.Alerts, 1)
	assert.Equal(s.T(), int64(2), s.alertCount())
}

func (s *FraudServiceTestSuite) TestResolveAlert() {
	s.seedTransactions(s.cfg.Fraud.VelocityThreshold)

	evaluation, err := s.fraud.Evaluate(nil, s.user.ID, 5000)
	require.NoError(s.T(), err)
	require.Len(s.T(), evaluation.Alerts, 1)

	admin := uuid.New()
	resolved, err := s.fraud.ResolveAlert(evaluation.Alerts[0].ID, admin)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), resolved.ResolvedAt)
	assert.Equal(s.T(), admin, *resolved.ResolvedBy)

	// Resolving again is a no-op.
	again, err := s.fraud.ResolveAlert(evaluation.Alerts[0].ID, uuid.New())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), admin, *again.ResolvedBy)
}

func (s *FraudServiceTestSuite) TestResolveUnknownAlert() {
	_, err := s.fraud.ResolveAlert(uuid.New(), uuid.New())
	assert.True(s.T(), IsCode(err, ErrCodeNotFound))
}

func TestFraudServiceSuite(t *testing.T) {
	suite.Run(t, new(FraudServiceTestSuite))
}
