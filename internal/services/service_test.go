// internal/services/service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/utils"
)

func newestFirstParams() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
}

// newTestDB opens an isolated in-memory database per test. A single
// connection keeps concurrent units of work serialized the way Postgres row
// locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Tree{},
		&models.Transaction{},
		&models.Investment{},
		&models.FraudAlert{},
		&models.AuditLog{},
		&models.WebhookEvent{},
	))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			Currency:       "usd",
			GatewayTimeout: 5,
		},
		Fraud: config.FraudConfig{
			VelocityWindowMinutes: 10,
			VelocityThreshold:     5,
			DebounceHours:         24,
			BlockingEnabled:       true,
		},
	}
}

func createVerifiedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Username:          "investor-" + uuid.NewString()[:8],
		Email:             uuid.NewString()[:8] + "@example.com",
		UserType:          models.UserTypeInvestor,
		VerificationLevel: models.VerificationLevelVerified,
		Status:            models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTree(t *testing.T, db *gorm.DB, min, max int64) *models.Tree {
	t.Helper()

	tree := &models.Tree{
		FarmID:        uuid.New(),
		Species:       "quercus robur",
		Name:          "Test Oak",
		MinInvestment: min,
		MaxInvestment: max,
		Currency:      "usd",
		Status:        models.TreeStatusAvailable,
	}
	require.NoError(t, db.Create(tree).Error)
	return tree
}

// fakeGateway is an in-memory PaymentGateway. Charges always succeed unless
// an error is injected.
type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	createErr error
	cancelErr error
	created   []string
	cancelled []string
}

func (g *fakeGateway) CreateCharge(_ context.Context, req *ChargeRequest) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}

	g.seq++
	id := fmt.Sprintf("pi_test_%03d", g.seq)
	g.created = append(g.created, id)
	return &Charge{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) GetChargeStatus(_ context.Context, chargeID string) (string, error) {
	return "requires_payment_method", nil
}

func (g *fakeGateway) CancelCharge(_ context.Context, chargeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, chargeID)
	return nil
}

// fakeNotifier records notifications instead of sending them.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(userID uuid.UUID, eventKind string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventKind)
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// newTestStack wires the full service graph against the test database.
func newTestStack(t *testing.T) (*gorm.DB, *InvestmentService, *fakeGateway, *fakeNotifier) {
	t.Helper()

	db := newTestDB(t)
	cfg := newTestConfig()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}

	audit := NewAuditService(db)
	fraud := NewFraudService(db, cfg)
	users := NewUserService(db)
	trees := NewTreeService(db)

	investments := NewInvestmentService(db, cfg, gateway, fraud, audit, users, trees, notifier)
	return db, investments, gateway, notifier
}
