// internal/handlers/investment_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/middleware"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// stubGateway satisfies services.PaymentGateway without talking to Stripe.
type stubGateway struct {
	seq int
}

func (g *stubGateway) CreateCharge(_ context.Context, req *services.ChargeRequest) (*services.Charge, error) {
	g.seq++
	id := fmt.Sprintf("pi_handler_%03d", g.seq)
	return &services.Charge{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (g *stubGateway) GetChargeStatus(_ context.Context, chargeID string) (string, error) {
	return "requires_payment_method", nil
}

func (g *stubGateway) CancelCharge(_ context.Context, chargeID string) error {
	return nil
}

// noopNotifier discards notifications.
type noopNotifier struct{}

func (noopNotifier) Notify(_ uuid.UUID, _ string, _ map[string]interface{}) {}

type InvestmentHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
	tree   *models.Tree
	token  string
}

func (s *InvestmentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(s.T().Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { sqlDB.Close() })

	require.NoError(s.T(), db.AutoMigrate(
		&models.User{},
		&models.Tree{},
		&models.Transaction{},
		&models.Investment{},
		&models.FraudAlert{},
		&models.AuditLog{},
		&models.WebhookEvent{},
	))
	s.db = db

	cfg := &config.Config{
		Environment: "test",
		Payment:     config.PaymentConfig{Currency: "usd", GatewayTimeout: 5},
		Fraud: config.FraudConfig{
			VelocityWindowMinutes: 10,
			VelocityThreshold:     5,
			DebounceHours:         24,
			BlockingEnabled:       true,
		},
		JWT: config.JWTConfig{SecretKey: "handler-test-secret", AccessTokenTTL: 1},
	}
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	notifier := noopNotifier{}
	audit := services.NewAuditService(db)
	fraud := services.NewFraudService(db, cfg)
	users := services.NewUserService(db)
	trees := services.NewTreeService(db)
	investments := services.NewInvestmentService(db, cfg, &stubGateway{}, fraud, audit, users, trees, notifier)

	handler := NewInvestmentHandler(investments)

	router := gin.New()
	group := router.Group("/v1/investments", middleware.AuthRequired())
	{
		group.POST("", handler.InitiatePurchase)
		group.POST("/:id/confirm", handler.ConfirmPurchase)
		group.GET("", handler.GetInvestments)
		group.GET("/:id", handler.GetInvestment)
	}
	s.router = router

	s.user = &models.User{
		Username:          "investor-" + uuid.NewString()[:8],
		Email:             uuid.NewString()[:8] + "@example.com",
		UserType:          models.UserTypeInvestor,
		VerificationLevel: models.VerificationLevelVerified,
		Status:            models.UserStatusActive,
	}
	require.NoError(s.T(), s.user.SetPassword("TestPass123!"))
	require.NoError(s.T(), db.Create(s.user).Error)

	s.tree = &models.Tree{
		FarmID:        uuid.New(),
		Species:       "quercus robur",
		Name:          "Handler Oak",
		MinInvestment: 1000,
		MaxInvestment: 100000,
		Currency:      "usd",
		Status:        models.TreeStatusAvailable,
	}
	require.NoError(s.T(), db.Create(s.tree).Error)

	token, err := utils.GenerateJWT(s.user.ID, s.user.Username, string(s.user.UserType), string(s.user.VerificationLevel), 1)
	require.NoError(s.T(), err)
	s.token = token
}

func (s *InvestmentHandlerTestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(s.T(), err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *InvestmentHandlerTestSuite) TestInitiatePurchase() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  5000,
	}, s.token)

	assert.Equal(s.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(s.T(), response["success"].(bool))

	var investment models.Investment
	require.NoError(s.T(), s.db.Where("user_id = ?", s.user.ID).First(&investment).Error)
	assert.Equal(s.T(), models.InvestmentStatusPendingPayment, investment.Status)
}

func (s *InvestmentHandlerTestSuite) TestInitiatePurchaseRequiresAuth() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  5000,
	}, "")

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *InvestmentHandlerTestSuite) TestInitiatePurchaseValidation() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  -1,
	}, s.token)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *InvestmentHandlerTestSuite) TestInitiatePurchaseBelowMinimum() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  999,
	}, s.token)

	assert.Equal(s.T(), http.StatusConflict, w.Code)

	var response map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &response))
	errObj := response["error"].(map[string]interface{})
	assert.Equal(s.T(), "AMOUNT_BELOW_MINIMUM", errObj["code"])
}

func (s *InvestmentHandlerTestSuite) TestConfirmPurchase() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  5000,
	}, s.token)
	require.Equal(s.T(), http.StatusCreated, w.Code)

	var investment models.Investment
	require.NoError(s.T(), s.db.Where("user_id = ?", s.user.ID).First(&investment).Error)

	w = s.request("POST", "/v1/investments/"+investment.ID.String()+"/confirm", nil, s.token)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var reloaded models.Investment
	require.NoError(s.T(), s.db.First(&reloaded, investment.ID).Error)
	assert.Equal(s.T(), models.InvestmentStatusActive, reloaded.Status)
}

func (s *InvestmentHandlerTestSuite) TestGetInvestmentHidesOtherUsers() {
	w := s.request("POST", "/v1/investments", map[string]interface{}{
		"tree_id": s.tree.ID,
		"amount":  5000,
	}, s.token)
	require.Equal(s.T(), http.StatusCreated, w.Code)

	var investment models.Investment
	require.NoError(s.T(), s.db.Where("user_id = ?", s.user.ID).First(&investment).Error)

	other := &models.User{
		Username:          "investor-" + uuid.NewString()[:8],
		Email:             uuid.NewString()[:8] + "@example.com",
		UserType:          models.UserTypeInvestor,
		VerificationLevel: models.VerificationLevelVerified,
		Status:            models.UserStatusActive,
	}
	require.NoError(s.T(), other.SetPassword("TestPass123!"))
	require.NoError(s.T(), s.db.Create(other).Error)

	otherToken, err := utils.GenerateJWT(other.ID, other.Username, string(other.UserType), string(other.VerificationLevel), 1)
	require.NoError(s.T(), err)

	w = s.request("GET", "/v1/investments/"+investment.ID.String(), nil, otherToken)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func TestInvestmentHandlerSuite(t *testing.T) {
	suite.Run(t, new(InvestmentHandlerTestSuite))
}
