// internal/services/investment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/database"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// Notifier is the fire-and-forget notification collaborator. Delivery
// failures are its concern, not the orchestrator's.
type Notifier interface {
	Notify(userID uuid.UUID, eventKind string, data map[string]interface{})
}

// InvestmentService drives the investment lifecycle state machine. Every
// multi-step state change runs inside one database transaction; statuses are
// only ever assigned after consulting the transition tables.
type InvestmentService struct {
	db       *gorm.DB
	cfg      *config.Config
	gateway  PaymentGateway
	fraud    *FraudService
	audit    *AuditService
	users    *UserService
	trees    *TreeService
	notifier Notifier
}

type InitiatePurchaseRequest struct {
	TreeID uuid.UUID `json:"tree_id" validate:"required"`
	Amount int64     `json:"amount" validate:"required,min=1"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" validate:"required,min=1"`
}

type CancelPurchaseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type InvestmentSearchParams struct {
	utils.PaginationParams
	UserID *uuid.UUID               `json:"user_id,omitempty"`
	TreeID *uuid.UUID               `json:"tree_id,omitempty"`
	Status *models.InvestmentStatus `json:"status,omitempty"`
}

func NewInvestmentService(db *gorm.DB, cfg *config.Config, gateway PaymentGateway, fraud *FraudService, audit *AuditService, users *UserService, trees *TreeService, notifier Notifier) *InvestmentService {
	return &InvestmentService{
		db:       db,
		cfg:      cfg,
		gateway:  gateway,
		fraud:    fraud,
		audit:    audit,
		users:    users,
		trees:    trees,
		notifier: notifier,
	}
}

// InitiatePurchase opens a new investment in pending_payment with a
// processing transaction holding the gateway's charge id. Preconditions are
// checked before the unit of work; everything that writes state happens
// inside it, so a late failure (including an audit append failure) leaves no
// partial local state behind. A charge may then exist at the gateway with no
// local reference, which reconciliation can detect by re-querying the
// gateway.
func (s *InvestmentService) InitiatePurchase(ctx context.Context, userID uuid.UUID, req *InitiatePurchaseRequest, meta ClientMeta) (*models.Investment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, WrapAppError(ErrCodeValidation, "invalid purchase request", err)
	}

	eligible, err := s.users.IsEligibleToInvest(userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, NewAppError(ErrCodeNotEligible, "user is not eligible to invest")
	}

	bounds, err := s.trees.GetInvestmentBounds(req.TreeID)
	if err != nil {
		return nil, err
	}
	if !bounds.Investable {
		return nil, NewAppError(ErrCodeTreeNotInvestable, "tree is not open for investment")
	}
	if req.Amount < bounds.Min {
		return nil, NewAppError(ErrCodeAmountBelowMinimum, fmt.Sprintf("amount %d is below the minimum %d", req.Amount, bounds.Min))
	}
	if req.Amount > bounds.Max {
		return nil, NewAppError(ErrCodeAmountAboveMaximum, fmt.Sprintf("amount %d is above the maximum %d", req.Amount, bounds.Max))
	}

	// The fraud gate runs outside the unit of work: an abort below must not
	// roll back the alert it raised.
	evaluation, err := s.fraud.Evaluate(nil, userID, req.Amount)
	if err != nil {
		return nil, err
	}
	if evaluation.Blocking() {
		return nil, NewAppError(ErrCodeFraudBlocked, "purchase blocked by risk evaluation")
	}

	var investment *models.Investment
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		transaction := &models.Transaction{
			UserID:          userID,
			TransactionType: models.TransactionTypePurchase,
			Amount:          req.Amount,
			Currency:        bounds.Currency,
			Status:          models.TransactionStatusPending,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		charge, err := s.gateway.CreateCharge(ctx, &ChargeRequest{
			Amount:   req.Amount,
			Currency: bounds.Currency,
			Metadata: map[string]string{
				"transaction_id": transaction.ID.String(),
				"user_id":        userID.String(),
				"tree_id":        req.TreeID.String(),
			},
		})
		if err != nil {
			return err
		}

		if !models.CanTransitionTransaction(transaction.Status, models.TransactionStatusProcessing) {
			return NewAppError(ErrCodeInvalidTransition, "transaction cannot start processing")
		}
		transaction.Status = models.TransactionStatusProcessing
		transaction.PaymentReference = &charge.ID
		if err := tx.Save(transaction).Error; err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		investment = &models.Investment{
			UserID:        userID,
			TreeID:        req.TreeID,
			Amount:        req.Amount,
			Currency:      bounds.Currency,
			Status:        models.InvestmentStatusPendingPayment,
			TransactionID: &transaction.ID,
			Metadata: models.JSONB{
				"client_secret": charge.ClientSecret,
			},
		}
		if err := tx.Create(investment).Error; err != nil {
			return fmt.Errorf("failed to create investment: %w", err)
		}

		if transaction.Metadata == nil {
			transaction.Metadata = make(models.JSONB)
		}
		transaction.Metadata["investment_id"] = investment.ID.String()
		if err := tx.Model(&models.Transaction{}).Where("id = ?", transaction.ID).
			Update("metadata", transaction.Metadata).Error; err != nil {
			return fmt.Errorf("failed to link transaction to investment: %w", err)
		}

		if _, err := s.audit.Append(tx, &userID, "investment.purchase_initiated", models.JSONB{
			"investment_id":  investment.ID.String(),
			"transaction_id": transaction.ID.String(),
			"tree_id":        req.TreeID.String(),
			"amount":         req.Amount,
			"currency":       bounds.Currency,
			"charge_id":      charge.ID,
		}, meta); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"investment_id": investment.ID,
		"user_id":       userID,
		"amount":        req.Amount,
	}).Info("Purchase initiated")

	return investment, nil
}

// ConfirmPurchase activates a pending investment on behalf of its owner (or
// an admin). It is idempotent: an already-active investment returns success
// without a second audit entry.
func (s *InvestmentService) ConfirmPurchase(investmentID uuid.UUID, actorID uuid.UUID, meta ClientMeta) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var owner models.Investment
		if err := tx.Select("user_id").First(&owner, investmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "investment not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if err := s.authorizeActor(tx, owner.UserID, actorID); err != nil {
			return err
		}

		changed, investment, err := s.confirmPurchaseTx(tx, investmentID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		_, err = s.audit.Append(tx, &actorID, "investment.activated", models.JSONB{
			"investment_id": investment.ID.String(),
			"user_id":       investment.UserID.String(),
			"amount":        investment.Amount,
		}, meta)
		return err
	})
}

// authorizeActor permits the investment's owner or an admin. Anyone else
// gets NOT_FOUND, matching the read path, so the id's existence is not
// disclosed to strangers.
func (s *InvestmentService) authorizeActor(tx *gorm.DB, ownerID, actorID uuid.UUID) error {
	if ownerID == actorID {
		return nil
	}

	var actor models.User
	if err := tx.Select("user_type").First(&actor, actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewAppError(ErrCodeNotFound, "investment not found")
		}
		return fmt.Errorf("database error: %w", err)
	}
	if actor.UserType != models.UserTypeAdmin {
		return NewAppError(ErrCodeNotFound, "investment not found")
	}
	return nil
}

// confirmPurchaseTx performs the pending_payment -> active transition inside
// an existing transaction. Returns changed=false when the investment is
// already active.
func (s *InvestmentService) confirmPurchaseTx(tx *gorm.DB, investmentID uuid.UUID) (bool, *models.Investment, error) {
	var investment models.Investment
	if err := database.LockForUpdate(tx).
		First(&investment, investmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, NewAppError(ErrCodeNotFound, "investment not found")
		}
		return false, nil, fmt.Errorf("database error: %w", err)
	}

	if investment.Status == models.InvestmentStatusActive {
		return false, &investment, nil
	}

	if !models.CanTransitionInvestment(investment.Status, models.InvestmentStatusActive) {
		return false, nil, NewAppError(ErrCodeInvalidTransition,
			fmt.Sprintf("investment in status %s cannot be activated", investment.Status))
	}

	now := time.Now()
	if err := tx.Model(&investment).Updates(map[string]interface{}{
		"status":       models.InvestmentStatusActive,
		"purchased_at": now,
	}).Error; err != nil {
		return false, nil, fmt.Errorf("failed to activate investment: %w", err)
	}

	investment.Status = models.InvestmentStatusActive
	investment.PurchasedAt = &now
	return true, &investment, nil
}

// CancelPurchase cancels an investment that has not been paid yet. The live
// charge is cancelled at the gateway first; a gateway failure aborts the
// unit of work so the caller can retry.
func (s *InvestmentService) CancelPurchase(ctx context.Context, investmentID uuid.UUID, actorID uuid.UUID, req *CancelPurchaseRequest, meta ClientMeta) error {
	if err := utils.ValidateStruct(req); err != nil {
		return WrapAppError(ErrCodeValidation, "invalid cancel request", err)
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var investment models.Investment
		if err := database.LockForUpdate(tx).
			First(&investment, investmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "investment not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.authorizeActor(tx, investment.UserID, actorID); err != nil {
			return err
		}

		if !models.CanTransitionInvestment(investment.Status, models.InvestmentStatusCancelled) {
			return NewAppError(ErrCodeNotCancellable,
				fmt.Sprintf("investment in status %s cannot be cancelled", investment.Status))
		}

		var transaction models.Transaction
		if investment.TransactionID != nil {
			if err := database.LockForUpdate(tx).
				First(&transaction, *investment.TransactionID).Error; err != nil {
				return fmt.Errorf("failed to load transaction: %w", err)
			}

			if transaction.PaymentReference != nil && !models.IsTerminalTransactionStatus(transaction.Status) {
				if err := s.gateway.CancelCharge(ctx, *transaction.PaymentReference); err != nil {
					return err
				}
			}

			if !models.CanTransitionTransaction(transaction.Status, models.TransactionStatusCancelled) {
				return NewAppError(ErrCodeInvalidTransition,
					fmt.Sprintf("transaction in status %s cannot be cancelled", transaction.Status))
			}
			if err := tx.Model(&transaction).
				Update("status", models.TransactionStatusCancelled).Error; err != nil {
				return fmt.Errorf("failed to cancel transaction: %w", err)
			}
		}

		if err := tx.Model(&investment).
			Update("status", models.InvestmentStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel investment: %w", err)
		}

		_, err := s.audit.Append(tx, &actorID, "investment.cancelled", models.JSONB{
			"investment_id": investment.ID.String(),
			"reason":        req.Reason,
		}, meta)
		return err
	})
}

// TopUp adds money to an active investment. The investment row is locked for
// update and the amount is incremented with an atomic expression, so
// concurrent top-ups serialize and never lose an update. The boundary is
// inclusive: a top-up landing exactly on the tree's maximum is allowed.
func (s *InvestmentService) TopUp(ctx context.Context, investmentID uuid.UUID, actorID uuid.UUID, req *TopUpRequest, meta ClientMeta) (*models.Investment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, WrapAppError(ErrCodeValidation, "invalid top-up request", err)
	}

	// Fraud gate before the unit of work, same as InitiatePurchase.
	var owner models.Investment
	if err := s.db.Select("user_id").First(&owner, investmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAppError(ErrCodeNotFound, "investment not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := s.authorizeActor(s.db, owner.UserID, actorID); err != nil {
		return nil, err
	}
	evaluation, err := s.fraud.Evaluate(nil, owner.UserID, req.Amount)
	if err != nil {
		return nil, err
	}
	if evaluation.Blocking() {
		return nil, NewAppError(ErrCodeFraudBlocked, "top-up blocked by risk evaluation")
	}

	var result *models.Investment
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var investment models.Investment
		if err := database.LockForUpdate(tx).
			First(&investment, investmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "investment not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if investment.Status != models.InvestmentStatusActive {
			return NewAppError(ErrCodeInvalidTransition,
				fmt.Sprintf("only active investments can be topped up, status is %s", investment.Status))
		}

		var tree models.Tree
		if err := tx.First(&tree, investment.TreeID).Error; err != nil {
			return fmt.Errorf("failed to load tree: %w", err)
		}
		if investment.Amount+req.Amount > tree.MaxInvestment {
			return NewAppError(ErrCodeAmountAboveMaximum,
				fmt.Sprintf("top-up would raise the amount to %d, above the maximum %d", investment.Amount+req.Amount, tree.MaxInvestment))
		}

		transaction := &models.Transaction{
			UserID:          investment.UserID,
			TransactionType: models.TransactionTypeTopUp,
			Amount:          req.Amount,
			Currency:        investment.Currency,
			Status:          models.TransactionStatusPending,
			Metadata: models.JSONB{
				"investment_id": investment.ID.String(),
			},
		}
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create top-up transaction: %w", err)
		}

		charge, err := s.gateway.CreateCharge(ctx, &ChargeRequest{
			Amount:   req.Amount,
			Currency: investment.Currency,
			Metadata: map[string]string{
				"transaction_id": transaction.ID.String(),
				"investment_id":  investment.ID.String(),
			},
		})
		if err != nil {
			return err
		}

		transaction.Status = models.TransactionStatusProcessing
		transaction.PaymentReference = &charge.ID
		if err := tx.Save(transaction).Error; err != nil {
			return fmt.Errorf("failed to update top-up transaction: %w", err)
		}

		if err := tx.Model(&models.Investment{}).Where("id = ?", investment.ID).
			Update("amount", gorm.Expr("amount + ?", req.Amount)).Error; err != nil {
			return fmt.Errorf("failed to increment investment amount: %w", err)
		}

		if _, err := s.audit.Append(tx, &actorID, "investment.topped_up", models.JSONB{
			"investment_id":  investment.ID.String(),
			"transaction_id": transaction.ID.String(),
			"amount":         req.Amount,
			"charge_id":      charge.ID,
		}, meta); err != nil {
			return err
		}

		investment.Amount += req.Amount
		result = &investment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *InvestmentService) GetInvestment(investmentID uuid.UUID) (*models.Investment, error) {
	var investment models.Investment
	if err := s.db.Preload("Tree").Preload("Transaction").
		First(&investment, investmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAppError(ErrCodeNotFound, "investment not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &investment, nil
}

func (s *InvestmentService) GetInvestments(params *InvestmentSearchParams) ([]models.Investment, int64, error) {
	query := s.db.Model(&models.Investment{}).Preload("Tree")

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.TreeID != nil {
		query = query.Where("tree_id = ?", *params.TreeID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count investments: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var investments []models.Investment
	if err := query.Find(&investments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch investments: %w", err)
	}

	return investments, total, nil
}

// GetPaymentHistory lists a user's transactions newest first.
func (s *InvestmentService) GetPaymentHistory(userID uuid.UUID, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}
