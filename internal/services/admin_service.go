// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/database"
	"github.com/arborvest/arbor-backend/internal/models"
	"github.com/arborvest/arbor-backend/internal/utils"
)

type AdminService struct {
	db                  *gorm.DB
	fraud               *FraudService
	audit               *AuditService
	notificationService *NotificationService
}

type AdminDashboardStats struct {
	TotalUsers              int64 `json:"total_users"`
	ActiveUsers             int64 `json:"active_users"`
	NewUsersThisMonth       int64 `json:"new_users_this_month"`
	TotalInvested           int64 `json:"total_invested"`
	InvestedThisMonth       int64 `json:"invested_this_month"`
	ActiveInvestments       int64 `json:"active_investments"`
	PendingPayments         int64 `json:"pending_payments"`
	AvailableTrees          int64 `json:"available_trees"`
	TotalTransactions       int64 `json:"total_transactions"`
	FailedTransactions      int64 `json:"failed_transactions"`
	UnresolvedFraudAlerts   int64 `json:"unresolved_fraud_alerts"`
	UserGrowthPercent       float64 `json:"user_growth_percent"`
	InvestmentGrowthPercent float64 `json:"investment_growth_percent"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	UserType          *models.UserType          `json:"user_type,omitempty"`
	Status            *models.UserStatus        `json:"status,omitempty"`
	VerificationLevel *models.VerificationLevel `json:"verification_level,omitempty"`
	CreatedAfter      *time.Time                `json:"created_after,omitempty"`
	CreatedBefore     *time.Time                `json:"created_before,omitempty"`
}

type AdminTransactionFilter struct {
	utils.PaginationParams
	TransactionType *models.TransactionType   `json:"transaction_type,omitempty"`
	Status          *models.TransactionStatus `json:"status,omitempty"`
	UserID          *uuid.UUID                `json:"user_id,omitempty"`
	AmountMin       *int64                    `json:"amount_min,omitempty"`
	AmountMax       *int64                    `json:"amount_max,omitempty"`
	CreatedAfter    *time.Time                `json:"created_after,omitempty"`
	CreatedBefore   *time.Time                `json:"created_before,omitempty"`
}

type AdminFraudAlertFilter struct {
	utils.PaginationParams
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	RuleID     *string    `json:"rule_id,omitempty"`
	Unresolved bool       `json:"unresolved,omitempty"`
}

func NewAdminService(db *gorm.DB, fraud *FraudService, audit *AuditService, notificationService *NotificationService) *AdminService {
	return &AdminService{
		db:                  db,
		fraud:               fraud,
		audit:               audit,
		notificationService: notificationService,
	}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	// User statistics
	s.db.Model(&models.User{}).Count(&stats.TotalUsers)
	s.db.Model(&models.User{}).Where("status = ?", models.UserStatusActive).Count(&stats.ActiveUsers)
	s.db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth)

	// Investment statistics
	s.db.Model(&models.Investment{}).
		Where("status = ?", models.InvestmentStatusActive).Count(&stats.ActiveInvestments)
	s.db.Model(&models.Investment{}).
		Where("status = ?", models.InvestmentStatusPendingPayment).Count(&stats.PendingPayments)
	s.db.Model(&models.Tree{}).
		Where("status = ?", models.TreeStatusAvailable).Count(&stats.AvailableTrees)

	s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalInvested)
	s.db.Model(&models.Transaction{}).
		Where("status = ? AND created_at >= ?", models.TransactionStatusCompleted, monthStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.InvestedThisMonth)

	// Transaction statistics
	s.db.Model(&models.Transaction{}).Count(&stats.TotalTransactions)
	s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusFailed).Count(&stats.FailedTransactions)

	// Risk statistics
	s.db.Model(&models.FraudAlert{}).
		Where("resolved_at IS NULL").Count(&stats.UnresolvedFraudAlerts)

	// Growth calculations
	var lastMonthUsers int64
	s.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthUsers)

	var lastMonthInvested int64
	s.db.Model(&models.Transaction{}).
		Where("status = ? AND created_at >= ? AND created_at < ?",
			models.TransactionStatusCompleted, lastMonthStart, monthStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&lastMonthInvested)

	if lastMonthUsers > 0 {
		stats.UserGrowthPercent = float64(stats.NewUsersThisMonth-lastMonthUsers) / float64(lastMonthUsers) * 100
	}
	if lastMonthInvested > 0 {
		stats.InvestmentGrowthPercent = float64(stats.InvestedThisMonth-lastMonthInvested) / float64(lastMonthInvested) * 100
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if filter.UserType != nil {
		query = query.Where("user_type = ?", *filter.UserType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.VerificationLevel != nil {
		query = query.Where("verification_level = ?", *filter.VerificationLevel)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.Search != "" {
		query = query.Where("username ILIKE ? OR email ILIKE ?", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "username", "email", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) UpdateUserStatus(userID, adminID uuid.UUID, status models.UserStatus, reason string, meta ClientMeta) (*models.User, error) {
	var user models.User
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "user not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		oldStatus := user.Status
		user.Status = status
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}

		if _, err := s.audit.Append(tx, &adminID, "user.status_changed", models.JSONB{
			"user_id":    userID.String(),
			"old_status": string(oldStatus),
			"new_status": string(status),
			"reason":     reason,
		}, meta); err != nil {
			return err
		}

		go s.notificationService.SendUserStatusChangeNotification(&user, oldStatus, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetVerificationLevel records the outcome of a KYC review. Raising a user
// to verified or premium is what makes them eligible to invest.
func (s *AdminService) SetVerificationLevel(userID, adminID uuid.UUID, level models.VerificationLevel, meta ClientMeta) (*models.User, error) {
	var user models.User
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "user not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		oldLevel := user.VerificationLevel
		user.VerificationLevel = level
		if level != models.VerificationLevelUnverified && user.KYCVerifiedAt == nil {
			now := time.Now()
			user.KYCVerifiedAt = &now
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update verification level: %w", err)
		}

		if _, err := s.audit.Append(tx, &adminID, "user.verification_changed", models.JSONB{
			"user_id":   userID.String(),
			"old_level": string(oldLevel),
			"new_level": string(level),
		}, meta); err != nil {
			return err
		}

		go s.notificationService.SendVerificationUpdateNotification(&user, level)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Investment Management

// MarkMatured moves an active investment to matured once the underlying
// tree reaches harvest.
func (s *AdminService) MarkMatured(investmentID, adminID uuid.UUID, meta ClientMeta) error {
	return s.closeInvestment(investmentID, adminID, models.InvestmentStatusMatured, "investment.matured", meta)
}

// MarkSold moves an active investment to sold after an ownership transfer.
func (s *AdminService) MarkSold(investmentID, adminID uuid.UUID, meta ClientMeta) error {
	return s.closeInvestment(investmentID, adminID, models.InvestmentStatusSold, "investment.sold", meta)
}

func (s *AdminService) closeInvestment(investmentID, adminID uuid.UUID, target models.InvestmentStatus, eventType string, meta ClientMeta) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var investment models.Investment
		if err := database.LockForUpdate(tx).
			First(&investment, investmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewAppError(ErrCodeNotFound, "investment not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !models.CanTransitionInvestment(investment.Status, target) {
			return NewAppError(ErrCodeInvalidTransition,
				fmt.Sprintf("investment in status %s cannot move to %s", investment.Status, target))
		}

		if err := tx.Model(&investment).Update("status", target).Error; err != nil {
			return fmt.Errorf("failed to update investment: %w", err)
		}

		_, err := s.audit.Append(tx, &adminID, eventType, models.JSONB{
			"investment_id": investment.ID.String(),
			"user_id":       investment.UserID.String(),
		}, meta)
		return err
	})
}

// Transaction Management
func (s *AdminService) GetTransactions(filter AdminTransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).Preload("User")

	if filter.TransactionType != nil {
		query = query.Where("transaction_type = ?", *filter.TransactionType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.AmountMin != nil {
		query = query.Where("amount >= ?", *filter.AmountMin)
	}
	if filter.AmountMax != nil {
		query = query.Where("amount <= ?", *filter.AmountMax)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}

// Fraud Management
func (s *AdminService) GetFraudAlerts(filter AdminFraudAlertFilter) ([]models.FraudAlert, int64, error) {
	query := s.db.Model(&models.FraudAlert{}).Preload("User")

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.RuleID != nil {
		query = query.Where("rule_id = ?", *filter.RuleID)
	}
	if filter.Unresolved {
		query = query.Where("resolved_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count fraud alerts: %w", err)
	}

	allowedSortFields := []string{"detected_at", "severity"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var alerts []models.FraudAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch fraud alerts: %w", err)
	}

	return alerts, total, nil
}

func (s *AdminService) ResolveFraudAlert(alertID, adminID uuid.UUID, meta ClientMeta) (*models.FraudAlert, error) {
	alert, err := s.fraud.ResolveAlert(alertID, adminID)
	if err != nil {
		return nil, err
	}

	_, err = s.audit.Append(s.db, &adminID, "fraud.alert_resolved", models.JSONB{
		"alert_id": alertID.String(),
		"user_id":  alert.UserID.String(),
		"rule_id":  alert.RuleID,
	}, meta)
	if err != nil {
		return nil, err
	}

	return alert, nil
}

// Audit Trail
func (s *AdminService) GetAuditLogs(params utils.PaginationParams) ([]models.AuditLog, int64, error) {
	return s.audit.List(params)
}
