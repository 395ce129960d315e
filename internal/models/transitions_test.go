// internal/models/transitions_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionInvestment(t *testing.T) {
	legal := []struct{ from, to InvestmentStatus }{
		{InvestmentStatusPendingPayment, InvestmentStatusActive},
		{InvestmentStatusPendingPayment, InvestmentStatusCancelled},
		{InvestmentStatusActive, InvestmentStatusMatured},
		{InvestmentStatusActive, InvestmentStatusSold},
	}
	for _, tc := range legal {
		assert.True(t, CanTransitionInvestment(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to InvestmentStatus }{
		{InvestmentStatusPendingPayment, InvestmentStatusMatured},
		{InvestmentStatusPendingPayment, InvestmentStatusSold},
		{InvestmentStatusActive, InvestmentStatusCancelled},
		{InvestmentStatusActive, InvestmentStatusPendingPayment},
		{InvestmentStatusCancelled, InvestmentStatusActive},
		{InvestmentStatusMatured, InvestmentStatusSold},
		{InvestmentStatusSold, InvestmentStatusActive},
		{InvestmentStatusActive, InvestmentStatusActive},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransitionInvestment(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCanTransitionTransaction(t *testing.T) {
	legal := []struct{ from, to TransactionStatus }{
		{TransactionStatusPending, TransactionStatusProcessing},
		{TransactionStatusPending, TransactionStatusCancelled},
		{TransactionStatusProcessing, TransactionStatusCompleted},
		{TransactionStatusProcessing, TransactionStatusFailed},
		{TransactionStatusProcessing, TransactionStatusCancelled},
	}
	for _, tc := range legal {
		assert.True(t, CanTransitionTransaction(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to TransactionStatus }{
		{TransactionStatusPending, TransactionStatusCompleted},
		{TransactionStatusPending, TransactionStatusFailed},
		{TransactionStatusCompleted, TransactionStatusFailed},
		{TransactionStatusCompleted, TransactionStatusProcessing},
		{TransactionStatusFailed, TransactionStatusCompleted},
		{TransactionStatusCancelled, TransactionStatusProcessing},
		{TransactionStatusProcessing, TransactionStatusProcessing},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransitionTransaction(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCanTransitionByKind(t *testing.T) {
	assert.True(t, CanTransition(EntityKindInvestment, "pending_payment", "active"))
	assert.True(t, CanTransition(EntityKindTransaction, "processing", "completed"))
	assert.False(t, CanTransition(EntityKindInvestment, "processing", "completed"))
	assert.False(t, CanTransition(EntityKind("order"), "pending", "active"))
	assert.False(t, CanTransition(EntityKindInvestment, "bogus", "active"))
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, IsTerminalInvestmentStatus(InvestmentStatusPendingPayment))
	assert.False(t, IsTerminalInvestmentStatus(InvestmentStatusActive))
	assert.True(t, IsTerminalInvestmentStatus(InvestmentStatusCancelled))
	assert.True(t, IsTerminalInvestmentStatus(InvestmentStatusMatured))
	assert.True(t, IsTerminalInvestmentStatus(InvestmentStatusSold))

	assert.False(t, IsTerminalTransactionStatus(TransactionStatusPending))
	assert.False(t, IsTerminalTransactionStatus(TransactionStatusProcessing))
	assert.True(t, IsTerminalTransactionStatus(TransactionStatusCompleted))
	assert.True(t, IsTerminalTransactionStatus(TransactionStatusFailed))
	assert.True(t, IsTerminalTransactionStatus(TransactionStatusCancelled))
}
