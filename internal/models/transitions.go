// internal/models/transitions.go
package models

// EntityKind identifies which status vocabulary a transition check applies to.
type EntityKind string

const (
	EntityKindInvestment  EntityKind = "investment"
	EntityKindTransaction EntityKind = "transaction"
)

// investmentTransitions lists the legal status transitions for an Investment.
// Statuses with no entry are terminal.
var investmentTransitions = map[InvestmentStatus][]InvestmentStatus{
	InvestmentStatusPendingPayment: {InvestmentStatusActive, InvestmentStatusCancelled},
	InvestmentStatusActive:         {InvestmentStatusMatured, InvestmentStatusSold},
}

// transactionTransitions lists the legal status transitions for a Transaction.
// A processing transaction may be cancelled while its investment is still
// awaiting payment, which is why processing carries a cancelled edge.
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCancelled},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
}

// CanTransitionInvestment reports whether an Investment may move between the
// two statuses. Unknown statuses are never allowed.
func CanTransitionInvestment(from, to InvestmentStatus) bool {
	for _, s := range investmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTransaction reports whether a Transaction may move between the
// two statuses. Unknown statuses are never allowed.
func CanTransitionTransaction(from, to TransactionStatus) bool {
	for _, s := range transactionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransition is the generic form used where the entity kind is dynamic.
// It is total: unknown kinds and statuses return false rather than panic.
func CanTransition(kind EntityKind, from, to string) bool {
	switch kind {
	case EntityKindInvestment:
		return CanTransitionInvestment(InvestmentStatus(from), InvestmentStatus(to))
	case EntityKindTransaction:
		return CanTransitionTransaction(TransactionStatus(from), TransactionStatus(to))
	default:
		return false
	}
}

// IsTerminalInvestmentStatus reports whether a status has no outgoing edges.
func IsTerminalInvestmentStatus(s InvestmentStatus) bool {
	return len(investmentTransitions[s]) == 0
}

// IsTerminalTransactionStatus reports whether a status has no outgoing edges.
func IsTerminalTransactionStatus(s TransactionStatus) bool {
	return len(transactionTransitions[s]) == 0
}
