package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceDeltas computes the per-user balance changes implied by an expense
// and its splits. The payer is credited the difference between what they paid
// and their own share; every other participant owes their share. A payer who
// is not a participant is credited the full amount. The deltas of one expense
// always sum to zero when the splits sum to the total, which keeps the group
// ledger zero-sum.
//
// The result depends only on the arguments, so reversing an expense is the
// exact negation of applying it (see NegatedDeltas).
func BalanceDeltas(expense Expense, splits []ExpenseSplit) map[uuid.UUID]decimal.Decimal {
	deltas := make(map[uuid.UUID]decimal.Decimal, len(splits)+1)

	payerParticipates := false
	for _, s := range splits {
		if s.UserID == expense.PayerID {
			payerParticipates = true
			deltas[s.UserID] = deltas[s.UserID].Add(expense.Amount.Sub(s.Amount))
			continue
		}
		deltas[s.UserID] = deltas[s.UserID].Sub(s.Amount)
	}

	if !payerParticipates {
		deltas[expense.PayerID] = deltas[expense.PayerID].Add(expense.Amount)
	}

	return deltas
}

// NegatedDeltas returns the exact inverse of deltas, used to reverse a
// previously applied expense on edit or delete.
func NegatedDeltas(deltas map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	negated := make(map[uuid.UUID]decimal.Decimal, len(deltas))
	for userID, d := range deltas {
		negated[userID] = d.Neg()
	}
	return negated
}

// MergeDeltas sums two delta sets. An expense edit reverses the old splits
// and applies the new ones in one transaction, so the repository receives a
// single merged set.
func MergeDeltas(a, b map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	merged := make(map[uuid.UUID]decimal.Decimal, len(a)+len(b))
	for userID, d := range a {
		merged[userID] = d
	}
	for userID, d := range b {
		merged[userID] = merged[userID].Add(d)
	}
	return merged
}
