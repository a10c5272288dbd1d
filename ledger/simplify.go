package ledger

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type party struct {
	userID uuid.UUID
	amount decimal.Decimal
}

// Simplify reduces a group's balance snapshot to point-to-point settlement
// instructions. Greedy matching: repeatedly pair the largest remaining
// creditor with the largest remaining debtor and settle the smaller of the
// two amounts. Ties on magnitude break by ascending user ID, so the output
// is fully determined by the input. Balances within one cent of zero are
// treated as settled dust and skipped.
//
// For n non-zero balances the result never exceeds n-1 instructions: every
// settlement zeroes out at least one side.
func Simplify(balances []UserBalance) []SettlementInstruction {
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.Amount.GreaterThan(tolerance):
			creditors = append(creditors, party{userID: b.UserID, amount: b.Amount})
		case b.Amount.LessThan(tolerance.Neg()):
			debtors = append(debtors, party{userID: b.UserID, amount: b.Amount.Neg()})
		}
	}

	instructions := make([]SettlementInstruction, 0, len(creditors)+len(debtors))
	for len(creditors) > 0 && len(debtors) > 0 {
		ci := largest(creditors)
		di := largest(debtors)

		settled := decimal.Min(creditors[ci].amount, debtors[di].amount)
		instructions = append(instructions, SettlementInstruction{
			FromUserID: debtors[di].userID,
			ToUserID:   creditors[ci].userID,
			Amount:     settled,
		})

		creditors[ci].amount = creditors[ci].amount.Sub(settled)
		debtors[di].amount = debtors[di].amount.Sub(settled)

		if !creditors[ci].amount.GreaterThan(tolerance) {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
		if !debtors[di].amount.GreaterThan(tolerance) {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
	}

	return instructions
}

// largest returns the index of the party with the biggest remaining amount,
// breaking ties by ascending user ID.
func largest(parties []party) int {
	best := 0
	for i := 1; i < len(parties); i++ {
		switch parties[i].amount.Cmp(parties[best].amount) {
		case 1:
			best = i
		case 0:
			if bytes.Compare(parties[i].userID[:], parties[best].userID[:]) < 0 {
				best = i
			}
		}
	}
	return best
}
