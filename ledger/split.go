package ledger

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateExpense checks the expense record itself, independent of splits.
func ValidateExpense(e Expense) error {
	if e.Description == "" {
		return validationErrorf("description can't be empty")
	}
	if !e.Amount.IsPositive() {
		return validationErrorf("amount must be positive")
	}
	if !e.Amount.Equal(e.Amount.Round(2)) {
		return validationErrorf("amount can't have more than two decimal places")
	}
	if e.Currency == "" {
		return validationErrorf("currency can't be empty")
	}
	if !validSplitMode(e.SplitMode) {
		return validationErrorf("unsupported split mode %q", e.SplitMode)
	}
	return nil
}

// ValidateSplits checks a proposed division of total across participants for
// the given split mode. Every participant must be an active group member,
// appear at most once, and the amounts must be consistent with the mode
// within a one-cent tolerance.
func ValidateSplits(total decimal.Decimal, mode SplitMode, splits []ExpenseSplit, memberIDs []uuid.UUID) error {
	if len(splits) == 0 {
		return validationErrorf("at least one split is required")
	}

	members := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = true
	}

	seen := make(map[uuid.UUID]bool, len(splits))
	for _, s := range splits {
		if !members[s.UserID] {
			return validationErrorf("user %s is not a group member", s.UserID)
		}
		if seen[s.UserID] {
			return validationErrorf("user %s appears in more than one split", s.UserID)
		}
		seen[s.UserID] = true
		if s.Amount.IsNegative() {
			return validationErrorf("split amount for user %s can't be negative", s.UserID)
		}
	}

	switch mode {
	case SplitModeEqual:
		expected := total.Div(decimal.NewFromInt(int64(len(splits))))
		for _, s := range splits {
			if s.Amount.Sub(expected).Abs().GreaterThan(tolerance) {
				return validationErrorf("equal split for user %s is %s, expected about %s", s.UserID, s.Amount, expected.Round(2))
			}
		}
	case SplitModePercentage:
		sum := decimal.Zero
		for _, s := range splits {
			if !s.Percentage.IsPositive() {
				return validationErrorf("percentage split for user %s must carry a positive percentage", s.UserID)
			}
			sum = sum.Add(s.Percentage)
		}
		if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
			return validationErrorf("percentages sum to %s, expected 100", sum)
		}
	case SplitModeShares:
		var totalShares int64
		for _, s := range splits {
			if s.Shares <= 0 {
				return validationErrorf("shares split for user %s must carry a positive share count", s.UserID)
			}
			totalShares += s.Shares
		}
		for _, s := range splits {
			expected := total.Mul(decimal.NewFromInt(s.Shares)).Div(decimal.NewFromInt(totalShares))
			if s.Amount.Sub(expected).Abs().GreaterThan(tolerance) {
				return validationErrorf("shares split for user %s is %s, expected about %s", s.UserID, s.Amount, expected.Round(2))
			}
		}
	case SplitModeExact:
		// Sum check below covers it.
	default:
		return validationErrorf("unsupported split mode %q", mode)
	}

	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	if sum.Sub(total).Abs().GreaterThan(tolerance) {
		return validationErrorf("splits sum to %s, expense total is %s", sum, total)
	}

	return nil
}

// EqualSplits divides total evenly across memberIDs. The division happens in
// whole cents; the leftover cents go one each to the first members in
// ascending user-ID order, so the same input always yields the same splits.
func EqualSplits(expenseID uuid.UUID, total decimal.Decimal, memberIDs []uuid.UUID) ([]ExpenseSplit, error) {
	if len(memberIDs) == 0 {
		return nil, validationErrorf("no active members")
	}
	if !total.Equal(total.Round(2)) {
		return nil, validationErrorf("amount can't have more than two decimal places")
	}

	ids := make([]uuid.UUID, len(memberIDs))
	copy(ids, memberIDs)
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	n := int64(len(ids))
	totalCents := total.Mul(hundred).IntPart()
	base := totalCents / n
	remainder := totalCents % n

	splits := make([]ExpenseSplit, 0, n)
	for i, userID := range ids {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		splits = append(splits, ExpenseSplit{
			ExpenseID: expenseID,
			UserID:    userID,
			Amount:    decimal.New(cents, -2),
		})
	}

	return splits, nil
}
