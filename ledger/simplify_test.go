package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balances(amounts map[uuid.UUID]string) []UserBalance {
	var out []UserBalance
	for _, id := range []uuid.UUID{alice, bob, carol, dave} {
		if amt, ok := amounts[id]; ok {
			out = append(out, UserBalance{UserID: id, Amount: dec(amt)})
		}
	}
	return out
}

func TestSimplify_TwoDebtorsOneCreditor(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "50.00", bob: "-30.00", carol: "-20.00"})

	got := Simplify(in)
	require.Len(t, got, 2)

	// Largest debtor settles first.
	assert.Equal(t, bob, got[0].FromUserID)
	assert.Equal(t, alice, got[0].ToUserID)
	assert.True(t, got[0].Amount.Equal(dec("30.00")))

	assert.Equal(t, carol, got[1].FromUserID)
	assert.Equal(t, alice, got[1].ToUserID)
	assert.True(t, got[1].Amount.Equal(dec("20.00")))
}

func TestSimplify_Deterministic(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "25.00", bob: "25.00", carol: "-25.00", dave: "-25.00"})

	first := Simplify(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Simplify(in))
	}

	// Equal magnitudes break ties by ascending user ID: alice is matched
	// before bob, carol before dave.
	require.Len(t, first, 2)
	assert.Equal(t, carol, first[0].FromUserID)
	assert.Equal(t, alice, first[0].ToUserID)
	assert.Equal(t, dave, first[1].FromUserID)
	assert.Equal(t, bob, first[1].ToUserID)
}

func TestSimplify_PureFunction(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "50.00", bob: "-30.00", carol: "-20.00"})
	Simplify(in)

	// Input snapshot is untouched.
	assert.True(t, in[0].Amount.Equal(dec("50.00")))
	assert.True(t, in[1].Amount.Equal(dec("-30.00")))
	assert.True(t, in[2].Amount.Equal(dec("-20.00")))
}

func TestSimplify_InstructionBound(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "60.00", bob: "-10.00", carol: "-20.00", dave: "-30.00"})
	got := Simplify(in)
	assert.LessOrEqual(t, len(got), len(in)-1)
}

func TestSimplify_DustIgnored(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "0.01", bob: "-0.01", carol: "0.00"})
	assert.Empty(t, Simplify(in))
}

func TestSimplify_Empty(t *testing.T) {
	assert.Empty(t, Simplify(nil))
	assert.Empty(t, Simplify([]UserBalance{}))
}

func TestSimplify_SettlesEverything(t *testing.T) {
	in := balances(map[uuid.UUID]string{alice: "70.00", bob: "5.00", carol: "-45.00", dave: "-30.00"})

	instructions := Simplify(in)

	// Replaying the instructions against the snapshot zeroes every balance.
	remaining := make(map[uuid.UUID]decimal.Decimal)
	for _, b := range in {
		remaining[b.UserID] = b.Amount
	}
	for _, ins := range instructions {
		remaining[ins.FromUserID] = remaining[ins.FromUserID].Add(ins.Amount)
		remaining[ins.ToUserID] = remaining[ins.ToUserID].Sub(ins.Amount)
	}
	for userID, amount := range remaining {
		assert.True(t, amount.Abs().LessThanOrEqual(tolerance), "user %s left with %s", userID, amount)
	}
}
