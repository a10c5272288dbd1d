package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps the ledger in memory and applies deltas the way the real
// repository does, so invariant tests exercise the coordinator end to end.
type fakeRepo struct {
	expenses map[uuid.UUID]Expense
	splits   map[uuid.UUID][]ExpenseSplit
	balances map[uuid.UUID]map[uuid.UUID]decimal.Decimal // groupID -> userID -> amount
	failNext error
	writes   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		expenses: make(map[uuid.UUID]Expense),
		splits:   make(map[uuid.UUID][]ExpenseSplit),
		balances: make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal),
	}
}

func (f *fakeRepo) apply(groupID uuid.UUID, deltas map[uuid.UUID]decimal.Decimal) {
	if f.balances[groupID] == nil {
		f.balances[groupID] = make(map[uuid.UUID]decimal.Decimal)
	}
	for userID, d := range deltas {
		f.balances[groupID][userID] = f.balances[groupID][userID].Add(d)
	}
}

func (f *fakeRepo) CreateExpense(_ context.Context, e Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error {
	if f.failNext != nil {
		return f.failNext
	}
	f.writes++
	f.expenses[e.ID] = e
	f.splits[e.ID] = splits
	f.apply(e.GroupID, deltas)
	return nil
}

func (f *fakeRepo) UpdateExpense(_ context.Context, e Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error {
	if f.failNext != nil {
		return f.failNext
	}
	f.writes++
	f.expenses[e.ID] = e
	f.splits[e.ID] = splits
	f.apply(e.GroupID, deltas)
	return nil
}

func (f *fakeRepo) DeleteExpense(_ context.Context, e Expense, deltas map[uuid.UUID]decimal.Decimal) error {
	if f.failNext != nil {
		return f.failNext
	}
	f.writes++
	delete(f.expenses, e.ID)
	delete(f.splits, e.ID)
	f.apply(e.GroupID, deltas)
	return nil
}

func (f *fakeRepo) GetExpense(_ context.Context, id uuid.UUID) (*Expense, []ExpenseSplit, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, nil, nil
	}
	return &e, f.splits[id], nil
}

func (f *fakeRepo) ListGroupExpenses(_ context.Context, groupID uuid.UUID, limit, offset int) ([]Expense, int, error) {
	var out []Expense
	for _, e := range f.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetBalance(_ context.Context, userID, groupID uuid.UUID) (decimal.Decimal, error) {
	amount, ok := f.balances[groupID][userID]
	if !ok {
		return decimal.Zero, nil
	}
	return amount, nil
}

func (f *fakeRepo) GroupBalances(_ context.Context, groupID uuid.UUID) ([]UserBalance, error) {
	var out []UserBalance
	for userID, amount := range f.balances[groupID] {
		out = append(out, UserBalance{UserID: userID, GroupID: groupID, Amount: amount})
	}
	return out, nil
}

func (f *fakeRepo) UserBalances(_ context.Context, userID uuid.UUID) ([]UserBalance, error) {
	var out []UserBalance
	for groupID, users := range f.balances {
		if amount, ok := users[userID]; ok {
			out = append(out, UserBalance{UserID: userID, GroupID: groupID, Amount: amount})
		}
	}
	return out, nil
}

func (f *fakeRepo) UserNet(_ context.Context, userID uuid.UUID) (UserNet, error) {
	net := UserNet{TotalOwed: decimal.Zero, TotalOwing: decimal.Zero}
	for _, users := range f.balances {
		amount, ok := users[userID]
		if !ok {
			continue
		}
		if amount.IsPositive() {
			net.TotalOwed = net.TotalOwed.Add(amount)
		} else {
			net.TotalOwing = net.TotalOwing.Add(amount.Neg())
		}
	}
	net.Net = net.TotalOwed.Sub(net.TotalOwing)
	return net, nil
}

func (f *fakeRepo) groupSum(groupID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range f.balances[groupID] {
		sum = sum.Add(amount)
	}
	return sum
}

type fakeMembership struct {
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeMembership) IsActiveMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	for _, id := range f.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembership) ListActiveMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	return f.members[groupID], nil
}

type fakeNotifier struct {
	sent []ExpenseNotification
}

func (f *fakeNotifier) ExpenseAdded(n ExpenseNotification) {
	f.sent = append(f.sent, n)
}

var testGroup = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")

func newTestService() (*Service, *fakeRepo, *fakeNotifier) {
	repo := newFakeRepo()
	members := &fakeMembership{members: map[uuid.UUID][]uuid.UUID{
		testGroup: {alice, bob, carol},
	}}
	notifier := &fakeNotifier{}
	return NewService(repo, members, notifier), repo, notifier
}

func createInput(amount string) CreateExpenseInput {
	return CreateExpenseInput{
		GroupID:     testGroup,
		Description: "dinner",
		Amount:      dec(amount),
		Currency:    "USD",
		SplitMode:   SplitModeEqual,
	}
}

func TestCreateExpense_AutoEqualSplits(t *testing.T) {
	svc, repo, _ := newTestService()

	expense, splits, err := svc.CreateExpense(context.Background(), alice, createInput("100.00"))
	require.NoError(t, err)
	require.Len(t, splits, 3)

	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	assert.True(t, sum.Equal(dec("100.00")))

	assert.Equal(t, alice, expense.PayerID)
	assert.True(t, repo.groupSum(testGroup).IsZero(), "group ledger must stay zero-sum")
	assert.True(t, repo.balances[testGroup][alice].Equal(dec("66.66")))
}

func TestCreateExpense_NonMemberForbidden(t *testing.T) {
	svc, repo, notifier := newTestService()

	_, _, err := svc.CreateExpense(context.Background(), dave, createInput("100.00"))

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Zero(t, repo.writes, "ledger must be untouched")
	assert.Empty(t, notifier.sent)
}

func TestCreateExpense_MissingSplitsNonEqualMode(t *testing.T) {
	svc, _, _ := newTestService()

	in := createInput("100.00")
	in.SplitMode = SplitModeExact

	_, _, err := svc.CreateExpense(context.Background(), alice, in)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateExpense_NoActiveMembers(t *testing.T) {
	repo := newFakeRepo()
	emptyGroup := uuid.New()
	members := &fakeMembership{members: map[uuid.UUID][]uuid.UUID{
		emptyGroup: {},
	}}
	svc := NewService(repo, members, nil)

	in := createInput("100.00")
	in.GroupID = emptyGroup

	// The creator is not an active member of an empty group either.
	_, _, err := svc.CreateExpense(context.Background(), alice, in)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestCreateExpense_RepoFailureWrapped(t *testing.T) {
	svc, repo, notifier := newTestService()
	cause := errors.New("connection reset")
	repo.failNext = cause

	_, _, err := svc.CreateExpense(context.Background(), alice, createInput("100.00"))

	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, notifier.sent, "no notifications for a failed create")
}

func TestCreateExpense_NotifiesNonPayerParticipants(t *testing.T) {
	svc, _, notifier := newTestService()

	expense, _, err := svc.CreateExpense(context.Background(), alice, createInput("90.00"))
	require.NoError(t, err)

	require.Len(t, notifier.sent, 2)
	recipients := map[uuid.UUID]bool{}
	for _, n := range notifier.sent {
		recipients[n.Recipient] = true
		assert.Equal(t, alice, n.PayerID)
		assert.Equal(t, expense.ID, n.ExpenseID)
		assert.True(t, n.Share.Equal(dec("30.00")))
	}
	assert.False(t, recipients[alice], "payer must not be notified")
	assert.True(t, recipients[bob])
	assert.True(t, recipients[carol])
}

func TestDeleteExpense_RestoresBalances(t *testing.T) {
	svc, repo, _ := newTestService()

	expense, _, err := svc.CreateExpense(context.Background(), alice, createInput("100.00"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(context.Background(), bob, expense.ID))

	for userID, amount := range repo.balances[testGroup] {
		assert.True(t, amount.IsZero(), "user %s left with %s", userID, amount)
	}
	_, _, err = svc.GetExpense(context.Background(), alice, expense.ID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestUpdateExpense_ReversesAndReapplies(t *testing.T) {
	svc, repo, _ := newTestService()

	expense, _, err := svc.CreateExpense(context.Background(), alice, createInput("90.00"))
	require.NoError(t, err)

	_, _, err = svc.UpdateExpense(context.Background(), alice, expense.ID, UpdateExpenseInput{
		Description: "dinner, corrected",
		Amount:      dec("120.00"),
		Currency:    "USD",
		SplitMode:   SplitModeEqual,
	})
	require.NoError(t, err)

	// Balances reflect only the new amount, not old plus new.
	assert.True(t, repo.balances[testGroup][alice].Equal(dec("80.00")))
	assert.True(t, repo.balances[testGroup][bob].Equal(dec("-40.00")))
	assert.True(t, repo.groupSum(testGroup).IsZero())
}

func TestUpdateExpense_ChangePayer(t *testing.T) {
	svc, repo, _ := newTestService()

	expense, _, err := svc.CreateExpense(context.Background(), alice, createInput("90.00"))
	require.NoError(t, err)

	_, _, err = svc.UpdateExpense(context.Background(), alice, expense.ID, UpdateExpenseInput{
		Description: "dinner",
		Amount:      dec("90.00"),
		Currency:    "USD",
		SplitMode:   SplitModeEqual,
		PayerID:     bob,
	})
	require.NoError(t, err)

	assert.True(t, repo.balances[testGroup][alice].Equal(dec("-30.00")))
	assert.True(t, repo.balances[testGroup][bob].Equal(dec("60.00")))
	assert.True(t, repo.groupSum(testGroup).IsZero())
}

func TestUpdateExpense_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.UpdateExpense(context.Background(), alice, uuid.New(), UpdateExpenseInput{
		Description: "x",
		Amount:      dec("1.00"),
		Currency:    "USD",
		SplitMode:   SplitModeEqual,
	})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteExpense_NonMemberForbidden(t *testing.T) {
	svc, repo, _ := newTestService()

	expense, _, err := svc.CreateExpense(context.Background(), alice, createInput("60.00"))
	require.NoError(t, err)
	writesBefore := repo.writes

	err = svc.DeleteExpense(context.Background(), dave, expense.ID)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, writesBefore, repo.writes)
}

func TestZeroSumInvariant_OverLifecycle(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, _, err := svc.CreateExpense(ctx, alice, createInput("100.00"))
	require.NoError(t, err)
	assert.True(t, repo.groupSum(testGroup).IsZero())

	in := createInput("45.99")
	in.SplitMode = SplitModeExact
	in.Splits = []SplitInput{
		{UserID: bob, Amount: dec("25.99")},
		{UserID: carol, Amount: dec("20.00")},
	}
	second, _, err := svc.CreateExpense(ctx, bob, in)
	require.NoError(t, err)
	assert.True(t, repo.groupSum(testGroup).IsZero())

	_, _, err = svc.UpdateExpense(ctx, carol, first.ID, UpdateExpenseInput{
		Description: "updated",
		Amount:      dec("77.77"),
		Currency:    "USD",
		SplitMode:   SplitModeEqual,
	})
	require.NoError(t, err)
	assert.True(t, repo.groupSum(testGroup).IsZero())

	require.NoError(t, svc.DeleteExpense(ctx, alice, second.ID))
	assert.True(t, repo.groupSum(testGroup).IsZero())

	require.NoError(t, svc.DeleteExpense(ctx, alice, first.ID))
	for userID, amount := range repo.balances[testGroup] {
		assert.True(t, amount.IsZero(), "user %s left with %s after full teardown", userID, amount)
	}
}

func TestSimplifiedDebts_FromSnapshot(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.CreateExpense(ctx, alice, createInput("90.00"))
	require.NoError(t, err)

	instructions, err := svc.SimplifiedDebts(ctx, alice, testGroup)
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	for _, ins := range instructions {
		assert.Equal(t, alice, ins.ToUserID)
		assert.True(t, ins.Amount.Equal(dec("30.00")))
	}
}

func TestMemberBalance_ZeroWhenAbsent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// Nobody has participated yet: zero, not an error.
	b, err := svc.MemberBalance(ctx, alice, testGroup, bob)
	require.NoError(t, err)
	assert.True(t, b.Amount.IsZero())

	// An expense split between alice and bob only. carol still has no
	// balance row and must read as zero.
	in := createInput("50.00")
	in.SplitMode = SplitModeExact
	in.Splits = []SplitInput{
		{UserID: alice, Amount: dec("25.00")},
		{UserID: bob, Amount: dec("25.00")},
	}
	_, _, err = svc.CreateExpense(ctx, alice, in)
	require.NoError(t, err)

	b, err = svc.MemberBalance(ctx, alice, testGroup, bob)
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(dec("-25.00")))

	b, err = svc.MemberBalance(ctx, alice, testGroup, carol)
	require.NoError(t, err)
	assert.True(t, b.Amount.IsZero())

	// Balance reads are authorized like every other group operation.
	_, err = svc.MemberBalance(ctx, dave, testGroup, bob)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestUserNet_AcrossGroups(t *testing.T) {
	repo := newFakeRepo()
	otherGroup := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	members := &fakeMembership{members: map[uuid.UUID][]uuid.UUID{
		testGroup:  {alice, bob, carol},
		otherGroup: {alice, bob},
	}}
	svc := NewService(repo, members, nil)
	ctx := context.Background()

	_, _, err := svc.CreateExpense(ctx, alice, createInput("90.00")) // alice +60 here
	require.NoError(t, err)

	in := createInput("50.00") // bob pays, alice owes 25 there
	in.GroupID = otherGroup
	_, _, err = svc.CreateExpense(ctx, bob, in)
	require.NoError(t, err)

	net, err := svc.UserNet(ctx, alice)
	require.NoError(t, err)
	assert.True(t, net.TotalOwed.Equal(dec("60.00")))
	assert.True(t, net.TotalOwing.Equal(dec("25.00")))
	assert.True(t, net.Net.Equal(dec("35.00")))
}
