package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service coordinates the expense lifecycle: validate, persist expense and
// splits together with the implied balance deltas in one transaction, then
// notify participants best effort. Validation and authorization failures
// short-circuit before any mutation.
type Service struct {
	repo     Repository
	members  Membership
	notifier Notifier
}

func NewService(repo Repository, members Membership, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		members:  members,
		notifier: notifier,
	}
}

// CreateExpenseInput carries the caller-supplied fields for a new expense.
// Splits may be empty for the equal mode, in which case the service divides
// the total across all active group members.
type CreateExpenseInput struct {
	GroupID     uuid.UUID
	Description string
	Amount      decimal.Decimal
	Currency    string
	SplitMode   SplitMode
	Category    string
	SpentOn     time.Time
	Splits      []SplitInput
}

type SplitInput struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Percentage decimal.Decimal
	Shares     int64
}

// UpdateExpenseInput replaces an expense's mutable fields and its whole
// split set. Splits are never partially updated.
type UpdateExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Currency    string
	SplitMode   SplitMode
	Category    string
	SpentOn     time.Time
	PayerID     uuid.UUID
	Splits      []SplitInput
}

func (s *Service) CreateExpense(ctx context.Context, callerID uuid.UUID, in CreateExpenseInput) (*Expense, []ExpenseSplit, error) {
	if err := s.authorize(ctx, in.GroupID, callerID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	spentOn := in.SpentOn
	if spentOn.IsZero() {
		spentOn = now
	}
	expense := Expense{
		ID:          uuid.New(),
		GroupID:     in.GroupID,
		PayerID:     callerID,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    in.Currency,
		SplitMode:   in.SplitMode,
		Category:    in.Category,
		SpentOn:     spentOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ValidateExpense(expense); err != nil {
		return nil, nil, err
	}

	splits, err := s.resolveSplits(ctx, expense, in.Splits)
	if err != nil {
		return nil, nil, err
	}

	deltas := BalanceDeltas(expense, splits)
	if err := s.repo.CreateExpense(ctx, expense, splits, deltas); err != nil {
		return nil, nil, wrapDB("creating expense", err)
	}

	s.notifyParticipants(expense, splits)

	return &expense, splits, nil
}

func (s *Service) UpdateExpense(ctx context.Context, callerID, expenseID uuid.UUID, in UpdateExpenseInput) (*Expense, []ExpenseSplit, error) {
	old, oldSplits, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, old.GroupID, callerID); err != nil {
		return nil, nil, err
	}

	payerID := in.PayerID
	if payerID == uuid.Nil {
		payerID = old.PayerID
	}
	spentOn := in.SpentOn
	if spentOn.IsZero() {
		spentOn = old.SpentOn
	}
	updated := Expense{
		ID:          old.ID,
		GroupID:     old.GroupID,
		PayerID:     payerID,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    in.Currency,
		SplitMode:   in.SplitMode,
		Category:    in.Category,
		SpentOn:     spentOn,
		CreatedAt:   old.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := ValidateExpense(updated); err != nil {
		return nil, nil, err
	}

	newSplits, err := s.resolveSplits(ctx, updated, in.Splits)
	if err != nil {
		return nil, nil, err
	}

	// Reverse the old split set and apply the new one as a single merged
	// delta set so the repository commits both in one transaction. A crash
	// can never leave the ledger holding only half the edit.
	deltas := MergeDeltas(NegatedDeltas(BalanceDeltas(*old, oldSplits)), BalanceDeltas(updated, newSplits))
	if err := s.repo.UpdateExpense(ctx, updated, newSplits, deltas); err != nil {
		return nil, nil, wrapDB("updating expense", err)
	}

	return &updated, newSplits, nil
}

func (s *Service) DeleteExpense(ctx context.Context, callerID, expenseID uuid.UUID) error {
	expense, splits, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, expense.GroupID, callerID); err != nil {
		return err
	}

	deltas := NegatedDeltas(BalanceDeltas(*expense, splits))
	if err := s.repo.DeleteExpense(ctx, *expense, deltas); err != nil {
		return wrapDB("deleting expense", err)
	}

	return nil
}

func (s *Service) GetExpense(ctx context.Context, callerID, expenseID uuid.UUID) (*Expense, []ExpenseSplit, error) {
	expense, splits, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, expense.GroupID, callerID); err != nil {
		return nil, nil, err
	}
	return expense, splits, nil
}

func (s *Service) ListGroupExpenses(ctx context.Context, callerID, groupID uuid.UUID, limit, offset int) ([]Expense, int, error) {
	if err := s.authorize(ctx, groupID, callerID); err != nil {
		return nil, 0, err
	}
	expenses, total, err := s.repo.ListGroupExpenses(ctx, groupID, limit, offset)
	if err != nil {
		return nil, 0, wrapDB("listing group expenses", err)
	}
	return expenses, total, nil
}

// GroupBalances returns the current per-member balance snapshot.
func (s *Service) GroupBalances(ctx context.Context, callerID, groupID uuid.UUID) ([]UserBalance, error) {
	if err := s.authorize(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	balances, err := s.repo.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, wrapDB("listing group balances", err)
	}
	return balances, nil
}

// MemberBalance returns one member's balance in a group, zero if the member
// has never participated in an expense there.
func (s *Service) MemberBalance(ctx context.Context, callerID, groupID, userID uuid.UUID) (UserBalance, error) {
	if err := s.authorize(ctx, groupID, callerID); err != nil {
		return UserBalance{}, err
	}
	amount, err := s.repo.GetBalance(ctx, userID, groupID)
	if err != nil {
		return UserBalance{}, wrapDB("fetching balance", err)
	}
	return UserBalance{UserID: userID, GroupID: groupID, Amount: amount}, nil
}

// SimplifiedDebts recomputes the settlement plan from the current snapshot
// on every call; nothing is cached or persisted.
func (s *Service) SimplifiedDebts(ctx context.Context, callerID, groupID uuid.UUID) ([]SettlementInstruction, error) {
	balances, err := s.GroupBalances(ctx, callerID, groupID)
	if err != nil {
		return nil, err
	}
	return Simplify(balances), nil
}

func (s *Service) UserBalances(ctx context.Context, userID uuid.UUID) ([]UserBalance, error) {
	balances, err := s.repo.UserBalances(ctx, userID)
	if err != nil {
		return nil, wrapDB("listing user balances", err)
	}
	return balances, nil
}

func (s *Service) UserNet(ctx context.Context, userID uuid.UUID) (UserNet, error) {
	net, err := s.repo.UserNet(ctx, userID)
	if err != nil {
		return UserNet{}, wrapDB("computing user net", err)
	}
	return net, nil
}

func (s *Service) getExpense(ctx context.Context, expenseID uuid.UUID) (*Expense, []ExpenseSplit, error) {
	expense, splits, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, wrapDB("fetching expense", err)
	}
	if expense == nil {
		return nil, nil, &NotFoundError{Resource: "expense", ID: expenseID.String()}
	}
	return expense, splits, nil
}

func (s *Service) authorize(ctx context.Context, groupID, userID uuid.UUID) error {
	active, err := s.members.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return wrapDB("checking group membership", err)
	}
	if !active {
		return &ForbiddenError{Reason: "caller is not an active member of group " + groupID.String()}
	}
	return nil
}

// resolveSplits turns caller-supplied splits into validated ExpenseSplits,
// or synthesizes an equal division across all active members when the caller
// supplies none. Only the equal mode may synthesize.
func (s *Service) resolveSplits(ctx context.Context, expense Expense, inputs []SplitInput) ([]ExpenseSplit, error) {
	memberIDs, err := s.members.ListActiveMembers(ctx, expense.GroupID)
	if err != nil {
		return nil, wrapDB("listing group members", err)
	}
	if len(memberIDs) == 0 {
		return nil, validationErrorf("no active members")
	}

	if len(inputs) == 0 {
		if expense.SplitMode != SplitModeEqual {
			return nil, validationErrorf("splits are required for split mode %q", expense.SplitMode)
		}
		return EqualSplits(expense.ID, expense.Amount, memberIDs)
	}

	splits := make([]ExpenseSplit, 0, len(inputs))
	for _, in := range inputs {
		splits = append(splits, ExpenseSplit{
			ExpenseID:  expense.ID,
			UserID:     in.UserID,
			Amount:     in.Amount,
			Percentage: in.Percentage,
			Shares:     in.Shares,
		})
	}
	if err := ValidateSplits(expense.Amount, expense.SplitMode, splits, memberIDs); err != nil {
		return nil, err
	}

	return splits, nil
}

// notifyParticipants fans out after the transaction has committed. The
// notifier is fire and forget; a delivery failure can never fail the expense
// operation it follows.
func (s *Service) notifyParticipants(expense Expense, splits []ExpenseSplit) {
	if s.notifier == nil {
		return
	}
	for _, split := range splits {
		if split.UserID == expense.PayerID {
			continue
		}
		s.notifier.ExpenseAdded(ExpenseNotification{
			Recipient:   split.UserID,
			PayerID:     expense.PayerID,
			GroupID:     expense.GroupID,
			ExpenseID:   expense.ID,
			Description: expense.Description,
			Total:       expense.Amount,
			Share:       split.Amount,
			Currency:    expense.Currency,
		})
	}
	slog.Debug("expense notifications dispatched", "expense_id", expense.ID, "participants", len(splits))
}
