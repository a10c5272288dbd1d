package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SplitMode string

const (
	SplitModeEqual      SplitMode = "equal"
	SplitModePercentage SplitMode = "percentage"
	SplitModeShares     SplitMode = "shares"
	SplitModeExact      SplitMode = "exact"
)

// tolerance is the maximum rounding drift allowed between an expense total
// and the sum of its splits, in currency units (one cent).
var tolerance = decimal.New(1, -2)

type Expense struct {
	ID          uuid.UUID       `json:"id"`
	GroupID     uuid.UUID       `json:"group_id"`
	PayerID     uuid.UUID       `json:"payer_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SplitMode   SplitMode       `json:"split_mode"`
	Category    string          `json:"category,omitempty"`
	SpentOn     time.Time       `json:"spent_on"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpenseSplit is one participant's share of an expense. Percentage and
// Shares are only meaningful for their respective split modes; zero means
// the field was not supplied.
type ExpenseSplit struct {
	ExpenseID  uuid.UUID       `json:"expense_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Shares     int64           `json:"shares,omitempty"`
}

// UserBalance is a user's running balance within one group.
// Positive = the group owes the user, negative = the user owes the group.
type UserBalance struct {
	UserID  uuid.UUID       `json:"user_id"`
	GroupID uuid.UUID       `json:"group_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// UserNet aggregates a user's balances across every group they belong to.
type UserNet struct {
	TotalOwed  decimal.Decimal `json:"total_owed"`
	TotalOwing decimal.Decimal `json:"total_owing"`
	Net        decimal.Decimal `json:"net"`
}

// SettlementInstruction is a proposed payment that reduces outstanding
// balances. Instructions are recomputed from the current balances on every
// request and never persisted.
type SettlementInstruction struct {
	FromUserID uuid.UUID       `json:"from_user_id"`
	ToUserID   uuid.UUID       `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func validSplitMode(m SplitMode) bool {
	switch m {
	case SplitModeEqual, SplitModePercentage, SplitModeShares, SplitModeExact:
		return true
	}
	return false
}

// Repository persists expenses, splits and balances. Mutating operations
// carry the balance deltas implied by the change; implementations must apply
// the expense change and the deltas in a single database transaction.
type Repository interface {
	CreateExpense(ctx context.Context, expense Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error
	UpdateExpense(ctx context.Context, expense Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error
	DeleteExpense(ctx context.Context, expense Expense, deltas map[uuid.UUID]decimal.Decimal) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, []ExpenseSplit, error)
	ListGroupExpenses(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]Expense, int, error)
	GetBalance(ctx context.Context, userID, groupID uuid.UUID) (decimal.Decimal, error)
	GroupBalances(ctx context.Context, groupID uuid.UUID) ([]UserBalance, error)
	UserBalances(ctx context.Context, userID uuid.UUID) ([]UserBalance, error)
	UserNet(ctx context.Context, userID uuid.UUID) (UserNet, error)
}

// Membership is the group-membership collaborator. Group management lives
// outside the engine; the engine only asks who is in a group.
type Membership interface {
	IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListActiveMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// ExpenseNotification is handed to the notification gateway after an
// expense has been committed.
type ExpenseNotification struct {
	Recipient   uuid.UUID       `json:"recipient"`
	PayerID     uuid.UUID       `json:"payer_id"`
	GroupID     uuid.UUID       `json:"group_id"`
	ExpenseID   uuid.UUID       `json:"expense_id"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	Share       decimal.Decimal `json:"share"`
	Currency    string          `json:"currency"`
}

// Notifier delivers expense notifications best effort. Implementations must
// never block the caller and never surface delivery failures.
type Notifier interface {
	ExpenseAdded(n ExpenseNotification)
}
