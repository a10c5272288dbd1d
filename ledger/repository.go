package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// CreateExpense persists the expense, its splits and the balance deltas in
// one transaction, so the ledger can never hold an expense without its
// balance effect.
func (r *repository) CreateExpense(ctx context.Context, expense Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertExpense(ctx, tx, expense); err != nil {
		return err
	}
	if err := insertSplits(ctx, tx, splits); err != nil {
		return err
	}
	if err := applyDeltas(ctx, tx, expense.GroupID, deltas); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateExpense replaces the expense row and its whole split set and applies
// the merged reverse-old-plus-apply-new deltas, all in one transaction.
func (r *repository) UpdateExpense(ctx context.Context, expense Expense, splits []ExpenseSplit, deltas map[uuid.UUID]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE expenses
              SET payer_id = $1, description = $2, amount = $3, currency = $4, split_mode = $5, category = $6, spent_on = $7, updated_at = $8
              WHERE id = $9`
	res, err := tx.ExecContext(
		ctx,
		query,
		expense.PayerID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.SplitMode,
		nullableString(expense.Category),
		expense.SpentOn,
		expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, expense.ID); err != nil {
		return err
	}
	if err := insertSplits(ctx, tx, splits); err != nil {
		return err
	}
	if err := applyDeltas(ctx, tx, expense.GroupID, deltas); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteExpense reverses the expense's balance effect and removes the
// expense and split rows in one transaction. Splits go with the expense via
// ON DELETE CASCADE.
func (r *repository) DeleteExpense(ctx context.Context, expense Expense, deltas map[uuid.UUID]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyDeltas(ctx, tx, expense.GroupID, deltas); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expense.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, []ExpenseSplit, error) {
	query := `SELECT id, group_id, payer_id, description, amount, currency, split_mode, category, spent_on, created_at, updated_at
              FROM expenses WHERE id = $1`

	var expense Expense
	var category sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&expense.ID,
		&expense.GroupID,
		&expense.PayerID,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.SplitMode,
		&category,
		&expense.SpentOn,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if category.Valid {
		expense.Category = category.String
	}

	rows, err := r.db.QueryContext(ctx, `SELECT expense_id, user_id, amount, COALESCE(percentage, 0), COALESCE(shares, 0) FROM expense_splits WHERE expense_id = $1`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var splits []ExpenseSplit
	for rows.Next() {
		var split ExpenseSplit
		if err := rows.Scan(&split.ExpenseID, &split.UserID, &split.Amount, &split.Percentage, &split.Shares); err != nil {
			return nil, nil, err
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &expense, splits, nil
}

func (r *repository) ListGroupExpenses(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]Expense, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE group_id = $1`, groupID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, group_id, payer_id, description, amount, currency, split_mode, category, spent_on, created_at, updated_at
              FROM expenses
              WHERE group_id = $1
              ORDER BY spent_on DESC, created_at DESC
              LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var expense Expense
		var category sql.NullString
		err := rows.Scan(
			&expense.ID,
			&expense.GroupID,
			&expense.PayerID,
			&expense.Description,
			&expense.Amount,
			&expense.Currency,
			&expense.SplitMode,
			&category,
			&expense.SpentOn,
			&expense.CreatedAt,
			&expense.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if category.Valid {
			expense.Category = category.String
		}
		expenses = append(expenses, expense)
	}

	return expenses, total, rows.Err()
}

// GetBalance returns the user's running balance within the group. A user who
// has never participated in an expense there has no row and owes nothing, so
// the result is zero.
func (r *repository) GetBalance(ctx context.Context, userID, groupID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT amount FROM user_balances WHERE user_id = $1 AND group_id = $2`

	var amount decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(&amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return amount, nil
}

func (r *repository) GroupBalances(ctx context.Context, groupID uuid.UUID) ([]UserBalance, error) {
	query := `SELECT user_id, group_id, amount FROM user_balances WHERE group_id = $1 ORDER BY user_id`
	return r.queryBalances(ctx, query, groupID)
}

func (r *repository) UserBalances(ctx context.Context, userID uuid.UUID) ([]UserBalance, error) {
	query := `SELECT user_id, group_id, amount FROM user_balances WHERE user_id = $1 ORDER BY group_id`
	return r.queryBalances(ctx, query, userID)
}

// UserNet aggregates a user's balances across groups: what the user is owed,
// what the user owes, and the difference.
func (r *repository) UserNet(ctx context.Context, userID uuid.UUID) (UserNet, error) {
	query := `SELECT
                COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
                COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0)
              FROM user_balances WHERE user_id = $1`

	var net UserNet
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&net.TotalOwed, &net.TotalOwing)
	if err != nil {
		return UserNet{}, err
	}
	net.Net = net.TotalOwed.Sub(net.TotalOwing)

	return net, nil
}

func (r *repository) queryBalances(ctx context.Context, query string, arg any) ([]UserBalance, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []UserBalance
	for rows.Next() {
		var b UserBalance
		if err := rows.Scan(&b.UserID, &b.GroupID, &b.Amount); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}

func insertExpense(ctx context.Context, tx *sql.Tx, expense Expense) error {
	query := `INSERT INTO expenses (id, group_id, payer_id, description, amount, currency, split_mode, category, spent_on, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := tx.ExecContext(
		ctx,
		query,
		expense.ID,
		expense.GroupID,
		expense.PayerID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.SplitMode,
		nullableString(expense.Category),
		expense.SpentOn,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	return err
}

func insertSplits(ctx context.Context, tx *sql.Tx, splits []ExpenseSplit) error {
	query := `INSERT INTO expense_splits (expense_id, user_id, amount, percentage, shares) VALUES ($1, $2, $3, $4, $5)`
	for _, split := range splits {
		var percentage any
		if !split.Percentage.IsZero() {
			percentage = split.Percentage
		}
		var shares any
		if split.Shares != 0 {
			shares = split.Shares
		}
		if _, err := tx.ExecContext(ctx, query, split.ExpenseID, split.UserID, split.Amount, percentage, shares); err != nil {
			return err
		}
	}
	return nil
}

// applyDeltas adds each delta to the user's running balance, creating the
// row at zero if absent. The additive upsert takes a row lock on each
// balance, so two concurrent expenses touching the same user both land
// (no read-then-write lost update). Users are visited in ascending ID order
// to keep the lock order stable across concurrent transactions.
func applyDeltas(ctx context.Context, tx *sql.Tx, groupID uuid.UUID, deltas map[uuid.UUID]decimal.Decimal) error {
	userIDs := make([]uuid.UUID, 0, len(deltas))
	for userID := range deltas {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		return bytes.Compare(userIDs[i][:], userIDs[j][:]) < 0
	})

	query := `INSERT INTO user_balances (user_id, group_id, amount, updated_at)
              VALUES ($1, $2, $3, now())
              ON CONFLICT (user_id, group_id)
              DO UPDATE SET amount = user_balances.amount + EXCLUDED.amount, updated_at = now()`

	for _, userID := range userIDs {
		delta := deltas[userID]
		if delta.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, userID, groupID, delta); err != nil {
			return err
		}
	}

	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
