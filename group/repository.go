package group

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// Create inserts the group and its creator as the first member in one
// transaction.
func (r *repository) Create(ctx context.Context, g Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertGroup := `INSERT INTO groups (id, name, currency, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, insertGroup, g.ID, g.Name, g.Currency, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}

	insertMember := `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)`
	_, err = tx.ExecContext(ctx, insertMember, g.ID, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := `SELECT id, name, currency, created_by, created_at FROM groups WHERE id = $1`

	var g Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Currency,
		&g.CreatedBy,
		&g.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &g, nil
}

// AddMember adds a user to the group, reactivating an old membership if the
// user had previously left.
func (r *repository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	query := `INSERT INTO group_members (group_id, user_id, joined_at)
              VALUES ($1, $2, now())
              ON CONFLICT (group_id, user_id)
              DO UPDATE SET left_at = NULL, joined_at = now()`
	_, err := r.db.ExecContext(ctx, query, groupID, userID)
	return err
}

// RemoveMember marks the membership inactive. The row stays so balances and
// past expenses keep a valid reference.
func (r *repository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	query := `UPDATE group_members SET left_at = now() WHERE group_id = $1 AND user_id = $2 AND left_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotMember
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]Member, error) {
	query := `SELECT group_id, user_id, joined_at, left_at FROM group_members WHERE group_id = $1 ORDER BY joined_at`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var leftAt sql.NullTime
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt, &leftAt); err != nil {
			return nil, err
		}
		if leftAt.Valid {
			m.LeftAt = &leftAt.Time
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *repository) IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2 AND left_at IS NULL)`

	var active bool
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

func (r *repository) ListActiveMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM group_members WHERE group_id = $1 AND left_at IS NULL ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
