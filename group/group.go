package group

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a user's membership in a group. A member with a LeftAt timestamp
// is no longer active; the row is kept so their past expenses stay
// attributable.
type Member struct {
	GroupID  uuid.UUID  `json:"group_id"`
	UserID   uuid.UUID  `json:"user_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

var (
	ErrEmptyName     = errors.New("name can't be empty")
	ErrEmptyCurrency = errors.New("currency can't be empty")
	ErrNotMember     = errors.New("user is not a member of the group")
)

func NewGroup(name, currency string, createdBy uuid.UUID) (Group, error) {
	if name == "" {
		return Group{}, ErrEmptyName
	}
	if currency == "" {
		return Group{}, ErrEmptyCurrency
	}

	return Group{
		ID:        uuid.New(),
		Name:      name,
		Currency:  currency,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type Repository interface {
	Create(ctx context.Context, g Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]Member, error)
	IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListActiveMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}
