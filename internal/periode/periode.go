// Package periode manages organizational terms and the "active period"
// invariant: once an owner has any period, exactly one of them is active.
package periode

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by the store when a period does not exist.
var ErrNotFound = errors.New("periode: not found")

// Periode is a named organizational term scoped to one owning account.
type Periode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Nama      string    `json:"nama"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter pages an owner's periods.
type ListFilter struct {
	UserID string
	Offset int
	Limit  int
}

// Store is the persistence contract. Create and Activate maintain the
// one-active invariant transactionally: they deactivate every other period of
// the owner in the same transaction as the activation.
type Store interface {
	Find(ctx context.Context, id, userID string) (*Periode, error)
	FindActive(ctx context.Context, userID string) (*Periode, error)
	FindLatest(ctx context.Context, userID string) (*Periode, error)
	FindByName(ctx context.Context, userID, nama, excludeID string) (*Periode, error)
	List(ctx context.Context, filter ListFilter) ([]*Periode, int, error)
	Count(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, p *Periode, activate bool) error
	Rename(ctx context.Context, id, nama string) error
	Activate(ctx context.Context, userID, id string) error
	Deactivate(ctx context.Context, id string) error
	// MarkActive is the single-row repair used by the resolver; it does not
	// touch sibling rows.
	MarkActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id, userID string) error
}
