// Package activity records an audit trail of authenticated mutating requests.
package activity

import (
	"context"
	"time"
)

// Entry is one recorded action.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Action      string    `json:"action"`
	Method      string    `json:"method"`
	Endpoint    string    `json:"endpoint"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListFilter narrows a trail listing. UserID empty means organization-wide.
type ListFilter struct {
	UserID string
	Action string
	Method string
	Query  string
	Offset int
	Limit  int
}

// Stats is the aggregate for the trail.
type Stats struct {
	Total int `json:"total"`
}

// Store is the persistence contract.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter ListFilter) ([]*Entry, int, error)
	Count(ctx context.Context, userID string) (int, error)
}
