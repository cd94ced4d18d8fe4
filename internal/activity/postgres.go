package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Inur123/Be-Laci/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into log_activity(id, user_id, action, method, endpoint, description)
		 values($1,$2,$3,$4,$5,$6)
		 returning created_at`,
		e.ID, e.UserID, e.Action, e.Method, e.Endpoint, e.Description)
	return row.Scan(&e.CreatedAt)
}

func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, fmt.Sprintf("action=$%d", len(args)))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		where = append(where, fmt.Sprintf("method=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(endpoint ilike $%d or description ilike $%d)", n, n))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from log_activity where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`select id, user_id, action, method, endpoint, description, created_at
		 from log_activity where `+cond+
			fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Method, &e.Endpoint,
			&e.Description, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	var err error
	if userID == "" {
		err = s.db.QueryRowContext(ctx, `select count(*) from log_activity`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`select count(*) from log_activity where user_id=$1`, userID).Scan(&n)
	}
	return n, err
}
