package periode

import (
	"context"
	"database/sql"

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

const periodeColumns = `id, user_id, nama, is_active, created_at, updated_at`

func scanPeriode(row interface{ Scan(...any) error }) (*Periode, error) {
	var p Periode
	err := row.Scan(&p.ID, &p.UserID, &p.Nama, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Find(ctx context.Context, id, userID string) (*Periode, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+periodeColumns+` from periode where id=$1 and user_id=$2`, id, userID)
	return scanPeriode(row)
}

func (s *PGStore) FindActive(ctx context.Context, userID string) (*Periode, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+periodeColumns+` from periode where user_id=$1 and is_active=true`, userID)
	return scanPeriode(row)
}

func (s *PGStore) FindLatest(ctx context.Context, userID string) (*Periode, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+periodeColumns+` from periode where user_id=$1
		 order by created_at desc limit 1`, userID)
	return scanPeriode(row)
}

func (s *PGStore) FindByName(ctx context.Context, userID, nama, excludeID string) (*Periode, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+periodeColumns+` from periode
		 where user_id=$1 and nama=$2 and id<>$3`, userID, nama, excludeID)
	return scanPeriode(row)
}

func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Periode, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from periode where user_id=$1`, filter.UserID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+periodeColumns+` from periode where user_id=$1
		 order by created_at desc limit $2 offset $3`,
		filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Periode
	for rows.Next() {
		p, err := scanPeriode(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from periode where user_id=$1`, userID).Scan(&n)
	return n, err
}

func (s *PGStore) Create(ctx context.Context, p *Periode, activate bool) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if !activate {
		_, err := s.db.ExecContext(ctx,
			`insert into periode(id, user_id, nama, is_active) values($1,$2,$3,false)`,
			p.ID, p.UserID, p.Nama)
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`update periode set is_active=false, updated_at=now()
		 where user_id=$1 and is_active=true`, p.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`insert into periode(id, user_id, nama, is_active) values($1,$2,$3,true)`,
		p.ID, p.UserID, p.Nama); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) Rename(ctx context.Context, id, nama string) error {
	res, err := s.db.ExecContext(ctx,
		`update periode set nama=$2, updated_at=now() where id=$1`, id, nama)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Activate(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`update periode set is_active=false, updated_at=now()
		 where user_id=$1 and is_active=true and id<>$2`, userID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`update periode set is_active=true, updated_at=now()
		 where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *PGStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update periode set is_active=false, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkActive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update periode set is_active=true, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from periode where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
