package anggota

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

const anggotaColumns = `id, nama_lengkap, jenis_kelamin, tanggal_lahir, jabatan, alamat, no_hp, email,
 user_id, coalesce(periode_id, ''), created_at, updated_at`

func scanAnggota(row interface{ Scan(...any) error }) (*Anggota, error) {
	var a Anggota
	err := row.Scan(&a.ID, &a.NamaLengkap, &a.JenisKelamin, &a.TanggalLahir, &a.Jabatan,
		&a.Alamat, &a.NoHp, &a.Email, &a.UserID, &a.PeriodeID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PGStore) Create(ctx context.Context, a *Anggota) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into anggota(id, nama_lengkap, jenis_kelamin, tanggal_lahir, jabatan, alamat, no_hp, email,
		   user_id, periode_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 returning created_at, updated_at`,
		a.ID, a.NamaLengkap, a.JenisKelamin, a.TanggalLahir, a.Jabatan, a.Alamat, a.NoHp, a.Email,
		a.UserID, a.PeriodeID)
	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id, userID string) (*Anggota, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+anggotaColumns+` from anggota where id=$1 and user_id=$2`, id, userID)
	return scanAnggota(row)
}

func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Anggota, int, error) {
	where := []string{"user_id=$1"}
	args := []any{filter.UserID}
	if filter.PeriodeID != "" {
		args = append(args, filter.PeriodeID)
		where = append(where, fmt.Sprintf("periode_id=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(nama_lengkap ilike $%d or email ilike $%d or no_hp ilike $%d or alamat ilike $%d or jabatan ilike $%d)",
			n, n, n, n, n))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from anggota where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`select `+anggotaColumns+` from anggota where `+cond+
			fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Anggota
	for rows.Next() {
		a, err := scanAnggota(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func optionalText(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func (s *PGStore) Update(ctx context.Context, id, userID string, upd Update) (*Anggota, error) {
	set := []string{"updated_at=now()"}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if upd.NamaLengkap != nil {
		add("nama_lengkap", *upd.NamaLengkap)
	}
	if upd.JenisKelamin != nil {
		add("jenis_kelamin", *upd.JenisKelamin)
	}
	if upd.TanggalLahir != nil {
		add("tanggal_lahir", *upd.TanggalLahir)
	} else if upd.ClearTanggal {
		set = append(set, "tanggal_lahir=NULL")
	}
	if upd.Jabatan != nil {
		add("jabatan", optionalText(upd.Jabatan))
	}
	if upd.Alamat != nil {
		add("alamat", optionalText(upd.Alamat))
	}
	if upd.NoHp != nil {
		add("no_hp", optionalText(upd.NoHp))
	}
	if upd.Email != nil {
		add("email", optionalText(upd.Email))
	}
	if upd.PeriodeID != nil {
		add("periode_id", optionalText(upd.PeriodeID))
	}

	args = append(args, id, userID)
	row := s.db.QueryRowContext(ctx,
		`update anggota set `+strings.Join(set, ", ")+
			fmt.Sprintf(` where id=$%d and user_id=$%d returning `+anggotaColumns,
				len(args)-1, len(args)),
		args...)
	return scanAnggota(row)
}

func (s *PGStore) Delete(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from anggota where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Stats(ctx context.Context, userID string, byPeriode bool) (*Stats, error) {
	st := &Stats{}
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from anggota where user_id=$1`, userID).Scan(&st.Total); err != nil {
		return nil, err
	}
	if !byPeriode {
		return st, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`select coalesce(periode_id, ''), count(*) from anggota
		 where user_id=$1 group by periode_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b PeriodeBucket
		if err := rows.Scan(&b.PeriodeID, &b.Total); err != nil {
			return nil, err
		}
		st.ByPeriode = append(st.ByPeriode, b)
	}
	return st, rows.Err()
}
