package pengajuan

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

const pengajuanColumns = `id, nomor_surat, penerima, tanggal, keperluan, deskripsi, status, alasan_penolakan,
 file_url, file_name, file_mime, file_size, user_id, periode_pac_id, periode_cabang_id, created_at, updated_at`

func scanPengajuan(row interface{ Scan(...any) error }) (*Pengajuan, error) {
	var (
		p        Pengajuan
		penerima string
		status   string
	)
	err := row.Scan(&p.ID, &p.NomorSurat, &penerima, &p.Tanggal, &p.Keperluan, &p.Deskripsi,
		&status, &p.AlasanPenolakan, &p.FileURL, &p.FileName, &p.FileMime, &p.FileSize,
		&p.UserID, &p.PeriodePacID, &p.PeriodeCabangID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Penerima = Penerima(penerima)
	p.Status = Status(status)
	return &p, nil
}

func (s *PGStore) Create(ctx context.Context, p *Pengajuan) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into pengajuan_pac(id, nomor_surat, penerima, tanggal, keperluan, deskripsi, status,
		   file_url, file_name, file_mime, file_size, user_id, periode_pac_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 returning created_at, updated_at`,
		p.ID, p.NomorSurat, string(p.Penerima), p.Tanggal, p.Keperluan, p.Deskripsi,
		string(p.Status), p.FileURL, p.FileName, p.FileMime, p.FileSize, p.UserID, p.PeriodePacID)
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id string) (*Pengajuan, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+pengajuanColumns+` from pengajuan_pac where id=$1`, id)
	return scanPengajuan(row)
}

func (s *PGStore) FindOwned(ctx context.Context, id, userID string) (*Pengajuan, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+pengajuanColumns+` from pengajuan_pac where id=$1 and user_id=$2`, id, userID)
	return scanPengajuan(row)
}

func (s *PGStore) List(ctx context.Context, filter Filter) ([]*Pengajuan, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Penerima != "" {
		args = append(args, string(filter.Penerima))
		where = append(where, fmt.Sprintf("penerima=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(nomor_surat ilike $%d or keperluan ilike $%d or deskripsi ilike $%d)", n, n, n))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from pengajuan_pac where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`select `+pengajuanColumns+` from pengajuan_pac where `+cond+
			fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Pengajuan
	for rows.Next() {
		p, err := scanPengajuan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// optionalText maps pointer-to-empty to NULL and nil stays out of the SET
// list entirely (callers check for nil before passing).
func optionalText(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func (s *PGStore) UpdatePending(ctx context.Context, id, userID string, upd Update) (*Pengajuan, error) {
	set := []string{"updated_at=now()"}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if upd.NomorSurat != nil {
		add("nomor_surat", *upd.NomorSurat)
	}
	if upd.Penerima != nil {
		add("penerima", string(*upd.Penerima))
	}
	if upd.Tanggal != nil {
		add("tanggal", *upd.Tanggal)
	}
	if upd.Keperluan != nil {
		add("keperluan", *upd.Keperluan)
	}
	if upd.Deskripsi != nil {
		add("deskripsi", optionalText(upd.Deskripsi))
	}
	if upd.FileURL != nil {
		add("file_url", optionalText(upd.FileURL))
	}
	if upd.FileName != nil {
		add("file_name", optionalText(upd.FileName))
	}
	if upd.FileMime != nil {
		add("file_mime", optionalText(upd.FileMime))
	}
	if upd.FileSize != nil {
		add("file_size", *upd.FileSize)
	}

	args = append(args, id, userID)
	row := s.db.QueryRowContext(ctx,
		`update pengajuan_pac set `+strings.Join(set, ", ")+
			fmt.Sprintf(` where id=$%d and user_id=$%d and status='PENDING' returning `+pengajuanColumns,
				len(args)-1, len(args)),
		args...)

	p, err := scanPengajuan(row)
	if err == ErrNotFound {
		return nil, s.pendingMiss(ctx, id, userID)
	}
	return p, err
}

func (s *PGStore) Decide(ctx context.Context, id string, d Decision) (*Pengajuan, error) {
	row := s.db.QueryRowContext(ctx,
		`update pengajuan_pac
		 set status=$2, alasan_penolakan=$3, periode_cabang_id=$4, updated_at=now()
		 where id=$1 and status='PENDING'
		 returning `+pengajuanColumns,
		id, string(d.Status), d.AlasanPenolakan, d.PeriodeCabangID)

	p, err := scanPengajuan(row)
	if err == ErrNotFound {
		return nil, s.pendingMiss(ctx, id, "")
	}
	return p, err
}

func (s *PGStore) DeletePending(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from pengajuan_pac where id=$1 and user_id=$2 and status='PENDING'`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.pendingMiss(ctx, id, userID)
	}
	return nil
}

// pendingMiss disambiguates a zero-row conditional write: the row is either
// gone or no longer pending.
func (s *PGStore) pendingMiss(ctx context.Context, id, userID string) error {
	var err error
	if userID == "" {
		_, err = s.Find(ctx, id)
	} else {
		_, err = s.FindOwned(ctx, id, userID)
	}
	if err == nil {
		return ErrNotPending
	}
	return err
}

func (s *PGStore) Stats(ctx context.Context, userID string) (*Stats, error) {
	cond := "1=1"
	args := []any{}
	if userID != "" {
		args = append(args, userID)
		cond = "user_id=$1"
	}

	var st Stats
	err := s.db.QueryRowContext(ctx,
		`select count(*),
		   count(*) filter (where penerima='IPNU'),
		   count(*) filter (where penerima='IPPNU'),
		   count(*) filter (where penerima='BERSAMA'),
		   count(*) filter (where status='PENDING'),
		   count(*) filter (where status='DITERIMA'),
		   count(*) filter (where status='DITOLAK')
		 from pengajuan_pac where `+cond, args...).
		Scan(&st.Total, &st.IPNU, &st.IPPNU, &st.Bersama, &st.Pending, &st.Diterima, &st.Ditolak)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
