package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

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

func (s *PGStore) Users() UserStore                 { return &userStore{db: s.db} }
func (s *PGStore) RefreshTokens() RefreshTokenStore { return &refreshTokenStore{db: s.db} }

const userColumns = `id, name, email, password_hash, role, is_active, email_verified, token_version, created_at, updated_at`

type userStore struct{ db *sql.DB }

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.IsActive, &u.EmailVerified, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, role, is_active, email_verified, token_version)
		 values($1,$2,$3,$4,$5,$6,$7,0)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.IsActive, u.EmailVerified,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context, filter UserListFilter) ([]*User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ilike $%d or email ilike $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from users where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where `+cond+
			fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *userStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set is_active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) IncrementTokenVersion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set token_version = token_version + 1, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) ListNotifiable(ctx context.Context, role Role) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users
		 where role=$1 and is_active=true and email_verified is not null`,
		string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	sets := []string{"updated_at=now()"}
	args := []any{id}
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, fmt.Sprintf("email=$%d", len(args)))
	}
	if upd.PasswordHash != nil {
		args = append(args, *upd.PasswordHash)
		sets = append(sets, fmt.Sprintf("password_hash=$%d", len(args)))
	}
	if upd.ClearVerification {
		sets = append(sets,
			"email_verified=null", "email_verify_token_hash=null", "email_verify_expires_at=null")
	}
	res, err := s.db.ExecContext(ctx,
		`update users set `+strings.Join(sets, ", ")+` where id=$1`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *userStore) SetEmailVerification(ctx context.Context, id string, v EmailVerification) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email_verify_token_hash=$2, email_verify_expires_at=$3, updated_at=now()
		 where id=$1`, id, v.TokenHash, v.ExpiresAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) PendingVerification(ctx context.Context, id string) (*EmailVerification, error) {
	row := s.db.QueryRowContext(ctx,
		`select email_verify_token_hash, email_verify_expires_at from users where id=$1`, id)
	var hash sql.NullString
	var exp sql.NullTime
	err := row.Scan(&hash, &exp)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !hash.Valid || !exp.Valid {
		return nil, nil
	}
	return &EmailVerification{TokenHash: hash.String, ExpiresAt: exp.Time}, nil
}

func (s *userStore) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email_verified=$2, email_verify_token_hash=null,
		 email_verify_expires_at=null, updated_at=now() where id=$1`, id, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, expires_at) values($1,$2,$3,$4)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt,
	)
	return err
}

func (s *refreshTokenStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, expires_at, revoked_at, created_at
		 from refresh_tokens where id=$1`, id)
	var tok RefreshToken
	err := row.Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.RevokedAt, &tok.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *refreshTokenStore) Revoke(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at=$2 where id=$1 and revoked_at is null`,
		id, time.Now().UTC())
	return err
}

func (s *refreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at=$2 where user_id=$1 and revoked_at is null`,
		userID, time.Now().UTC())
	return err
}
