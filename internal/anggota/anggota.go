// Package anggota keeps the member registry. Every member belongs to one
// owning account and is stamped with a period at creation.
package anggota

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by the store when a member does not exist.
var ErrNotFound = errors.New("anggota: not found")

// Anggota is one registered member.
type Anggota struct {
	ID           string     `json:"id"`
	NamaLengkap  string     `json:"namaLengkap"`
	JenisKelamin string     `json:"jenisKelamin"`
	TanggalLahir *time.Time `json:"tanggalLahir"`
	Jabatan      *string    `json:"jabatan"`
	Alamat       *string    `json:"alamat"`
	NoHp         *string    `json:"noHp"`
	Email        *string    `json:"email"`
	UserID       string     `json:"userId"`
	PeriodeID    string     `json:"periodeId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListFilter narrows a member listing to one owner, optionally one period and
// a free-text query.
type ListFilter struct {
	UserID    string
	PeriodeID string
	Query     string
	Offset    int
	Limit     int
}

// Stats aggregates member counts for one owner.
type Stats struct {
	Total     int             `json:"total"`
	ByPeriode []PeriodeBucket `json:"byPeriode,omitempty"`
}

// PeriodeBucket is one per-period member count.
type PeriodeBucket struct {
	PeriodeID string `json:"periodeId"`
	Total     int    `json:"total"`
}

// Update carries a partial edit; nil leaves a field alone, pointer-to-empty
// clears a clearable column.
type Update struct {
	NamaLengkap  *string
	JenisKelamin *string
	TanggalLahir *time.Time
	ClearTanggal bool
	Jabatan      *string
	Alamat       *string
	NoHp         *string
	Email        *string
	PeriodeID    *string
}

// Store is the persistence contract.
type Store interface {
	Create(ctx context.Context, a *Anggota) error
	Find(ctx context.Context, id, userID string) (*Anggota, error)
	List(ctx context.Context, filter ListFilter) ([]*Anggota, int, error)
	Update(ctx context.Context, id, userID string, upd Update) (*Anggota, error)
	Delete(ctx context.Context, id, userID string) error
	Stats(ctx context.Context, userID string, byPeriode bool) (*Stats, error)
}
