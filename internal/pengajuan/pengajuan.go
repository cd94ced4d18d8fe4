// Package pengajuan implements the PAC letter-submission workflow. A
// submission starts PENDING and is decided exactly once by a branch
// secretary, moving to DITERIMA or DITOLAK.
package pengajuan

import (
	"context"
	"errors"
	"time"
)

// Store sentinel errors.
var (
	ErrNotFound = errors.New("pengajuan: not found")
	// ErrNotPending is returned by conditional writes when the row exists but
	// already left the PENDING state.
	ErrNotPending = errors.New("pengajuan: not pending")
)

// Status is the workflow state of a submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "DITERIMA"
	StatusRejected Status = "DITOLAK"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Penerima identifies the receiving wing of the organization.
type Penerima string

const (
	PenerimaIPNU    Penerima = "IPNU"
	PenerimaIPPNU   Penerima = "IPPNU"
	PenerimaBersama Penerima = "BERSAMA"
)

// Valid reports whether p is a known recipient.
func (p Penerima) Valid() bool {
	switch p {
	case PenerimaIPNU, PenerimaIPPNU, PenerimaBersama:
		return true
	}
	return false
}

// Pengajuan is one letter submission. Optional columns are pointers so the
// JSON body distinguishes absent from null.
type Pengajuan struct {
	ID              string    `json:"id"`
	NomorSurat      string    `json:"nomorSurat"`
	Penerima        Penerima  `json:"penerima"`
	Tanggal         time.Time `json:"tanggal"`
	Keperluan       string    `json:"keperluan"`
	Deskripsi       *string   `json:"deskripsi"`
	Status          Status    `json:"status"`
	AlasanPenolakan *string   `json:"alasanPenolakan"`
	FileURL         *string   `json:"fileUrl"`
	FileName        *string   `json:"fileName"`
	FileMime        *string   `json:"fileMime"`
	FileSize        *int64    `json:"fileSize"`
	UserID          string    `json:"userId"`
	PeriodePacID    string    `json:"periodePacId"`
	PeriodeCabangID *string   `json:"periodeCabangId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Filter narrows listings. UserID empty means organization-wide.
type Filter struct {
	UserID   string
	Status   Status
	Penerima Penerima
	Query    string
	Offset   int
	Limit    int
}

// Stats aggregates submission counts by recipient and status.
type Stats struct {
	Total    int `json:"total"`
	IPNU     int `json:"ipnu"`
	IPPNU    int `json:"ippnu"`
	Bersama  int `json:"bersama"`
	Pending  int `json:"pending"`
	Diterima int `json:"diterima"`
	Ditolak  int `json:"ditolak"`
}

// Update carries a partial edit. Nil pointer means "leave alone"; for
// clearable columns a pointer to the empty string clears the value.
type Update struct {
	NomorSurat *string
	Penerima   *Penerima
	Tanggal    *time.Time
	Keperluan  *string
	Deskripsi  *string
	FileURL    *string
	FileName   *string
	FileMime   *string
	FileSize   *int64
}

// Decision finalizes a submission.
type Decision struct {
	Status          Status
	AlasanPenolakan *string
	PeriodeCabangID string
}

// Store is the persistence contract. UpdatePending, Decide and DeletePending
// are conditional on status=PENDING so concurrent deciders cannot both win:
// they return ErrNotPending when the row exists but is no longer pending.
type Store interface {
	Create(ctx context.Context, p *Pengajuan) error
	Find(ctx context.Context, id string) (*Pengajuan, error)
	FindOwned(ctx context.Context, id, userID string) (*Pengajuan, error)
	List(ctx context.Context, filter Filter) ([]*Pengajuan, int, error)
	UpdatePending(ctx context.Context, id, userID string, upd Update) (*Pengajuan, error)
	Decide(ctx context.Context, id string, d Decision) (*Pengajuan, error)
	DeletePending(ctx context.Context, id, userID string) error
	Stats(ctx context.Context, userID string) (*Stats, error)
}
