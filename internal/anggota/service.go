package anggota

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/periode"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

// PeriodeDirectory is the slice of the period service the registry needs:
// ownership checks for explicit period ids and resolution of the active one.
type PeriodeDirectory interface {
	Get(ctx context.Context, userID, id string) (*periode.Periode, error)
	ResolveOrRepairActive(ctx context.Context, userID string) (*periode.Periode, error)
}

// Service owns member registry logic.
type Service struct {
	store   Store
	periods PeriodeDirectory
	bus     *realtime.Broker
	log     *zap.Logger
}

// NewService constructs the registry service.
func NewService(store Store, periods PeriodeDirectory, bus *realtime.Broker, log *zap.Logger) *Service {
	return &Service{store: store, periods: periods, bus: bus, log: log}
}

// CreateInput is the raw create payload.
type CreateInput struct {
	NamaLengkap  string
	JenisKelamin string
	TanggalLahir *string
	Jabatan      *string
	Alamat       *string
	NoHp         *string
	Email        *string
	PeriodeID    *string
}

// UpdateInput is the raw partial-edit payload. Nil means absent.
type UpdateInput struct {
	NamaLengkap  *string
	JenisKelamin *string
	TanggalLahir *string
	Jabatan      *string
	Alamat       *string
	NoHp         *string
	Email        *string
	PeriodeID    *string
}

func parseTanggalLahir(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// Create registers a member. An explicit periodeId must belong to the caller;
// otherwise the caller's active period is resolved and stamped.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Anggota, error) {
	fields := map[string]string{}
	nama := strings.TrimSpace(in.NamaLengkap)
	if nama == "" {
		fields["namaLengkap"] = "Nama lengkap wajib diisi"
	}
	jk := strings.TrimSpace(in.JenisKelamin)
	if jk == "" {
		fields["jenisKelamin"] = "Jenis kelamin wajib diisi"
	}
	var lahir *time.Time
	if in.TanggalLahir != nil && strings.TrimSpace(*in.TanggalLahir) != "" {
		t, ok := parseTanggalLahir(strings.TrimSpace(*in.TanggalLahir))
		if !ok {
			fields["tanggalLahir"] = "Tanggal lahir tidak valid"
		} else {
			lahir = &t
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	var periodeID string
	if id := trimOptional(in.PeriodeID); id != nil {
		p, err := s.periods.Get(ctx, userID, *id)
		if err != nil {
			return nil, err
		}
		periodeID = p.ID
	} else {
		p, err := s.periods.ResolveOrRepairActive(ctx, userID)
		if err != nil {
			return nil, err
		}
		periodeID = p.ID
	}

	a := &Anggota{
		NamaLengkap:  nama,
		JenisKelamin: jk,
		TanggalLahir: lahir,
		Jabatan:      trimOptional(in.Jabatan),
		Alamat:       trimOptional(in.Alamat),
		NoHp:         trimOptional(in.NoHp),
		Email:        trimOptional(in.Email),
		UserID:       userID,
		PeriodeID:    periodeID,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.bus.PublishEntityChange("anggota", "create", a, userID)
	return a, nil
}

// Get returns one owned member.
func (s *Service) Get(ctx context.Context, userID, id string) (*Anggota, error) {
	a, err := s.store.Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Anggota tidak ditemukan")
	}
	return a, err
}

// List pages the owner's members.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Anggota, int, error) {
	return s.store.List(ctx, filter)
}

// Update applies a partial edit to an owned member.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*Anggota, error) {
	fields := map[string]string{}
	var upd Update

	if in.NamaLengkap != nil {
		v := strings.TrimSpace(*in.NamaLengkap)
		if v == "" {
			fields["namaLengkap"] = "Nama lengkap wajib diisi"
		}
		upd.NamaLengkap = &v
	}
	if in.JenisKelamin != nil {
		v := strings.TrimSpace(*in.JenisKelamin)
		if v == "" {
			fields["jenisKelamin"] = "Jenis kelamin wajib diisi"
		}
		upd.JenisKelamin = &v
	}
	if in.TanggalLahir != nil {
		raw := strings.TrimSpace(*in.TanggalLahir)
		if raw == "" {
			upd.ClearTanggal = true
		} else if t, ok := parseTanggalLahir(raw); !ok {
			fields["tanggalLahir"] = "Tanggal lahir tidak valid"
		} else {
			upd.TanggalLahir = &t
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if in.PeriodeID != nil {
		pid := strings.TrimSpace(*in.PeriodeID)
		if pid != "" {
			p, err := s.periods.Get(ctx, userID, pid)
			if err != nil {
				return nil, err
			}
			pid = p.ID
		}
		upd.PeriodeID = &pid
	}
	clearable := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	upd.Jabatan = clearable(in.Jabatan)
	upd.Alamat = clearable(in.Alamat)
	upd.NoHp = clearable(in.NoHp)
	upd.Email = clearable(in.Email)

	a, err := s.store.Update(ctx, id, userID, upd)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Anggota tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	s.bus.PublishEntityChange("anggota", "update", a, userID)
	return a, nil
}

// Delete removes an owned member.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.Delete(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Anggota tidak ditemukan")
	}
	if err != nil {
		return err
	}
	s.bus.PublishEntityChange("anggota", "delete", map[string]string{"id": id}, userID)
	return nil
}

// Stats aggregates the owner's member counts, optionally grouped by period.
func (s *Service) Stats(ctx context.Context, userID string, byPeriode bool) (*Stats, error) {
	return s.store.Stats(ctx, userID, byPeriode)
}
