package periode

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

// Service owns period CRUD and active-period resolution.
type Service struct {
	store Store
	bus   *realtime.Broker
	log   *zap.Logger
}

// NewService constructs the period service.
func NewService(store Store, bus *realtime.Broker, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// ResolveOrRepairActive returns the owner's active period. When no period is
// flagged active it repairs the invariant by activating the most recently
// created one. Owners with no periods at all fail with NoActivePeriode.
func (s *Service) ResolveOrRepairActive(ctx context.Context, userID string) (*Periode, error) {
	active, err := s.store.FindActive(ctx, userID)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	latest, err := s.store.FindLatest(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NoActivePeriode()
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkActive(ctx, latest.ID); err != nil {
		return nil, err
	}
	latest.IsActive = true
	return latest, nil
}

// List pages the owner's periods. When periods exist but none is active the
// invariant is repaired first so the listing reflects a consistent state.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Periode, int, error) {
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return items, total, nil
	}
	if _, err := s.store.FindActive(ctx, filter.UserID); errors.Is(err, ErrNotFound) {
		if _, err := s.ResolveOrRepairActive(ctx, filter.UserID); err != nil {
			return nil, 0, err
		}
		return s.store.List(ctx, filter)
	} else if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one owned period.
func (s *Service) Get(ctx context.Context, userID, id string) (*Periode, error) {
	p, err := s.store.Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Periode tidak ditemukan")
	}
	return p, err
}

// Create adds a period. The owner's first ever period is forced active;
// otherwise activation follows the request. Names are unique per owner.
func (s *Service) Create(ctx context.Context, userID, nama string, isActive *bool) (*Periode, error) {
	nama = strings.TrimSpace(nama)
	if nama == "" {
		return nil, apperr.Validation(map[string]string{"nama": "Nama wajib diisi"})
	}
	if _, err := s.store.FindByName(ctx, userID, nama, ""); err == nil {
		return nil, apperr.ValidationConflict("nama", "Periode sudah ada")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	count, err := s.store.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	activate := count == 0 || (isActive != nil && *isActive)

	p := &Periode{UserID: userID, Nama: nama, IsActive: activate}
	if err := s.store.Create(ctx, p, activate); err != nil {
		return nil, err
	}

	s.bus.PublishEntityChange("periode", "create", p, userID)
	return p, nil
}

// Update renames and/or re-activates a period. Activating deactivates every
// sibling in the same transaction.
func (s *Service) Update(ctx context.Context, userID, id string, nama *string, isActive *bool) (*Periode, error) {
	current, err := s.store.Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Periode tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}

	if nama != nil {
		name := strings.TrimSpace(*nama)
		if name == "" {
			return nil, apperr.Validation(map[string]string{"nama": "Nama wajib diisi"})
		}
		if _, err := s.store.FindByName(ctx, userID, name, id); err == nil {
			return nil, apperr.ValidationConflict("nama", "Periode sudah ada")
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err := s.store.Rename(ctx, id, name); err != nil {
			return nil, err
		}
	}

	if isActive != nil {
		if *isActive {
			if err := s.store.Activate(ctx, userID, id); err != nil {
				return nil, err
			}
		} else if current.IsActive {
			// Deactivation may leave the owner with no active period; the
			// resolver repairs that lazily on the next read.
			if err := s.store.Deactivate(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.store.Find(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.bus.PublishEntityChange("periode", "update", updated, userID)
	return updated, nil
}

// Activate flags one period active, deactivating the others transactionally.
func (s *Service) Activate(ctx context.Context, userID, id string) (*Periode, error) {
	if _, err := s.store.Find(ctx, id, userID); errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Periode tidak ditemukan")
	} else if err != nil {
		return nil, err
	}
	if err := s.store.Activate(ctx, userID, id); err != nil {
		return nil, err
	}
	updated, err := s.store.Find(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.bus.PublishEntityChange("periode", "activate", updated, userID)
	return updated, nil
}

// Delete removes a period. The active period cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	current, err := s.store.Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Periode tidak ditemukan")
	}
	if err != nil {
		return err
	}
	if current.IsActive {
		return apperr.Validation(map[string]string{"id": "Periode aktif tidak bisa dihapus"})
	}
	if err := s.store.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("Periode tidak ditemukan")
		}
		return err
	}
	s.bus.PublishEntityChange("periode", "delete", map[string]string{"id": id}, userID)
	return nil
}
