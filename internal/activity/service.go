package activity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/realtime"
)

// Service records and queries the audit trail.
type Service struct {
	store Store
	bus   *realtime.Broker
	log   *zap.Logger
}

// NewService constructs the trail service.
func NewService(store Store, bus *realtime.Broker, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Record persists one entry and broadcasts it as a log_activity event scoped
// to the acting account. Failures are logged, never surfaced: the audit trail
// must not break the request that produced it.
func (s *Service) Record(ctx context.Context, e *Entry) {
	if err := s.store.Create(ctx, e); err != nil {
		s.log.Warn("activity: record failed",
			zap.String("action", e.Action), zap.Error(err))
		return
	}
	s.bus.Publish(realtime.EventLogActivity, e, e.UserID)
}

// List pages trail entries matching the filter. The method filter is
// normalized to upper case.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	filter.Action = strings.TrimSpace(filter.Action)
	filter.Method = strings.ToUpper(strings.TrimSpace(filter.Method))
	return s.store.List(ctx, filter)
}

// Stats counts entries, organization-wide when userID is empty.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	total, err := s.store.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total}, nil
}
