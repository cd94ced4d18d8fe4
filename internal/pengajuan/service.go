package pengajuan

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/mailer"
	"github.com/Inur123/Be-Laci/internal/periode"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

// UserDirectory is the slice of the account store the workflow needs for
// notification targeting.
type UserDirectory interface {
	Find(ctx context.Context, id string) (*auth.User, error)
	ListNotifiable(ctx context.Context, role auth.Role) ([]*auth.User, error)
}

// PeriodeResolver resolves (and repairs) the caller's active period.
type PeriodeResolver interface {
	ResolveOrRepairActive(ctx context.Context, userID string) (*periode.Periode, error)
}

// Service owns the submission workflow.
type Service struct {
	store   Store
	periods PeriodeResolver
	users   UserDirectory
	mail    *mailer.Dispatcher
	bus     *realtime.Broker
	log     *zap.Logger
}

// NewService constructs the workflow service.
func NewService(store Store, periods PeriodeResolver, users UserDirectory, mail *mailer.Dispatcher, bus *realtime.Broker, log *zap.Logger) *Service {
	return &Service{store: store, periods: periods, users: users, mail: mail, bus: bus, log: log}
}

// CreateInput is the raw create payload before validation.
type CreateInput struct {
	NomorSurat string
	Penerima   string
	Tanggal    string
	Keperluan  string
	Deskripsi  *string
	FileURL    *string
	FileName   *string
	FileMime   *string
	FileSize   *int64
}

// UpdateInput is the raw partial-edit payload. Nil means the field was absent
// from the request body. StatusProvided flags an attempt to set the status
// through the edit endpoint, which is rejected.
type UpdateInput struct {
	NomorSurat     *string
	Penerima       *string
	Tanggal        *string
	Keperluan      *string
	Deskripsi      *string
	FileURL        *string
	FileName       *string
	FileMime       *string
	FileSize       *int64
	StatusProvided bool
}

func parseTanggal(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cleanOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create validates and persists a new PENDING submission stamped with the
// submitter's active period, then queues notification emails to the submitter
// and every notifiable branch secretary.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Pengajuan, error) {
	fields := map[string]string{}

	nomor := strings.TrimSpace(in.NomorSurat)
	if nomor == "" {
		fields["nomorSurat"] = "Nomor surat wajib diisi"
	}
	penerima := Penerima(strings.ToUpper(strings.TrimSpace(in.Penerima)))
	if penerima == "" {
		fields["penerima"] = "Penerima wajib diisi"
	} else if !penerima.Valid() {
		fields["penerima"] = "Penerima tidak valid"
	}
	rawTanggal := strings.TrimSpace(in.Tanggal)
	var tanggal time.Time
	if rawTanggal == "" {
		fields["tanggal"] = "Tanggal wajib diisi"
	} else {
		var ok bool
		if tanggal, ok = parseTanggal(rawTanggal); !ok {
			fields["tanggal"] = "Tanggal tidak valid"
		}
	}
	keperluan := strings.TrimSpace(in.Keperluan)
	if keperluan == "" {
		fields["keperluan"] = "Keperluan wajib diisi"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	activePeriode, err := s.periods.ResolveOrRepairActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Pengajuan{
		NomorSurat:   nomor,
		Penerima:     penerima,
		Tanggal:      tanggal,
		Keperluan:    keperluan,
		Deskripsi:    cleanOptional(in.Deskripsi),
		Status:       StatusPending,
		FileURL:      cleanOptional(in.FileURL),
		FileName:     cleanOptional(in.FileName),
		FileMime:     cleanOptional(in.FileMime),
		FileSize:     in.FileSize,
		UserID:       userID,
		PeriodePacID: activePeriode.ID,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, p)
	s.bus.PublishEntityChange("pengajuan_pac", "create", p, userID)
	return p, nil
}

func (s *Service) notifyCreated(ctx context.Context, p *Pengajuan) {
	info := mailer.SubmissionInfo{
		NomorSurat: p.NomorSurat,
		Penerima:   string(p.Penerima),
		Tanggal:    p.Tanggal.Format("2006-01-02"),
		Keperluan:  p.Keperluan,
	}

	submitter, err := s.users.Find(ctx, p.UserID)
	if err != nil {
		s.log.Warn("pengajuan: submitter lookup failed", zap.Error(err))
		return
	}
	if submitter.Email != "" {
		s.mail.Enqueue(mailer.SubmissionReceived(submitter.Email, info))
	}

	reviewers, err := s.users.ListNotifiable(ctx, auth.RoleCabang)
	if err != nil {
		s.log.Warn("pengajuan: reviewer lookup failed", zap.Error(err))
		return
	}
	var emails []string
	for _, u := range reviewers {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	if len(emails) > 0 {
		s.mail.Enqueue(mailer.SubmissionPendingReview(emails, submitter.Name, info))
	}
}

// Get loads one submission. Callers without organization-wide sight only see
// their own rows.
func (s *Service) Get(ctx context.Context, userID string, seesAll bool, id string) (*Pengajuan, error) {
	var (
		p   *Pengajuan
		err error
	)
	if seesAll {
		p, err = s.store.Find(ctx, id)
	} else {
		p, err = s.store.FindOwned(ctx, id, userID)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Pengajuan PAC tidak ditemukan")
	}
	return p, err
}

// List pages submissions matching the filter. Status and recipient values are
// normalized to upper case before matching.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Pengajuan, int, error) {
	filter.Status = Status(strings.ToUpper(strings.TrimSpace(string(filter.Status))))
	filter.Penerima = Penerima(strings.ToUpper(strings.TrimSpace(string(filter.Penerima))))
	return s.store.List(ctx, filter)
}

// Update applies a partial edit to a still-pending submission owned by
// userID. Attempts to set the status here are rejected.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*Pengajuan, error) {
	fields := map[string]string{}
	if in.StatusProvided {
		fields["status"] = "Status tidak bisa diubah"
	}

	var upd Update
	if in.NomorSurat != nil {
		v := strings.TrimSpace(*in.NomorSurat)
		if v == "" {
			fields["nomorSurat"] = "Nomor surat wajib diisi"
		}
		upd.NomorSurat = &v
	}
	if in.Penerima != nil {
		v := Penerima(strings.ToUpper(strings.TrimSpace(*in.Penerima)))
		if v == "" {
			fields["penerima"] = "Penerima wajib diisi"
		} else if !v.Valid() {
			fields["penerima"] = "Penerima tidak valid"
		}
		upd.Penerima = &v
	}
	if in.Tanggal != nil {
		raw := strings.TrimSpace(*in.Tanggal)
		if raw == "" {
			fields["tanggal"] = "Tanggal wajib diisi"
		} else if t, ok := parseTanggal(raw); !ok {
			fields["tanggal"] = "Tanggal tidak valid"
		} else {
			upd.Tanggal = &t
		}
	}
	if in.Keperluan != nil {
		v := strings.TrimSpace(*in.Keperluan)
		if v == "" {
			fields["keperluan"] = "Keperluan wajib diisi"
		}
		upd.Keperluan = &v
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if in.Deskripsi != nil {
		v := strings.TrimSpace(*in.Deskripsi)
		upd.Deskripsi = &v
	}
	if in.FileURL != nil {
		v := strings.TrimSpace(*in.FileURL)
		upd.FileURL = &v
	}
	if in.FileName != nil {
		v := strings.TrimSpace(*in.FileName)
		upd.FileName = &v
	}
	if in.FileMime != nil {
		v := strings.TrimSpace(*in.FileMime)
		upd.FileMime = &v
	}
	upd.FileSize = in.FileSize

	p, err := s.store.UpdatePending(ctx, id, userID, upd)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("Pengajuan PAC tidak ditemukan")
	case errors.Is(err, ErrNotPending):
		return nil, apperr.InvalidTransition("Pengajuan tidak bisa diubah")
	case err != nil:
		return nil, err
	}

	s.bus.PublishEntityChange("pengajuan_pac", "update", p, userID)
	return p, nil
}

// Delete removes a still-pending submission owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeletePending(ctx, id, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("Pengajuan PAC tidak ditemukan")
	case errors.Is(err, ErrNotPending):
		return apperr.InvalidTransition("Pengajuan tidak bisa dihapus")
	case err != nil:
		return err
	}
	s.bus.PublishEntityChange("pengajuan_pac", "delete", map[string]string{"id": id}, userID)
	return nil
}

// Approve moves a pending submission to DITERIMA, stamps the approver's
// active period and clears any previous rejection reason. The losing side of
// a concurrent decision gets INVALID_STATUS_TRANSITION.
func (s *Service) Approve(ctx context.Context, approverID, id string) (*Pengajuan, error) {
	return s.decide(ctx, approverID, id, StatusAccepted, "")
}

// Reject moves a pending submission to DITOLAK with a mandatory reason.
func (s *Service) Reject(ctx context.Context, approverID, id, reason string) (*Pengajuan, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation(map[string]string{"alasanPenolakan": "Alasan penolakan wajib diisi"})
	}
	return s.decide(ctx, approverID, id, StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, approverID, id string, status Status, reason string) (*Pengajuan, error) {
	existing, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Pengajuan PAC tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	// Transition guard before period resolution, so a decided submission
	// reports the transition failure even when the approver has no periods.
	if existing.Status != StatusPending {
		return nil, apperr.InvalidTransition("Tidak dapat mengubah status")
	}

	approverPeriode, err := s.periods.ResolveOrRepairActive(ctx, approverID)
	if err != nil {
		return nil, err
	}

	d := Decision{Status: status, PeriodeCabangID: approverPeriode.ID}
	if status == StatusRejected {
		d.AlasanPenolakan = &reason
	}
	p, err := s.store.Decide(ctx, id, d)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("Pengajuan PAC tidak ditemukan")
	case errors.Is(err, ErrNotPending):
		return nil, apperr.InvalidTransition("Tidak dapat mengubah status")
	case err != nil:
		return nil, err
	}

	s.notifyDecided(ctx, p, reason)
	action := "approve"
	if status == StatusRejected {
		action = "reject"
	}
	s.bus.PublishEntityChange("pengajuan_pac", action, p, p.UserID)
	return p, nil
}

func (s *Service) notifyDecided(ctx context.Context, p *Pengajuan, reason string) {
	submitter, err := s.users.Find(ctx, p.UserID)
	if err != nil {
		s.log.Warn("pengajuan: submitter lookup failed", zap.Error(err))
		return
	}
	if submitter.Email == "" {
		return
	}
	info := mailer.SubmissionInfo{
		NomorSurat: p.NomorSurat,
		Penerima:   string(p.Penerima),
		Tanggal:    p.Tanggal.Format("2006-01-02"),
		Keperluan:  p.Keperluan,
	}
	if p.Status == StatusAccepted {
		s.mail.Enqueue(mailer.SubmissionAccepted(submitter.Email, info))
		return
	}
	s.mail.Enqueue(mailer.SubmissionRejected(submitter.Email, info, reason))
}

// Stats aggregates counts, organization-wide when userID is empty.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return s.store.Stats(ctx, userID)
}
