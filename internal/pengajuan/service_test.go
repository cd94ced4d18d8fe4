package pengajuan

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/ids"
	"github.com/Inur123/Be-Laci/internal/mailer"
	"github.com/Inur123/Be-Laci/internal/periode"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]*Pengajuan
	clock time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*Pengajuan), clock: time.Unix(1700000000, 0)}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Create(_ context.Context, p *Pengajuan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	p.CreatedAt = f.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeStore) Find(_ context.Context, id string) (*Pengajuan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) FindOwned(_ context.Context, id, userID string) (*Pengajuan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, filter Filter) ([]*Pengajuan, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*Pengajuan
	for _, p := range f.rows {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Penerima != "" && p.Penerima != filter.Penerima {
			continue
		}
		if q := filter.Query; q != "" {
			q = strings.ToLower(q)
			desc := ""
			if p.Deskripsi != nil {
				desc = *p.Deskripsi
			}
			if !strings.Contains(strings.ToLower(p.NomorSurat), q) &&
				!strings.Contains(strings.ToLower(p.Keperluan), q) &&
				!strings.Contains(strings.ToLower(desc), q) {
				continue
			}
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (f *fakeStore) UpdatePending(_ context.Context, id, userID string, upd Update) (*Pengajuan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}
	if upd.NomorSurat != nil {
		p.NomorSurat = *upd.NomorSurat
	}
	if upd.Penerima != nil {
		p.Penerima = *upd.Penerima
	}
	if upd.Tanggal != nil {
		p.Tanggal = *upd.Tanggal
	}
	if upd.Keperluan != nil {
		p.Keperluan = *upd.Keperluan
	}
	clear := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
			return
		}
		v := *src
		*dst = &v
	}
	clear(&p.Deskripsi, upd.Deskripsi)
	clear(&p.FileURL, upd.FileURL)
	clear(&p.FileName, upd.FileName)
	clear(&p.FileMime, upd.FileMime)
	if upd.FileSize != nil {
		v := *upd.FileSize
		p.FileSize = &v
	}
	p.UpdatedAt = f.tick()
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Decide(_ context.Context, id string, d Decision) (*Pengajuan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}
	p.Status = d.Status
	p.AlasanPenolakan = d.AlasanPenolakan
	pc := d.PeriodeCabangID
	p.PeriodeCabangID = &pc
	p.UpdatedAt = f.tick()
	cp := *p
	return &cp, nil
}

func (f *fakeStore) DeletePending(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	if p.Status != StatusPending {
		return ErrNotPending
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeStore) Stats(_ context.Context, userID string) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &Stats{}
	for _, p := range f.rows {
		if userID != "" && p.UserID != userID {
			continue
		}
		st.Total++
		switch p.Penerima {
		case PenerimaIPNU:
			st.IPNU++
		case PenerimaIPPNU:
			st.IPPNU++
		case PenerimaBersama:
			st.Bersama++
		}
		switch p.Status {
		case StatusPending:
			st.Pending++
		case StatusAccepted:
			st.Diterima++
		case StatusRejected:
			st.Ditolak++
		}
	}
	return st, nil
}

type fakeResolver struct {
	periods map[string]*periode.Periode
}

func (f *fakeResolver) ResolveOrRepairActive(_ context.Context, userID string) (*periode.Periode, error) {
	p, ok := f.periods[userID]
	if !ok {
		return nil, apperr.NoActivePeriode()
	}
	return p, nil
}

type fakeDirectory struct {
	users      map[string]*auth.User
	notifiable []*auth.User
}

func (f *fakeDirectory) Find(_ context.Context, id string) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) ListNotifiable(_ context.Context, _ auth.Role) ([]*auth.User, error) {
	return f.notifiable, nil
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingTransport) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.sent...)
}

type workflowFixture struct {
	svc       *Service
	store     *fakeStore
	transport *recordingTransport
	mail      *mailer.Dispatcher
}

func newFixture(t *testing.T) *workflowFixture {
	t.Helper()
	store := newFakeStore()
	transport := &recordingTransport{}
	mail := mailer.NewDispatcher(transport, 2, zap.NewNop())
	bus := realtime.NewBroker(zap.NewNop())
	t.Cleanup(bus.Close)

	resolver := &fakeResolver{periods: map[string]*periode.Periode{
		"pac-1":    {ID: "periode-pac", UserID: "pac-1", Nama: "2024/2025", IsActive: true},
		"cabang-1": {ID: "periode-cabang", UserID: "cabang-1", Nama: "2024/2025", IsActive: true},
	}}
	dir := &fakeDirectory{
		users: map[string]*auth.User{
			"pac-1": {ID: "pac-1", Name: "Sekretaris PAC", Email: "pac@example.org", Role: auth.RolePAC},
		},
		notifiable: []*auth.User{
			{ID: "cabang-1", Email: "cabang@example.org", Role: auth.RoleCabang},
		},
	}

	svc := NewService(store, resolver, dir, mail, bus, zap.NewNop())
	return &workflowFixture{svc: svc, store: store, transport: transport, mail: mail}
}

func validCreateInput() CreateInput {
	return CreateInput{
		NomorSurat: "001/PAC/2024",
		Penerima:   "ipnu",
		Tanggal:    "2024-09-01",
		Keperluan:  "Permohonan surat tugas",
	}
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected apperr.Error, got %v", err)
	}
	return ae.Code
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, "pac-1", CreateInput{Penerima: "WARGA", Tanggal: "not-a-date"})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code != apperr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
	for _, field := range []string{"nomorSurat", "penerima", "tanggal", "keperluan"} {
		if _, ok := ae.Details[field]; !ok {
			t.Errorf("missing detail for %s: %v", field, ae.Details)
		}
	}
	if ae.Details["penerima"] != "Penerima tidak valid" {
		t.Errorf("penerima detail = %q", ae.Details["penerima"])
	}
}

func TestCreateStampsActivePeriodeAndNotifies(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, err := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", p.Status)
	}
	if p.Penerima != PenerimaIPNU {
		t.Fatalf("penerima = %s, want IPNU", p.Penerima)
	}
	if p.PeriodePacID != "periode-pac" {
		t.Fatalf("periodePacId = %s", p.PeriodePacID)
	}

	fx.mail.Close()
	msgs := fx.transport.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d mails, want 2", len(msgs))
	}
	subjects := map[string]bool{}
	for _, m := range msgs {
		subjects[m.Subject] = true
	}
	if !subjects["Pengajuan PAC berhasil dikirim"] || !subjects["Pengajuan PAC baru menunggu proses"] {
		t.Fatalf("unexpected subjects: %v", subjects)
	}
}

func TestCreateWithoutActivePeriode(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), "pac-2", validCreateInput())
	if codeOf(t, err) != apperr.CodeNoActivePeriode {
		t.Fatalf("want NO_ACTIVE_PERIODE, got %v", err)
	}
}

func TestUpdateRejectsStatusField(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	_, err := fx.svc.Update(ctx, "pac-1", p.ID, UpdateInput{StatusProvided: true})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Details["status"] != "Status tidak bisa diubah" {
		t.Fatalf("want status rejection, got %v", err)
	}
}

func TestUpdatePartialAndClear(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	desc := "catatan awal"
	in := validCreateInput()
	in.Deskripsi = &desc
	p, _ := fx.svc.Create(ctx, "pac-1", in)

	empty := ""
	keperluan := "Keperluan direvisi"
	updated, err := fx.svc.Update(ctx, "pac-1", p.ID, UpdateInput{
		Keperluan: &keperluan,
		Deskripsi: &empty,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Keperluan != keperluan {
		t.Fatalf("keperluan = %q", updated.Keperluan)
	}
	if updated.Deskripsi != nil {
		t.Fatalf("deskripsi not cleared: %v", *updated.Deskripsi)
	}
	if updated.NomorSurat != p.NomorSurat {
		t.Fatalf("untouched field changed: %q", updated.NomorSurat)
	}
}

func TestUpdateAfterDecision(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if _, err := fx.svc.Approve(ctx, "cabang-1", p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	keperluan := "terlambat"
	_, err := fx.svc.Update(ctx, "pac-1", p.ID, UpdateInput{Keperluan: &keperluan})
	if codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("want INVALID_STATUS_TRANSITION, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	decided, err := fx.svc.Approve(ctx, "cabang-1", p.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != StatusAccepted {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.AlasanPenolakan != nil {
		t.Fatal("rejection reason must stay empty on approval")
	}
	if decided.PeriodeCabangID == nil || *decided.PeriodeCabangID != "periode-cabang" {
		t.Fatalf("periodeCabangId = %v", decided.PeriodeCabangID)
	}

	fx.mail.Close()
	var accepted bool
	for _, m := range fx.transport.messages() {
		if m.Subject == "Pengajuan PAC diterima" {
			accepted = true
		}
	}
	if !accepted {
		t.Fatal("submitter not notified of approval")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	_, err := fx.svc.Reject(ctx, "cabang-1", p.ID, "   ")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Details["alasanPenolakan"] != "Alasan penolakan wajib diisi" {
		t.Fatalf("want reason validation, got %v", err)
	}
}

func TestReject(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	decided, err := fx.svc.Reject(ctx, "cabang-1", p.ID, "Berkas tidak lengkap")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != StatusRejected {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.AlasanPenolakan == nil || *decided.AlasanPenolakan != "Berkas tidak lengkap" {
		t.Fatalf("alasanPenolakan = %v", decided.AlasanPenolakan)
	}
}

func TestDecisionIsFinal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if _, err := fx.svc.Approve(ctx, "cabang-1", p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fx.svc.Reject(ctx, "cabang-1", p.ID, "berubah pikiran"); codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("second decision must fail, got %v", err)
	}
	if _, err := fx.svc.Approve(ctx, "cabang-1", p.ID); codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("repeat approval must fail, got %v", err)
	}
}

func TestDecisionOnDecidedBeforePeriodeResolution(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if _, err := fx.svc.Approve(ctx, "cabang-1", p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// "cabang-2" has no periods at all. The transition failure must still
	// win over period resolution for an already decided submission.
	if _, err := fx.svc.Approve(ctx, "cabang-2", p.ID); codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("want INVALID_STATUS_TRANSITION, got %v", err)
	}
	if _, err := fx.svc.Reject(ctx, "cabang-2", p.ID, "sudah diputus"); codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("want INVALID_STATUS_TRANSITION, got %v", err)
	}
}

func TestDeleteOnlyPending(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if _, err := fx.svc.Approve(ctx, "cabang-1", p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := fx.svc.Delete(ctx, "pac-1", p.ID); codeOf(t, err) != apperr.CodeInvalidTransition {
		t.Fatalf("want INVALID_STATUS_TRANSITION, got %v", err)
	}

	pending, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	if err := fx.svc.Delete(ctx, "pac-1", pending.ID); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
}

func TestGetVisibility(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())

	if _, err := fx.svc.Get(ctx, "pac-2", false, p.ID); codeOf(t, err) != apperr.CodeNotFound {
		t.Fatalf("foreign owner must get NOT_FOUND, got %v", err)
	}
	if _, err := fx.svc.Get(ctx, "cabang-1", true, p.ID); err != nil {
		t.Fatalf("organization-wide reader: %v", err)
	}
	if _, err := fx.svc.Get(ctx, "pac-1", false, p.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
}

func TestStats(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, _ := fx.svc.Create(ctx, "pac-1", validCreateInput())
	in := validCreateInput()
	in.Penerima = "BERSAMA"
	if _, err := fx.svc.Create(ctx, "pac-1", in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fx.svc.Approve(ctx, "cabang-1", first.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	st, err := fx.svc.Stats(ctx, "pac-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{Total: 2, IPNU: 1, Bersama: 1, Pending: 1, Diterima: 1}
	if *st != want {
		t.Fatalf("stats = %+v, want %+v", *st, want)
	}
}
