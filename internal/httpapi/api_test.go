package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/activity"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/ids"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

// fakeAuthStore is an in-memory auth.Store. The role and verification guards
// sit in front of the domain services, so these tests only need accounts and
// refresh tokens to exercise the transport layer.
type fakeAuthStore struct {
	mu     sync.Mutex
	users  map[string]*auth.User
	verify map[string]*auth.EmailVerification
	tokens map[string]*auth.RefreshToken
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		users:  make(map[string]*auth.User),
		verify: make(map[string]*auth.EmailVerification),
		tokens: make(map[string]*auth.RefreshToken),
	}
}

func (f *fakeAuthStore) Users() auth.UserStore                 { return (*fakeUsers)(f) }
func (f *fakeAuthStore) RefreshTokens() auth.RefreshTokenStore { return (*fakeTokens)(f) }

type fakeUsers fakeAuthStore

func (f *fakeUsers) Create(_ context.Context, u *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Find(_ context.Context, id string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, _ auth.UserListFilter) ([]*auth.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*auth.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeUsers) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUsers) IncrementTokenVersion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (f *fakeUsers) ListNotifiable(_ context.Context, _ auth.Role) ([]*auth.User, error) {
	return nil, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id string, upd auth.ProfileUpdate) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.ClearVerification {
		u.EmailVerified = nil
		delete(f.verify, id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetEmailVerification(_ context.Context, id string, v auth.EmailVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	cp := v
	f.verify[id] = &cp
	return nil
}

func (f *fakeUsers) PendingVerification(_ context.Context, id string) (*auth.EmailVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return nil, auth.ErrNotFound
	}
	v, ok := f.verify[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	t := at
	u.EmailVerified = &t
	delete(f.verify, id)
	return nil
}

type fakeTokens fakeAuthStore

func (f *fakeTokens) Create(_ context.Context, tok *auth.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tok
	f.tokens[tok.ID] = &cp
	return nil
}

func (f *fakeTokens) Find(_ context.Context, id string) (*auth.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (f *fakeTokens) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[id]
	if !ok {
		return auth.ErrNotFound
	}
	now := time.Now()
	tok.RevokedAt = &now
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, tok := range f.tokens {
		if tok.UserID == userID {
			tok.RevokedAt = &now
		}
	}
	return nil
}

// fakeTrailStore drops every trail entry; the recorder middleware only needs
// a non-nil service to run through.
type fakeTrailStore struct{}

func (fakeTrailStore) Create(context.Context, *activity.Entry) error { return nil }
func (fakeTrailStore) List(context.Context, activity.ListFilter) ([]*activity.Entry, int, error) {
	return nil, 0, nil
}
func (fakeTrailStore) Count(context.Context, string) (int, error) { return 0, nil }

func newTestAPI(t *testing.T) (*API, *fakeAuthStore) {
	t.Helper()
	store := newFakeAuthStore()
	svc, err := auth.NewService(store, "test-secret")
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	log := zap.NewNop()
	broker := realtime.NewBroker(log)
	trail := activity.NewService(fakeTrailStore{}, broker, log)
	api := New(Config{
		UploadDir:    t.TempDir(),
		MaxBodyBytes: 1 << 20,
		RateBurst:    1000,
		RatePerSec:   1000,
		Version:      "test",
	}, log, ReadyProbe{}, svc, nil, nil, nil, trail, broker)
	return api, store
}

func addUser(t *testing.T, store *fakeAuthStore, email string, role auth.Role, verified bool) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &auth.User{
		Name:         "Test",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if verified {
		now := time.Now()
		u.EmailVerified = &now
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) (int, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func loginToken(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	code, env := doJSON(t, h, http.MethodPost, "/v1/auth/login", "",
		`{"email":"`+email+`","password":"password"}`)
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", email, code, env.Message)
	}
	var pair struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &pair); err != nil || pair.AccessToken == "" {
		t.Fatalf("login %s: no access token in %s", email, env.Data)
	}
	return pair.AccessToken
}

func TestHealthz(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"laci-api"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	code, env := doJSON(t, h, http.MethodGet, "/v1/periode", "", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d", code)
	}
	if env.Success || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Message != "Token tidak valid" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestGarbageBearerToken(t *testing.T) {
	api, _ := newTestAPI(t)
	code, env := doJSON(t, api.Handler(), http.MethodGet, "/v1/periode", "not-a-jwt", "")
	if code != http.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("status = %d, envelope = %+v", code, env)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	api, store := newTestAPI(t)
	h := api.Handler()

	code, env := doJSON(t, h, http.MethodPost, "/v1/auth/register", "",
		`{"name":"Sekretaris Baru","email":"baru@example.com","password":"password"}`)
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("register: %d %+v", code, env)
	}

	// The account starts inactive; activate it so login succeeds.
	u, err := store.Users().FindByEmail(context.Background(), "baru@example.com")
	if err != nil {
		t.Fatalf("find registered user: %v", err)
	}
	if err := store.Users().SetActive(context.Background(), u.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}

	token := loginToken(t, h, "baru@example.com")
	code, env = doJSON(t, h, http.MethodGet, "/v1/auth/me", token, "")
	if code != http.StatusOK {
		t.Fatalf("me: %d %+v", code, env)
	}
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("me data: %v", err)
	}
	if me.Email != "baru@example.com" || me.Role != string(auth.RolePAC) {
		t.Fatalf("me = %+v", me)
	}
	if strings.Contains(string(env.Data), "passwordHash") {
		t.Fatal("password hash must never serialize")
	}
}

func TestRegisterValidationEnvelope(t *testing.T) {
	api, _ := newTestAPI(t)
	code, env := doJSON(t, api.Handler(), http.MethodPost, "/v1/auth/register", "",
		`{"name":"x","email":"nope","password":"1"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
	if env.Error.Code != "VALIDATION_ERROR" || env.Message != "Validasi gagal" {
		t.Fatalf("envelope = %+v", env)
	}
	var details struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(env.Error.Details, &details); err != nil {
		t.Fatalf("details: %v", err)
	}
	for _, field := range []string{"name", "email", "password"} {
		if details.Fields[field] == "" {
			t.Errorf("missing field detail %q", field)
		}
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t)
	code, env := doJSON(t, api.Handler(), http.MethodPost, "/v1/auth/refresh", "", `{}`)
	if code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("status = %d, envelope = %+v", code, env)
	}
}

func TestRoleGuard(t *testing.T) {
	api, store := newTestAPI(t)
	addUser(t, store, "pac@example.com", auth.RolePAC, true)
	h := api.Handler()

	token := loginToken(t, h, "pac@example.com")
	code, env := doJSON(t, h, http.MethodGet, "/v1/pengajuan-pac/cabang", token, "")
	if code != http.StatusForbidden {
		t.Fatalf("status = %d", code)
	}
	if env.Error.Code != "ROLE_FORBIDDEN" || env.Message != "Akses ditolak" {
		t.Fatalf("envelope = %+v", env)
	}

	code, _ = doJSON(t, h, http.MethodGet, "/v1/users", token, "")
	if code != http.StatusForbidden {
		t.Fatalf("users listing as sub-branch: status = %d", code)
	}
}

func TestUnverifiedEmailBlocked(t *testing.T) {
	api, store := newTestAPI(t)
	addUser(t, store, "new@example.com", auth.RolePAC, false)
	h := api.Handler()

	token := loginToken(t, h, "new@example.com")
	code, env := doJSON(t, h, http.MethodGet, "/v1/periode", token, "")
	if code != http.StatusForbidden || env.Error.Code != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("status = %d, envelope = %+v", code, env)
	}
}

func TestEmailVerificationUnlocksAccess(t *testing.T) {
	api, store := newTestAPI(t)
	addUser(t, store, "new@example.com", auth.RolePAC, false)
	h := api.Handler()
	token := loginToken(t, h, "new@example.com")

	code, env := doJSON(t, h, http.MethodGet, "/v1/periode", token, "")
	if code != http.StatusForbidden || env.Error.Code != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("before verification: %d %+v", code, env)
	}

	// The profile endpoints stay reachable for unverified accounts.
	code, env = doJSON(t, h, http.MethodPost, "/v1/profile/verify/request", token, "")
	if code != http.StatusOK {
		t.Fatalf("verify request: %d %+v", code, env)
	}
	var vr struct {
		Verified bool   `json:"verified"`
		Token    string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &vr); err != nil {
		t.Fatalf("verify request data: %v", err)
	}
	if vr.Verified || vr.Token == "" {
		t.Fatalf("verify request result = %+v", vr)
	}

	code, env = doJSON(t, h, http.MethodPost, "/v1/profile/verify/confirm", token,
		`{"token":"`+vr.Token+`"}`)
	if code != http.StatusOK {
		t.Fatalf("verify confirm: %d %+v", code, env)
	}
	var confirmed struct {
		Verified bool `json:"verified"`
	}
	if err := json.Unmarshal(env.Data, &confirmed); err != nil || !confirmed.Verified {
		t.Fatalf("verify confirm data: %s (%v)", env.Data, err)
	}

	code, env = doJSON(t, h, http.MethodGet, "/v1/profile", token, "")
	if code != http.StatusOK {
		t.Fatalf("profile: %d %+v", code, env)
	}
	var me struct {
		EmailVerified *time.Time `json:"emailVerified"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil || me.EmailVerified == nil {
		t.Fatalf("profile after confirm: %s (%v)", env.Data, err)
	}
}

func TestUserResetPasswordEndpoint(t *testing.T) {
	api, store := newTestAPI(t)
	pac := addUser(t, store, "pac@example.com", auth.RolePAC, true)
	addUser(t, store, "cabang@example.com", auth.RoleCabang, true)
	h := api.Handler()

	pacToken := loginToken(t, h, "pac@example.com")
	code, _ := doJSON(t, h, http.MethodPost, "/v1/users/"+pac.ID+"/reset-password", pacToken, "")
	if code != http.StatusForbidden {
		t.Fatalf("sub-branch reset: status = %d", code)
	}

	cabangToken := loginToken(t, h, "cabang@example.com")
	code, env := doJSON(t, h, http.MethodPost, "/v1/users/"+pac.ID+"/reset-password", cabangToken, "")
	if code != http.StatusOK {
		t.Fatalf("reset: %d %+v", code, env)
	}
	var reset struct {
		Email             string `json:"email"`
		TemporaryPassword string `json:"temporaryPassword"`
	}
	if err := json.Unmarshal(env.Data, &reset); err != nil {
		t.Fatalf("reset data: %v", err)
	}
	if reset.Email != "pac@example.com" || reset.TemporaryPassword == "" {
		t.Fatalf("reset = %+v", reset)
	}

	// The old password is gone together with outstanding tokens.
	code, _ = doJSON(t, h, http.MethodPost, "/v1/auth/login", "",
		`{"email":"pac@example.com","password":"password"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("old password login: status = %d", code)
	}
	code, _ = doJSON(t, h, http.MethodGet, "/v1/auth/me", pacToken, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("old access token: status = %d", code)
	}
}

func TestMalformedBody(t *testing.T) {
	api, _ := newTestAPI(t)
	code, env := doJSON(t, api.Handler(), http.MethodPost, "/v1/auth/login", "", `{"email":`)
	if code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("status = %d, envelope = %+v", code, env)
	}
}
