// Package httpapi is the HTTP transport: routing, middleware, envelopes and
// the SSE stream endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/activity"
	"github.com/Inur123/Be-Laci/internal/anggota"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/obs"
	"github.com/Inur123/Be-Laci/internal/pengajuan"
	"github.com/Inur123/Be-Laci/internal/periode"
	"github.com/Inur123/Be-Laci/internal/realtime"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the transport knobs.
type Config struct {
	UploadDir    string
	MaxBodyBytes int64
	RateBurst    int
	RatePerSec   int
	Version      string
}

// API is the HTTP layer over the domain services.
type API struct {
	mux *http.ServeMux
	cfg Config
	log *zap.Logger

	readyProbe ReadyProbe

	auth        *auth.Service
	periods     *periode.Service
	submissions *pengajuan.Service
	members     *anggota.Service
	trail       *activity.Service
	broker      *realtime.Broker
}

// New wires every route.
func New(cfg Config, log *zap.Logger, rp ReadyProbe,
	authSvc *auth.Service, periods *periode.Service, submissions *pengajuan.Service,
	members *anggota.Service, trail *activity.Service, broker *realtime.Broker) *API {

	a := &API{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		log:         log,
		readyProbe:  rp,
		auth:        authSvc,
		periods:     periods,
		submissions: submissions,
		members:     members,
		trail:       trail,
		broker:      broker,
	}

	m := a.mux

	// health/ready/metrics
	m.HandleFunc("GET /healthz", a.handleHealthz)
	m.HandleFunc("GET /readyz", a.handleReady)
	m.Handle("GET /metrics", obs.Handler())

	// auth
	m.HandleFunc("POST /v1/auth/register", a.handleRegister)
	m.HandleFunc("POST /v1/auth/login", a.handleLogin)
	m.HandleFunc("POST /v1/auth/refresh", a.handleRefresh)
	m.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	m.HandleFunc("GET /v1/auth/me", a.handleMe)

	// profile (authenticated, verification not required)
	m.HandleFunc("GET /v1/profile", a.handleProfileGet)
	m.HandleFunc("PUT /v1/profile", a.handleProfileUpdate)
	m.HandleFunc("POST /v1/profile/verify/request", a.handleVerifyRequest)
	m.HandleFunc("POST /v1/profile/verify/confirm", a.handleVerifyConfirm)

	// periode
	m.HandleFunc("GET /v1/periode", a.handlePeriodeList)
	m.HandleFunc("POST /v1/periode", a.handlePeriodeCreate)
	m.HandleFunc("GET /v1/periode/{id}", a.handlePeriodeGet)
	m.HandleFunc("PUT /v1/periode/{id}", a.handlePeriodeUpdate)
	m.HandleFunc("DELETE /v1/periode/{id}", a.handlePeriodeDelete)
	m.HandleFunc("POST /v1/periode/{id}/activate", a.handlePeriodeActivate)

	// pengajuan
	m.HandleFunc("GET /v1/pengajuan-pac", a.handlePengajuanList)
	m.HandleFunc("POST /v1/pengajuan-pac", a.handlePengajuanCreate)
	m.HandleFunc("GET /v1/pengajuan-pac/cabang", a.handlePengajuanListCabang)
	m.HandleFunc("GET /v1/pengajuan-pac/stats", a.handlePengajuanStats)
	m.HandleFunc("GET /v1/pengajuan-pac/{id}", a.handlePengajuanGet)
	m.HandleFunc("PUT /v1/pengajuan-pac/{id}", a.handlePengajuanUpdate)
	m.HandleFunc("DELETE /v1/pengajuan-pac/{id}", a.handlePengajuanDelete)
	m.HandleFunc("GET /v1/pengajuan-pac/{id}/download", a.handlePengajuanDownload)
	m.HandleFunc("POST /v1/pengajuan-pac/{id}/approve", a.handlePengajuanApprove)
	m.HandleFunc("POST /v1/pengajuan-pac/{id}/reject", a.handlePengajuanReject)

	// anggota
	m.HandleFunc("GET /v1/anggota", a.handleAnggotaList)
	m.HandleFunc("POST /v1/anggota", a.handleAnggotaCreate)
	m.HandleFunc("GET /v1/anggota/stats", a.handleAnggotaStats)
	m.HandleFunc("GET /v1/anggota/{id}", a.handleAnggotaGet)
	m.HandleFunc("PUT /v1/anggota/{id}", a.handleAnggotaUpdate)
	m.HandleFunc("DELETE /v1/anggota/{id}", a.handleAnggotaDelete)

	// log activity
	m.HandleFunc("GET /v1/log-activity", a.handleActivityListMine)
	m.HandleFunc("GET /v1/log-activity/stats", a.handleActivityStatsMine)
	m.HandleFunc("GET /v1/log-activity/all", a.handleActivityListAll)
	m.HandleFunc("GET /v1/log-activity/all/stats", a.handleActivityStatsAll)

	// users (branch manages sub-branch accounts)
	m.HandleFunc("GET /v1/users", a.handleUserList)
	m.HandleFunc("PATCH /v1/users/{id}/active", a.handleUserSetActive)
	m.HandleFunc("POST /v1/users/{id}/reset-password", a.handleUserResetPassword)

	// realtime
	m.HandleFunc("GET /v1/realtime/log-activity", a.handleStream)
	m.HandleFunc("GET /v1/realtime/log-activity/all", a.handleStreamAll)

	return a
}

// Handler composes the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.recordActivity(h)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.cfg.MaxBodyBytes)
	h = RateLimit(h, a.cfg.RateBurst, a.cfg.RatePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h, a.log)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "laci-api",
		"version": a.cfg.Version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
