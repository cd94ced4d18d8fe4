package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Inur123/Be-Laci/internal/activity"
	"github.com/Inur123/Be-Laci/internal/anggota"
	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/config"
	"github.com/Inur123/Be-Laci/internal/httpapi"
	"github.com/Inur123/Be-Laci/internal/mailer"
	"github.com/Inur123/Be-Laci/internal/migrate"
	"github.com/Inur123/Be-Laci/internal/obs"
	"github.com/Inur123/Be-Laci/internal/pengajuan"
	"github.com/Inur123/Be-Laci/internal/periode"
	"github.com/Inur123/Be-Laci/internal/realtime"
	"github.com/Inur123/Be-Laci/internal/store/pg"
	"github.com/Inur123/Be-Laci/migrations"
)

var version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	logger := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if cfg.MigrateOnBoot {
		if err := migrate.NewManager(db, migrations.Files).Up(ctx); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	var transport mailer.Transport
	if cfg.Mail.Region != "" && cfg.Mail.From != "" {
		ses, err := mailer.NewSESTransport(ctx, cfg.Mail.Region, cfg.Mail.From)
		if err != nil {
			logger.Fatal("mail transport", zap.Error(err))
		}
		transport = ses
	} else {
		logger.Info("mail transport disabled, SES_REGION or MAIL_FROM unset")
	}
	dispatcher := mailer.NewDispatcher(transport, cfg.Mail.Concurrency, logger)
	defer dispatcher.Close()

	broker := realtime.NewBroker(logger)
	broker.StartHeartbeat(cfg.HeartbeatInterval)
	defer broker.Close()

	authStore := auth.NewPGStore(db)
	authSvc, err := auth.NewService(authStore, cfg.AccessTokenSecret,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
		auth.WithVerificationMail(dispatcher, cfg.AppBaseURL))
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}

	periods := periode.NewService(periode.NewPGStore(db), broker, logger)
	submissions := pengajuan.NewService(pengajuan.NewPGStore(db), periods,
		authStore.Users(), dispatcher, broker, logger)
	members := anggota.NewService(anggota.NewPGStore(db), periods, broker, logger)
	trail := activity.NewService(activity.NewPGStore(db), broker, logger)

	api := httpapi.New(httpapi.Config{
		UploadDir:    cfg.UploadDir,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSecond,
		Version:      version,
	}, logger, httpapi.ReadyProbe{DB: db},
		authSvc, periods, submissions, members, trail, broker)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays zero: the event stream endpoints hold their
		// response open for the lifetime of the client connection.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting laci-api", zap.String("version", version), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatal("listen", zap.Error(err))
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
