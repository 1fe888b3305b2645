package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/db"
	vhttp "github.com/matvulcan/vulcan-backend/internal/http"
	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/observability"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *vhttp.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "vulcan-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := pg.SeedDefaults(context.Background()); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres seed: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, cfg, serviceset)
	authMW := wireMiddleware(log, serviceset)
	server := vhttp.NewServer(vhttp.RouterConfig{
		Log:                  log,
		AuthMiddleware:       authMW,
		HealthHandler:        handlerset.Health,
		AuthHandler:          handlerset.Auth,
		TwoFactorHandler:     handlerset.TwoFactor,
		UserHandler:          handlerset.User,
		ApplicationHandler:   handlerset.Application,
		ReviewHandler:        handlerset.Review,
		VendorHandler:        handlerset.Vendor,
		AdminTemplateHandler: handlerset.AdminTemplate,
		AdminReasonHandler:   handlerset.AdminReason,
		WebhookHandler:       handlerset.Webhook,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the job worker and the cron sweeps.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	if a.Services.Scheduler != nil {
		if err := a.Services.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.Challenge != nil {
		if err := a.Clients.Challenge.Close(); err != nil {
			a.Log.Warn("close challenge store", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
