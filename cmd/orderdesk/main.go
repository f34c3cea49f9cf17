package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/labels"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/config"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/observability"
)

const labelRetention = 15 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "orderdesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	service, err := buildOrdersService(cfg.API, logger)
	if err != nil {
		return err
	}

	loc := cfg.Orders.Location()
	renderer := labels.NewSheetRenderer(loc)
	registry := orderlist.NewRegistry(func(toasts *notifications.Queue) *orderlist.Controller {
		return orderlist.New(service,
			orderlist.WithNotifier(toasts),
			orderlist.WithRenderer(renderer),
			orderlist.WithPageSize(cfg.Orders.PageSize),
			orderlist.WithMinSearchLength(cfg.Orders.SearchMinLength),
			orderlist.WithSearchDebounce(cfg.Orders.SearchDebounce),
			orderlist.WithTimezone(loc),
			orderlist.WithLogger(logger.Named("orderlist")),
		)
	},
		orderlist.WithPollInterval(cfg.Orders.PollInterval),
		orderlist.WithIdleTTL(cfg.Orders.ControllerTTL),
		orderlist.WithBaseContext(ctx),
		orderlist.WithRegistryLogger(logger.Named("registry")),
	)
	defer registry.Close()
	go registry.Run(ctx)

	sessions, err := buildSessionManager(cfg)
	if err != nil {
		return err
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		Environment:      cfg.Server.Environment,
		Logger:           logger,
		Authenticator:    buildAuthenticator(ctx, cfg.Firebase, logger),
		SessionStore:     sessions,
		Registry:         registry,
		Labels:           labels.NewStore(labelRetention),
		Location:         loc,
		PollInterval:     cfg.Orders.PollInterval,
		RequestTimeout:   cfg.Server.WriteTimeout,
		CSRFCookieName:   "csrf_token",
		CSRFCookieSecure: cfg.Server.CSRFSecure,
		CSRFHeaderName:   "X-CSRF-Token",
	})
	if err != nil {
		return err
	}
	srv.ReadTimeout = cfg.Server.ReadTimeout
	srv.IdleTimeout = cfg.Server.IdleTimeout
	srv.ErrorLog = zap.NewStdLog(logger.Named("http"))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("order desk listening",
		zap.String("address", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("environment", cfg.Server.Environment),
	)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("order desk stopped")
	return nil
}

// buildOrdersService selects the REST backend, or the in-memory catalogue when no API is
// configured.
func buildOrdersService(cfg config.APIConfig, logger *zap.Logger) (adminorders.Service, error) {
	if cfg.BaseURL == "" {
		logger.Warn("ORDERDESK_API_BASE_URL not set; serving sample orders")
		return adminorders.NewStaticService(), nil
	}
	svc, err := adminorders.NewHTTPService(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func buildSessionManager(cfg config.Config) (middleware.SessionStore, error) {
	if len(cfg.Session.HashKey) == 0 {
		// httpserver falls back to ephemeral keys.
		return nil, nil
	}
	manager, err := appsession.NewManager(appsession.Config{
		CookieName:   "orderdesk_session",
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookiePath:   cfg.Server.BasePath,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return manager, nil
}

func buildAuthenticator(ctx context.Context, cfg config.FirebaseConfig, logger *zap.Logger) middleware.Authenticator {
	if cfg.ProjectID == "" {
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		logger.Error("initialise firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("initialise firebase auth client", zap.Error(err))
		return nil
	}

	logger.Info("firebase authenticator enabled", zap.String("project_id", cfg.ProjectID))
	return middleware.NewFirebaseAuthenticator(client)
}
