package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/ui"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/labels"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/observability"
	"github.com/T0MGL/0rdefy-sub009/public"
)

// ErrMissingRegistry is returned when the server is built without an order list registry.
var ErrMissingRegistry = errors.New("httpserver: order list registry is required")

// Config holds runtime options for the order desk HTTP server.
type Config struct {
	Address          string
	BasePath         string
	LoginPath        string
	Environment      string
	Logger           *zap.Logger
	Authenticator    custommw.Authenticator
	SessionStore     custommw.SessionStore
	Registry         *orderlist.Registry
	Labels           *labels.Store
	Location         *time.Location
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Registry == nil {
		return nil, ErrMissingRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware(userIDFromContext))
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Timeout(timeout))

	staticContent, err := public.Static()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}

	store := cfg.SessionStore
	if store == nil {
		store, err = ephemeralSessionStore(basePath)
		if err != nil {
			return nil, err
		}
		logger.Warn("session keys not configured: using ephemeral keys")
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Registry:     cfg.Registry,
		Labels:       cfg.Labels,
		Location:     cfg.Location,
		PollInterval: cfg.PollInterval,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		Environment:   cfg.Environment,
		Sessions:      store,
		Registry:      cfg.Registry,
		CSRF:          csrfCfg,
		Handlers:      handlers,
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	Environment   string
	Sessions      custommw.SessionStore
	Registry      *orderlist.Registry
	CSRF          custommw.CSRFConfig
	Handlers      *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	h := opts.Handlers
	auth := newAuthHandlers(opts.Authenticator, opts.Registry, base, opts.LoginPath)
	ordersHome := strings.TrimRight(base, "/") + "/orders"

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.Paths(base))
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))

		loginRoute := strings.TrimPrefix(opts.LoginPath, strings.TrimRight(base, "/"))
		if strings.HasPrefix(loginRoute, "/") {
			r.Group(func(r chi.Router) {
				r.Use(custommw.CSRF(opts.CSRF))
				r.Get(loginRoute, auth.LoginForm)
				r.Post(loginRoute, auth.LoginSubmit)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
			r.Use(custommw.CSRF(opts.CSRF))

			r.Get("/", http.RedirectHandler(ordersHome, http.StatusFound).ServeHTTP)
			r.Post("/logout", auth.Logout)

			r.Route("/orders", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapOrdersList))
					r.Get("/", h.OrdersPage)
					RegisterFragment(r, "/table", h.OrdersTable)
					r.Post("/filters", h.OrdersFilters)
					r.Post("/search", h.OrdersSearch)
					r.Post("/more", h.OrdersLoadMore)
					r.Post("/refresh", h.OrdersRefresh)
					r.Post("/visibility", h.OrdersVisibility)
				})

				r.With(custommw.RequireCapability(rbac.CapOrdersCreate)).Get("/new", h.NewOrderForm)
				r.With(custommw.RequireCapability(rbac.CapOrdersCreate)).Post("/new", h.NewOrderSubmit)

				r.Group(func(r chi.Router) {
					r.Use(custommw.RequireCapability(rbac.CapOrdersPrint))
					r.Post("/selection", h.OrdersSelection)
					r.Post("/print", h.OrdersPrint)
					r.Get("/labels/{artifactID}", h.OrderLabels)
				})

				r.Route("/{orderID}", func(r chi.Router) {
					r.With(custommw.RequireCapability(rbac.CapOrdersConfirm)).Post("/confirm", h.OrderConfirm)
					r.With(custommw.RequireCapability(rbac.CapOrdersConfirm)).Post("/reject", h.OrderReject)
					r.With(custommw.RequireCapability(rbac.CapOrdersStatus)).Post("/status", h.OrderStatus)
					r.With(custommw.RequireCapability(rbac.CapOrdersContact)).Post("/contact", h.OrderContact)
					r.With(custommw.RequireCapability(rbac.CapOrdersRestore)).Post("/restore", h.OrderRestore)
					r.With(custommw.RequireCapability(rbac.CapOrdersMarkTest)).Post("/test", h.OrderMarkTest)
					r.With(custommw.RequireCapability(rbac.CapOrdersDelete)).Delete("/", h.OrderDelete)
				})
			})
		})
	})
}

func userIDFromContext(ctx context.Context) string {
	if user, ok := custommw.UserFromContext(ctx); ok && user != nil {
		return user.UID
	}
	return ""
}

// ephemeralSessionStore builds a cookie session manager with random keys. Sessions do not
// survive a restart.
func ephemeralSessionStore(basePath string) (*appsession.Manager, error) {
	manager, err := appsession.NewManager(appsession.Config{
		CookieName: "orderdesk_session",
		HashKey:    securecookie.GenerateRandomKey(32),
		BlockKey:   securecookie.GenerateRandomKey(32),
		CookiePath: basePath,
	})
	if err != nil {
		return nil, fmt.Errorf("httpserver: session manager: %w", err)
	}
	return manager, nil
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
