package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/labels"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverSetup)

type serverSetup struct {
	cfg     httpserver.Config
	service adminorders.Service
}

// WithAuthenticator overrides the authenticator used by the order desk server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(s *serverSetup) {
		s.cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the console routes.
func WithBasePath(path string) ServerOption {
	return func(s *serverSetup) {
		s.cfg.BasePath = path
	}
}

// WithOrdersService wires a custom orders service implementation.
func WithOrdersService(service adminorders.Service) ServerOption {
	return func(s *serverSetup) {
		s.service = service
	}
}

// Server bundles the running test server with the state tests inspect.
type Server struct {
	*httptest.Server
	Registry *orderlist.Registry
	Labels   *labels.Store
}

// NewServer constructs an httptest server running the order desk HTTP stack with sensible
// defaults. Searches are debounced for a millisecond and polling is disabled.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	setup := &serverSetup{
		cfg: httpserver.Config{
			Address:        ":0",
			BasePath:       "/admin",
			CSRFCookieName: "csrf_token",
			CSRFHeaderName: "X-CSRF-Token",
			Environment:    "dev",
			Authenticator:  middleware.DefaultAuthenticator(),
			Location:       time.UTC,
		},
		service: adminorders.NewStaticService(),
	}
	for _, opt := range opts {
		opt(setup)
	}

	service := setup.service
	registry := orderlist.NewRegistry(func(toasts *notifications.Queue) *orderlist.Controller {
		return orderlist.New(service,
			orderlist.WithNotifier(toasts),
			orderlist.WithRenderer(labels.NewSheetRenderer(time.UTC)),
			orderlist.WithSearchDebounce(time.Millisecond),
			orderlist.WithTimezone(time.UTC),
		)
	})
	t.Cleanup(registry.Close)

	store := labels.NewStore(time.Minute)
	setup.cfg.Registry = registry
	setup.cfg.Labels = store

	srv, err := httpserver.New(setup.cfg)
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Server{Server: ts, Registry: registry, Labels: store}
}
