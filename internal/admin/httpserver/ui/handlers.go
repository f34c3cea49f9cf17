package ui

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/labels"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	orderstpl "github.com/T0MGL/0rdefy-sub009/internal/admin/templates/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Registry     *orderlist.Registry
	Labels       *labels.Store
	Location     *time.Location
	PollInterval time.Duration
	Now          func() time.Time
}

// Handlers exposes HTTP handlers for the order desk pages and fragments.
type Handlers struct {
	registry     *orderlist.Registry
	labels       *labels.Store
	location     *time.Location
	pollInterval time.Duration
	now          func() time.Time
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	if deps.Registry == nil {
		panic("ui: order list registry is required")
	}
	store := deps.Labels
	if store == nil {
		store = labels.NewStore(0)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		registry:     deps.Registry,
		labels:       store,
		location:     loc,
		pollInterval: deps.PollInterval,
		now:          now,
	}
}

// orderSession resolves the caller's order list session and refreshes its actor from the
// authenticated user. It writes 401 and returns false when no user is attached.
func (h *Handlers) orderSession(w http.ResponseWriter, r *http.Request) (*orderlist.Session, *custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, nil, false
	}
	key := user.UID
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil && strings.TrimSpace(sess.ID()) != "" {
		key = sess.ID()
	}
	session := h.registry.Get(key)
	session.Controller.SetActor(orderlist.Actor{
		UID:     user.UID,
		Token:   user.Token,
		Roles:   append([]string(nil), user.Roles...),
		StoreID: user.StoreID,
	})
	return session, user, true
}

func (h *Handlers) viewOptions(session *orderlist.Session, user *custommw.User) orderstpl.ViewOptions {
	return orderstpl.ViewOptions{
		Roles:        user.Roles,
		Location:     h.location,
		Now:          h.now().In(h.location),
		MinSearch:    session.Controller.MinSearchLength(),
		PollInterval: h.pollInterval,
	}
}

// renderTable writes the table fragment for the current snapshot together with the
// pending toasts.
func (h *Handlers) renderTable(w http.ResponseWriter, r *http.Request, session *orderlist.Session, user *custommw.User, events map[string]any) {
	basePath := custommw.BasePathFromContext(r.Context())
	data := orderstpl.TablePayload(basePath, session.Controller.Snapshot(), h.viewOptions(session, user))
	writeTrigger(w, r, session, events)
	templ.Handler(orderstpl.Table(data)).ServeHTTP(w, r)
}

// writeTrigger drains the session toasts into the HX-Trigger header.
func writeTrigger(w http.ResponseWriter, r *http.Request, session *orderlist.Session, events map[string]any) {
	header, err := notifications.HXTriggerEvents(session.Toasts.Drain(), events)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("encode hx-trigger failed", zap.Error(err))
		return
	}
	if header != "" {
		w.Header().Set("HX-Trigger", header)
	}
}

// superseded answers requests whose result lost to a newer one. htmx leaves the target
// untouched on 204.
func superseded(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, orderlist.ErrSuperseded):
		requestctx.Logger(r.Context()).Debug("order list request superseded")
		w.WriteHeader(http.StatusNoContent)
		return true
	case r.Context().Err() != nil:
		return true
	}
	return false
}

func notifyNotInView(session *orderlist.Session, action string) {
	session.Toasts.Notify(notifications.Toast{
		Tone:    notifications.ToneWarning,
		Title:   action,
		Message: "El pedido ya no está en la lista. Actualizá la vista.",
		Action:  action,
	})
}
