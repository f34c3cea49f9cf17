package ui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	orderstpl "github.com/T0MGL/0rdefy-sub009/internal/admin/templates/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

const dayLayout = "2006-01-02"

// OrdersPage renders the orders index page. The first visit loads the list; later visits
// refresh it in place so the session keeps its filters.
func (h *Handlers) OrdersPage(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var err error
	if session.Controller.Snapshot().Loaded {
		err = session.Controller.Refresh(ctx)
	} else {
		err = session.Controller.Load(ctx)
	}
	if err != nil && !errors.Is(err, orderlist.ErrSuperseded) {
		requestctx.Logger(ctx).Warn("orders: initial load failed", zap.Error(err))
	}

	basePath := custommw.BasePathFromContext(ctx)
	page := orderstpl.BuildPageData(basePath, session.Controller.Snapshot(), h.viewOptions(session, user))
	templ.Handler(orderstpl.Index(page)).ServeHTTP(w, r)
}

// OrdersTable renders the table fragment from the current snapshot without fetching.
func (h *Handlers) OrdersTable(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersFilters applies the status, carrier, scheduled and date range fields present in
// the form. Absent fields keep their current value.
func (h *Handlers) OrdersFilters(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}
	change, err := parseFilterForm(r, h.location)
	if err != nil {
		http.Error(w, filterFormMessage(err), http.StatusBadRequest)
		return
	}

	err = session.Controller.UpdateFilters(r.Context(), change.apply)
	if superseded(w, r, err) {
		return
	}
	if err != nil {
		requestctx.Logger(r.Context()).Debug("orders: filter fetch failed", zap.Error(err))
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersSearch queues a debounced search. Only the latest keystroke within the debounce
// window fetches; earlier requests answer 204.
func (h *Handlers) OrdersSearch(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	done := session.Controller.QueueSearch(ctx, r.PostForm.Get("q"))
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return
	}
	if superseded(w, r, err) {
		return
	}
	if err != nil {
		requestctx.Logger(ctx).Debug("orders: search fetch failed", zap.Error(err))
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersLoadMore appends the next page.
func (h *Handlers) OrdersLoadMore(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	err := session.Controller.LoadMore(r.Context())
	if superseded(w, r, err) {
		return
	}
	if err != nil {
		requestctx.Logger(r.Context()).Debug("orders: load more failed", zap.Error(err))
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersRefresh refetches the first page with the current filters.
func (h *Handlers) OrdersRefresh(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	err := session.Controller.Refresh(r.Context())
	if superseded(w, r, err) {
		return
	}
	if err != nil {
		requestctx.Logger(r.Context()).Debug("orders: refresh failed", zap.Error(err))
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersVisibility pauses or resumes background polling for the session and delivers any
// pending toasts.
func (h *Handlers) OrdersVisibility(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}
	visible := true
	if raw := strings.TrimSpace(r.PostForm.Get("visible")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Valor de visibilidad inválido.", http.StatusBadRequest)
			return
		}
		visible = parsed
	}
	if session.Poller != nil {
		session.Poller.SetVisible(visible)
	}
	writeTrigger(w, r, session, nil)
	w.WriteHeader(http.StatusNoContent)
}

type filterChange struct {
	status    *adminorders.Status
	carrier   *adminorders.CarrierFilter
	scheduled *adminorders.ScheduledFilter
	dateRange *orderlist.DateRange
}

func (c filterChange) apply(filters *orderlist.Filters, rng *orderlist.DateRange) {
	if c.status != nil {
		filters.Status = *c.status
	}
	if c.carrier != nil {
		filters.Carrier = *c.carrier
	}
	if c.scheduled != nil {
		filters.Scheduled = *c.scheduled
	}
	if c.dateRange != nil {
		*rng = *c.dateRange
	}
}

var (
	errInvalidDate   = errors.New("ui: invalid date")
	errUnknownStatus = errors.New("ui: unknown status filter")
)

func filterFormMessage(err error) string {
	if errors.Is(err, errUnknownStatus) {
		return "Estado desconocido."
	}
	return "Fecha inválida. Usá el formato AAAA-MM-DD."
}

func parseFilterForm(r *http.Request, loc *time.Location) (filterChange, error) {
	var change filterChange
	form := r.PostForm

	if _, ok := form["status"]; ok {
		var status adminorders.Status
		if raw := strings.TrimSpace(form.Get("status")); raw != "" {
			parsed, err := adminorders.ParseStatus(raw)
			if err != nil {
				return filterChange{}, errUnknownStatus
			}
			status = parsed
		}
		change.status = &status
	}
	if _, ok := form["carrier"]; ok {
		carrier := adminorders.ParseCarrierFilter(form.Get("carrier"))
		change.carrier = &carrier
	}
	if _, ok := form["scheduled"]; ok {
		scheduled := adminorders.ParseScheduledFilter(form.Get("scheduled"))
		change.scheduled = &scheduled
	}
	if form.Get("range") == "1" {
		start, err := parseDay(form.Get("start"), loc)
		if err != nil {
			return filterChange{}, errInvalidDate
		}
		end, err := parseDay(form.Get("end"), loc)
		if err != nil {
			return filterChange{}, errInvalidDate
		}
		if start != nil && end != nil && end.Before(*start) {
			start, end = end, start
		}
		change.dateRange = &orderlist.DateRange{Start: start, End: end}
	}
	return change, nil
}

func parseDay(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, loc)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
