package orderlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/labels"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/observability"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

const (
	defaultPageSize        = 50
	defaultMinSearchLength = 2
	defaultSearchDebounce  = 300 * time.Millisecond
)

// Notifier receives user facing toasts.
type Notifier interface {
	Notify(notifications.Toast)
}

// LabelRenderer produces the printable artifact for a bulk print.
type LabelRenderer interface {
	Render(ctx context.Context, orders []adminorders.Order) (labels.Artifact, error)
}

type discardNotifier struct{}

func (discardNotifier) Notify(notifications.Toast) {}

// Actor identifies the staff member driving the controller.
type Actor struct {
	UID     string
	Token   string
	Roles   []string
	StoreID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the toast sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRenderer sets the label renderer used by BulkPrint.
func WithRenderer(r LabelRenderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithPageSize sets the number of orders requested per page.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithMinSearchLength sets how many characters a search needs before it is sent.
func WithMinSearchLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minSearch = n
		}
	}
}

// WithSearchDebounce sets the quiet window applied to QueueSearch.
func WithSearchDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounceDelay = d
		}
	}
}

// WithTimezone sets the zone sent to the API and used for date filters.
func WithTimezone(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithInitialRange sets the date range used before the first filter change.
func WithInitialRange(r DateRange) Option {
	return func(c *Controller) {
		c.state.Range = DateRange{Start: copyTime(r.Start), End: copyTime(r.End)}
	}
}

// Controller owns the order list of one staff session: the loaded orders, filters,
// pagination, selection and every asynchronous operation that touches them.
type Controller struct {
	svc           adminorders.Service
	notifier      Notifier
	renderer      LabelRenderer
	pageSize      int
	minSearch     int
	debounceDelay time.Duration
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
	debouncer     *Debouncer

	tracer     trace.Tracer
	rollbacks  metric.Int64Counter
	superseded metric.Int64Counter

	mu         sync.Mutex
	state      State
	actor      Actor
	seq        uint64
	fetches    map[uint64]context.CancelFunc
	cancelMore context.CancelFunc
}

// New constructs a controller over the order API.
func New(svc adminorders.Service, opts ...Option) *Controller {
	meter := observability.Meter("internal/admin/orderlist")
	c := &Controller{
		svc:           svc,
		notifier:      discardNotifier{},
		pageSize:      defaultPageSize,
		minSearch:     defaultMinSearchLength,
		debounceDelay: defaultSearchDebounce,
		loc:           time.UTC,
		now:           time.Now,
		logger:        zap.NewNop(),
		state:         newState(),
		fetches:       map[uint64]context.CancelFunc{},
		tracer:        observability.Tracer("internal/admin/orderlist"),
		rollbacks:     observability.Counter(meter, "orderdesk.orderlist.rollbacks", "Optimistic order mutations rolled back after an API failure."),
		superseded:    observability.Counter(meter, "orderdesk.orderlist.superseded", "Order list responses discarded because a newer request replaced them."),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.renderer == nil {
		c.renderer = labels.NewSheetRenderer(c.loc)
	}
	c.debouncer = NewDebouncer(c.debounceDelay)
	return c
}

// SetActor updates the credentials used for subsequent API calls.
func (c *Controller) SetActor(actor Actor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	actor.Roles = append([]string(nil), actor.Roles...)
	c.actor = actor
}

// Actor returns the current credentials.
func (c *Controller) Actor() Actor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actor
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot()
}

// MinSearchLength returns the number of characters a search needs before it is applied.
func (c *Controller) MinSearchLength() int {
	return c.minSearch
}

// Close cancels in-flight requests and pending debounced searches.
func (c *Controller) Close() {
	c.debouncer.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelInFlightLocked()
}

func (c *Controller) dispatchLocked(a action) {
	c.state = reduce(c.state, a)
}

func (c *Controller) apiContext(ctx context.Context, actor Actor) context.Context {
	ctx = requestctx.WithStoreID(ctx, actor.StoreID)
	if requestctx.Logger(ctx) == requestctx.NoopLogger() {
		ctx = requestctx.WithLogger(ctx, c.logger)
	}
	return ctx
}

func (c *Controller) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "orderlist.Controller."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrSuperseded) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Controller) cancelInFlightLocked() {
	for seq, cancel := range c.fetches {
		cancel()
		delete(c.fetches, seq)
	}
	if c.cancelMore != nil {
		c.cancelMore()
		c.cancelMore = nil
	}
}

// queryLocked builds the API query for the current filters. An active search ignores the
// date range so matches outside the visible period are still found.
func (c *Controller) queryLocked(offset, limit int) adminorders.Query {
	filters := c.state.Filters.effective(c.minSearch)
	query := adminorders.Query{
		Status:    filters.Status,
		Carrier:   filters.Carrier,
		Search:    filters.Search,
		Scheduled: filters.Scheduled,
		Timezone:  c.loc.String(),
		Limit:     limit,
		Offset:    offset,
	}
	if filters.Search == "" {
		query.StartDate = copyTime(c.state.Range.Start)
		query.EndDate = copyTime(c.state.Range.End)
	}
	return query
}

// Load performs the initial fetch.
func (c *Controller) Load(ctx context.Context) error {
	return c.fetch(ctx, fetchInitial)
}

// Refresh reloads the current query, keeping the depth already loaded.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetch(ctx, fetchRefresh)
}

// Poll reloads like Refresh and announces orders that arrived since the previous result.
// It is skipped while another list fetch or a load-more is in flight.
func (c *Controller) Poll(ctx context.Context) error {
	c.mu.Lock()
	busy := c.state.Loading || c.state.LoadingMore
	c.mu.Unlock()
	if busy {
		c.logger.Debug("skipping poll while the list is loading")
		return nil
	}
	return c.fetch(ctx, fetchPoll)
}

func (c *Controller) fetch(ctx context.Context, kind fetchKind) (err error) {
	ctx, span := c.startSpan(ctx, "fetch", attribute.String("kind", kind.String()))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	fetchCtx, cancel := context.WithCancel(ctx)
	c.seq++
	seq := c.seq
	c.fetches[seq] = cancel
	gen := c.state.FilterGen
	limit := c.pageSize
	if kind == fetchRefresh || kind == fetchPoll {
		limit = max(limit, len(c.state.Orders))
	}
	query := c.queryLocked(0, limit)
	actor := c.actor
	c.dispatchLocked(fetchStarted{seq: seq})
	c.mu.Unlock()
	defer cancel()

	result, err := c.svc.List(c.apiContext(fetchCtx, actor), actor.Token, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fetches, seq)

	if err != nil {
		if gen != c.state.FilterGen || seq != c.state.startedSeq || seq <= c.state.CommittedSeq {
			return c.discardLocked(ctx, kind, seq)
		}
		c.dispatchLocked(fetchFailed{gen: gen, seq: seq, err: adminorders.ErrorMessage(err)})
		c.logger.Warn("order list fetch failed",
			zap.String("kind", kind.String()),
			zap.Uint64("seq", seq),
			zap.Error(err),
		)
		if kind != fetchPoll {
			c.notifier.Notify(notifications.Toast{
				Tone:    notifications.ToneDanger,
				Title:   "No se pudieron cargar los pedidos",
				Message: adminorders.ErrorMessage(err),
				Action:  "Cargar pedidos",
			})
		}
		return fmt.Errorf("orderlist: list orders: %w", err)
	}

	if !c.state.accepts(gen, seq) {
		return c.discardLocked(ctx, kind, seq)
	}

	baseline := c.state.pollBaseline
	narrowing := c.state.Filters.Narrowing(c.minSearch)
	c.dispatchLocked(fetchSucceeded{gen: gen, seq: seq, kind: kind, result: result})

	if kind == fetchPoll && !narrowing && baseline >= 0 && result.Pagination.Total > baseline {
		added := result.Pagination.Total - baseline
		c.dispatchLocked(pollDelta{added: added})
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneInfo,
			Title:   newOrdersMessage(added),
			Message: "La lista se actualizó con los pedidos recientes.",
			Action:  "Nuevos pedidos",
		})
	}
	return nil
}

func (c *Controller) discardLocked(ctx context.Context, kind fetchKind, seq uint64) error {
	c.superseded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	c.logger.Debug("discarding superseded order list response",
		zap.String("kind", kind.String()),
		zap.Uint64("seq", seq),
		zap.Uint64("committed_seq", c.state.CommittedSeq),
		zap.Uint64("filter_gen", c.state.FilterGen),
	)
	return ErrSuperseded
}

func newOrdersMessage(n int) string {
	if n == 1 {
		return "1 nuevo pedido"
	}
	return fmt.Sprintf("%d nuevos pedidos", n)
}

// LoadMore appends the next page. It does nothing while a page is already loading or when
// the server reported no more results.
func (c *Controller) LoadMore(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.state.LoadingMore || !c.state.Pagination.HasMore {
		c.mu.Unlock()
		return nil
	}
	offset := c.state.Pagination.Offset + c.state.Pagination.Limit
	if c.state.Pagination.Limit <= 0 {
		offset = len(c.state.Orders)
	}
	ctx, span := c.startSpan(ctx, "LoadMore", attribute.Int("offset", offset))
	defer func() { endSpan(span, err) }()

	moreCtx, cancel := context.WithCancel(ctx)
	c.cancelMore = cancel
	gen := c.state.FilterGen
	query := c.queryLocked(offset, c.pageSize)
	actor := c.actor
	c.dispatchLocked(loadMoreStarted{})
	c.mu.Unlock()
	defer cancel()

	result, err := c.svc.List(c.apiContext(moreCtx, actor), actor.Token, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.state.FilterGen {
		c.superseded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "load-more")))
		c.logger.Debug("discarding load-more response for previous filters", zap.Int("offset", offset))
		return ErrSuperseded
	}
	if err != nil {
		c.dispatchLocked(loadMoreFailed{gen: gen, err: adminorders.ErrorMessage(err)})
		c.logger.Warn("order list load-more failed", zap.Int("offset", offset), zap.Error(err))
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneDanger,
			Title:   "No se pudieron cargar más pedidos",
			Message: adminorders.ErrorMessage(err),
			Action:  "Cargar más",
		})
		return fmt.Errorf("orderlist: load more: %w", err)
	}
	c.dispatchLocked(loadMoreSucceeded{gen: gen, result: result})
	return nil
}

// SetFilters replaces every list filter at once.
func (c *Controller) SetFilters(ctx context.Context, filters Filters) error {
	c.mu.Lock()
	rng := c.state.Range
	c.mu.Unlock()
	return c.changeFilters(ctx, filters, rng)
}

// SetStatus changes the status chip. An empty status shows every status.
func (c *Controller) SetStatus(ctx context.Context, status adminorders.Status) error {
	return c.UpdateFilters(ctx, func(f *Filters, _ *DateRange) { f.Status = status })
}

// SetCarrier changes the carrier filter.
func (c *Controller) SetCarrier(ctx context.Context, carrier adminorders.CarrierFilter) error {
	return c.UpdateFilters(ctx, func(f *Filters, _ *DateRange) { f.Carrier = carrier })
}

// SetScheduled changes the scheduled delivery filter.
func (c *Controller) SetScheduled(ctx context.Context, scheduled adminorders.ScheduledFilter) error {
	return c.UpdateFilters(ctx, func(f *Filters, _ *DateRange) { f.Scheduled = scheduled })
}

// SetDateRange changes the creation date range.
func (c *Controller) SetDateRange(ctx context.Context, rng DateRange) error {
	return c.UpdateFilters(ctx, func(_ *Filters, r *DateRange) {
		*r = DateRange{Start: copyTime(rng.Start), End: copyTime(rng.End)}
	})
}

// SetSearch applies the search text immediately. Text shorter than the minimum length
// clears the search.
func (c *Controller) SetSearch(ctx context.Context, text string) error {
	return c.UpdateFilters(ctx, func(f *Filters, _ *DateRange) { f.Search = text })
}

// QueueSearch debounces search input. Only the last text of a quiet window is applied;
// earlier calls resolve with ErrSuperseded.
func (c *Controller) QueueSearch(ctx context.Context, text string) <-chan error {
	return c.debouncer.Trigger(func() error {
		return c.SetSearch(ctx, text)
	})
}

// UpdateFilters applies several filter and range edits as one change, issuing a single fetch.
func (c *Controller) UpdateFilters(ctx context.Context, apply func(*Filters, *DateRange)) error {
	c.mu.Lock()
	filters := c.state.Filters
	rng := DateRange{Start: copyTime(c.state.Range.Start), End: copyTime(c.state.Range.End)}
	c.mu.Unlock()
	apply(&filters, &rng)
	return c.changeFilters(ctx, filters, rng)
}

func (c *Controller) changeFilters(ctx context.Context, filters Filters, rng DateRange) error {
	if filters.Carrier == "" {
		filters.Carrier = adminorders.CarrierAll
	}
	if filters.Scheduled == "" {
		filters.Scheduled = adminorders.ScheduledAll
	}

	c.mu.Lock()
	current := c.state
	if current.Loaded && c.sameQuery(current.Filters, current.Range, filters, rng) {
		if current.Filters.Search != filters.Search {
			c.dispatchLocked(searchTextChanged{text: filters.Search})
		}
		c.mu.Unlock()
		return nil
	}
	c.cancelInFlightLocked()
	c.dispatchLocked(filterChanged{filters: filters, rng: rng})
	c.mu.Unlock()

	return c.fetch(ctx, fetchFilter)
}

// sameQuery reports whether two filter sets produce the same API query.
func (c *Controller) sameQuery(aFilters Filters, aRange DateRange, bFilters Filters, bRange DateRange) bool {
	a := aFilters.effective(c.minSearch)
	b := bFilters.effective(c.minSearch)
	if a != b {
		return false
	}
	if a.Search != "" {
		return true
	}
	return aRange.equal(bRange)
}

// mutation describes an optimistic order change.
type mutation struct {
	action  string
	success string
	guard   func(adminorders.Order) error
	apply   func(*adminorders.Order)
	call    func(ctx context.Context, token string) (adminorders.Order, error)
}

// mutate applies m locally, calls the API and either merges the server result or restores
// the exact pre-mutation order.
func (c *Controller) mutate(ctx context.Context, orderID string, m mutation) (updated adminorders.Order, err error) {
	ctx, span := c.startSpan(ctx, "mutate", attribute.String("action", m.action), attribute.String("order_id", orderID))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	idx := c.state.indexOf(orderID)
	if idx < 0 {
		c.mu.Unlock()
		return adminorders.Order{}, ErrNotInView
	}
	snapshot := c.state.Orders[idx].Clone()
	if m.guard != nil {
		if err := m.guard(snapshot); err != nil {
			c.notifyFailureLocked(m.action, snapshot, err)
			c.mu.Unlock()
			return adminorders.Order{}, err
		}
	}
	optimistic := snapshot.Clone()
	m.apply(&optimistic)
	optimistic.UpdatedAt = c.now()
	gen := c.state.FilterGen
	actor := c.actor
	c.dispatchLocked(mutationOptimistic{order: optimistic})
	c.mu.Unlock()

	result, err := m.call(c.apiContext(ctx, actor), actor.Token)
	if err == nil && strings.TrimSpace(result.ID) == "" {
		err = adminorders.ErrEmptyResponse
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if gen == c.state.FilterGen {
			c.dispatchLocked(mutationRolledBack{snapshot: snapshot})
		}
		c.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("action", m.action)))
		c.logger.Warn("order mutation rolled back",
			zap.String("action", m.action),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		c.notifyFailureLocked(m.action, snapshot, err)
		return adminorders.Order{}, err
	}

	c.dispatchLocked(mutationConfirmed{order: result})
	if i := c.state.indexOf(orderID); i >= 0 {
		updated = c.state.Orders[i].Clone()
	} else {
		updated = result.Clone()
	}
	c.notifier.Notify(notifications.Toast{
		Tone:    notifications.ToneSuccess,
		Title:   m.success,
		Message: fmt.Sprintf("Pedido %s: %s", displayNumber(updated), updated.Status.Label()),
		Action:  m.action,
		Entity:  displayNumber(updated),
	})
	return updated, nil
}

func (c *Controller) notifyFailureLocked(action string, order adminorders.Order, err error) {
	toast := notifications.Toast{
		Tone:    notifications.ToneDanger,
		Title:   "No se pudo completar: " + action,
		Message: adminorders.ErrorMessage(err),
		Action:  action,
		Entity:  displayNumber(order),
	}
	if from, to, ok := adminorders.TransitionDetail(err); ok {
		toast.Details = []string{fmt.Sprintf("%s → %s", from.Label(), to.Label())}
	}
	if errors.Is(err, adminorders.ErrDeleteForbidden) {
		toast.Blocking = true
	}
	c.notifier.Notify(toast)
}

func displayNumber(order adminorders.Order) string {
	if n := strings.TrimSpace(order.Number); n != "" {
		return n
	}
	return order.ID
}

func sameStatusGuard(to adminorders.Status) func(adminorders.Order) error {
	return func(order adminorders.Order) error {
		if order.Status == to {
			return fmt.Errorf("%w: %s", ErrSameStatus, to.Label())
		}
		return nil
	}
}

// Confirm confirms the order, optionally assigning a carrier.
func (c *Controller) Confirm(ctx context.Context, orderID, carrierID, note string) (adminorders.Order, error) {
	carrierID = strings.TrimSpace(carrierID)
	roles := c.Actor().Roles
	return c.mutate(ctx, orderID, mutation{
		action:  "Confirmar pedido",
		success: "Pedido confirmado",
		guard: func(order adminorders.Order) error {
			if err := sameStatusGuard(adminorders.StatusConfirmed)(order); err != nil {
				return err
			}
			if carrierID != "" && !adminorders.CanAssignCarrier(roles, order.Status) {
				return fmt.Errorf("%w: %s", adminorders.ErrCarrierNotAllowed, order.Status.Label())
			}
			return nil
		},
		apply: func(order *adminorders.Order) {
			order.Status = adminorders.StatusConfirmed
			if carrierID != "" {
				order.CarrierID = carrierID
				order.Pickup = false
			}
		},
		call: func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.Confirm(ctx, token, orderID, adminorders.ConfirmRequest{CarrierID: carrierID, Note: note})
		},
	})
}

// Reject cancels the order.
func (c *Controller) Reject(ctx context.Context, orderID, reason string) (adminorders.Order, error) {
	return c.mutate(ctx, orderID, mutation{
		action:  "Rechazar pedido",
		success: "Pedido rechazado",
		guard:   sameStatusGuard(adminorders.StatusCancelled),
		apply:   func(order *adminorders.Order) { order.Status = adminorders.StatusCancelled },
		call: func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.Reject(ctx, token, orderID, adminorders.RejectRequest{Reason: reason})
		},
	})
}

// UpdateStatus moves the order to status.
func (c *Controller) UpdateStatus(ctx context.Context, orderID string, status adminorders.Status, note string) (adminorders.Order, error) {
	if !status.Valid() {
		return adminorders.Order{}, fmt.Errorf("%w: %q", adminorders.ErrUnknownStatus, status)
	}
	return c.mutate(ctx, orderID, mutation{
		action:  "Cambiar estado",
		success: "Estado actualizado",
		guard:   sameStatusGuard(status),
		apply:   func(order *adminorders.Order) { order.Status = status },
		call: func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.UpdateStatus(ctx, token, orderID, adminorders.StatusUpdateRequest{Status: status, Note: note})
		},
	})
}

// MarkContacted records that the customer was reached.
func (c *Controller) MarkContacted(ctx context.Context, orderID string) (adminorders.Order, error) {
	return c.mutate(ctx, orderID, mutation{
		action:  "Marcar contactado",
		success: "Cliente contactado",
		guard:   sameStatusGuard(adminorders.StatusContacted),
		apply: func(order *adminorders.Order) {
			now := c.now()
			order.Status = adminorders.StatusContacted
			order.ContactedAt = &now
		},
		call: func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.MarkContacted(ctx, token, orderID)
		},
	})
}

// Delete removes the order when the actor's roles allow it for the order's status. A
// blocked delete leaves the order untouched and raises a blocking error toast.
func (c *Controller) Delete(ctx context.Context, actor Actor, orderID string) (err error) {
	ctx, span := c.startSpan(ctx, "Delete", attribute.String("order_id", orderID))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	idx := c.state.indexOf(orderID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotInView
	}
	order := c.state.Orders[idx].Clone()
	mode, err := adminorders.CanDelete(actor.Roles, order.Status)
	if err != nil {
		c.notifyFailureLocked("Eliminar pedido", order, err)
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	permanent := mode == adminorders.DeletePermanent
	err = c.svc.Delete(c.apiContext(ctx, actor), actor.Token, orderID, permanent)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn("order delete failed", zap.String("order_id", orderID), zap.Stringer("mode", mode), zap.Error(err))
		c.notifyFailureLocked("Eliminar pedido", order, err)
		return err
	}
	if permanent {
		c.dispatchLocked(orderRemoved{id: orderID})
	} else {
		c.dispatchLocked(orderSoftDeleted{id: orderID, at: c.now()})
	}
	c.notifier.Notify(notifications.Toast{
		Tone:    notifications.ToneSuccess,
		Title:   "Pedido eliminado",
		Message: fmt.Sprintf("Pedido %s eliminado", displayNumber(order)),
		Action:  "Eliminar pedido",
		Entity:  displayNumber(order),
	})
	return nil
}

// Restore clears the soft delete marker of a loaded order.
func (c *Controller) Restore(ctx context.Context, orderID string) (adminorders.Order, error) {
	return c.passthrough(ctx, orderID, "Restaurar pedido", "Pedido restaurado",
		func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.Restore(ctx, token, orderID)
		})
}

// MarkTest flags or unflags a loaded order as a test order.
func (c *Controller) MarkTest(ctx context.Context, orderID string, isTest bool) (adminorders.Order, error) {
	title := "Pedido marcado como prueba"
	if !isTest {
		title = "Pedido marcado como real"
	}
	return c.passthrough(ctx, orderID, "Marcar prueba", title,
		func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.MarkTest(ctx, token, orderID, isTest)
		})
}

// Update edits order details. Assigning a carrier is only allowed before dispatch.
func (c *Controller) Update(ctx context.Context, orderID string, req adminorders.UpdateRequest) (adminorders.Order, error) {
	if req.CarrierID != nil && strings.TrimSpace(*req.CarrierID) != "" {
		c.mu.Lock()
		idx := c.state.indexOf(orderID)
		if idx < 0 {
			c.mu.Unlock()
			return adminorders.Order{}, ErrNotInView
		}
		order := c.state.Orders[idx]
		if !adminorders.CanAssignCarrier(c.actor.Roles, order.Status) {
			err := fmt.Errorf("%w: %s", adminorders.ErrCarrierNotAllowed, order.Status.Label())
			c.notifyFailureLocked("Editar pedido", order, err)
			c.mu.Unlock()
			return adminorders.Order{}, err
		}
		c.mu.Unlock()
	}
	return c.passthrough(ctx, orderID, "Editar pedido", "Pedido actualizado",
		func(ctx context.Context, token string) (adminorders.Order, error) {
			return c.svc.Update(ctx, token, orderID, req)
		})
}

// passthrough calls the API without an optimistic update and merges the result.
func (c *Controller) passthrough(ctx context.Context, orderID, action, success string, call func(context.Context, string) (adminorders.Order, error)) (updated adminorders.Order, err error) {
	ctx, span := c.startSpan(ctx, "passthrough", attribute.String("action", action), attribute.String("order_id", orderID))
	defer func() { endSpan(span, err) }()

	actor := c.Actor()
	result, err := call(c.apiContext(ctx, actor), actor.Token)
	if err == nil && strings.TrimSpace(result.ID) == "" {
		err = adminorders.ErrEmptyResponse
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		subject := adminorders.Order{ID: orderID}
		if idx := c.state.indexOf(orderID); idx >= 0 {
			subject = c.state.Orders[idx]
		}
		c.logger.Warn("order update failed", zap.String("action", action), zap.String("order_id", orderID), zap.Error(err))
		c.notifyFailureLocked(action, subject, err)
		return adminorders.Order{}, err
	}
	c.dispatchLocked(mutationConfirmed{order: result})
	updated = result.Clone()
	if idx := c.state.indexOf(orderID); idx >= 0 {
		updated = c.state.Orders[idx].Clone()
	}
	c.notifier.Notify(notifications.Toast{
		Tone:    notifications.ToneSuccess,
		Title:   success,
		Message: fmt.Sprintf("Pedido %s", displayNumber(updated)),
		Action:  action,
		Entity:  displayNumber(updated),
	})
	return updated, nil
}

// Create registers a manual order and refreshes the list so it appears in place.
func (c *Controller) Create(ctx context.Context, req adminorders.CreateRequest) (adminorders.Order, error) {
	actor := c.Actor()
	order, err := c.svc.Create(c.apiContext(ctx, actor), actor.Token, req)
	if err == nil && strings.TrimSpace(order.ID) == "" {
		err = adminorders.ErrEmptyResponse
	}
	if err != nil {
		c.mu.Lock()
		c.notifyFailureLocked("Crear pedido", adminorders.Order{}, err)
		c.mu.Unlock()
		return adminorders.Order{}, err
	}
	c.notifier.Notify(notifications.Toast{
		Tone:    notifications.ToneSuccess,
		Title:   "Pedido creado",
		Message: fmt.Sprintf("Pedido %s creado", displayNumber(order)),
		Action:  "Crear pedido",
		Entity:  displayNumber(order),
	})
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return order, err
	}
	return order, nil
}

// ToggleSelection adds or removes a loaded order from the print selection. Orders without
// a delivery token cannot be selected.
func (c *Controller) ToggleSelection(orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.state.indexOf(orderID)
	if idx < 0 {
		return ErrNotInView
	}
	_, selected := c.state.Selection[orderID]
	if !selected && !selectable(c.state.Orders[idx]) {
		return adminorders.ErrMissingDeliveryToken
	}
	c.dispatchLocked(selectionToggled{id: orderID})
	return nil
}

// SelectAll selects every loaded order that can be printed.
func (c *Controller) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.state.Orders))
	for _, order := range c.state.Orders {
		if selectable(order) {
			ids = append(ids, order.ID)
		}
	}
	c.dispatchLocked(selectionReplaced{ids: ids})
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(selectionReplaced{})
}

// BulkPrintOutcome reports the result of a bulk print.
type BulkPrintOutcome struct {
	Artifact labels.Artifact
	Printed  []string
	Failed   []adminorders.BulkPrintItem
}

// BulkPrint renders labels for the selected orders and then marks them printed and
// dispatched. When rendering fails nothing is marked. Orders the API could not mark stay
// selected; every other order leaves the selection.
func (c *Controller) BulkPrint(ctx context.Context) (outcome BulkPrintOutcome, err error) {
	ctx, span := c.startSpan(ctx, "BulkPrint")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	batch := make([]adminorders.Order, 0, len(c.state.Selection))
	for _, order := range c.state.Orders {
		if _, ok := c.state.Selection[order.ID]; ok && selectable(order) {
			batch = append(batch, order.Clone())
		}
	}
	if len(batch) == 0 {
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneDanger,
			Title:   "No hay pedidos para imprimir",
			Message: "Seleccioná pedidos con código de entrega.",
			Action:  "Imprimir etiquetas",
		})
		c.mu.Unlock()
		return BulkPrintOutcome{}, ErrEmptySelection
	}
	gen := c.state.FilterGen
	actor := c.actor
	c.mu.Unlock()
	span.SetAttributes(attribute.Int("orders", len(batch)))

	artifact, err := c.renderer.Render(ctx, batch)
	if err != nil {
		c.logger.Warn("label rendering failed", zap.Int("orders", len(batch)), zap.Error(err))
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneDanger,
			Title:   "No se pudieron generar las etiquetas",
			Message: adminorders.ErrorMessage(err),
			Action:  "Imprimir etiquetas",
		})
		return BulkPrintOutcome{}, fmt.Errorf("orderlist: render labels: %w", err)
	}

	ids := make([]string, len(batch))
	for i, order := range batch {
		ids[i] = order.ID
	}
	result, err := c.svc.BulkPrintDispatch(c.apiContext(ctx, actor), actor.Token, ids)
	if err != nil {
		c.logger.Warn("bulk print dispatch failed", zap.Int("orders", len(ids)), zap.Error(err))
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneDanger,
			Title:   "No se pudieron marcar los pedidos",
			Message: adminorders.ErrorMessage(err),
			Action:  "Imprimir etiquetas",
		})
		return BulkPrintOutcome{Artifact: artifact}, fmt.Errorf("orderlist: bulk print dispatch: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	outcome = BulkPrintOutcome{Artifact: artifact}
	reported := make(map[string]adminorders.BulkPrintItem, len(result.Items))
	for _, item := range result.Items {
		reported[item.OrderID] = item
	}
	now := c.now()
	for _, order := range batch {
		item, ok := reported[order.ID]
		if !ok {
			item = adminorders.BulkPrintItem{OrderID: order.ID, Error: "sin respuesta del servidor"}
		}
		if !item.Success {
			outcome.Failed = append(outcome.Failed, item)
			continue
		}
		outcome.Printed = append(outcome.Printed, order.ID)
		server := order.Clone()
		if item.Order != nil && item.Order.ID != "" {
			server = item.Order.Clone()
		} else {
			server.PrintedAt = &now
		}
		c.dispatchLocked(mutationConfirmed{order: server})
	}
	if gen == c.state.FilterGen {
		failed := make([]string, len(outcome.Failed))
		for i, item := range outcome.Failed {
			failed[i] = item.OrderID
		}
		c.dispatchLocked(selectionReplaced{ids: failed})
	}

	if len(outcome.Failed) == 0 {
		c.notifier.Notify(notifications.Toast{
			Tone:    notifications.ToneSuccess,
			Title:   "Etiquetas listas",
			Message: fmt.Sprintf("%d pedidos impresos y despachados", len(outcome.Printed)),
			Action:  "Imprimir etiquetas",
		})
		return outcome, nil
	}

	numbers := make(map[string]string, len(batch))
	for _, order := range batch {
		numbers[order.ID] = displayNumber(order)
	}
	details := make([]string, 0, len(outcome.Failed))
	for _, item := range outcome.Failed {
		reason := strings.TrimSpace(item.Error)
		if reason == "" {
			reason = "error desconocido"
		}
		details = append(details, fmt.Sprintf("%s: %s", numbers[item.OrderID], reason))
	}
	sort.Strings(details)
	c.notifier.Notify(notifications.Toast{
		Tone:    notifications.ToneWarning,
		Title:   "Algunos pedidos no se marcaron",
		Message: fmt.Sprintf("%d de %d pedidos quedaron seleccionados para reintentar", len(outcome.Failed), len(batch)),
		Action:  "Imprimir etiquetas",
		Details: details,
	})
	return outcome, nil
}
