package orders

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/helpers"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/partials"
)

// ViewOptions carries the request scoped inputs of the view models.
type ViewOptions struct {
	Roles        []string
	Location     *time.Location
	Now          time.Time
	MinSearch    int
	PollInterval time.Duration
}

// Endpoints lists the htmx endpoints used by the page.
type Endpoints struct {
	Table      string
	Filters    string
	Search     string
	More       string
	Refresh    string
	Visibility string
	Selection  string
	Print      string
	Create     string
}

// PageData represents the payload for the orders index page.
type PageData struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
	Endpoints   Endpoints
	Filters     FilterBar
	Table       TableData
	PollSeconds int
}

// FilterBar describes the filter controls above the table.
type FilterBar struct {
	StatusChips      []Chip
	CarrierOptions   []SelectOption
	ScheduledOptions []SelectOption
	Search           string
	SearchMin        int
	SearchActive     bool
	StartDate        string
	EndDate          string
	RangeIgnored     bool
	HasActive        bool
}

// Chip is a status filter chip.
type Chip struct {
	Value  string
	Label  string
	Tone   string
	Active bool
	Vals   string
}

// SelectOption represents a select menu option.
type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// TableData contains the fragment payload for the orders table.
type TableData struct {
	Endpoints    Endpoints
	Rows         []TableRow
	Total        int
	Shown        int
	HasMore      bool
	Loading      bool
	LoadingMore  bool
	Loaded       bool
	NewOrders    int
	Error        string
	EmptyMessage string
	Selected     int
	Printable    int
	AllSelected  bool
	CanPrint     bool
	SearchTerm   string
}

// TableRow represents a single table row.
type TableRow struct {
	ID              string
	Number          string
	CustomerName    string
	CustomerPhone   string
	City            string
	ItemsSummary    string
	Total           string
	StatusLabel     string
	StatusTone      string
	Carrier         string
	Scheduled       string
	CreatedLabel    string
	CreatedRelative string
	Selected        bool
	Selectable      bool
	Deleted         bool
	Test            bool
	Printed         bool
	Actions         []RowAction
	StatusOptions   []SelectOption
	StatusURL       string
}

// RowAction is a button in the actions column.
type RowAction struct {
	Key     string
	Label   string
	Method  string
	URL     string
	Vals    string
	Confirm string
	Danger  bool
}

// EndpointsFor derives every endpoint from the console base path.
func EndpointsFor(basePath string) Endpoints {
	return Endpoints{
		Table:      joinBase(basePath, "/orders/table"),
		Filters:    joinBase(basePath, "/orders/filters"),
		Search:     joinBase(basePath, "/orders/search"),
		More:       joinBase(basePath, "/orders/more"),
		Refresh:    joinBase(basePath, "/orders/refresh"),
		Visibility: joinBase(basePath, "/orders/visibility"),
		Selection:  joinBase(basePath, "/orders/selection"),
		Print:      joinBase(basePath, "/orders/print"),
		Create:     joinBase(basePath, "/orders/new"),
	}
}

// BuildPageData assembles the page view model from a controller snapshot.
func BuildPageData(basePath string, snap orderlist.Snapshot, opts ViewOptions) PageData {
	opts = normaliseOptions(opts)
	return PageData{
		Title:       "Pedidos",
		Breadcrumbs: breadcrumbItems(basePath),
		Endpoints:   EndpointsFor(basePath),
		Filters:     buildFilters(snap, opts),
		Table:       TablePayload(basePath, snap, opts),
		PollSeconds: int(opts.PollInterval / time.Second),
	}
}

// TablePayload builds the table fragment view model.
func TablePayload(basePath string, snap orderlist.Snapshot, opts ViewOptions) TableData {
	opts = normaliseOptions(opts)
	endpoints := EndpointsFor(basePath)
	search := ""
	if snap.Filters.SearchActive(opts.MinSearch) {
		search = strings.TrimSpace(snap.Filters.Search)
	}

	rows := make([]TableRow, 0, len(snap.Orders))
	for _, order := range snap.Orders {
		rows = append(rows, buildRow(basePath, order, snap.IsSelected(order.ID), opts))
	}

	printable := snap.Printable()
	data := TableData{
		Endpoints:   endpoints,
		Rows:        rows,
		Total:       snap.Pagination.Total,
		Shown:       len(rows),
		HasMore:     snap.Pagination.HasMore,
		Loading:     snap.Loading,
		LoadingMore: snap.LoadingMore,
		Loaded:      snap.Loaded,
		NewOrders:   snap.NewOrders,
		Error:       snap.LastError,
		Selected:    len(snap.Selected),
		Printable:   printable,
		AllSelected: printable > 0 && len(snap.Selected) >= printable,
		CanPrint:    rbac.HasCapability(opts.Roles, rbac.CapOrdersPrint),
		SearchTerm:  search,
	}
	switch {
	case search != "":
		data.EmptyMessage = fmt.Sprintf("Ningún pedido coincide con “%s”.", search)
	case snap.Filters.Narrowing(opts.MinSearch) || !snap.Range.IsZero():
		data.EmptyMessage = "Ningún pedido coincide con los filtros."
	default:
		data.EmptyMessage = "Todavía no hay pedidos."
	}
	return data
}

func normaliseOptions(opts ViewOptions) ViewOptions {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.MinSearch <= 0 {
		opts.MinSearch = 2
	}
	return opts
}

func buildRow(basePath string, order adminorders.Order, selected bool, opts ViewOptions) TableRow {
	row := TableRow{
		ID:              order.ID,
		Number:          safeText(order.Number, order.ID),
		CustomerName:    safeText(order.Customer.Name, "Sin nombre"),
		CustomerPhone:   order.Customer.Phone,
		City:            order.Customer.City,
		ItemsSummary:    itemsSummary(order.LineItems),
		Total:           helpers.Money(order.Total, order.Currency),
		StatusLabel:     order.Status.Label(),
		StatusTone:      order.Status.Tone(),
		Carrier:         carrierLabel(order),
		CreatedLabel:    helpers.Date(order.CreatedAt, opts.Location, "02/01/2006 15:04"),
		CreatedRelative: helpers.Relative(order.CreatedAt, opts.Now),
		Selected:        selected,
		Selectable:      order.HasDeliveryToken() && !order.IsDeleted(),
		Deleted:         order.IsDeleted(),
		Test:            order.IsTest,
		Printed:         order.IsPrinted(),
		StatusURL:       joinBase(basePath, "/orders/"+order.ID+"/status"),
	}
	if order.ScheduledFor != nil {
		row.Scheduled = helpers.Date(*order.ScheduledFor, opts.Location, "02/01/2006")
	}
	row.Actions = rowActions(basePath, order, opts.Roles)
	if !order.IsDeleted() && rbac.HasCapability(opts.Roles, rbac.CapOrdersStatus) {
		for _, next := range order.Status.NextStatuses() {
			row.StatusOptions = append(row.StatusOptions, SelectOption{Value: string(next), Label: next.Label()})
		}
	}
	return row
}

func rowActions(basePath string, order adminorders.Order, roles []string) []RowAction {
	orderURL := joinBase(basePath, "/orders/"+order.ID)
	number := safeText(order.Number, order.ID)

	if order.IsDeleted() {
		if rbac.HasCapability(roles, rbac.CapOrdersRestore) {
			return []RowAction{{Key: "restore", Label: "Restaurar", Method: "post", URL: orderURL + "/restore"}}
		}
		return nil
	}

	var actions []RowAction
	if order.Status == adminorders.StatusPending && rbac.HasCapability(roles, rbac.CapOrdersContact) {
		actions = append(actions, RowAction{Key: "contact", Label: "Contactado", Method: "post", URL: orderURL + "/contact"})
	}
	if adminorders.CanTransition(order.Status, adminorders.StatusConfirmed) && rbac.HasCapability(roles, rbac.CapOrdersConfirm) {
		actions = append(actions, RowAction{Key: "confirm", Label: "Confirmar", Method: "post", URL: orderURL + "/confirm"})
	}
	if adminorders.CanTransition(order.Status, adminorders.StatusCancelled) && !order.Status.IsDispatched() && rbac.HasCapability(roles, rbac.CapOrdersConfirm) {
		actions = append(actions, RowAction{
			Key:     "reject",
			Label:   "Rechazar",
			Method:  "post",
			URL:     orderURL + "/reject",
			Confirm: fmt.Sprintf("¿Rechazar el pedido %s?", number),
			Danger:  true,
		})
	}
	if rbac.HasCapability(roles, rbac.CapOrdersMarkTest) {
		label, value := "Marcar prueba", "true"
		if order.IsTest {
			label, value = "Marcar real", "false"
		}
		actions = append(actions, RowAction{Key: "test", Label: label, Method: "post", URL: orderURL + "/test", Vals: vals(map[string]string{"is_test": value})})
	}
	if mode, err := adminorders.CanDelete(roles, order.Status); err == nil {
		confirm := fmt.Sprintf("¿Eliminar el pedido %s?", number)
		if mode == adminorders.DeletePermanent {
			confirm = fmt.Sprintf("¿Eliminar definitivamente el pedido %s? No se puede deshacer.", number)
		}
		actions = append(actions, RowAction{Key: "delete", Label: "Eliminar", Method: "delete", URL: orderURL, Confirm: confirm, Danger: true})
	}
	return actions
}

func buildFilters(snap orderlist.Snapshot, opts ViewOptions) FilterBar {
	bar := FilterBar{
		Search:       snap.Filters.Search,
		SearchMin:    opts.MinSearch,
		SearchActive: snap.Filters.SearchActive(opts.MinSearch),
		HasActive:    snap.Filters.Narrowing(opts.MinSearch) || !snap.Range.IsZero() || (snap.Filters.Scheduled != "" && snap.Filters.Scheduled != adminorders.ScheduledAll),
	}
	if snap.Range.Start != nil {
		bar.StartDate = snap.Range.Start.In(opts.Location).Format("2006-01-02")
	}
	if snap.Range.End != nil {
		bar.EndDate = snap.Range.End.In(opts.Location).Format("2006-01-02")
	}
	bar.RangeIgnored = bar.SearchActive && !snap.Range.IsZero()

	bar.StatusChips = append(bar.StatusChips, Chip{
		Value:  "",
		Label:  "Todos",
		Tone:   "neutral",
		Active: snap.Filters.Status == "",
		Vals:   vals(map[string]string{"status": ""}),
	})
	for _, status := range adminorders.AllStatuses() {
		bar.StatusChips = append(bar.StatusChips, Chip{
			Value:  string(status),
			Label:  status.Label(),
			Tone:   status.Tone(),
			Active: snap.Filters.Status == status,
			Vals:   vals(map[string]string{"status": string(status)}),
		})
	}

	bar.CarrierOptions = carrierOptions(snap)
	current := snap.Filters.Scheduled
	if current == "" {
		current = adminorders.ScheduledAll
	}
	for _, opt := range []struct {
		value adminorders.ScheduledFilter
		label string
	}{
		{adminorders.ScheduledAll, "Todas las entregas"},
		{adminorders.ScheduledReady, "Listos para hoy"},
		{adminorders.ScheduledOnly, "Programados"},
	} {
		bar.ScheduledOptions = append(bar.ScheduledOptions, SelectOption{
			Value:    string(opt.value),
			Label:    opt.label,
			Selected: current == opt.value,
		})
	}
	return bar
}

// carrierOptions lists the sentinel filters plus every carrier seen in the loaded orders.
func carrierOptions(snap orderlist.Snapshot) []SelectOption {
	current := snap.Filters.Carrier
	if current == "" {
		current = adminorders.CarrierAll
	}
	opts := []SelectOption{
		{Value: string(adminorders.CarrierAll), Label: "Todas las transportadoras"},
		{Value: string(adminorders.CarrierPickup), Label: "Retiro en tienda"},
		{Value: string(adminorders.CarrierNone), Label: "Sin transportadora"},
	}
	seen := map[string]string{}
	for _, order := range snap.Orders {
		if order.CarrierID == "" || order.Pickup {
			continue
		}
		if prev, ok := seen[order.CarrierID]; !ok || prev == order.CarrierID {
			seen[order.CarrierID] = safeText(order.CarrierName, order.CarrierID)
		}
	}
	if current.IsActive() && current != adminorders.CarrierPickup && current != adminorders.CarrierNone {
		if _, ok := seen[string(current)]; !ok {
			seen[string(current)] = string(current)
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return seen[ids[i]] < seen[ids[j]] })
	for _, id := range ids {
		opts = append(opts, SelectOption{Value: id, Label: seen[id]})
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == string(current)
	}
	return opts
}

func carrierLabel(order adminorders.Order) string {
	switch {
	case order.Pickup:
		return "Retiro en tienda"
	case order.CarrierName != "":
		return order.CarrierName
	case order.CarrierID != "":
		return order.CarrierID
	default:
		return "Sin asignar"
	}
}

func itemsSummary(items []adminorders.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	first := fmt.Sprintf("%d× %s", items[0].Quantity, items[0].Name)
	if len(items) == 1 {
		return first
	}
	return fmt.Sprintf("%s y %d más", first, len(items)-1)
}

func vals(values map[string]string) string {
	data, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func safeText(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func breadcrumbItems(basePath string) []partials.Breadcrumb {
	return []partials.Breadcrumb{
		{Label: "Operaciones", Href: ""},
		{Label: "Pedidos", Href: joinBase(basePath, "/orders")},
	}
}

func joinBase(base, suffix string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "/admin"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if base != "/" {
		base = strings.TrimRight(base, "/")
	} else {
		base = ""
	}
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	return base + suffix
}
