package orderlist

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
)

// DateRange restricts the list to orders created between Start and End (inclusive days).
// A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether the range is unbounded.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

func (r DateRange) equal(other DateRange) bool {
	return sameDay(r.Start, other.Start) && sameDay(r.End, other.End)
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// Filters are the chip, carrier, scheduled and search filters of the list.
type Filters struct {
	Status    adminorders.Status
	Carrier   adminorders.CarrierFilter
	Search    string
	Scheduled adminorders.ScheduledFilter
}

// SearchActive reports whether the search text is long enough to be sent.
func (f Filters) SearchActive(minLength int) bool {
	return utf8.RuneCountInString(adminorders.NormalizeSearch(f.Search)) >= minLength
}

// Narrowing reports whether a status, carrier or active search filter is set. Deltas under
// these filters are not treated as new order signals.
func (f Filters) Narrowing(minLength int) bool {
	return f.Status != "" || f.Carrier.IsActive() || f.SearchActive(minLength)
}

// effective returns the filters as they are sent to the API.
func (f Filters) effective(minLength int) Filters {
	out := f
	if out.Carrier == "" {
		out.Carrier = adminorders.CarrierAll
	}
	if out.Scheduled == "" {
		out.Scheduled = adminorders.ScheduledAll
	}
	if f.SearchActive(minLength) {
		out.Search = strings.TrimSpace(f.Search)
	} else {
		out.Search = ""
	}
	return out
}

// State is the controller state. It is only mutated through reduce.
type State struct {
	Orders      []adminorders.Order
	Pagination  adminorders.Pagination
	Filters     Filters
	Range       DateRange
	Selection   map[string]struct{}
	Loading     bool
	LoadingMore bool
	Loaded      bool
	NewOrders   int
	LastError   string

	// FilterGen increments on every filter or date range change.
	FilterGen uint64
	// CommittedSeq is the sequence number of the last list result that was committed.
	CommittedSeq uint64
	// startedSeq is the sequence number of the newest list fetch issued.
	startedSeq uint64
	// pollBaseline is the total seen by the last committed list result, -1 when unknown.
	pollBaseline int
}

func newState() State {
	return State{
		Filters:      Filters{Carrier: adminorders.CarrierAll, Scheduled: adminorders.ScheduledAll},
		Selection:    map[string]struct{}{},
		pollBaseline: -1,
	}
}

// Snapshot is a deep copy of the state for rendering.
type Snapshot struct {
	Orders      []adminorders.Order
	Pagination  adminorders.Pagination
	Filters     Filters
	Range       DateRange
	Selected    []string
	Loading     bool
	LoadingMore bool
	Loaded      bool
	NewOrders   int
	LastError   string
	FilterGen   uint64
}

// IsSelected reports whether the order id is in the selection set.
func (s Snapshot) IsSelected(id string) bool {
	for _, selected := range s.Selected {
		if selected == id {
			return true
		}
	}
	return false
}

// Printable returns the number of loaded orders that can be selected for printing.
func (s Snapshot) Printable() int {
	n := 0
	for _, order := range s.Orders {
		if selectable(order) {
			n++
		}
	}
	return n
}

func (s State) snapshot() Snapshot {
	out := Snapshot{
		Orders:      make([]adminorders.Order, len(s.Orders)),
		Pagination:  s.Pagination,
		Filters:     s.Filters,
		Range:       DateRange{Start: copyTime(s.Range.Start), End: copyTime(s.Range.End)},
		Selected:    make([]string, 0, len(s.Selection)),
		Loading:     s.Loading,
		LoadingMore: s.LoadingMore,
		Loaded:      s.Loaded,
		NewOrders:   s.NewOrders,
		LastError:   s.LastError,
		FilterGen:   s.FilterGen,
	}
	for i, order := range s.Orders {
		out.Orders[i] = order.Clone()
	}
	for _, order := range s.Orders {
		if _, ok := s.Selection[order.ID]; ok {
			out.Selected = append(out.Selected, order.ID)
		}
	}
	var extra []string
	for id := range s.Selection {
		if s.indexOf(id) < 0 {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	out.Selected = append(out.Selected, extra...)
	return out
}

func (s State) indexOf(id string) int {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

func selectable(order adminorders.Order) bool {
	return order.HasDeliveryToken() && !order.IsDeleted()
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
