package orderlist

import (
	"time"

	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
)

type fetchKind int

const (
	fetchInitial fetchKind = iota
	fetchFilter
	fetchRefresh
	fetchPoll
)

func (k fetchKind) String() string {
	switch k {
	case fetchInitial:
		return "initial"
	case fetchFilter:
		return "filter"
	case fetchRefresh:
		return "refresh"
	case fetchPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// action is a single logical state transition.
type action interface {
	actionName() string
}

type (
	fetchStarted struct {
		seq uint64
	}
	fetchSucceeded struct {
		gen    uint64
		seq    uint64
		kind   fetchKind
		result adminorders.ListResult
	}
	fetchFailed struct {
		gen uint64
		seq uint64
		err string
	}
	filterChanged struct {
		filters Filters
		rng     DateRange
	}
	searchTextChanged struct {
		text string
	}
	loadMoreStarted   struct{}
	loadMoreSucceeded struct {
		gen    uint64
		result adminorders.ListResult
	}
	loadMoreFailed struct {
		gen uint64
		err string
	}
	mutationOptimistic struct {
		order adminorders.Order
	}
	mutationConfirmed struct {
		order adminorders.Order
	}
	mutationRolledBack struct {
		snapshot adminorders.Order
	}
	orderRemoved struct {
		id string
	}
	orderSoftDeleted struct {
		id string
		at time.Time
	}
	selectionToggled struct {
		id string
	}
	selectionReplaced struct {
		ids []string
	}
	pollDelta struct {
		added int
	}
)

func (fetchStarted) actionName() string       { return "fetch-start" }
func (fetchSucceeded) actionName() string     { return "fetch-success" }
func (fetchFailed) actionName() string        { return "fetch-error" }
func (filterChanged) actionName() string      { return "filter-changed" }
func (searchTextChanged) actionName() string  { return "search-text-changed" }
func (loadMoreStarted) actionName() string    { return "load-more-start" }
func (loadMoreSucceeded) actionName() string  { return "load-more-success" }
func (loadMoreFailed) actionName() string     { return "load-more-error" }
func (mutationOptimistic) actionName() string { return "mutation-optimistic" }
func (mutationConfirmed) actionName() string  { return "mutation-confirmed" }
func (mutationRolledBack) actionName() string { return "mutation-rolled-back" }
func (orderRemoved) actionName() string       { return "order-removed" }
func (orderSoftDeleted) actionName() string   { return "order-soft-deleted" }
func (selectionToggled) actionName() string   { return "selection-toggled" }
func (selectionReplaced) actionName() string  { return "selection-replaced" }
func (pollDelta) actionName() string          { return "poll-delta" }

// accepts reports whether a list result tagged with gen and seq may be committed: it must
// belong to the current filter generation and be newer than the last committed list result.
func (s State) accepts(gen, seq uint64) bool {
	return gen == s.FilterGen && seq > s.CommittedSeq
}

// reduce returns the state after applying a. The input state is never modified.
func reduce(s State, a action) State {
	next := s
	switch a := a.(type) {
	case fetchStarted:
		next.startedSeq = a.seq
		next.Loading = true

	case fetchSucceeded:
		if !s.accepts(a.gen, a.seq) {
			return s
		}
		next.Orders = cloneOrders(a.result.Orders)
		next.Pagination = a.result.Pagination
		next.CommittedSeq = a.seq
		next.Loading = a.seq < s.startedSeq
		next.Loaded = true
		next.LastError = ""
		next.pollBaseline = a.result.Pagination.Total
		if a.kind == fetchRefresh {
			next.NewOrders = 0
		}
		next.Selection = pruneSelection(s.Selection, next.Orders)

	case fetchFailed:
		// only the newest fetch reports errors; older ones are superseded
		if a.gen != s.FilterGen || a.seq != s.startedSeq {
			return s
		}
		next.Loading = false
		next.LastError = a.err

	case searchTextChanged:
		next.Filters.Search = a.text

	case filterChanged:
		next.FilterGen = s.FilterGen + 1
		next.Filters = a.filters
		next.Range = a.rng
		next.Selection = map[string]struct{}{}
		next.Pagination = adminorders.Pagination{Total: s.Pagination.Total, Limit: s.Pagination.Limit}
		next.NewOrders = 0
		next.LoadingMore = false
		next.LastError = ""
		next.pollBaseline = -1

	case loadMoreStarted:
		next.LoadingMore = true

	case loadMoreSucceeded:
		if a.gen != s.FilterGen {
			return s
		}
		seen := make(map[string]struct{}, len(s.Orders))
		merged := make([]adminorders.Order, 0, len(s.Orders)+len(a.result.Orders))
		for _, order := range s.Orders {
			seen[order.ID] = struct{}{}
			merged = append(merged, order)
		}
		for _, order := range a.result.Orders {
			if _, dup := seen[order.ID]; dup {
				continue
			}
			seen[order.ID] = struct{}{}
			merged = append(merged, order.Clone())
		}
		next.Orders = merged
		next.Pagination = a.result.Pagination
		next.LoadingMore = false
		next.LastError = ""
		next.pollBaseline = a.result.Pagination.Total
		// list fetches issued before this page was appended are sized for the shallower list
		next.CommittedSeq = max(s.CommittedSeq, s.startedSeq)
		next.Loading = false

	case loadMoreFailed:
		if a.gen != s.FilterGen {
			return s
		}
		next.LoadingMore = false
		next.LastError = a.err

	case mutationOptimistic:
		next.Orders = replaceOrder(s.Orders, a.order)

	case mutationConfirmed:
		idx := s.indexOf(a.order.ID)
		if idx < 0 {
			return s
		}
		merged := adminorders.Merge(s.Orders[idx], a.order)
		next.Orders = replaceOrder(s.Orders, merged)
		if !selectable(merged) {
			next.Selection = withoutSelected(s.Selection, merged.ID)
		}

	case mutationRolledBack:
		next.Orders = replaceOrder(s.Orders, a.snapshot)

	case orderRemoved:
		idx := s.indexOf(a.id)
		if idx < 0 {
			return s
		}
		orders := make([]adminorders.Order, 0, len(s.Orders)-1)
		orders = append(orders, s.Orders[:idx]...)
		orders = append(orders, s.Orders[idx+1:]...)
		next.Orders = orders
		next.Selection = withoutSelected(s.Selection, a.id)
		next.Pagination.Total = max(s.Pagination.Total-1, 0)
		// keep offset+limit aligned with the server window now that a row is gone
		if next.Pagination.Offset > 0 {
			next.Pagination.Offset--
		} else if next.Pagination.Limit > 0 {
			next.Pagination.Limit--
		}
		if s.pollBaseline > 0 {
			next.pollBaseline = s.pollBaseline - 1
		}

	case orderSoftDeleted:
		idx := s.indexOf(a.id)
		if idx < 0 {
			return s
		}
		order := s.Orders[idx].Clone()
		at := a.at
		order.DeletedAt = &at
		next.Orders = replaceOrder(s.Orders, order)
		next.Selection = withoutSelected(s.Selection, a.id)

	case selectionToggled:
		idx := s.indexOf(a.id)
		if idx < 0 {
			return s
		}
		selection := copySelection(s.Selection)
		if _, ok := selection[a.id]; ok {
			delete(selection, a.id)
		} else if selectable(s.Orders[idx]) {
			selection[a.id] = struct{}{}
		}
		next.Selection = selection

	case selectionReplaced:
		selection := make(map[string]struct{}, len(a.ids))
		for _, id := range a.ids {
			if idx := s.indexOf(id); idx >= 0 && selectable(s.Orders[idx]) {
				selection[id] = struct{}{}
			}
		}
		next.Selection = selection

	case pollDelta:
		next.NewOrders = s.NewOrders + a.added
	}
	return next
}

func cloneOrders(in []adminorders.Order) []adminorders.Order {
	out := make([]adminorders.Order, len(in))
	for i, order := range in {
		out[i] = order.Clone()
	}
	return out
}

func replaceOrder(in []adminorders.Order, order adminorders.Order) []adminorders.Order {
	out := make([]adminorders.Order, len(in))
	copy(out, in)
	for i := range out {
		if out[i].ID == order.ID {
			out[i] = order.Clone()
		}
	}
	return out
}

func copySelection(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}

func withoutSelected(in map[string]struct{}, id string) map[string]struct{} {
	if _, ok := in[id]; !ok {
		return in
	}
	out := copySelection(in)
	delete(out, id)
	return out
}

func pruneSelection(in map[string]struct{}, orders []adminorders.Order) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, order := range orders {
		if _, ok := in[order.ID]; ok && selectable(order) {
			out[order.ID] = struct{}{}
		}
	}
	return out
}
