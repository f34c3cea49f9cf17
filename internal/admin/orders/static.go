package orders

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// StaticService provides deterministic order data suitable for local development and tests.
type StaticService struct {
	mu       sync.Mutex
	orders   []Order
	carriers map[string]string
	now      func() time.Time
	seq      int
}

// StaticOption customises a StaticService.
type StaticOption func(*StaticService)

// WithOrders replaces the seeded orders.
func WithOrders(orders []Order) StaticOption {
	return func(s *StaticService) {
		s.orders = make([]Order, len(orders))
		for i, order := range orders {
			s.orders[i] = order.Clone()
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StaticOption {
	return func(s *StaticService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStaticService returns a StaticService populated with representative orders.
func NewStaticService(opts ...StaticOption) *StaticService {
	s := &StaticService{
		carriers: map[string]string{
			"carrier-fastbox": "FastBox",
			"carrier-moto":    "MotoEnvíos",
			"carrier-aex":     "AEX",
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.orders == nil {
		s.orders = SampleOrders(36, s.now())
	}
	s.seq = len(s.orders)
	return s
}

// SampleOrders builds count deterministic orders spread over the days before now, newest first.
func SampleOrders(count int, now time.Time) []Order {
	names := []string{"José Benítez", "María González", "Lucía Ramírez", "Carlos Acosta", "Ana Giménez", "Diego Fernández", "Sofía Martínez", "Pedro Duarte"}
	cities := []string{"Asunción", "Luque", "San Lorenzo", "Lambaré", "Encarnación", "Ciudad del Este"}
	products := []LineItem{
		{ProductID: "prod-serum", Name: "Sérum facial", UnitPrice: decimal.NewFromInt(150000), ImageURL: "/static/img/serum.png"},
		{ProductID: "prod-crema", Name: "Crema hidratante", UnitPrice: decimal.NewFromInt(95000), ImageURL: "/static/img/crema.png"},
		{ProductID: "prod-kit", Name: "Kit de viaje", UnitPrice: decimal.NewFromInt(210000)},
	}
	statuses := AllStatuses()
	carriers := []string{"", "carrier-fastbox", "carrier-moto", "carrier-aex"}
	carrierNames := map[string]string{"carrier-fastbox": "FastBox", "carrier-moto": "MotoEnvíos", "carrier-aex": "AEX"}

	out := make([]Order, 0, count)
	for i := 0; i < count; i++ {
		created := now.Add(-time.Duration(i) * 7 * time.Hour)
		item := products[i%len(products)]
		item.Quantity = 1 + i%3
		status := statuses[i%len(statuses)]
		order := Order{
			ID:     fmt.Sprintf("ord-%04d", count-i),
			Number: fmt.Sprintf("#%d", 1000+count-i),
			Customer: Customer{
				Name:    names[i%len(names)],
				Phone:   fmt.Sprintf("+595 981 %06d", 100000+i*37),
				Address: fmt.Sprintf("Calle %d", 100+i),
				City:    cities[i%len(cities)],
			},
			LineItems: []LineItem{item},
			Status:    status,
			Currency:  "PYG",
			CreatedAt: created,
			UpdatedAt: created.Add(30 * time.Minute),
		}
		order.Total = TotalOf(order.LineItems)
		carrier := carriers[i%len(carriers)]
		switch {
		case i%7 == 6:
			order.Pickup = true
		case carrier != "" && status != StatusPending && status != StatusContacted && status != StatusAwaitingCarrier:
			order.CarrierID = carrier
			order.CarrierName = carrierNames[carrier]
			order.DeliveryToken = fmt.Sprintf("DT-%04d", count-i)
		}
		if i%5 == 2 {
			scheduled := now.Add(time.Duration(24*(1+i%3)) * time.Hour)
			order.ScheduledFor = &scheduled
		}
		out = append(out, order)
	}
	return out
}

// List returns orders filtered and paginated the same way the order API does.
func (s *StaticService) List(_ context.Context, _ string, query Query) (ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := time.UTC
	if strings.TrimSpace(query.Timezone) != "" {
		if l, err := time.LoadLocation(query.Timezone); err == nil {
			loc = l
		}
	}

	filtered := s.filterOrders(query, loc)
	sortOrders(filtered)

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(query.Offset, 0)
	total := len(filtered)

	start := min(offset, total)
	end := min(start+limit, total)
	page := make([]Order, 0, end-start)
	for _, order := range filtered[start:end] {
		page = append(page, order.Clone())
	}

	return ListResult{
		Orders: page,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
		},
	}, nil
}

func (s *StaticService) filterOrders(query Query, loc *time.Location) []Order {
	search := NormalizeSearch(query.Search)
	now := s.now().In(loc)
	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	var start, end time.Time
	if query.StartDate != nil {
		d := query.StartDate.In(loc)
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	if query.EndDate != nil {
		d := query.EndDate.In(loc)
		end = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}

	out := make([]Order, 0, len(s.orders))
	for _, order := range s.orders {
		if !start.IsZero() && order.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && !order.CreatedAt.Before(end) {
			continue
		}
		if query.Status != "" && order.Status != query.Status {
			continue
		}
		switch query.Carrier {
		case "", CarrierAll:
		case CarrierPickup:
			if !order.Pickup {
				continue
			}
		case CarrierNone:
			if order.Pickup || order.CarrierID != "" {
				continue
			}
		default:
			if order.CarrierID != string(query.Carrier) {
				continue
			}
		}
		switch query.Scheduled {
		case ScheduledOnly:
			if order.ScheduledFor == nil || order.ScheduledFor.Before(endOfToday) {
				continue
			}
		case ScheduledReady:
			if order.ScheduledFor != nil && !order.ScheduledFor.Before(endOfToday) {
				continue
			}
		}
		if search != "" && !matchesSearch(order, search) {
			continue
		}
		out = append(out, order)
	}
	return out
}

func matchesSearch(order Order, normalized string) bool {
	fields := []string{order.Number, order.ID, order.Customer.Name, order.Customer.Phone, order.Customer.Email, order.DeliveryToken}
	for _, field := range fields {
		if field == "" {
			continue
		}
		if strings.Contains(NormalizeSearch(field), normalized) {
			return true
		}
	}
	digits := onlyDigits(normalized)
	return digits != "" && len(digits) >= 4 && strings.Contains(onlyDigits(order.Customer.Phone), digits)
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortOrders(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// Get returns a single order.
func (s *StaticService) Get(_ context.Context, _ string, orderID string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.indexOf(orderID)
	if err != nil {
		return Order{}, err
	}
	return s.orders[idx].Clone(), nil
}

// Create registers a new pending order.
func (s *StaticService) Create(_ context.Context, _ string, req CreateRequest) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(req.Customer.Name) == "" || len(req.LineItems) == 0 {
		return Order{}, &APIError{Status: http.StatusUnprocessableEntity, Code: "validation_failed", Message: "El pedido necesita un cliente y al menos un producto"}
	}
	now := s.now()
	s.seq++
	currency := req.Currency
	if currency == "" {
		currency = "PYG"
	}
	order := Order{
		ID:           strings.ToLower(ulid.Make().String()),
		Number:       fmt.Sprintf("#%d", 1000+s.seq),
		Customer:     req.Customer,
		LineItems:    append([]LineItem(nil), req.LineItems...),
		Status:       StatusPending,
		Pickup:       req.Pickup,
		Currency:     currency,
		IsTest:       req.IsTest,
		ScheduledFor: cloneTime(req.ScheduledFor),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	order.Total = TotalOf(order.LineItems)
	if req.CarrierID != "" {
		name, ok := s.carriers[req.CarrierID]
		if !ok {
			return Order{}, &APIError{Status: http.StatusUnprocessableEntity, Code: "carrier_not_found", Message: "Transportadora desconocida"}
		}
		order.CarrierID = req.CarrierID
		order.CarrierName = name
	}
	s.orders = append(s.orders, order)
	return order.Clone(), nil
}

// Update edits an order.
func (s *StaticService) Update(_ context.Context, _ string, orderID string, req UpdateRequest) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.indexOf(orderID)
	if err != nil {
		return Order{}, err
	}
	order := s.orders[idx]
	if req.Customer != nil {
		order.Customer = *req.Customer
	}
	if len(req.LineItems) > 0 {
		order.LineItems = append([]LineItem(nil), req.LineItems...)
		order.Total = TotalOf(order.LineItems)
	}
	if req.CarrierID != nil {
		if err := s.assignCarrier(&order, *req.CarrierID); err != nil {
			return Order{}, err
		}
	}
	if req.ScheduledFor != nil {
		order.ScheduledFor = cloneTime(req.ScheduledFor)
	}
	order.UpdatedAt = s.now()
	s.orders[idx] = order
	return order.Clone(), nil
}

// Delete soft deletes or erases an order. Dispatched orders only accept permanent deletes.
func (s *StaticService) Delete(_ context.Context, _ string, orderID string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.indexOf(orderID)
	if err != nil {
		return err
	}
	order := s.orders[idx]
	if order.Status.IsDispatched() && !permanent {
		return &APIError{Status: http.StatusConflict, Code: "order_dispatched", Message: "Los pedidos despachados no se pueden eliminar"}
	}
	if permanent {
		s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
		return nil
	}
	now := s.now()
	order.DeletedAt = &now
	order.UpdatedAt = now
	s.orders[idx] = order
	return nil
}

// Restore clears the soft delete marker.
func (s *StaticService) Restore(_ context.Context, _ string, orderID string) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		order.DeletedAt = nil
		return nil
	})
}

// Confirm confirms an order and optionally assigns a carrier.
func (s *StaticService) Confirm(_ context.Context, _ string, orderID string, req ConfirmRequest) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		if err := transition(order, StatusConfirmed); err != nil {
			return err
		}
		if req.CarrierID != "" {
			return s.assignCarrier(order, req.CarrierID)
		}
		return nil
	})
}

// Reject cancels an order.
func (s *StaticService) Reject(_ context.Context, _ string, orderID string, _ RejectRequest) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		return transition(order, StatusCancelled)
	})
}

// UpdateStatus transitions an order.
func (s *StaticService) UpdateStatus(_ context.Context, _ string, orderID string, req StatusUpdateRequest) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		return transition(order, req.Status)
	})
}

// MarkContacted records customer contact.
func (s *StaticService) MarkContacted(_ context.Context, _ string, orderID string) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		if err := transition(order, StatusContacted); err != nil {
			return err
		}
		now := s.now()
		order.ContactedAt = &now
		return nil
	})
}

// MarkPrinted records a printed label.
func (s *StaticService) MarkPrinted(_ context.Context, _ string, orderID string) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		if !order.HasDeliveryToken() {
			return &APIError{Status: http.StatusUnprocessableEntity, Code: "missing_delivery_token", Message: "El pedido no tiene token de entrega"}
		}
		now := s.now()
		order.PrintedAt = &now
		return nil
	})
}

// MarkTest flags an order as a test order.
func (s *StaticService) MarkTest(_ context.Context, _ string, orderID string, isTest bool) (Order, error) {
	return s.mutate(orderID, func(order *Order) error {
		order.IsTest = isTest
		return nil
	})
}

// BulkPrintDispatch marks printable orders as printed; ready orders are dispatched.
func (s *StaticService) BulkPrintDispatch(_ context.Context, _ string, orderIDs []string) (BulkPrintResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	result := BulkPrintResult{Items: make([]BulkPrintItem, 0, len(orderIDs))}
	for _, id := range orderIDs {
		idx, err := s.indexOf(id)
		if err != nil {
			result.Items = append(result.Items, BulkPrintItem{OrderID: id, Error: "Pedido no encontrado"})
			continue
		}
		order := s.orders[idx]
		if !order.HasDeliveryToken() {
			result.Items = append(result.Items, BulkPrintItem{OrderID: id, Error: "El pedido no tiene token de entrega"})
			continue
		}
		order.PrintedAt = &now
		if order.Status == StatusReadyToShip {
			order.Status = StatusShipped
		}
		order.UpdatedAt = now
		s.orders[idx] = order
		clone := order.Clone()
		result.Items = append(result.Items, BulkPrintItem{OrderID: id, Success: true, Order: &clone})
	}
	return result, nil
}

func (s *StaticService) mutate(orderID string, apply func(*Order) error) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.indexOf(orderID)
	if err != nil {
		return Order{}, err
	}
	order := s.orders[idx].Clone()
	if err := apply(&order); err != nil {
		return Order{}, err
	}
	order.UpdatedAt = s.now()
	s.orders[idx] = order
	return order.Clone(), nil
}

func (s *StaticService) assignCarrier(order *Order, carrierID string) error {
	if carrierID == "" {
		order.CarrierID = ""
		order.CarrierName = ""
		order.DeliveryToken = ""
		return nil
	}
	if order.Status.IsDispatched() || order.Status.IsTerminal() {
		return &APIError{Status: http.StatusConflict, Code: "carrier_not_allowed", Message: "No se puede cambiar la transportadora en este estado"}
	}
	name, ok := s.carriers[carrierID]
	if !ok {
		return &APIError{Status: http.StatusUnprocessableEntity, Code: "carrier_not_found", Message: "Transportadora desconocida"}
	}
	order.CarrierID = carrierID
	order.CarrierName = name
	order.Pickup = false
	if order.DeliveryToken == "" {
		order.DeliveryToken = "DT-" + strings.ToUpper(strings.TrimPrefix(order.ID, "ord-"))
	}
	return nil
}

func transition(order *Order, to Status) error {
	if !to.Valid() {
		return &StatusTransitionError{From: order.Status, To: to, Reason: "estado desconocido"}
	}
	if order.IsDeleted() {
		return &StatusTransitionError{From: order.Status, To: to, Reason: "el pedido está eliminado"}
	}
	if !CanTransition(order.Status, to) {
		return &StatusTransitionError{From: order.Status, To: to}
	}
	order.Status = to
	return nil
}

func (s *StaticService) indexOf(orderID string) (int, error) {
	id := strings.TrimSpace(orderID)
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i, nil
		}
	}
	return -1, ErrOrderNotFound
}
