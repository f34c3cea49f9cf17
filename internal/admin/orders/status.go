package orders

import (
	"fmt"
	"strings"
)

// Status represents the canonical lifecycle state of an order.
type Status string

const (
	// StatusPending indicates a new order that nobody has contacted yet.
	StatusPending Status = "pending"
	// StatusContacted indicates the customer was reached to confirm the purchase.
	StatusContacted Status = "contacted"
	// StatusAwaitingCarrier indicates the order is confirmed by the customer but has no courier yet.
	StatusAwaitingCarrier Status = "awaiting_carrier"
	// StatusConfirmed indicates the order is confirmed and assigned.
	StatusConfirmed Status = "confirmed"
	// StatusInPreparation indicates the warehouse is picking the order.
	StatusInPreparation Status = "in_preparation"
	// StatusReadyToShip indicates the parcel is packed and labelled.
	StatusReadyToShip Status = "ready_to_ship"
	// StatusShipped indicates the parcel was handed to the courier.
	StatusShipped Status = "shipped"
	// StatusInTransit indicates the courier is on the way to the customer.
	StatusInTransit Status = "in_transit"
	// StatusDelivered indicates the customer received the parcel.
	StatusDelivered Status = "delivered"
	// StatusReturned indicates the parcel came back to the store.
	StatusReturned Status = "returned"
	// StatusCancelled indicates the order was rejected or cancelled.
	StatusCancelled Status = "cancelled"
	// StatusIncident indicates a failed delivery attempt awaiting resolution.
	StatusIncident Status = "incident"
)

var statusOrder = []Status{
	StatusPending,
	StatusContacted,
	StatusAwaitingCarrier,
	StatusConfirmed,
	StatusInPreparation,
	StatusReadyToShip,
	StatusShipped,
	StatusInTransit,
	StatusDelivered,
	StatusReturned,
	StatusCancelled,
	StatusIncident,
}

var statusLabels = map[Status]string{
	StatusPending:         "Pendiente",
	StatusContacted:       "Contactado",
	StatusAwaitingCarrier: "Esperando transportadora",
	StatusConfirmed:       "Confirmado",
	StatusInPreparation:   "En preparación",
	StatusReadyToShip:     "Listo para enviar",
	StatusShipped:         "Despachado",
	StatusInTransit:       "En tránsito",
	StatusDelivered:       "Entregado",
	StatusReturned:        "Devuelto",
	StatusCancelled:       "Cancelado",
	StatusIncident:        "Incidencia",
}

// transitions lists the statuses reachable from each state. Cancellation is allowed from
// every state before dispatch; an incident may be retried by sending the parcel out again.
var transitions = map[Status][]Status{
	StatusPending:         {StatusContacted, StatusAwaitingCarrier, StatusConfirmed, StatusCancelled},
	StatusContacted:       {StatusAwaitingCarrier, StatusConfirmed, StatusCancelled},
	StatusAwaitingCarrier: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusInPreparation, StatusReadyToShip, StatusCancelled},
	StatusInPreparation:   {StatusReadyToShip, StatusCancelled},
	StatusReadyToShip:     {StatusShipped, StatusInTransit, StatusCancelled},
	StatusShipped:         {StatusInTransit, StatusDelivered, StatusReturned, StatusIncident},
	StatusInTransit:       {StatusDelivered, StatusReturned, StatusIncident},
	StatusIncident:        {StatusShipped, StatusInTransit, StatusDelivered, StatusReturned, StatusCancelled},
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// ParseStatus converts a raw value into a Status. Hyphenated and mixed-case variants are accepted.
func ParseStatus(raw string) (Status, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	status := Status(value)
	if _, ok := statusLabels[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the staff-facing label.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	if s == "" {
		return "Sin estado"
	}
	return string(s)
}

// Tone returns the badge tone used by templates.
func (s Status) Tone() string {
	switch s {
	case StatusPending, StatusContacted, StatusAwaitingCarrier:
		return "warning"
	case StatusConfirmed, StatusInPreparation, StatusReadyToShip:
		return "info"
	case StatusShipped, StatusInTransit:
		return "primary"
	case StatusDelivered:
		return "success"
	case StatusReturned, StatusCancelled, StatusIncident:
		return "danger"
	default:
		return "neutral"
	}
}

// IsDispatched reports whether the parcel already left the store.
func (s Status) IsDispatched() bool {
	return s == StatusShipped || s == StatusInTransit
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReturned || s == StatusCancelled
}

// NextStatuses returns the statuses reachable from s.
func (s Status) NextStatuses() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
