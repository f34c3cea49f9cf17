package orders

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a requested status change is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownStatus is returned when a status value is not part of the lifecycle.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrEmptyResponse is returned when a mutation succeeded at the transport level but the
	// backend returned no order representation.
	ErrEmptyResponse = errors.New("empty response from order api")
	// ErrDeleteForbidden is returned when the actor may not delete an order in its current status.
	ErrDeleteForbidden = errors.New("order cannot be deleted")
	// ErrCarrierNotAllowed is returned when a carrier cannot be assigned in the current status.
	ErrCarrierNotAllowed = errors.New("carrier cannot be assigned")
	// ErrMissingDeliveryToken is returned when an order has no delivery token to print.
	ErrMissingDeliveryToken = errors.New("order has no delivery token")
)

// StatusTransitionError represents a validation failure for a requested status change.
type StatusTransitionError struct {
	From   Status
	To     Status
	Reason string
}

// Error implements the error interface.
func (e *StatusTransitionError) Error() string {
	if e == nil {
		return ErrInvalidTransition.Error()
	}
	reason := e.Reason
	if strings.TrimSpace(reason) == "" {
		reason = "transition not permitted"
	}
	return "order status transition from " + string(e.From) + " to " + string(e.To) + ": " + reason
}

// Unwrap exposes ErrInvalidTransition for errors.Is checks.
func (e *StatusTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// APIError is a business-rule rejection returned by the order API.
type APIError struct {
	Status  int
	Code    string
	Message string
	From    Status
	To      Status
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "orders: backend error"
	}
	code := strings.TrimSpace(e.Code)
	if code == "" {
		code = fmt.Sprintf("%d", e.Status)
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("orders: backend error (%s): %s", code, msg)
}

// Unwrap maps well-known rejections onto package sentinels.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch {
	case e.Status == http.StatusNotFound:
		return ErrOrderNotFound
	case e.From != "" && e.To != "":
		return ErrInvalidTransition
	case e.Code == "delete_forbidden" || e.Code == "order_dispatched":
		return ErrDeleteForbidden
	case e.Code == "carrier_not_allowed":
		return ErrCarrierNotAllowed
	case e.Code == "missing_delivery_token":
		return ErrMissingDeliveryToken
	}
	return nil
}

// TransitionDetail returns the rejected from/to pair when the error carries one.
func TransitionDetail(err error) (from, to Status, ok bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.From != "" && apiErr.To != "" {
		return apiErr.From, apiErr.To, true
	}
	var transitionErr *StatusTransitionError
	if errors.As(err, &transitionErr) {
		return transitionErr.From, transitionErr.To, true
	}
	return "", "", false
}

// ErrorMessage extracts the most useful human readable message from an error chain.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	var transitionErr *StatusTransitionError
	if errors.As(err, &transitionErr) && strings.TrimSpace(transitionErr.Reason) != "" {
		return transitionErr.Reason
	}
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "El servidor no devolvió el pedido actualizado"
	case errors.Is(err, ErrOrderNotFound):
		return "El pedido ya no existe"
	}
	return err.Error()
}
