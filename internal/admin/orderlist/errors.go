package orderlist

import "errors"

var (
	// ErrSuperseded is returned when a newer request made the result of this one irrelevant.
	ErrSuperseded = errors.New("orderlist: superseded by a newer request")
	// ErrEmptySelection is returned when bulk print runs without printable orders selected.
	ErrEmptySelection = errors.New("orderlist: no printable orders selected")
	// ErrNotInView is returned when an action targets an order that is not loaded.
	ErrNotInView = errors.New("orderlist: order is not loaded")
	// ErrSameStatus is returned when a status change targets the current status.
	ErrSameStatus = errors.New("orderlist: order already has this status")
)
