package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// TriggerEvent is the htmx event name the client listens on.
const TriggerEvent = "toast"

var textPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from free text that may originate from the order API or customers.
func Sanitize(value string) string {
	return textPolicy.Sanitize(value)
}

// HXTrigger encodes toasts as an HX-Trigger header value: {"toast":[...]}. It returns an
// empty string when there is nothing to deliver.
func HXTrigger(toasts []Toast) (string, error) {
	return HXTriggerEvents(toasts, nil)
}

// HXTriggerEvents encodes toasts together with additional client events. Event names that
// collide with TriggerEvent are ignored.
func HXTriggerEvents(toasts []Toast, events map[string]any) (string, error) {
	payload := make(map[string]any, len(events)+1)
	for name, detail := range events {
		if name == "" || name == TriggerEvent {
			continue
		}
		payload[name] = detail
	}
	if len(toasts) > 0 {
		payload[TriggerEvent] = sanitizeAll(toasts)
	}
	if len(payload) == 0 {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("notifications: encode toasts: %w", err)
	}
	return string(data), nil
}

func sanitizeAll(toasts []Toast) []Toast {
	clean := make([]Toast, len(toasts))
	for i, toast := range toasts {
		toast.Title = Sanitize(toast.Title)
		toast.Message = Sanitize(toast.Message)
		toast.Action = Sanitize(toast.Action)
		toast.Entity = Sanitize(toast.Entity)
		if len(toast.Details) > 0 {
			details := make([]string, len(toast.Details))
			for j, detail := range toast.Details {
				details[j] = Sanitize(detail)
			}
			toast.Details = details
		}
		clean[i] = toast
	}
	return clean
}
