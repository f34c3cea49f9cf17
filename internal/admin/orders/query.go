package orders

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// CarrierFilter narrows the list by courier. Besides the sentinel values below, any other
// value is treated as a carrier id.
type CarrierFilter string

const (
	// CarrierAll disables carrier filtering.
	CarrierAll CarrierFilter = "all"
	// CarrierPickup keeps in-store pickup orders.
	CarrierPickup CarrierFilter = "pickup"
	// CarrierNone keeps orders without an assigned courier.
	CarrierNone CarrierFilter = "none"
)

// IsActive reports whether the filter narrows results.
func (c CarrierFilter) IsActive() bool {
	return c != "" && c != CarrierAll
}

// ScheduledFilter narrows the list by scheduled delivery date.
type ScheduledFilter string

const (
	// ScheduledAll disables the scheduled delivery filter.
	ScheduledAll ScheduledFilter = "all"
	// ScheduledOnly keeps orders scheduled for a future day.
	ScheduledOnly ScheduledFilter = "scheduled"
	// ScheduledReady keeps orders that can go out today.
	ScheduledReady ScheduledFilter = "ready"
)

// ParseScheduledFilter converts a raw value into a ScheduledFilter, defaulting to all.
func ParseScheduledFilter(raw string) ScheduledFilter {
	switch ScheduledFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case ScheduledOnly:
		return ScheduledOnly
	case ScheduledReady:
		return ScheduledReady
	default:
		return ScheduledAll
	}
}

// ParseCarrierFilter converts a raw value into a CarrierFilter, defaulting to all.
func ParseCarrierFilter(raw string) CarrierFilter {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "", string(CarrierAll):
		return CarrierAll
	case string(CarrierPickup):
		return CarrierPickup
	case string(CarrierNone):
		return CarrierNone
	}
	return CarrierFilter(value)
}

const dateLayout = "2006-01-02"

// Query captures filters and pagination arguments for listing orders.
type Query struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    Status
	Carrier   CarrierFilter
	Search    string
	Scheduled ScheduledFilter
	Timezone  string
	Limit     int
	Offset    int
}

// Values encodes the query with the parameter names understood by the order API. Unset
// filters are omitted.
func (q Query) Values() url.Values {
	values := url.Values{}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if q.Carrier.IsActive() {
		values.Set("carrier_id", string(q.Carrier))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
	}
	if q.Scheduled != "" && q.Scheduled != ScheduledAll {
		values.Set("scheduled_filter", string(q.Scheduled))
	}
	if tz := strings.TrimSpace(q.Timezone); tz != "" {
		values.Set("timezone", tz)
	}
	if q.StartDate != nil {
		values.Set("startDate", q.StartDate.Format(dateLayout))
	}
	if q.EndDate != nil {
		values.Set("endDate", q.EndDate.Format(dateLayout))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	values.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	return values
}

// Pagination mirrors the list envelope metadata.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// ListResult represents a paginated orders response.
type ListResult struct {
	Orders     []Order
	Pagination Pagination
}

// NormalizeSearch folds case, width and diacritics so "JOSÉ" and "jose" match.
func NormalizeSearch(raw string) string {
	t := transform.Chain(width.Fold, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		folded = raw
	}
	return strings.Join(strings.Fields(cases.Fold().String(folded)), " ")
}
