package helpers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
)

type currencyFormat struct {
	symbol   string
	places   int32
	thousand string
	decimal  string
}

var currencyFormats = map[string]currencyFormat{
	"PYG": {symbol: "Gs. ", places: 0, thousand: ".", decimal: ","},
	"ARS": {symbol: "$ ", places: 2, thousand: ".", decimal: ","},
	"BRL": {symbol: "R$ ", places: 2, thousand: ".", decimal: ","},
	"USD": {symbol: "US$ ", places: 2, thousand: ",", decimal: "."},
	"EUR": {symbol: "€", places: 2, thousand: ".", decimal: ","},
}

// Money formats a decimal amount with the conventions of the given ISO currency code.
func Money(amount decimal.Decimal, currency string) string {
	format, ok := currencyFormats[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		format = currencyFormat{symbol: strings.ToUpper(currency) + " ", places: 2, thousand: ",", decimal: "."}
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(format.places)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(format.symbol)
	b.WriteString(groupThousands(intPart, format.thousand))
	if format.places > 0 {
		b.WriteString(format.decimal)
		b.WriteString(fracPart)
	}
	return b.String()
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Date formats the timestamp in the provided location and layout (defaults to 02/01/2006 15:04).
func Date(ts time.Time, loc *time.Location, layout string) string {
	if ts.IsZero() {
		return ""
	}
	if layout == "" {
		layout = "02/01/2006 15:04"
	}
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(layout)
}

// Relative returns a coarse "time ago" string relative to now.
func Relative(ts, now time.Time) string {
	diff := now.Sub(ts)
	if diff < time.Minute {
		return "recién"
	}
	if diff < time.Hour {
		return fmt.Sprintf("hace %d min", int(diff.Minutes()))
	}
	if diff < 24*time.Hour {
		return fmt.Sprintf("hace %d h", int(diff.Hours()))
	}
	return ts.Format("02/01/2006")
}

// BadgeClass maps semantic tones to utility classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success":
		return "inline-flex items-center rounded-full bg-emerald-100 px-2 py-1 text-xs font-medium text-emerald-700"
	case "warning":
		return "inline-flex items-center rounded-full bg-amber-100 px-2 py-1 text-xs font-medium text-amber-700"
	case "danger":
		return "inline-flex items-center rounded-full bg-rose-100 px-2 py-1 text-xs font-medium text-rose-700"
	case "info":
		return "inline-flex items-center rounded-full bg-sky-100 px-2 py-1 text-xs font-medium text-sky-700"
	case "primary":
		return "inline-flex items-center rounded-full bg-indigo-100 px-2 py-1 text-xs font-medium text-indigo-700"
	default:
		return "inline-flex items-center rounded-full bg-slate-100 px-2 py-1 text-xs font-medium text-slate-700"
	}
}

// ChipClass returns filter chip classes.
func ChipClass(active bool) string {
	if active {
		return "rounded-full bg-slate-900 px-3 py-1 text-xs font-medium text-white"
	}
	return "rounded-full border border-slate-200 px-3 py-1 text-xs font-medium text-slate-600 hover:bg-slate-100"
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}
