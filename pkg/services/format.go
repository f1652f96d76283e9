package services

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"

	"erasure-portal/pkg/models"
)

// Category groups order and payment statuses for display
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNeutral  Category = "neutral"
	CategoryNegative Category = "negative"
	CategoryUnknown  Category = "unknown"
)

// StatusCategory maps a backend status string to its display category
func StatusCategory(status string) Category {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirmed", "paid", "success", "completed":
		return CategoryPositive
	case "pending":
		return CategoryNeutral
	case "failed", "cancelled":
		return CategoryNegative
	default:
		return CategoryUnknown
	}
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CNY": "CN¥",
	"CAD": "CA$",
	"AUD": "A$",
	"NZD": "NZ$",
	"BRL": "R$",
	"KRW": "₩",
}

var groupFormats = map[int]string{
	0: "#,###.",
	1: "#,###.#",
	2: "#,###.##",
	3: "#,###.###",
}

// FormatCurrency renders an amount with the currency's symbol, thousands grouping and standard
// number of decimals. Currencies without a known symbol are prefixed with their ISO code.
func FormatCurrency(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}

	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	format, ok := groupFormats[scale]
	if !ok {
		format = groupFormats[2]
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}
	return sign + symbol + humanize.FormatFloat(format, amount)
}

// FormatDateTime renders a timestamp for display in loc
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "—"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("January 2, 2006 at 3:04 PM")
}

// FormatRelative renders t relative to now ("3 days ago", "11 months from now")
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// OrderDisplay is the ready-to-render projection of a resolved order
type OrderDisplay struct {
	OrderStatus     Category `json:"order_status"`
	PaymentStatus   Category `json:"payment_status"`
	Amount          string   `json:"amount"`
	InvoiceSubtotal string   `json:"invoice_subtotal"`
	InvoiceTax      string   `json:"invoice_tax"`
	InvoiceTotal    string   `json:"invoice_total"`
	OrderedAt       string   `json:"ordered_at"`
	PaidAt          string   `json:"paid_at"`
	LicenseExpires  string   `json:"license_expires,omitempty"`
	LicenseExpiry   string   `json:"license_expiry,omitempty"`
	CardSummary     string   `json:"card_summary,omitempty"`
}

// Project builds the display projection of a record. It performs no I/O.
func Project(record *models.ResolvedRecord, loc *time.Location, now time.Time) OrderDisplay {
	invoiceCurrency := record.Invoice.Currency
	if invoiceCurrency == "" {
		invoiceCurrency = record.Payment.Currency
	}

	d := OrderDisplay{
		OrderStatus:     StatusCategory(record.Order.Status),
		PaymentStatus:   StatusCategory(record.Payment.Status),
		Amount:          FormatCurrency(record.Payment.Amount, record.Payment.Currency),
		InvoiceSubtotal: FormatCurrency(record.Invoice.Subtotal, invoiceCurrency),
		InvoiceTax:      FormatCurrency(record.Invoice.Tax, invoiceCurrency),
		InvoiceTotal:    FormatCurrency(record.Invoice.Total, invoiceCurrency),
		OrderedAt:       FormatDateTime(record.Order.CreatedAt, loc),
		PaidAt:          FormatDateTime(record.Payment.PaidAt, loc),
	}
	if exp := record.License.ExpiresAt; exp != nil {
		d.LicenseExpires = FormatDateTime(*exp, loc)
		d.LicenseExpiry = FormatRelative(*exp, now)
	}
	if record.Payment.CardLast4 != "" {
		brand := record.Payment.CardBrand
		if brand == "" {
			brand = "Card"
		}
		d.CardSummary = brand + " •••• " + record.Payment.CardLast4
	}
	return d
}
