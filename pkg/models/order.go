package models

import (
	"strings"
	"time"
)

// Candidates holds every identifier an order page may be reached with.
// Priority is OrderID, then SessionID, then Cached.
type Candidates struct {
	OrderID   string
	SessionID string
	Cached    string
}

// Select returns the first non-empty identifier in priority order
func (c Candidates) Select() (string, bool) {
	for _, id := range []string{c.OrderID, c.SessionID, c.Cached} {
		if id = strings.TrimSpace(id); id != "" {
			return id, true
		}
	}
	return "", false
}

// ResolvedRecord is the consolidated order returned by the lookup endpoint
type ResolvedRecord struct {
	Identifier string      `json:"identifier"`
	Order      OrderInfo   `json:"order"`
	Payment    PaymentInfo `json:"payment"`
	Product    ProductInfo `json:"product"`
	Customer   Customer    `json:"customer"`
	Invoice    Invoice     `json:"invoice"`
	License    License     `json:"license"`
}

type OrderInfo struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentInfo struct {
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Method        string    `json:"method"`
	CardBrand     string    `json:"card_brand"`
	CardLast4     string    `json:"card_last4"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

type ProductInfo struct {
	Name     string `json:"name"`
	Plan     string `json:"plan"`
	Quantity int    `json:"quantity"`
	Term     string `json:"term"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Customer struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Company        string  `json:"company"`
	BillingAddress Address `json:"billing_address"`
}

// Invoice is the billing document issued for the order
type Invoice struct {
	Number   string  `json:"number"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	PDFURL   string  `json:"pdf_url"`
}

// License is the entitlement issued for the order
type License struct {
	Keys      []string   `json:"keys"`
	Issued    int        `json:"issued"`
	Used      int        `json:"used"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
