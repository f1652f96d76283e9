package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"erasure-portal/pkg/dispatch"
	"erasure-portal/pkg/models"
	"erasure-portal/pkg/store"
)

const lookupFailedMessage = "Unable to load order details. Please contact support."

// ErrNoIdentifier means no candidate identifier was available, so nothing was looked up
var ErrNoIdentifier = errors.New("no order identifier available")

var errEmptyRecord = errors.New("lookup returned no record")

// LookupError is returned when the lookup endpoint could not produce a record
type LookupError struct {
	Identifier string
	Message    string
	Err        error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("error resolving order %s: %v", e.Identifier, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// OrderLookup fetches the consolidated record for a primary or secondary key
type OrderLookup interface {
	GetOrderDetails(ctx context.Context, identifier string) (*models.ResolvedRecord, error)
}

// Resolver recovers an order from whichever identifier the visitor arrived with
type Resolver struct {
	lookup OrderLookup
	store  store.Store
	logger zerolog.Logger
}

// NewResolver creates a resolver that remembers identifiers in st
func NewResolver(lookup OrderLookup, st store.Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		store:  st,
		logger: logger.With().Str("component", "order_resolver").Logger(),
	}
}

// Resolve looks up the order for the first available identifier and remembers it for the visitor.
// The cached identifier is read from the store only when neither URL identifier is present.
func (r *Resolver) Resolve(ctx context.Context, visitor string, c models.Candidates) (*models.ResolvedRecord, error) {
	if strings.TrimSpace(c.OrderID) == "" && strings.TrimSpace(c.SessionID) == "" && strings.TrimSpace(c.Cached) == "" && visitor != "" {
		cached, err := r.store.Get(ctx, store.LastOrderKey(visitor))
		if err != nil {
			r.logger.Warn().Err(err).Msg("error reading cached order identifier")
		}
		c.Cached = cached
	}

	identifier, ok := c.Select()
	if !ok {
		return nil, ErrNoIdentifier
	}

	record, err := r.lookup.GetOrderDetails(ctx, identifier)
	if err == nil && record == nil {
		err = errEmptyRecord
	}
	if err != nil {
		r.logger.Error().Err(err).Str("identifier", identifier).Msg("order lookup failed")
		return nil, &LookupError{
			Identifier: identifier,
			Message:    dispatch.Reason(err, lookupFailedMessage),
			Err:        err,
		}
	}

	if visitor != "" {
		if err := r.store.Set(ctx, store.LastOrderKey(visitor), identifier); err != nil {
			r.logger.Warn().Err(err).Msg("error caching order identifier")
		}
	}

	r.logger.Info().Str("identifier", identifier).Str("order", record.Order.OrderNumber).Msg("order resolved")
	return record, nil
}
