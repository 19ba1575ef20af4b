// Package pricing replaces cart-cached unit prices with authoritative catalogue prices.
package pricing

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CatalogProvider returns current unit prices for a set of products.
// Products it does not know are simply absent from the result.
type CatalogProvider interface {
	GetPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
}

// Result is the outcome of a reconciliation. Prices has an entry for every input product.
type Result struct {
	Prices map[string]decimal.Decimal `json:"prices"`

	// Degraded is set when the catalogue call failed and every price is a cached one.
	Degraded bool `json:"degraded"`

	// BackFilled lists products the catalogue did not price.
	BackFilled []string `json:"backFilled,omitempty"`
}

// Items pairs each cart line with its reconciled price.
func (r *Result) Items(items []model.CartLineItem) []model.ReconciledItem {
	out := make([]model.ReconciledItem, len(items))
	for i, item := range items {
		price, ok := r.Prices[item.ProductID]
		if !ok {
			price = item.CachedUnitPrice
		}
		out[i] = model.ReconciledItem{CartLineItem: item, UnitPrice: price}
	}
	return out
}

// Subtotal sums reconciled price × quantity.
func Subtotal(items []model.ReconciledItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal(item.UnitPrice))
	}
	return subtotal
}

// Reconciler fetches authoritative prices with a cached-price fallback.
type Reconciler struct {
	catalog CatalogProvider
	timeout time.Duration
	logger  zerolog.Logger
}

// NewReconciler creates a reconciler. A zero timeout leaves the caller's deadline in charge.
func NewReconciler(catalog CatalogProvider, timeout time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger.With().Str("component", "price-reconciler").Logger(),
	}
}

// Reconcile prices items with a single catalogue call. It never fails: on error
// every item keeps its cached price and the result is marked degraded.
func (r *Reconciler) Reconcile(ctx context.Context, items []model.CartLineItem) *Result {
	result := &Result{Prices: make(map[string]decimal.Decimal, len(items))}
	if len(items) == 0 {
		return result
	}

	ids := uniqueProductIDs(items)

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prices, err := r.catalog.GetPrices(callCtx, ids)
	if err != nil {
		fetchErr := &model.PriceFetchError{ProductIDs: ids, Err: err}
		r.logger.Warn().
			Err(fetchErr).
			Str("event", "price_fallback").
			Int("product_count", len(ids)).
			Msg("catalogue unavailable, using cached prices")

		result.Degraded = true
		for _, item := range items {
			if _, ok := result.Prices[item.ProductID]; !ok {
				result.Prices[item.ProductID] = item.CachedUnitPrice
			}
		}
		return result
	}

	for _, item := range items {
		if _, done := result.Prices[item.ProductID]; done {
			continue
		}
		if price, ok := prices[item.ProductID]; ok {
			result.Prices[item.ProductID] = price
			continue
		}
		result.Prices[item.ProductID] = item.CachedUnitPrice
		result.BackFilled = append(result.BackFilled, item.ProductID)
	}

	if len(result.BackFilled) > 0 {
		r.logger.Warn().
			Strs("product_ids", result.BackFilled).
			Msg("catalogue did not price every product, back-filled with cached prices")
	}

	r.logger.Debug().
		Int("product_count", len(ids)).
		Msg("prices reconciled")

	return result
}

func uniqueProductIDs(items []model.CartLineItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
