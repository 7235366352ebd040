// Package shipping derives the shipping methods available for a cart and
// destination. Methods are value objects recomputed per request; nothing in
// this package is persisted or stateful, so a single Resolver is safe to
// share across requests.
package shipping

import (
	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
)

// Config holds the eligibility rules. Thresholds and country lists are
// injected rather than hard-coded so tests and per-market deployments can
// override them without recompilation.
type Config struct {
	// FreeShippingThreshold is the subtotal at which the free method becomes
	// eligible.
	FreeShippingThreshold float64

	// ExpressCountries is the allow-list of destination countries served by
	// the express carrier.
	ExpressCountries []string

	// HeavyOrderWeightKg is the cart weight above which HeavySurcharge is
	// added to the standard method's price.
	HeavyOrderWeightKg float64
	HeavySurcharge     float64

	Standard domain.ShippingMethod
	Express  domain.ShippingMethod
	Free     domain.ShippingMethod
}

// DefaultConfig returns the production rule set.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: 50,
		ExpressCountries:      []string{"ES", "FR", "DE", "IT", "PT"},
		HeavyOrderWeightKg:    5,
		HeavySurcharge:        4,
		Standard: domain.ShippingMethod{
			ID:            "standard",
			Name:          "Standard",
			Description:   "Standard shipping",
			Price:         5.99,
			EstimatedDays: 4,
		},
		Express: domain.ShippingMethod{
			ID:            "express",
			Name:          "Express",
			Description:   "Express shipping",
			Price:         15.99,
			EstimatedDays: 2,
		},
		Free: domain.ShippingMethod{
			ID:            "free",
			Name:          "Free",
			Description:   "Free shipping on qualifying orders",
			Price:         0,
			EstimatedDays: 7,
		},
	}
}

// Resolver computes available shipping methods from the configured rules.
type Resolver struct {
	cfg     Config
	express map[string]struct{}
}

// NewResolver creates a resolver with the given rule set.
func NewResolver(cfg Config) *Resolver {
	express := make(map[string]struct{}, len(cfg.ExpressCountries))
	for _, c := range cfg.ExpressCountries {
		express[c] = struct{}{}
	}
	return &Resolver{cfg: cfg, express: express}
}

// Available returns the ordered methods for the given cart and destination:
// free (when the subtotal qualifies), then standard, then express (when the
// destination country is on the allow-list). Index 0 is the auto-selected
// default, so the ordering is part of the contract. A non-empty cart always
// yields at least the standard method.
func (r *Resolver) Available(items []domain.CartItem, dest *domain.Destination) []domain.ShippingMethod {
	order := domain.BuildOrderData(items, domain.OrderOptions{})

	methods := make([]domain.ShippingMethod, 0, 3)

	if len(items) > 0 && order.Subtotal >= r.cfg.FreeShippingThreshold {
		methods = append(methods, r.cfg.Free)
	}

	standard := r.cfg.Standard
	if weight := totalWeightKg(items); weight > r.cfg.HeavyOrderWeightKg {
		standard.Price = domain.Round2(standard.Price + r.cfg.HeavySurcharge)
	}
	methods = append(methods, standard)

	if dest != nil {
		if _, ok := r.express[dest.Country]; ok {
			methods = append(methods, r.cfg.Express)
		}
	}

	return methods
}

func totalWeightKg(items []domain.CartItem) float64 {
	var w float64
	for _, item := range items {
		w += item.Product.WeightKg * float64(item.Quantity)
	}
	return w
}
