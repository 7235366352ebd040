package domain

import "time"

// ProductSnapshot is a copied-by-value record of a product's display and
// pricing fields at the moment of calculation. Orders keep the snapshot, not
// a live product reference, so later catalog edits never change history.
type ProductSnapshot struct {
	ID       string   `json:"id"`
	SKU      string   `json:"sku"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	WeightKg float64  `json:"weight_kg"`
	Images   []string `json:"images,omitempty"`
}

// Copy returns a structural copy of the snapshot. The Images slice is
// duplicated so the copy is isolated from mutation of the original.
func (p ProductSnapshot) Copy() ProductSnapshot {
	cp := p
	if p.Images != nil {
		cp.Images = make([]string, len(p.Images))
		copy(cp.Images, p.Images)
	}
	return cp
}

// CartItem is a cart line item. Product carries the snapshot used for
// pricing; Quantity is validated by the cart mutation layer, not here.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	Quantity  int             `json:"quantity"`
}

// Cart is the mutable collection of line items a shopper has selected.
type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// TotalWeightKg returns the summed weight of all items, used by shipping
// surcharge rules.
func (c *Cart) TotalWeightKg() float64 {
	var w float64
	for _, item := range c.Items {
		w += item.Product.WeightKg * float64(item.Quantity)
	}
	return w
}

// Destination is the shipping target used for method eligibility.
type Destination struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
}
