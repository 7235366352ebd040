package domain

// Pricing defaults applied when OrderOptions leaves a field unset.
const (
	DefaultTaxRate  = 0.21
	DefaultCurrency = "EUR"
)

// ShippingMethod is a derived value object: methods are recomputed per
// request from cart weight, destination, and subtotal rules, never persisted.
type ShippingMethod struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	EstimatedDays int     `json:"estimated_days"`
}

// OrderItem is a priced line in an OrderData snapshot.
type OrderItem struct {
	ProductID       string          `json:"product_id"`
	ProductSnapshot ProductSnapshot `json:"product_snapshot"`
	Quantity        int             `json:"quantity"`
	Price           float64         `json:"price"`
	Total           float64         `json:"total"`
}

// OrderData is the immutable, fully-priced snapshot of a cart at the moment
// of calculation. Invariants: Total == Round2(Subtotal+ShippingCost+Tax),
// Subtotal == Round2(sum of price*qty), each item Total == Round2(price*qty).
// Re-applying a shipping method produces a new value, never mutates in place.
type OrderData struct {
	Subtotal     float64     `json:"subtotal"`
	ShippingCost float64     `json:"shipping_cost"`
	Tax          float64     `json:"tax"`
	Total        float64     `json:"total"`
	Currency     string      `json:"currency"`
	Items        []OrderItem `json:"items"`
}

// OrderOptions parameterizes BuildOrderData. A nil TaxRate means the default
// 21% VAT; an explicit zero means tax-free, so the two must stay distinct.
type OrderOptions struct {
	ShippingCost float64
	TaxRate      *float64
	Currency     string
}

// BuildOrderData turns cart line items into an itemized, rounded total.
// The calculator trusts its input: quantity and price validation belongs to
// the cart mutation layer, and zero values must not cause errors here.
func BuildOrderData(items []CartItem, opts OrderOptions) OrderData {
	taxRate := DefaultTaxRate
	if opts.TaxRate != nil {
		taxRate = *opts.TaxRate
	}
	currency := opts.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	shippingCost := Round2(opts.ShippingCost)

	orderItems := make([]OrderItem, 0, len(items))
	var subtotal float64
	for _, item := range items {
		price := item.Product.Price
		subtotal += price * float64(item.Quantity)
		orderItems = append(orderItems, OrderItem{
			ProductID:       item.ProductID,
			ProductSnapshot: item.Product.Copy(),
			Quantity:        item.Quantity,
			Price:           price,
			Total:           Round2(price * float64(item.Quantity)),
		})
	}

	subtotal = Round2(subtotal)
	tax := Round2(subtotal * taxRate)

	return OrderData{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		Tax:          tax,
		Total:        Round2(subtotal + shippingCost + tax),
		Currency:     currency,
		Items:        orderItems,
	}
}

// ApplyShippingMethod returns a new OrderData with the method's price as
// shipping cost and the total recomputed from the existing subtotal and tax.
// Item lines are carried over unchanged but deep-copied, so the result
// shares no slice storage with the input; applying the same method twice
// yields an identical result.
func ApplyShippingMethod(order OrderData, method ShippingMethod) OrderData {
	next := order
	next.Items = make([]OrderItem, len(order.Items))
	for i, item := range order.Items {
		item.ProductSnapshot = item.ProductSnapshot.Copy()
		next.Items[i] = item
	}

	next.ShippingCost = Round2(method.Price)
	next.Total = Round2(order.Subtotal + order.Tax + next.ShippingCost)
	return next
}
