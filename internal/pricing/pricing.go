// Package pricing computes the cheapest combination of bundle-price packs
// covering a requested quantity.
package pricing

// Method identifies how a Calculation was produced. The values are part of
// the stored order format and must not change.
type Method string

const (
	// MethodDP is an exact minimum-cost combination found by dynamic
	// programming over quantity units.
	MethodDP Method = "dp"
	// MethodGreedyCeil is the fallback when no combination of pack sizes
	// reaches the requested quantity exactly: the best unit-price pack is
	// used enough times to cover the quantity, possibly with surplus.
	MethodGreedyCeil Method = "greedy-ceil"
	// MethodNone means there was no usable pricing data.
	MethodNone Method = "fallback-none"
)

// Pack is a purchasable bundle: Qty units for Price.
type Pack struct {
	Qty   int64 `json:"qty"`
	Price int64 `json:"bundle_price"`
}

// UsedPack is one pack line in a Calculation.
type UsedPack struct {
	Qty      int64 `json:"qty"`
	Count    int64 `json:"count"`
	Price    int64 `json:"bundle_price"`
	Subtotal int64 `json:"subtotal"`
}

// Calculation is the result of a minimum-cost computation. Field names and
// method values are persisted with orders and redisplayed later.
type Calculation struct {
	Total  int64      `json:"total"`
	Method Method     `json:"method"`
	Packs  []UsedPack `json:"packs"`
}

// Covers reports whether the calculation supplies at least qty units.
func (c Calculation) Covers(qty int64) bool {
	var units int64
	for _, p := range c.Packs {
		units += p.Count * p.Qty
	}
	return units >= qty
}
