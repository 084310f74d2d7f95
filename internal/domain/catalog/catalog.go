// Package catalog defines the sellable items extracted from a post
// description, with their bundle price options.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/muachung/tracker/internal/pricing"
)

// PricePack is one bundle price option for an item: buy Qty units for
// BundlePrice. Quantities and prices come from scraped text and are stored
// as decimals; the pricing engine works on whole units.
type PricePack struct {
	Qty         decimal.Decimal `json:"qty"`
	BundlePrice decimal.Decimal `json:"bundle_price"`
}

// Item is one product option offered in a post.
type Item struct {
	Name   string      `json:"name,omitempty"`
	Type   string      `json:"type,omitempty"`
	Prices []PricePack `json:"prices"`
}

// PricingPacks converts the item's price options to the integer packs the
// pricing engine operates on. Fractional quantities and prices are truncated.
func (i Item) PricingPacks() []pricing.Pack {
	packs := make([]pricing.Pack, len(i.Prices))
	for j, p := range i.Prices {
		packs[j] = pricing.Pack{
			Qty:   p.Qty.IntPart(),
			Price: p.BundlePrice.IntPart(),
		}
	}
	return packs
}
