package variation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImageAsset is a binary image chosen for a variation.
type ImageAsset struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

// Variation is one concrete combination of attribute values.
// ID is set only for variations that already exist on the backend.
// Token identifies the variation locally for as long as the form lives.
type Variation struct {
	Token         string           `json:"token"`
	ID            *int64           `json:"id,omitempty"`
	Attributes    Attributes       `json:"attributes"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int             `json:"stockQuantity,omitempty"`
	SKU           string           `json:"sku"`
	Image         *ImageAsset      `json:"image,omitempty"`
}

func newToken() string {
	return uuid.NewString()
}

// newVariation returns a variation with a fresh token and a derived SKU.
func newVariation(parentSKU string, attrs Attributes) Variation {
	return Variation{
		Token:      newToken(),
		Attributes: attrs,
		SKU:        DeriveSKU(parentSKU, attrs),
	}
}

// EffectivePrice falls back to the parent product price when the variation has none.
func (v Variation) EffectivePrice(parent decimal.Decimal) decimal.Decimal {
	if v.Price != nil {
		return *v.Price
	}
	return parent
}

func (v Variation) clone() Variation {
	c := v
	c.Attributes = v.Attributes.Clone()
	if v.Price != nil {
		p := *v.Price
		c.Price = &p
	}
	if v.StockQuantity != nil {
		q := *v.StockQuantity
		c.StockQuantity = &q
	}
	if v.ID != nil {
		id := *v.ID
		c.ID = &id
	}
	return c
}
