package models

import (
	"time"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/shopspring/decimal"
)

// Book is the product as persisted by the catalog backend.
type Book struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	SKU         *string `json:"sku,omitempty"`
	ProductType string  `json:"product_type"`

	// --- Pricing & Stock ---
	Price         decimal.Decimal `json:"price"`
	StockQuantity *int            `json:"stock_quantity,omitempty"`

	Variations []BookVariation `json:"variations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookVariation is one persisted variation of a book.
type BookVariation struct {
	ID            int64                `json:"id"`
	Attributes    variation.Attributes `json:"attributes"`
	Price         *decimal.Decimal     `json:"price,omitempty"`
	StockQuantity int                  `json:"stock_quantity"`
	SKU           string               `json:"sku"`
	ImageURL      *string              `json:"image_url,omitempty"`
}

// ToVariations converts persisted variations into editable ones that keep their backend IDs.
func (b *Book) ToVariations() []variation.Variation {
	out := make([]variation.Variation, 0, len(b.Variations))
	for _, bv := range b.Variations {
		id := bv.ID
		stock := bv.StockQuantity
		v := variation.Variation{
			ID:            &id,
			Attributes:    bv.Attributes.Clone(),
			StockQuantity: &stock,
			SKU:           bv.SKU,
		}
		if bv.Price != nil {
			p := *bv.Price
			v.Price = &p
		}
		out = append(out, v)
	}
	return out
}
