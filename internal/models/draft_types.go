package models

import (
	"time"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/shopspring/decimal"
)

// Draft is the model for the 'form_drafts' table.
type Draft struct {
	ID        string     `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	State     DraftState `json:"state" db:"state"` // Stored as JSON
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// DraftState is a serializable snapshot of a book form.
// Image bytes and previews are not part of it.
type DraftState struct {
	BookID        *int64                     `json:"bookId,omitempty"`
	Title         string                     `json:"title"`
	ParentSKU     string                     `json:"parentSku"`
	Price         *decimal.Decimal           `json:"price,omitempty"`
	StockQuantity *int                       `json:"stockQuantity,omitempty"`
	ProductType   variation.ProductType      `json:"productType"`
	Attributes    []variation.AttributeDraft `json:"attributes"`
	Variations    []variation.Variation      `json:"variations"`
}
