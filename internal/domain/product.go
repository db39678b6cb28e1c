package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product belongs to one business and one user.
// The json tags correspond to the fields expected in API responses/requests.
type Product struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	BusinessID  string              `json:"business_id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"` // Pointer for nullable fields
	BasePrice   decimal.NullDecimal `json:"base_price"`            // null when the product is priced only by tiers
	Currency    string              `json:"currency"`
	IsOnSale    bool                `json:"is_on_sale"`
	SaleLabel   *string             `json:"sale_label,omitempty"`
	Active      bool                `json:"active"`

	// A nil collection on an update input means "leave untouched".
	Images []ProductImage `json:"product_images"`
	Prices []ProductPrice `json:"product_prices"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductImage is one picture of a product. At most one active image is
// expected to be primary; nothing below the UI enforces it.
type ProductImage struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	Image        string    `json:"image"`
	Caption      *string   `json:"caption,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i ProductImage) Key() string { return i.ID }
func (i ProductImage) Valid() bool { return strings.TrimSpace(i.Image) != "" }

// ProductPrice is a named price tier (e.g. "Small", "Family size").
type ProductPrice struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Label     string          `json:"label"`
	Price     decimal.Decimal `json:"price"`
	SortOrder int             `json:"sort_order"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p ProductPrice) Key() string { return p.ID }

// Valid requires a label and a non-zero price.
func (p ProductPrice) Valid() bool {
	return strings.TrimSpace(p.Label) != "" && !p.Price.IsZero()
}

// PrimaryImage returns the first primary image, falling back to the image
// with the lowest display order.
func (p *Product) PrimaryImage() (ProductImage, bool) {
	if len(p.Images) == 0 {
		return ProductImage{}, false
	}
	best := p.Images[0]
	for _, img := range p.Images {
		if img.IsPrimary {
			return img, true
		}
		if img.DisplayOrder < best.DisplayOrder {
			best = img
		}
	}
	return best, true
}
