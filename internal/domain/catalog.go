package domain

import (
	"strings"
	"time"
)

// ContactType classifies a catalog contact entry.
type ContactType string

const (
	ContactPhone    ContactType = "phone"
	ContactEmail    ContactType = "email"
	ContactWhatsapp ContactType = "whatsapp"
	ContactWebsite  ContactType = "website"
	ContactAddress  ContactType = "address"
	ContactOther    ContactType = "other"
)

// Catalog is a publishable storefront composed of slides, sections and contacts.
type Catalog struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	Active      bool    `json:"active"`

	WhatsappFabDisplay bool    `json:"catalog_whatsapp_fab_display"`
	WhatsappNumber     *string `json:"catalog_whatsapp_number,omitempty"`
	WhatsappText       *string `json:"catalog_whatsapp_text,omitempty"`

	Slides   []CatalogSlide   `json:"catalog_slides"`
	Sections []CatalogSection `json:"catalog_sections"`
	Contacts []CatalogContact `json:"catalog_contacts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogSlide is a promotional carousel entry.
type CatalogSlide struct {
	ID           string    `json:"id"`
	CatalogID    string    `json:"catalog_id"`
	Image        string    `json:"image"`
	ImageCaption *string   `json:"image_caption,omitempty"`
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	LinkURL      *string   `json:"link_url,omitempty"`
	SortOrder    int       `json:"sort_order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s CatalogSlide) Key() string { return s.ID }
func (s CatalogSlide) Valid() bool { return strings.TrimSpace(s.Image) != "" }

// CatalogSection groups products under a title.
type CatalogSection struct {
	ID          string                  `json:"id"`
	CatalogID   string                  `json:"catalog_id"`
	Title       string                  `json:"title"`
	Description *string                 `json:"description,omitempty"`
	SortOrder   int                     `json:"sort_order"`
	Active      bool                    `json:"active"`
	Products    []CatalogSectionProduct `json:"catalog_section_products"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func (s CatalogSection) Key() string { return s.ID }
func (s CatalogSection) Valid() bool { return strings.TrimSpace(s.Title) != "" }

// CatalogSectionProduct places a product in a section with its own order and visibility.
type CatalogSectionProduct struct {
	ID        string    `json:"id"`
	SectionID string    `json:"catalog_section_id"`
	ProductID string    `json:"product_id"`
	SortOrder int       `json:"sort_order"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p CatalogSectionProduct) Key() string { return p.ID }
func (p CatalogSectionProduct) Valid() bool { return strings.TrimSpace(p.ProductID) != "" }

// CatalogContact is a labelled way to reach the business.
type CatalogContact struct {
	ID        string      `json:"id"`
	CatalogID string      `json:"catalog_id"`
	Label     *string     `json:"label,omitempty"`
	Type      ContactType `json:"type"`
	Value     string      `json:"value"`
	SortOrder int         `json:"sort_order"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c CatalogContact) Key() string { return c.ID }
func (c CatalogContact) Valid() bool { return strings.TrimSpace(c.Value) != "" }

// SectionProductIDs returns the distinct product ids referenced by valid
// section rows, in first-seen order.
func (c *Catalog) SectionProductIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, s := range c.Sections {
		if !s.Valid() {
			continue
		}
		for _, p := range s.Products {
			if !p.Valid() {
				continue
			}
			if _, ok := seen[p.ProductID]; ok {
				continue
			}
			seen[p.ProductID] = struct{}{}
			ids = append(ids, p.ProductID)
		}
	}
	return ids
}

// PublicCatalog is everything the public storefront of a catalog reads.
type PublicCatalog struct {
	Catalog  Catalog
	Business Business
	Products map[string]Product
}
