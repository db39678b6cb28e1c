// Package storefront renders the public page of a catalog.
package storefront

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"catalog-builder-service/internal/domain"
)

// Page is the JSON document served at /c/{slug}.
type Page struct {
	Catalog     CatalogHeader `json:"catalog"`
	Business    BusinessCard  `json:"business"`
	Slides      []Slide       `json:"slides"`
	NavSections []NavSection  `json:"nav_sections"`
	Sections    []Section     `json:"sections"`
	Contacts    []Contact     `json:"contacts"`
	WhatsappFab *WhatsappFab  `json:"whatsapp_fab,omitempty"`
	Meta        Meta          `json:"meta"`
}

type CatalogHeader struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
}

type BusinessCard struct {
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Description   *string      `json:"description,omitempty"`
	Avatar        *string      `json:"avatar,omitempty"`
	AvatarCaption *string      `json:"avatar_caption,omitempty"`
	Cover         *string      `json:"cover,omitempty"`
	CoverCaption  *string      `json:"cover_caption,omitempty"`
	Phone         *string      `json:"phone,omitempty"`
	WhatsappPhone *string      `json:"whatsapp_phone,omitempty"`
	Email         *string      `json:"email,omitempty"`
	Address       *string      `json:"address,omitempty"`
	City          *string      `json:"city,omitempty"`
	Country       *string      `json:"country,omitempty"`
	WebsiteURL    *string      `json:"website_url,omitempty"`
	SocialLinks   []SocialLink `json:"social_links"`
}

type SocialLink struct {
	Platform domain.SocialPlatform `json:"platform"`
	URL      string                `json:"url"`
}

type Slide struct {
	Image        string  `json:"image"`
	ImageCaption *string `json:"image_caption,omitempty"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	LinkURL      *string `json:"link_url,omitempty"`
}

type NavSection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Section struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Products    []ProductCard `json:"products"`
}

type ProductCard struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  *string          `json:"description,omitempty"`
	Image        *string          `json:"image,omitempty"`
	ImageCaption *string          `json:"image_caption,omitempty"`
	BasePrice    *decimal.Decimal `json:"base_price,omitempty"`
	Currency     string           `json:"currency"`
	IsOnSale     bool             `json:"is_on_sale"`
	SaleLabel    *string          `json:"sale_label,omitempty"`
	Prices       []PriceTier      `json:"prices"`
}

type PriceTier struct {
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

type Contact struct {
	Label *string            `json:"label,omitempty"`
	Type  domain.ContactType `json:"type"`
	Value string             `json:"value"`
}

type WhatsappFab struct {
	Number string  `json:"number"`
	Text   *string `json:"text,omitempty"`
	URL    string  `json:"url"`
}

// Meta feeds the Open Graph tags of the page.
type Meta struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
	URL         string  `json:"url"`
}

// Build renders pc. Only active rows are shown, ordered by sort_order with
// ties kept in stored order. A section placement is dropped when its product
// is missing or inactive.
func Build(pc domain.PublicCatalog, baseURL string) Page {
	c := pc.Catalog
	b := pc.Business
	page := Page{
		Catalog: CatalogHeader{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description},
		Business: BusinessCard{
			Name: b.Name, Slug: b.Slug, Description: b.Description, Avatar: b.Avatar, AvatarCaption: b.AvatarCaption,
			Cover: b.Cover, CoverCaption: b.CoverCaption, Phone: b.Phone, WhatsappPhone: b.WhatsappPhone,
			Email: b.Email, Address: b.Address, City: b.City, Country: b.Country, WebsiteURL: b.WebsiteURL,
			SocialLinks: []SocialLink{},
		},
		Slides:      []Slide{},
		NavSections: []NavSection{},
		Sections:    []Section{},
		Contacts:    []Contact{},
	}

	links := activeSorted(b.SocialLinks,
		func(l domain.BusinessSocialLink) bool { return l.Active },
		func(l domain.BusinessSocialLink) int { return l.SortOrder })
	for _, l := range links {
		page.Business.SocialLinks = append(page.Business.SocialLinks, SocialLink{Platform: l.Platform, URL: l.URL})
	}

	slides := activeSorted(c.Slides,
		func(s domain.CatalogSlide) bool { return s.Active && s.Valid() },
		func(s domain.CatalogSlide) int { return s.SortOrder })
	for _, s := range slides {
		page.Slides = append(page.Slides, Slide{
			Image: s.Image, ImageCaption: s.ImageCaption, Title: s.Title, Description: s.Description, LinkURL: s.LinkURL,
		})
	}

	sections := activeSorted(c.Sections,
		func(s domain.CatalogSection) bool { return s.Active },
		func(s domain.CatalogSection) int { return s.SortOrder })
	for _, s := range sections {
		section := Section{ID: s.ID, Title: s.Title, Description: s.Description, Products: []ProductCard{}}
		joins := activeSorted(s.Products,
			func(j domain.CatalogSectionProduct) bool { return j.Active },
			func(j domain.CatalogSectionProduct) int { return j.SortOrder })
		for _, j := range joins {
			p, ok := pc.Products[j.ProductID]
			if !ok || !p.Active {
				continue
			}
			section.Products = append(section.Products, productCard(p))
		}
		page.Sections = append(page.Sections, section)
		page.NavSections = append(page.NavSections, NavSection{ID: s.ID, Title: s.Title})
	}

	contacts := activeSorted(c.Contacts,
		func(ct domain.CatalogContact) bool { return ct.Active },
		func(ct domain.CatalogContact) int { return ct.SortOrder })
	for _, ct := range contacts {
		page.Contacts = append(page.Contacts, Contact{Label: ct.Label, Type: ct.Type, Value: ct.Value})
	}

	if c.WhatsappFabDisplay && c.WhatsappNumber != nil && strings.TrimSpace(*c.WhatsappNumber) != "" {
		page.WhatsappFab = &WhatsappFab{
			Number: *c.WhatsappNumber,
			Text:   c.WhatsappText,
			URL:    whatsappURL(*c.WhatsappNumber, c.WhatsappText),
		}
	}

	description := c.Description
	if description == nil {
		description = b.Description
	}
	page.Meta = Meta{
		Title:       c.Name + " | " + b.Name,
		Description: description,
		Image:       b.Avatar,
		URL:         strings.TrimRight(baseURL, "/") + "/c/" + c.Slug,
	}
	return page
}

func productCard(p domain.Product) ProductCard {
	card := ProductCard{
		ID: p.ID, Name: p.Name, Slug: p.Slug, Description: p.Description, Currency: p.Currency,
		IsOnSale: p.IsOnSale, SaleLabel: p.SaleLabel, Prices: []PriceTier{},
	}
	if p.BasePrice.Valid {
		price := p.BasePrice.Decimal
		card.BasePrice = &price
	}
	if img, ok := p.PrimaryImage(); ok {
		card.Image = &img.Image
		card.ImageCaption = img.Caption
	}
	tiers := activeSorted(p.Prices,
		func(pr domain.ProductPrice) bool { return pr.Active && pr.Valid() },
		func(pr domain.ProductPrice) int { return pr.SortOrder })
	for _, pr := range tiers {
		card.Prices = append(card.Prices, PriceTier{Label: pr.Label, Price: pr.Price})
	}
	return card
}

// activeSorted returns the rows keep accepts, stably sorted by order.
func activeSorted[T any](rows []T, keep func(T) bool, order func(T) int) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return order(out[i]) < order(out[j]) })
	return out
}

// whatsappURL builds a wa.me click-to-chat link from a free-form phone number.
func whatsappURL(number string, text *string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	u := "https://wa.me/" + digits
	if text != nil && *text != "" {
		u += "?text=" + url.QueryEscape(*text)
	}
	return u
}
