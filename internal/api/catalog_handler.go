package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
)

// CatalogSlideInput is a carousel row. Rows without an image are dropped.
type CatalogSlideInput struct {
	ID           string  `json:"id"`
	Image        string  `json:"image" validate:"omitempty,url"`
	ImageCaption *string `json:"image_caption" validate:"omitempty,max=255"`
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	LinkURL      *string `json:"link_url" validate:"omitempty,url"`
	SortOrder    int     `json:"sort_order"`
	Active       *bool   `json:"active"`
}

type CatalogSectionProductInput struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id" validate:"omitempty,uuid"`
	SortOrder int    `json:"sort_order"`
	Active    *bool  `json:"active"`
}

// CatalogSectionInput is a section row with its nested product placements.
// Sections without a title are dropped along with their placements.
type CatalogSectionInput struct {
	ID          string                       `json:"id"`
	Title       string                       `json:"title" validate:"max=255"`
	Description *string                      `json:"description" validate:"omitempty,max=2000"`
	SortOrder   int                          `json:"sort_order"`
	Active      *bool                        `json:"active"`
	Products    []CatalogSectionProductInput `json:"catalog_section_products" validate:"omitempty,dive"`
}

type CatalogContactInput struct {
	ID        string             `json:"id"`
	Label     *string            `json:"label" validate:"omitempty,max=120"`
	Type      domain.ContactType `json:"type" validate:"omitempty,oneof=phone email whatsapp website address other"`
	Value     string             `json:"value" validate:"max=500"`
	SortOrder int                `json:"sort_order"`
	Active    *bool              `json:"active"`
}

// CatalogInput is the request body for creating or replacing a catalog.
type CatalogInput struct {
	BusinessID         string  `json:"business_id" validate:"required,uuid"`
	Name               string  `json:"name" validate:"required,max=255"`
	Slug               *string `json:"slug" validate:"omitempty,max=255,slug"`
	Description        *string `json:"description" validate:"omitempty,max=5000"`
	Active             *bool   `json:"active"`
	WhatsappFabDisplay *bool   `json:"catalog_whatsapp_fab_display"`
	WhatsappNumber     *string `json:"catalog_whatsapp_number" validate:"omitempty,max=50"`
	WhatsappText       *string `json:"catalog_whatsapp_text" validate:"omitempty,max=1000"`

	Slides   []CatalogSlideInput   `json:"catalog_slides" validate:"omitempty,dive"`
	Sections []CatalogSectionInput `json:"catalog_sections" validate:"omitempty,dive"`
	Contacts []CatalogContactInput `json:"catalog_contacts" validate:"omitempty,dive"`
}

func (in CatalogInput) toDomain(id, userID, slugValue string, active, fab bool) *domain.Catalog {
	c := &domain.Catalog{
		ID:                 id,
		UserID:             userID,
		BusinessID:         in.BusinessID,
		Name:               strings.TrimSpace(in.Name),
		Slug:               slugValue,
		Description:        trimmedOrNil(in.Description),
		Active:             active,
		WhatsappFabDisplay: fab,
		WhatsappNumber:     trimmedOrNil(in.WhatsappNumber),
		WhatsappText:       trimmedOrNil(in.WhatsappText),
	}
	if in.Slides != nil {
		c.Slides = make([]domain.CatalogSlide, 0, len(in.Slides))
		for _, s := range in.Slides {
			c.Slides = append(c.Slides, domain.CatalogSlide{
				ID:           s.ID,
				Image:        strings.TrimSpace(s.Image),
				ImageCaption: trimmedOrNil(s.ImageCaption),
				Title:        trimmedOrNil(s.Title),
				Description:  trimmedOrNil(s.Description),
				LinkURL:      trimmedOrNil(s.LinkURL),
				SortOrder:    s.SortOrder,
				Active:       boolOr(s.Active, true),
			})
		}
	}
	if in.Sections != nil {
		c.Sections = make([]domain.CatalogSection, 0, len(in.Sections))
		for _, s := range in.Sections {
			section := domain.CatalogSection{
				ID:          s.ID,
				Title:       strings.TrimSpace(s.Title),
				Description: trimmedOrNil(s.Description),
				SortOrder:   s.SortOrder,
				Active:      boolOr(s.Active, true),
			}
			if s.Products != nil {
				section.Products = make([]domain.CatalogSectionProduct, 0, len(s.Products))
				for _, p := range s.Products {
					section.Products = append(section.Products, domain.CatalogSectionProduct{
						ID:        p.ID,
						ProductID: p.ProductID,
						SortOrder: p.SortOrder,
						Active:    boolOr(p.Active, true),
					})
				}
			}
			c.Sections = append(c.Sections, section)
		}
	}
	if in.Contacts != nil {
		c.Contacts = make([]domain.CatalogContact, 0, len(in.Contacts))
		for _, ct := range in.Contacts {
			kind := ct.Type
			if kind == "" {
				kind = domain.ContactOther
			}
			c.Contacts = append(c.Contacts, domain.CatalogContact{
				ID:        ct.ID,
				Label:     trimmedOrNil(ct.Label),
				Type:      kind,
				Value:     strings.TrimSpace(ct.Value),
				SortOrder: ct.SortOrder,
				Active:    boolOr(ct.Active, true),
			})
		}
	}
	return c
}

// whatsappReady answers 400 when the floating WhatsApp button is switched on
// without a number to dial.
func whatsappReady(w http.ResponseWriter, c *domain.Catalog) bool {
	if c.WhatsappFabDisplay && c.WhatsappNumber == nil {
		respondWithFieldError(w, "catalog_whatsapp_number", "required_with=catalog_whatsapp_fab_display")
		return false
	}
	return true
}

// --- Catalog Handlers ---

func (h *HTTPHandler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	var input CatalogInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, "")
	if !ok {
		return
	}
	user := currentUser(r)
	catalog := input.toDomain("", user.ID, slugValue, boolOr(input.Active, true), boolOr(input.WhatsappFabDisplay, false))
	if !whatsappReady(w, catalog) {
		return
	}

	created, err := h.catalogStore.CreateCatalog(r.Context(), catalog)
	if err != nil {
		respondWithStoreError(w, "CreateCatalog", err, "Failed to create catalog")
		return
	}
	h.invalidate(r.Context(), cache.CatalogPaths(created.ID, created.Slug)...)
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetCatalogByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "catalogId", "catalog")
	if !ok {
		return
	}
	catalog, err := h.catalogStore.GetCatalogByID(r.Context(), id, currentUser(r).ID)
	if err != nil {
		respondWithStoreError(w, "GetCatalogByID", err, "Failed to retrieve catalog")
		return
	}
	respondWithJSON(w, http.StatusOK, catalog)
}

func (h *HTTPHandler) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)
	params := store.ListParams{UserID: currentUser(r).ID, Limit: limit, Offset: offset}

	if businessID := r.URL.Query().Get("business_id"); businessID != "" {
		if _, err := uuid.Parse(businessID); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid business_id filter")
			return
		}
		params.BusinessID = &businessID
	}
	active, err := queryBool(r, "active")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.Active = active

	catalogs, totalCount, err := h.catalogStore.ListCatalogs(r.Context(), params)
	if err != nil {
		respondWithStoreError(w, "ListCatalogs", err, "Failed to retrieve catalogs")
		return
	}
	respondWithJSON(w, http.StatusOK, paginated(catalogs, page, limit, totalCount))
}

// UpdateCatalog replaces the catalog and reconciles every collection the
// body carries. The public pages under both the old and the new slug are
// invalidated.
func (h *HTTPHandler) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "catalogId", "catalog")
	if !ok {
		return
	}
	var input CatalogInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	user := currentUser(r)

	existing, err := h.catalogStore.GetCatalogByID(r.Context(), id, user.ID)
	if err != nil {
		respondWithStoreError(w, "UpdateCatalog", err, "Failed to update catalog")
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, existing.Slug)
	if !ok {
		return
	}
	catalog := input.toDomain(id, user.ID, slugValue,
		boolOr(input.Active, existing.Active), boolOr(input.WhatsappFabDisplay, existing.WhatsappFabDisplay))
	if !whatsappReady(w, catalog) {
		return
	}

	updated, err := h.catalogStore.UpdateCatalog(r.Context(), catalog)
	if err != nil {
		respondWithStoreError(w, "UpdateCatalog", err, "Failed to update catalog")
		return
	}
	h.invalidate(r.Context(), cache.CatalogPaths(id, existing.Slug, updated.Slug)...)
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCatalog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "catalogId", "catalog")
	if !ok {
		return
	}
	user := currentUser(r)

	existing, err := h.catalogStore.GetCatalogByID(r.Context(), id, user.ID)
	if err != nil {
		respondWithStoreError(w, "DeleteCatalog", err, "Failed to delete catalog")
		return
	}
	if err := h.catalogStore.DeleteCatalog(r.Context(), id, user.ID); err != nil {
		respondWithStoreError(w, "DeleteCatalog", err, "Failed to delete catalog")
		return
	}
	h.invalidate(r.Context(), cache.CatalogPaths(id, existing.Slug)...)
	respondWithJSON(w, http.StatusNoContent, nil)
}
