package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
)

const defaultCurrency = "USD"

type ProductImageInput struct {
	ID           string  `json:"id"`
	Image        string  `json:"image" validate:"omitempty,url"`
	Caption      *string `json:"caption" validate:"omitempty,max=255"`
	DisplayOrder int     `json:"display_order"`
	IsPrimary    bool    `json:"is_primary"`
}

// ProductPriceInput is a price tier. Rows without a label or with a zero
// price are dropped.
type ProductPriceInput struct {
	ID        string          `json:"id"`
	Label     string          `json:"label" validate:"max=120"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	SortOrder int             `json:"sort_order"`
	Active    *bool           `json:"active"`
}

// ProductInput is the request body for creating or replacing a product.
type ProductInput struct {
	BusinessID  string           `json:"business_id" validate:"required,uuid"`
	Name        string           `json:"name" validate:"required,max=255"`
	Slug        *string          `json:"slug" validate:"omitempty,max=255,slug"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	BasePrice   *decimal.Decimal `json:"base_price" validate:"omitempty,gte=0"`
	Currency    string           `json:"currency" validate:"omitempty,len=3,uppercase"`
	IsOnSale    bool             `json:"is_on_sale"`
	SaleLabel   *string          `json:"sale_label" validate:"omitempty,max=120"`
	Active      *bool            `json:"active"`

	Images []ProductImageInput `json:"product_images" validate:"omitempty,dive"`
	Prices []ProductPriceInput `json:"product_prices" validate:"omitempty,dive"`
}

func (in ProductInput) toDomain(id, userID, slugValue, currency string, active bool) *domain.Product {
	p := &domain.Product{
		ID:          id,
		UserID:      userID,
		BusinessID:  in.BusinessID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        slugValue,
		Description: trimmedOrNil(in.Description),
		Currency:    currency,
		IsOnSale:    in.IsOnSale,
		SaleLabel:   trimmedOrNil(in.SaleLabel),
		Active:      active,
	}
	if in.BasePrice != nil {
		p.BasePrice = decimal.NewNullDecimal(*in.BasePrice)
	}
	if in.Images != nil {
		p.Images = make([]domain.ProductImage, 0, len(in.Images))
		for _, img := range in.Images {
			p.Images = append(p.Images, domain.ProductImage{
				ID:           img.ID,
				Image:        strings.TrimSpace(img.Image),
				Caption:      trimmedOrNil(img.Caption),
				DisplayOrder: img.DisplayOrder,
				IsPrimary:    img.IsPrimary,
			})
		}
	}
	if in.Prices != nil {
		p.Prices = make([]domain.ProductPrice, 0, len(in.Prices))
		for _, pr := range in.Prices {
			p.Prices = append(p.Prices, domain.ProductPrice{
				ID:        pr.ID,
				Label:     strings.TrimSpace(pr.Label),
				Price:     pr.Price,
				SortOrder: pr.SortOrder,
				Active:    boolOr(pr.Active, true),
			})
		}
	}
	return p
}

// --- Product Handlers ---

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, "")
	if !ok {
		return
	}
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	user := currentUser(r)

	created, err := h.productStore.CreateProduct(r.Context(), input.toDomain("", user.ID, slugValue, currency, boolOr(input.Active, true)))
	if err != nil {
		respondWithStoreError(w, "CreateProduct", err, "Failed to create product")
		return
	}
	h.invalidate(r.Context(), cache.ProductPaths(created.ID)...)
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productId", "product")
	if !ok {
		return
	}
	product, err := h.productStore.GetProductByID(r.Context(), id, currentUser(r).ID)
	if err != nil {
		respondWithStoreError(w, "GetProductByID", err, "Failed to retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// ListProducts lists the caller's products, optionally narrowed by
// business_id and active.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
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

	products, totalCount, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		respondWithStoreError(w, "ListProducts", err, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, paginated(products, page, limit, totalCount))
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productId", "product")
	if !ok {
		return
	}
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	user := currentUser(r)

	existing, err := h.productStore.GetProductByID(r.Context(), id, user.ID)
	if err != nil {
		respondWithStoreError(w, "UpdateProduct", err, "Failed to update product")
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, existing.Slug)
	if !ok {
		return
	}
	currency := input.Currency
	if currency == "" {
		currency = existing.Currency
	}

	updated, err := h.productStore.UpdateProduct(r.Context(), input.toDomain(id, user.ID, slugValue, currency, boolOr(input.Active, existing.Active)))
	if err != nil {
		respondWithStoreError(w, "UpdateProduct", err, "Failed to update product")
		return
	}
	h.invalidate(r.Context(), cache.ProductPaths(id)...)
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productId", "product")
	if !ok {
		return
	}
	if err := h.productStore.DeleteProduct(r.Context(), id, currentUser(r).ID); err != nil {
		respondWithStoreError(w, "DeleteProduct", err, "Failed to delete product")
		return
	}
	h.invalidate(r.Context(), cache.ProductPaths(id)...)
	respondWithJSON(w, http.StatusNoContent, nil)
}
