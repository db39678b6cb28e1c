package api

import (
	"net/http"
	"strings"

	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
)

// SocialLinkInput is one row of a business' social_links collection. Rows
// without a URL are dropped.
type SocialLinkInput struct {
	ID        string                `json:"id"`
	Platform  domain.SocialPlatform `json:"platform" validate:"omitempty,oneof=facebook instagram twitter youtube linkedin tiktok website other"`
	URL       string                `json:"url" validate:"omitempty,url,max=2048"`
	SortOrder int                   `json:"sort_order"`
	Active    *bool                 `json:"active"`
}

// BusinessInput is the request body for creating or replacing a business.
type BusinessInput struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Slug          *string `json:"slug" validate:"omitempty,max=255,slug"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	WhatsappPhone *string `json:"whatsapp_phone" validate:"omitempty,max=50"`
	Email         *string `json:"email" validate:"omitempty,email,max=255"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	City          *string `json:"city" validate:"omitempty,max=120"`
	Country       *string `json:"country" validate:"omitempty,max=120"`
	WebsiteURL    *string `json:"website_url" validate:"omitempty,url,max=2048"`
	Active        *bool   `json:"active"`
	Avatar        *string `json:"avatar" validate:"omitempty,url"`
	AvatarCaption *string `json:"avatar_caption" validate:"omitempty,max=255"`
	Cover         *string `json:"cover" validate:"omitempty,url"`
	CoverCaption  *string `json:"cover_caption" validate:"omitempty,max=255"`

	SocialLinks []SocialLinkInput `json:"social_links" validate:"omitempty,dive"`
}

func (in BusinessInput) toDomain(id, userID, slugValue string, active bool) *domain.Business {
	b := &domain.Business{
		ID:            id,
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		Slug:          slugValue,
		Description:   trimmedOrNil(in.Description),
		Phone:         trimmedOrNil(in.Phone),
		WhatsappPhone: trimmedOrNil(in.WhatsappPhone),
		Email:         trimmedOrNil(in.Email),
		Address:       trimmedOrNil(in.Address),
		City:          trimmedOrNil(in.City),
		Country:       trimmedOrNil(in.Country),
		WebsiteURL:    trimmedOrNil(in.WebsiteURL),
		Active:        active,
		Avatar:        trimmedOrNil(in.Avatar),
		AvatarCaption: trimmedOrNil(in.AvatarCaption),
		Cover:         trimmedOrNil(in.Cover),
		CoverCaption:  trimmedOrNil(in.CoverCaption),
	}
	if in.SocialLinks != nil {
		b.SocialLinks = make([]domain.BusinessSocialLink, 0, len(in.SocialLinks))
		for _, l := range in.SocialLinks {
			platform := l.Platform
			if platform == "" {
				platform = domain.PlatformOther
			}
			b.SocialLinks = append(b.SocialLinks, domain.BusinessSocialLink{
				ID:        l.ID,
				Platform:  platform,
				URL:       strings.TrimSpace(l.URL),
				SortOrder: l.SortOrder,
				Active:    boolOr(l.Active, true),
			})
		}
	}
	return b
}

// --- Business Handlers ---

func (h *HTTPHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var input BusinessInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, "")
	if !ok {
		return
	}
	user := currentUser(r)

	created, err := h.businessStore.CreateBusiness(r.Context(), input.toDomain("", user.ID, slugValue, boolOr(input.Active, true)))
	if err != nil {
		respondWithStoreError(w, "CreateBusiness", err, "Failed to create business")
		return
	}
	h.invalidate(r.Context(), cache.BusinessPaths(created.ID)...)
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetBusinessByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "businessId", "business")
	if !ok {
		return
	}
	business, err := h.businessStore.GetBusinessByID(r.Context(), id, currentUser(r).ID)
	if err != nil {
		respondWithStoreError(w, "GetBusinessByID", err, "Failed to retrieve business")
		return
	}
	respondWithJSON(w, http.StatusOK, business)
}

func (h *HTTPHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)
	active, err := queryBool(r, "active")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	businesses, totalCount, err := h.businessStore.ListBusinesses(r.Context(), store.ListParams{
		UserID: currentUser(r).ID, Limit: limit, Offset: offset, Active: active,
	})
	if err != nil {
		respondWithStoreError(w, "ListBusinesses", err, "Failed to retrieve businesses")
		return
	}
	respondWithJSON(w, http.StatusOK, paginated(businesses, page, limit, totalCount))
}

// UpdateBusiness replaces the business' fields. Omitted slug and active keep
// their stored values; an omitted social_links leaves the links untouched.
func (h *HTTPHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "businessId", "business")
	if !ok {
		return
	}
	var input BusinessInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	user := currentUser(r)

	existing, err := h.businessStore.GetBusinessByID(r.Context(), id, user.ID)
	if err != nil {
		respondWithStoreError(w, "UpdateBusiness", err, "Failed to update business")
		return
	}
	slugValue, ok := resolveSlug(w, input.Slug, input.Name, existing.Slug)
	if !ok {
		return
	}

	updated, err := h.businessStore.UpdateBusiness(r.Context(), input.toDomain(id, user.ID, slugValue, boolOr(input.Active, existing.Active)))
	if err != nil {
		respondWithStoreError(w, "UpdateBusiness", err, "Failed to update business")
		return
	}
	h.invalidate(r.Context(), cache.BusinessPaths(id)...)
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "businessId", "business")
	if !ok {
		return
	}
	if err := h.businessStore.DeleteBusiness(r.Context(), id, currentUser(r).ID); err != nil {
		respondWithStoreError(w, "DeleteBusiness", err, "Failed to delete business")
		return
	}
	h.invalidate(r.Context(), cache.BusinessPaths(id)...)
	respondWithJSON(w, http.StatusNoContent, nil)
}
