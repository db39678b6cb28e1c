package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-builder-service/internal/auth"
	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/metrics"
	"catalog-builder-service/internal/store"
	"catalog-builder-service/internal/storefront"
)

// PageRenderer serves storefront pages.
type PageRenderer interface {
	Page(ctx context.Context, slug string) (*storefront.Page, error)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Businesses   store.BusinessStorer
	Products     store.ProductStorer
	Catalogs     store.CatalogStorer
	Accounts     store.AccountStorer
	Pages        PageRenderer
	Cache        cache.PageCache
	Blobs        blob.Store
	UploadPolicy blob.Policy
	Metrics      *metrics.Metrics
	// Authenticate rejects unauthenticated requests and stores the user in the context.
	Authenticate func(http.Handler) http.Handler
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	businessStore store.BusinessStorer
	productStore  store.ProductStorer
	catalogStore  store.CatalogStorer
	accountStore  store.AccountStorer
	pages         PageRenderer
	cache         cache.PageCache
	blobs         blob.Store
	uploadPolicy  blob.Policy
	metrics       *metrics.Metrics
	authenticate  func(http.Handler) http.Handler
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(d Deps) *HTTPHandler {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Blobs == nil {
		d.Blobs = blob.Unconfigured{}
	}
	return &HTTPHandler{
		businessStore: d.Businesses,
		productStore:  d.Products,
		catalogStore:  d.Catalogs,
		accountStore:  d.Accounts,
		pages:         d.Pages,
		cache:         d.Cache,
		blobs:         d.Blobs,
		uploadPolicy:  d.UploadPolicy,
		metrics:       d.Metrics,
		authenticate:  d.Authenticate,
		validate:      newValidator(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"` // field -> failed rule
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.S().Errorf("Failed to encode JSON response: %v", err)
		}
	}
}

// decodeJSON reads exactly one JSON document into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// decodeAndValidate answers 400 and returns false when the body is malformed
// or fails validation.
func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	normalizeInput(reflect.ValueOf(dst))
	if err := h.validate.Struct(dst); err != nil {
		respondWithValidationError(w, err)
		return false
	}
	return true
}

// pathID reads a UUID path parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param, label string) (string, bool) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", label))
		return "", false
	}
	return id, true
}

func currentUser(r *http.Request) auth.User {
	user, _ := auth.UserFrom(r.Context())
	return user
}

// respondWithStoreError maps store sentinels to status codes. Anything
// unrecognised is logged and reported as 500 with fallback.
func respondWithStoreError(w http.ResponseWriter, op string, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrBusinessNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrCatalogNotFound),
		errors.Is(err, store.ErrSupportMessageNotFound),
		errors.Is(err, store.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrBusinessSlugExists),
		errors.Is(err, store.ErrProductSlugExists),
		errors.Is(err, store.ErrCatalogSlugExists),
		errors.Is(err, store.ErrBusinessHasDependents):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		zap.S().Errorf("%s store operation failed: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// invalidate drops cached pages. Failures are logged only.
func (h *HTTPHandler) invalidate(ctx context.Context, paths ...string) {
	if err := h.cache.Invalidate(ctx, paths...); err != nil {
		zap.S().Warnf("page cache invalidation of %v failed: %v", paths, err)
		h.metrics.Error("page_cache")
	}
}

// PaginationInfo matches the pagination block of list responses.
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// pagination reads page and limit, defaulting to page 1 of 10 and capping limit at 100.
func pagination(r *http.Request) (page, limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10 // Default limit
	}
	if limit > 100 { // Max limit
		limit = 100
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1 // Default page
	}
	return page, limit, (page - 1) * limit
}

func paginated[T any](data []T, page, limit, totalCount int) PaginatedResponse[T] {
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data: data,
		Pagination: PaginationInfo{
			Page:       page,
			Limit:      limit,
			TotalItems: totalCount,
			TotalPages: totalPages,
		},
	}
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s filter", name)
	}
	return &v, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/c/{catalogSlug}", h.GetPublicCatalog) // public storefront

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/api/v1/businesses", func(r chi.Router) {
			r.Post("/", h.CreateBusiness)
			r.Get("/", h.ListBusinesses)
			r.Route("/{businessId}", func(r chi.Router) {
				r.Get("/", h.GetBusinessByID)
				r.Put("/", h.UpdateBusiness)
				r.Delete("/", h.DeleteBusiness)
			})
		})

		r.Route("/api/v1/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProductByID)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
			})
		})

		r.Route("/api/v1/catalogs", func(r chi.Router) {
			r.Post("/", h.CreateCatalog)
			r.Get("/", h.ListCatalogs)
			r.Route("/{catalogId}", func(r chi.Router) {
				r.Get("/", h.GetCatalogByID)
				r.Put("/", h.UpdateCatalog)
				r.Delete("/", h.DeleteCatalog)
			})
		})

		r.Post("/api/v1/uploads", h.UploadImage)
		r.Get("/api/v1/dashboard", h.GetDashboard)
		r.Get("/api/v1/profile", h.GetProfile)
		r.Post("/api/v1/profile/onboarding", h.CompleteOnboarding)

		r.Route("/api/v1/support/messages", func(r chi.Router) {
			r.Post("/", h.CreateSupportMessage)
			r.Get("/", h.ListOwnSupportMessages)
		})

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(h.accountStore))
			r.Get("/support/messages", h.ListAllSupportMessages)
			r.Patch("/support/messages/{messageId}", h.UpdateSupportMessageStatus)
		})
	})
}
