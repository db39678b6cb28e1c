package store

import (
	"context"

	"catalog-builder-service/internal/domain"
)

// ListParams holds the owner scope and pagination for list queries.
type ListParams struct {
	UserID     string
	Limit      int
	Offset     int
	BusinessID *string // products and catalogs only
	Active     *bool
}

// BusinessStorer defines the database operations for businesses.
// Every by-id method is scoped to the owning user; a row owned by someone
// else is reported exactly like a missing one.
type BusinessStorer interface {
	CreateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error)
	GetBusinessByID(ctx context.Context, id, userID string) (*domain.Business, error)
	ListBusinesses(ctx context.Context, params ListParams) ([]domain.Business, int, error) // Returns businesses and total count for pagination
	UpdateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error)
	DeleteBusiness(ctx context.Context, id, userID string) error
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id, userID string) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListParams) ([]domain.Product, int, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id, userID string) error
}

// CatalogStorer defines the database operations for catalogs.
type CatalogStorer interface {
	CreateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error)
	GetCatalogByID(ctx context.Context, id, userID string) (*domain.Catalog, error)
	ListCatalogs(ctx context.Context, params ListParams) ([]domain.Catalog, int, error)
	UpdateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error)
	DeleteCatalog(ctx context.Context, id, userID string) error
	GetPublicCatalog(ctx context.Context, slug string) (*domain.PublicCatalog, error)
}

// ListSupportParams scopes support message listings. A nil UserID lists every message.
type ListSupportParams struct {
	UserID *string
	Status *domain.SupportStatus
	Limit  int
	Offset int
}

// AccountStorer covers profiles, support messages and dashboard stats.
type AccountStorer interface {
	GetProfile(ctx context.Context, userID, email string) (*domain.UserProfile, error)
	CompleteOnboarding(ctx context.Context, userID string, fullName *string) (*domain.UserProfile, error)
	CreateSupportMessage(ctx context.Context, msg *domain.SupportMessage) (*domain.SupportMessage, error)
	ListSupportMessages(ctx context.Context, params ListSupportParams) ([]domain.SupportMessage, int, error)
	UpdateSupportMessageStatus(ctx context.Context, id string, status domain.SupportStatus) (*domain.SupportMessage, error)
	GetDashboardStats(ctx context.Context, userID string) (*domain.DashboardStats, error)
}
