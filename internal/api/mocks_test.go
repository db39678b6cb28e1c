package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-builder-service/internal/auth"
	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
	"catalog-builder-service/internal/storefront"
)

const (
	testUserID     = "6f1c2b9e-4d3a-4f8e-9a51-2c7d8e9f0a1b"
	testBusinessID = "0b6f3c1e-2a4d-4e5f-8a9b-1c2d3e4f5a6b"
	testProductID  = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	testCatalogID  = "3c4d5e6f-7a8b-4c9d-8e0f-1a2b3c4d5e6f"
	testMessageID  = "7d8e9f0a-1b2c-4d3e-9f4a-5b6c7d8e9f0a"
)

// MockBusinessStorer is a mock implementation of store.BusinessStorer
type MockBusinessStorer struct {
	mock.Mock
}

func (m *MockBusinessStorer) CreateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error) {
	args := m.Called(ctx, business)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Business), args.Error(1)
}

func (m *MockBusinessStorer) GetBusinessByID(ctx context.Context, id, userID string) (*domain.Business, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Business), args.Error(1)
}

func (m *MockBusinessStorer) ListBusinesses(ctx context.Context, params store.ListParams) ([]domain.Business, int, error) {
	args := m.Called(ctx, params)
	var businesses []domain.Business
	if arg0 := args.Get(0); arg0 != nil {
		businesses = arg0.([]domain.Business)
	}
	return businesses, args.Int(1), args.Error(2)
}

func (m *MockBusinessStorer) UpdateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error) {
	args := m.Called(ctx, business)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Business), args.Error(1)
}

func (m *MockBusinessStorer) DeleteBusiness(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, id, userID string) (*domain.Product, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) ListProducts(ctx context.Context, params store.ListParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) DeleteProduct(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

// MockCatalogStorer is a mock implementation of store.CatalogStorer
type MockCatalogStorer struct {
	mock.Mock
}

func (m *MockCatalogStorer) CreateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	args := m.Called(ctx, catalog)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalog), args.Error(1)
}

func (m *MockCatalogStorer) GetCatalogByID(ctx context.Context, id, userID string) (*domain.Catalog, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalog), args.Error(1)
}

func (m *MockCatalogStorer) ListCatalogs(ctx context.Context, params store.ListParams) ([]domain.Catalog, int, error) {
	args := m.Called(ctx, params)
	var catalogs []domain.Catalog
	if arg0 := args.Get(0); arg0 != nil {
		catalogs = arg0.([]domain.Catalog)
	}
	return catalogs, args.Int(1), args.Error(2)
}

func (m *MockCatalogStorer) UpdateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	args := m.Called(ctx, catalog)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalog), args.Error(1)
}

func (m *MockCatalogStorer) DeleteCatalog(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockCatalogStorer) GetPublicCatalog(ctx context.Context, slug string) (*domain.PublicCatalog, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublicCatalog), args.Error(1)
}

// MockAccountStorer is a mock implementation of store.AccountStorer
type MockAccountStorer struct {
	mock.Mock
}

func (m *MockAccountStorer) GetProfile(ctx context.Context, userID, email string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockAccountStorer) CompleteOnboarding(ctx context.Context, userID string, fullName *string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, fullName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockAccountStorer) CreateSupportMessage(ctx context.Context, msg *domain.SupportMessage) (*domain.SupportMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportMessage), args.Error(1)
}

func (m *MockAccountStorer) ListSupportMessages(ctx context.Context, params store.ListSupportParams) ([]domain.SupportMessage, int, error) {
	args := m.Called(ctx, params)
	var messages []domain.SupportMessage
	if arg0 := args.Get(0); arg0 != nil {
		messages = arg0.([]domain.SupportMessage)
	}
	return messages, args.Int(1), args.Error(2)
}

func (m *MockAccountStorer) UpdateSupportMessageStatus(ctx context.Context, id string, status domain.SupportStatus) (*domain.SupportMessage, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportMessage), args.Error(1)
}

func (m *MockAccountStorer) GetDashboardStats(ctx context.Context, userID string) (*domain.DashboardStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) Page(ctx context.Context, slug string) (*storefront.Page, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.Page), args.Error(1)
}

// recordingCache remembers every invalidated path.
type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) GetJSON(context.Context, string, any) (bool, error) {
	return false, nil
}

func (c *recordingCache) SetJSON(context.Context, string, any, time.Duration) error {
	return nil
}

func (c *recordingCache) Ping(context.Context) error { return nil }

func (c *recordingCache) Close() error { return nil }

func (c *recordingCache) Invalidate(_ context.Context, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, paths...)
	return nil
}

func (c *recordingCache) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

type testEnv struct {
	server     *httptest.Server
	verifier   *auth.Verifier
	businesses *MockBusinessStorer
	products   *MockProductStorer
	catalogs   *MockCatalogStorer
	accounts   *MockAccountStorer
	pages      *MockPageRenderer
	cache      *recordingCache
}

// Helper for setting up tests with a chi router and handler. blobs may be nil.
func setupTestChiServer(t *testing.T, blobs blob.Store, policy blob.Policy) *testEnv {
	t.Helper()
	verifier, err := auth.NewVerifier("test-secret", "")
	require.NoError(t, err)

	env := &testEnv{
		verifier:   verifier,
		businesses: new(MockBusinessStorer),
		products:   new(MockProductStorer),
		catalogs:   new(MockCatalogStorer),
		accounts:   new(MockAccountStorer),
		pages:      new(MockPageRenderer),
		cache:      &recordingCache{},
	}
	handler := NewHTTPHandler(Deps{
		Businesses:   env.businesses,
		Products:     env.products,
		Catalogs:     env.catalogs,
		Accounts:     env.accounts,
		Pages:        env.pages,
		Cache:        env.cache,
		Blobs:        blobs,
		UploadPolicy: policy,
		Authenticate: verifier.Middleware,
	})
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, err := e.verifier.Issue(auth.User{ID: testUserID, Email: "owner@example.com"}, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends an authenticated JSON request. A nil body sends no body.
func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	return e.doAs(t, method, path, body, e.token(t))
}

func (e *testEnv) doAs(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}
