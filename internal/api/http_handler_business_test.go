package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
)

func TestHTTPHandler_CreateBusiness_Success(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	now := time.Now().Truncate(time.Millisecond)
	created := &domain.Business{
		ID: testBusinessID, UserID: testUserID, Name: "Café Aroma", Slug: "cafe-aroma", Active: true,
		City: PtrTo("Almaty"), CreatedAt: now, UpdatedAt: now,
	}
	env.businesses.On("CreateBusiness", mock.Anything, mock.MatchedBy(func(b *domain.Business) bool {
		return b.ID == "" && b.UserID == testUserID &&
			b.Name == "Café Aroma" && b.Slug == "cafe-aroma" && b.Active &&
			b.City != nil && *b.City == "Almaty" && b.Description == nil &&
			len(b.SocialLinks) == 2 &&
			b.SocialLinks[0].Platform == domain.PlatformInstagram && b.SocialLinks[0].Active &&
			b.SocialLinks[1].Platform == domain.PlatformOther && !b.SocialLinks[1].Active
	})).Return(created, nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/businesses", map[string]any{
		"name":        "  Café Aroma ",
		"city":        "Almaty",
		"description": "   ",
		"social_links": []map[string]any{
			{"platform": "instagram", "url": "https://instagram.com/aroma", "sort_order": 0},
			{"url": "https://aroma.kz/links", "sort_order": 1, "active": false},
		},
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	got := decodeBody[domain.Business](t, res)
	assert.Equal(t, testBusinessID, got.ID)
	assert.Equal(t, "cafe-aroma", got.Slug)
	assert.WithinDuration(t, now, got.CreatedAt, time.Second)
	assert.Equal(t, []string{"/business", "/business/" + testBusinessID}, env.cache.paths())
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_CreateBusiness_Validation(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	res := env.do(t, http.MethodPost, "/api/v1/businesses", map[string]any{
		"name":  "",
		"email": "not-an-email",
		"social_links": []map[string]any{
			{"platform": "myspace", "url": "https://myspace.com/x"},
		},
	})

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, "required", body.Details["name"])
	assert.Equal(t, "email", body.Details["email"])
	assert.Contains(t, body.Details["social_links[0].platform"], "oneof")
	env.businesses.AssertNotCalled(t, "CreateBusiness", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateBusiness_RejectsBadPayloads(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown field", map[string]any{"name": "Shop", "owner": "someone"}},
		{"unslugged slug", map[string]any{"name": "Shop", "slug": "My Shop"}},
		{"name without slug characters", map[string]any{"name": "!!!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.do(t, http.MethodPost, "/api/v1/businesses", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
	env.businesses.AssertNotCalled(t, "CreateBusiness", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateBusiness_SlugConflict(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.businesses.On("CreateBusiness", mock.Anything, mock.Anything).Return(nil, store.ErrBusinessSlugExists).Once()

	res := env.do(t, http.MethodPost, "/api/v1/businesses", map[string]any{"name": "Shop", "slug": "shop"})

	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Empty(t, env.cache.paths(), "failed writes do not invalidate")
}

func TestHTTPHandler_RequiresAuthentication(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	for _, token := range []string{"", "garbage"} {
		res := env.doAs(t, http.MethodGet, "/api/v1/businesses", nil, token)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	}
	env.businesses.AssertNotCalled(t, "ListBusinesses", mock.Anything, mock.Anything)
}

func TestHTTPHandler_UpdateBusiness_KeepsOmittedFields(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	existing := &domain.Business{ID: testBusinessID, UserID: testUserID, Name: "Shop", Slug: "original-shop", Active: false}
	env.businesses.On("GetBusinessByID", mock.Anything, testBusinessID, testUserID).Return(existing, nil).Once()
	env.businesses.On("UpdateBusiness", mock.Anything, mock.MatchedBy(func(b *domain.Business) bool {
		return b.ID == testBusinessID && b.UserID == testUserID &&
			b.Name == "Renamed Shop" && b.Slug == "original-shop" && !b.Active &&
			b.SocialLinks == nil
	})).Return(&domain.Business{ID: testBusinessID, Name: "Renamed Shop", Slug: "original-shop"}, nil).Once()

	res := env.do(t, http.MethodPut, "/api/v1/businesses/"+testBusinessID, map[string]any{"name": "Renamed Shop"})

	require.Equal(t, http.StatusOK, res.StatusCode)
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_UpdateBusiness_EmptyLinksClearCollection(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	existing := &domain.Business{ID: testBusinessID, UserID: testUserID, Name: "Shop", Slug: "shop", Active: true}
	env.businesses.On("GetBusinessByID", mock.Anything, testBusinessID, testUserID).Return(existing, nil).Once()
	env.businesses.On("UpdateBusiness", mock.Anything, mock.MatchedBy(func(b *domain.Business) bool {
		return b.SocialLinks != nil && len(b.SocialLinks) == 0 && b.Slug == "new-shop"
	})).Return(existing, nil).Once()

	res := env.do(t, http.MethodPut, "/api/v1/businesses/"+testBusinessID, map[string]any{
		"name": "Shop", "slug": "new-shop", "social_links": []any{},
	})

	require.Equal(t, http.StatusOK, res.StatusCode)
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_UpdateBusiness_NotOwned(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.businesses.On("GetBusinessByID", mock.Anything, testBusinessID, testUserID).Return(nil, store.ErrBusinessNotFound).Once()

	res := env.do(t, http.MethodPut, "/api/v1/businesses/"+testBusinessID, map[string]any{"name": "Mine now"})

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	env.businesses.AssertNotCalled(t, "UpdateBusiness", mock.Anything, mock.Anything)
}

func TestHTTPHandler_GetBusinessByID(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	t.Run("Invalid ID", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/api/v1/businesses/42", nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Not found", func(t *testing.T) {
		env.businesses.On("GetBusinessByID", mock.Anything, testBusinessID, testUserID).Return(nil, store.ErrBusinessNotFound).Once()
		res := env.do(t, http.MethodGet, "/api/v1/businesses/"+testBusinessID, nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("Store failure", func(t *testing.T) {
		env.businesses.On("GetBusinessByID", mock.Anything, testBusinessID, testUserID).Return(nil, assert.AnError).Once()
		res := env.do(t, http.MethodGet, "/api/v1/businesses/"+testBusinessID, nil)
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		body := decodeBody[ErrorResponse](t, res)
		assert.Equal(t, "Failed to retrieve business", body.Error, "internal errors are not leaked")
	})
}

func TestHTTPHandler_ListBusinesses_Pagination(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	active := true
	env.businesses.On("ListBusinesses", mock.Anything, store.ListParams{
		UserID: testUserID, Limit: 5, Offset: 5, Active: &active,
	}).Return([]domain.Business{{ID: testBusinessID, Name: "Shop"}}, 11, nil).Once()

	res := env.do(t, http.MethodGet, "/api/v1/businesses?page=2&limit=5&active=true", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[PaginatedResponse[domain.Business]](t, res)
	require.Len(t, body.Data, 1)
	assert.Equal(t, PaginationInfo{Page: 2, Limit: 5, TotalItems: 11, TotalPages: 3}, body.Pagination)
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_ListBusinesses_EmptyAndBadFilter(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.businesses.On("ListBusinesses", mock.Anything, store.ListParams{UserID: testUserID, Limit: 100, Offset: 0}).
		Return(nil, 0, nil).Once()

	res := env.do(t, http.MethodGet, "/api/v1/businesses?limit=1000", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[map[string]any](t, res)
	assert.Equal(t, []any{}, body["data"])

	res = env.do(t, http.MethodGet, "/api/v1/businesses?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_DeleteBusiness(t *testing.T) {
	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
		invalidate bool
	}{
		{"Success", nil, http.StatusNoContent, true},
		{"Has dependents", store.ErrBusinessHasDependents, http.StatusConflict, false},
		{"Not owned", store.ErrBusinessNotFound, http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestChiServer(t, nil, blob.Policy{})
			env.businesses.On("DeleteBusiness", mock.Anything, testBusinessID, testUserID).Return(tt.storeErr).Once()

			res := env.do(t, http.MethodDelete, "/api/v1/businesses/"+testBusinessID, nil)

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.invalidate {
				assert.Equal(t, []string{"/business", "/business/" + testBusinessID}, env.cache.paths())
			} else {
				assert.Empty(t, env.cache.paths())
			}
			env.businesses.AssertExpectations(t)
		})
	}
}

func TestHTTPHandler_CreateBusiness_BlankValuesAreDroppedOrCleared(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.businesses.On("CreateBusiness", mock.Anything, mock.MatchedBy(func(b *domain.Business) bool {
		return b.Name == "Bakery" && b.Slug == "bakery" &&
			b.Email == nil && b.WebsiteURL == nil &&
			len(b.SocialLinks) == 1 && !b.SocialLinks[0].Valid()
	})).Return(&domain.Business{ID: testBusinessID, Name: "Bakery", Slug: "bakery"}, nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/businesses", map[string]any{
		"name":         "Bakery",
		"slug":         "",
		"email":        "",
		"website_url":  " ",
		"social_links": []map[string]any{{"url": "  "}},
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	env.businesses.AssertExpectations(t)
}

func TestHTTPHandler_CreateBusiness_WhitespaceNameRejected(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	res := env.do(t, http.MethodPost, "/api/v1/businesses", map[string]any{"name": " \t "})

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.Equal(t, "required", body.Details["name"])
	env.businesses.AssertNotCalled(t, "CreateBusiness", mock.Anything, mock.Anything)
}
