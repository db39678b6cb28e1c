package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/store"
	"catalog-builder-service/internal/storefront"
)

func samplePage() *storefront.Page {
	return &storefront.Page{
		Catalog:     storefront.CatalogHeader{ID: testCatalogID, Name: "Summer", Slug: "summer"},
		Business:    storefront.BusinessCard{Name: "Shop", Slug: "shop", SocialLinks: []storefront.SocialLink{}},
		Slides:      []storefront.Slide{},
		NavSections: []storefront.NavSection{{ID: "sec-1", Title: "Drinks"}},
		Sections:    []storefront.Section{{ID: "sec-1", Title: "Drinks", Products: []storefront.ProductCard{}}},
		Contacts:    []storefront.Contact{},
		Meta:        storefront.Meta{Title: "Summer | Shop", URL: "http://localhost:8080/c/summer"},
	}
}

func TestHTTPHandler_CreateCatalog_Success(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.catalogs.On("CreateCatalog", mock.Anything, mock.MatchedBy(func(c *domain.Catalog) bool {
		if c.UserID != testUserID || c.Slug != "summer-menu" || !c.Active || !c.WhatsappFabDisplay {
			return false
		}
		if len(c.Sections) != 1 || len(c.Sections[0].Products) != 1 || c.Sections[0].Products[0].ProductID != testProductID {
			return false
		}
		return len(c.Contacts) == 1 && c.Contacts[0].Type == domain.ContactOther && c.Slides == nil
	})).Return(&domain.Catalog{ID: testCatalogID, Slug: "summer-menu"}, nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{
		"business_id":                  testBusinessID,
		"name":                         "Summer Menu",
		"catalog_whatsapp_fab_display": true,
		"catalog_whatsapp_number":      "+7 701 123 45 67",
		"catalog_sections": []map[string]any{
			{
				"title": "Drinks",
				"catalog_section_products": []map[string]any{
					{"product_id": testProductID},
				},
			},
		},
		"catalog_contacts": []map[string]any{{"value": "Abay 10"}},
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, []string{"/catalog", "/catalog/" + testCatalogID, "/c/summer-menu"}, env.cache.paths())
	env.catalogs.AssertExpectations(t)
}

func TestHTTPHandler_CreateCatalog_FabNeedsNumber(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	res := env.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{
		"business_id":                  testBusinessID,
		"name":                         "Summer",
		"catalog_whatsapp_fab_display": true,
		"catalog_whatsapp_number":      "  ",
	})

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.Contains(t, body.Details, "catalog_whatsapp_number")
	env.catalogs.AssertNotCalled(t, "CreateCatalog", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateCatalog_InvalidNestedRows(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	res := env.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{
		"business_id": testBusinessID,
		"name":        "Summer",
		"catalog_sections": []map[string]any{
			{"title": "Drinks", "catalog_section_products": []map[string]any{{"product_id": "latte"}}},
		},
		"catalog_contacts": []map[string]any{{"type": "fax", "value": "123"}},
	})

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.Equal(t, "uuid", body.Details["catalog_sections[0].catalog_section_products[0].product_id"])
	assert.Contains(t, body.Details["catalog_contacts[0].type"], "oneof")
}

func TestHTTPHandler_UpdateCatalog_InvalidatesOldAndNewSlug(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	existing := &domain.Catalog{
		ID: testCatalogID, UserID: testUserID, BusinessID: testBusinessID,
		Name: "Summer", Slug: "summer", Active: true, WhatsappFabDisplay: false,
	}
	env.catalogs.On("GetCatalogByID", mock.Anything, testCatalogID, testUserID).Return(existing, nil).Once()
	env.catalogs.On("UpdateCatalog", mock.Anything, mock.MatchedBy(func(c *domain.Catalog) bool {
		return c.ID == testCatalogID && c.Slug == "summer-2025" && c.Active && !c.WhatsappFabDisplay &&
			c.Slides != nil && len(c.Slides) == 0 &&
			c.Contacts == nil &&
			len(c.Sections) == 1 && c.Sections[0].ID == "sec-1" && c.Sections[0].Products == nil
	})).Return(&domain.Catalog{ID: testCatalogID, Slug: "summer-2025"}, nil).Once()

	res := env.do(t, http.MethodPut, "/api/v1/catalogs/"+testCatalogID, map[string]any{
		"business_id":      testBusinessID,
		"name":             "Summer",
		"slug":             "summer-2025",
		"catalog_slides":   []any{},
		"catalog_sections": []map[string]any{{"id": "sec-1", "title": "Drinks"}},
	})

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t,
		[]string{"/catalog", "/catalog/" + testCatalogID, "/c/summer", "/c/summer-2025"},
		env.cache.paths())
	env.catalogs.AssertExpectations(t)
}

func TestHTTPHandler_UpdateCatalog_ReconcileFailure(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	existing := &domain.Catalog{ID: testCatalogID, UserID: testUserID, Slug: "summer"}
	env.catalogs.On("GetCatalogByID", mock.Anything, testCatalogID, testUserID).Return(existing, nil).Once()
	env.catalogs.On("UpdateCatalog", mock.Anything, mock.Anything).Return(nil, store.ErrProductNotFound).Once()

	res := env.do(t, http.MethodPut, "/api/v1/catalogs/"+testCatalogID, map[string]any{
		"business_id": testBusinessID, "name": "Summer",
	})

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Empty(t, env.cache.paths())
}

func TestHTTPHandler_DeleteCatalog(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.catalogs.On("GetCatalogByID", mock.Anything, testCatalogID, testUserID).
		Return(&domain.Catalog{ID: testCatalogID, Slug: "summer"}, nil).Once()
	env.catalogs.On("DeleteCatalog", mock.Anything, testCatalogID, testUserID).Return(nil).Once()

	res := env.do(t, http.MethodDelete, "/api/v1/catalogs/"+testCatalogID, nil)

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, []string{"/catalog", "/catalog/" + testCatalogID, "/c/summer"}, env.cache.paths())
	env.catalogs.AssertExpectations(t)
}

func TestHTTPHandler_ListCatalogs(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	env.catalogs.On("ListCatalogs", mock.Anything, store.ListParams{UserID: testUserID, Limit: 10, Offset: 20}).
		Return([]domain.Catalog{{ID: testCatalogID}}, 21, nil).Once()

	res := env.do(t, http.MethodGet, "/api/v1/catalogs?page=3", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[PaginatedResponse[domain.Catalog]](t, res)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	env.catalogs.AssertExpectations(t)
}

func TestHTTPHandler_GetPublicCatalog(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	t.Run("Served without authentication", func(t *testing.T) {
		env.pages.On("Page", mock.Anything, "summer").Return(samplePage(), nil).Once()
		res := env.doAs(t, http.MethodGet, "/c/summer", nil, "")
		require.Equal(t, http.StatusOK, res.StatusCode)
		body := decodeBody[map[string]any](t, res)
		assert.Equal(t, "Summer", body["catalog"].(map[string]any)["name"])
	})

	t.Run("Inactive or missing", func(t *testing.T) {
		env.pages.On("Page", mock.Anything, "winter").Return(nil, store.ErrCatalogNotFound).Once()
		res := env.doAs(t, http.MethodGet, "/c/winter", nil, "")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("Malformed slug", func(t *testing.T) {
		res := env.doAs(t, http.MethodGet, "/c/Not_A_Slug", nil, "")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	env.pages.AssertExpectations(t)
	env.pages.AssertNumberOfCalls(t, "Page", 2)
}

func TestHTTPHandler_UpdateCatalog_BlankValuesAreDroppedOrCleared(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})
	existing := &domain.Catalog{
		ID: testCatalogID, UserID: testUserID, BusinessID: testBusinessID, Name: "Summer", Slug: "summer", Active: true,
	}
	env.catalogs.On("GetCatalogByID", mock.Anything, testCatalogID, testUserID).Return(existing, nil).Once()
	env.catalogs.On("UpdateCatalog", mock.Anything, mock.MatchedBy(func(c *domain.Catalog) bool {
		return c.Slug == "summer" && c.Description == nil &&
			len(c.Slides) == 2 && !c.Slides[0].Valid() &&
			c.Slides[1].Image == "https://img/a.png" && c.Slides[1].LinkURL == nil &&
			len(c.Sections) == 1 && !c.Sections[0].Valid()
	})).Return(&domain.Catalog{ID: testCatalogID, Slug: "summer"}, nil).Once()

	res := env.do(t, http.MethodPut, "/api/v1/catalogs/"+testCatalogID, map[string]any{
		"business_id": testBusinessID,
		"name":        "Summer",
		"slug":        "",
		"description": "",
		"catalog_slides": []map[string]any{
			{"image": "   "},
			{"image": " https://img/a.png ", "link_url": ""},
		},
		"catalog_sections": []map[string]any{{"title": "  "}},
	})

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"/catalog", "/catalog/" + testCatalogID, "/c/summer"}, env.cache.paths())
	env.catalogs.AssertExpectations(t)
}

func TestHTTPHandler_CreateCatalog_WhitespaceNameRejected(t *testing.T) {
	env := setupTestChiServer(t, nil, blob.Policy{})

	res := env.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{
		"business_id": testBusinessID,
		"name":        "   ",
		"slug":        "x",
	})

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody[ErrorResponse](t, res)
	assert.Equal(t, "required", body.Details["name"])
	env.catalogs.AssertNotCalled(t, "CreateCatalog", mock.Anything, mock.Anything)
}
