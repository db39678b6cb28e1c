package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-builder-service/internal/domain"
)

const catalogColumns = `id, user_id, business_id, name, slug, description, active, catalog_whatsapp_fab_display,
		catalog_whatsapp_number, catalog_whatsapp_text, created_at, updated_at`

func scanCatalog(sc scanner) (*domain.Catalog, error) {
	var c domain.Catalog
	err := sc.Scan(
		&c.ID, &c.UserID, &c.BusinessID, &c.Name, &c.Slug, &c.Description, &c.Active, &c.WhatsappFabDisplay,
		&c.WhatsappNumber, &c.WhatsappText, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func mapCatalogWriteError(op string, err error) error {
	if isUniqueViolation(err, "catalogs_slug_key") {
		return ErrCatalogSlugExists
	}
	return fmt.Errorf("store: %s failed: %w", op, err)
}

// checkCatalogRefs verifies the business and every product placed in a
// section belong to the catalog's owner.
func checkCatalogRefs(ctx context.Context, q querier, c *domain.Catalog) error {
	if err := ensureOwned(ctx, q, "businesses", c.BusinessID, c.UserID, ErrBusinessNotFound); err != nil {
		return err
	}
	return ensureProductsOwned(ctx, q, c.SectionProductIDs(), c.UserID)
}

// CreateCatalog inserts the catalog and all its children in one transaction.
func (s *PostgresStore) CreateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	query := `
		INSERT INTO catalogs
			(id, user_id, business_id, name, slug, description, active, catalog_whatsapp_fab_display,
			 catalog_whatsapp_number, catalog_whatsapp_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	var created *domain.Catalog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c := catalog
		if err := checkCatalogRefs(ctx, tx, c); err != nil {
			return err
		}
		id := s.newID()
		if _, err := tx.ExecContext(ctx, query,
			id, c.UserID, c.BusinessID, c.Name, c.Slug, c.Description, c.Active, c.WhatsappFabDisplay,
			c.WhatsappNumber, c.WhatsappText,
		); err != nil {
			return mapCatalogWriteError("CreateCatalog", err)
		}
		if err := s.syncCatalogChildren(ctx, tx, id, c, true); err != nil {
			return err
		}
		var err error
		created, err = s.getCatalog(ctx, tx, id, c.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) syncCatalogChildren(ctx context.Context, q querier, id string, c *domain.Catalog, fresh bool) error {
	if err := syncTable(ctx, s, q, catalogSlidesTable, id, c.Slides, fresh); err != nil {
		return err
	}
	if err := syncSections(ctx, s, q, id, c.Sections, fresh); err != nil {
		return err
	}
	return syncTable(ctx, s, q, catalogContactsTable, id, c.Contacts, fresh)
}

func (s *PostgresStore) GetCatalogByID(ctx context.Context, id, userID string) (*domain.Catalog, error) {
	return s.getCatalog(ctx, s.db, id, userID)
}

func (s *PostgresStore) getCatalog(ctx context.Context, q querier, id, userID string) (*domain.Catalog, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalogs WHERE id = $1 AND user_id = $2;`
	c, err := scanCatalog(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if notFound(err, ErrCatalogNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("store: GetCatalogByID failed to scan row: %w", err)
	}
	if err := loadCatalogChildren(ctx, q, c); err != nil {
		return nil, err
	}
	return c, nil
}

func loadCatalogChildren(ctx context.Context, q querier, c *domain.Catalog) error {
	var err error
	if c.Slides, err = catalogSlidesTable.list(ctx, q, c.ID); err != nil {
		return err
	}
	if c.Sections, err = loadSections(ctx, q, c.ID); err != nil {
		return err
	}
	if c.Contacts, err = catalogContactsTable.list(ctx, q, c.ID); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) ListCatalogs(ctx context.Context, params ListParams) ([]domain.Catalog, int, error) {
	where, args := ownerFilter(params, true)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalogs"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCatalogs failed to count catalogs: %w", err)
	}
	if totalCount == 0 {
		return []domain.Catalog{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM catalogs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		catalogColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCatalogs failed to query catalogs: %w", err)
	}
	defer rows.Close()

	catalogs := make([]domain.Catalog, 0, params.Limit)
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListCatalogs failed to scan catalog row: %w", err)
		}
		catalogs = append(catalogs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCatalogs iteration error: %w", err)
	}
	return catalogs, totalCount, nil
}

// UpdateCatalog overwrites the scalar fields and reconciles slides, sections
// (with their product joins) and contacts in one transaction. The scalar
// UPDATE locks the catalog row, so concurrent edits of the same catalog are
// applied one after the other against fresh child rows.
func (s *PostgresStore) UpdateCatalog(ctx context.Context, catalog *domain.Catalog) (*domain.Catalog, error) {
	query := `
		UPDATE catalogs
		SET business_id = $1, name = $2, slug = $3, description = $4, active = $5,
			catalog_whatsapp_fab_display = $6, catalog_whatsapp_number = $7, catalog_whatsapp_text = $8,
			updated_at = NOW()
		WHERE id = $9 AND user_id = $10;
	`
	var updated *domain.Catalog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c := catalog
		res, err := tx.ExecContext(ctx, query,
			c.BusinessID, c.Name, c.Slug, c.Description, c.Active, c.WhatsappFabDisplay, c.WhatsappNumber,
			c.WhatsappText, c.ID, c.UserID,
		)
		if err != nil {
			if notFound(err, ErrCatalogNotFound) {
				return ErrCatalogNotFound
			}
			return mapCatalogWriteError("UpdateCatalog", err)
		}
		n, err := rowsAffected(res, "UpdateCatalog")
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrCatalogNotFound
		}
		if err := checkCatalogRefs(ctx, tx, c); err != nil {
			return err
		}
		if err := s.syncCatalogChildren(ctx, tx, c.ID, c, false); err != nil {
			return err
		}
		updated, err = s.getCatalog(ctx, tx, c.ID, c.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCatalog removes the catalog; slides, sections, joins and contacts cascade.
func (s *PostgresStore) DeleteCatalog(ctx context.Context, id, userID string) error {
	query := `DELETE FROM catalogs WHERE id = $1 AND user_id = $2;`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if pqCode(err) == pqInvalidTextRepr {
			return ErrCatalogNotFound
		}
		return fmt.Errorf("store: DeleteCatalog failed to execute delete: %w", err)
	}
	n, err := rowsAffected(result, "DeleteCatalog")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCatalogNotFound
	}
	return nil
}

// GetPublicCatalog loads an active catalog by slug with its business and the
// products its sections reference. No owner scope applies.
func (s *PostgresStore) GetPublicCatalog(ctx context.Context, slug string) (*domain.PublicCatalog, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalogs WHERE slug = $1 AND active = TRUE;`
	c, err := scanCatalog(s.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if notFound(err, ErrCatalogNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("store: GetPublicCatalog failed to scan row: %w", err)
	}
	if err := loadCatalogChildren(ctx, s.db, c); err != nil {
		return nil, err
	}
	business, err := s.getBusiness(ctx, s.db, c.BusinessID, c.UserID)
	if err != nil {
		return nil, err
	}
	products, err := productsByIDs(ctx, s.db, c.SectionProductIDs())
	if err != nil {
		return nil, err
	}
	return &domain.PublicCatalog{Catalog: *c, Business: *business, Products: products}, nil
}
