package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"catalog-builder-service/internal/domain"
)

const productColumns = `id, user_id, business_id, name, slug, description, base_price, currency, is_on_sale,
		sale_label, active, created_at, updated_at`

func scanProduct(sc scanner) (*domain.Product, error) {
	var p domain.Product
	err := sc.Scan(
		&p.ID, &p.UserID, &p.BusinessID, &p.Name, &p.Slug, &p.Description, &p.BasePrice, &p.Currency,
		&p.IsOnSale, &p.SaleLabel, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func mapProductWriteError(op string, err error) error {
	if isUniqueViolation(err, "products_user_id_slug_key") {
		return ErrProductSlugExists
	}
	return fmt.Errorf("store: %s failed: %w", op, err)
}

// CreateProduct inserts the product with its images and price tiers. The
// referenced business must belong to the same user.
func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products
			(id, user_id, business_id, name, slug, description, base_price, currency, is_on_sale, sale_label, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	var created *domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p := product
		if err := ensureOwned(ctx, tx, "businesses", p.BusinessID, p.UserID, ErrBusinessNotFound); err != nil {
			return err
		}
		id := s.newID()
		if _, err := tx.ExecContext(ctx, query,
			id, p.UserID, p.BusinessID, p.Name, p.Slug, p.Description, p.BasePrice, p.Currency,
			p.IsOnSale, p.SaleLabel, p.Active,
		); err != nil {
			return mapProductWriteError("CreateProduct", err)
		}
		if err := syncTable(ctx, s, tx, productImagesTable, id, p.Images, true); err != nil {
			return err
		}
		if err := syncTable(ctx, s, tx, productPricesTable, id, p.Prices, true); err != nil {
			return err
		}
		var err error
		created, err = s.getProduct(ctx, tx, id, p.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id, userID string) (*domain.Product, error) {
	return s.getProduct(ctx, s.db, id, userID)
}

func (s *PostgresStore) getProduct(ctx context.Context, q querier, id, userID string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND user_id = $2;`
	p, err := scanProduct(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if notFound(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	if p.Images, err = productImagesTable.list(ctx, q, p.ID); err != nil {
		return nil, err
	}
	if p.Prices, err = productPricesTable.list(ctx, q, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListParams) ([]domain.Product, int, error) {
	where, args := ownerFilter(params, true)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		productColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	products, err := collectProducts(rows, params.Limit)
	if err != nil {
		return nil, 0, err
	}
	return products, totalCount, nil
}

func collectProducts(rows *sql.Rows, capacity int) ([]domain.Product, error) {
	defer rows.Close()
	products := make([]domain.Product, 0, capacity)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: product iteration error: %w", err)
	}
	return products, nil
}

// UpdateProduct overwrites the scalar fields and reconciles images and price
// tiers in one transaction.
func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE products
		SET business_id = $1, name = $2, slug = $3, description = $4, base_price = $5, currency = $6,
			is_on_sale = $7, sale_label = $8, active = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11;
	`
	var updated *domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p := product
		if err := ensureOwned(ctx, tx, "businesses", p.BusinessID, p.UserID, ErrBusinessNotFound); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query,
			p.BusinessID, p.Name, p.Slug, p.Description, p.BasePrice, p.Currency, p.IsOnSale, p.SaleLabel,
			p.Active, p.ID, p.UserID,
		)
		if err != nil {
			if notFound(err, ErrProductNotFound) {
				return ErrProductNotFound
			}
			return mapProductWriteError("UpdateProduct", err)
		}
		n, err := rowsAffected(res, "UpdateProduct")
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrProductNotFound
		}
		if err := syncTable(ctx, s, tx, productImagesTable, p.ID, p.Images, false); err != nil {
			return err
		}
		if err := syncTable(ctx, s, tx, productPricesTable, p.ID, p.Prices, false); err != nil {
			return err
		}
		updated, err = s.getProduct(ctx, tx, p.ID, p.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes the product; its images, prices and section
// placements cascade.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id, userID string) error {
	query := `DELETE FROM products WHERE id = $1 AND user_id = $2;`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if pqCode(err) == pqInvalidTextRepr {
			return ErrProductNotFound
		}
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	n, err := rowsAffected(result, "DeleteProduct")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ensureProductsOwned fails with ErrProductNotFound unless every id names a
// product of userID.
func ensureProductsOwned(ctx context.Context, q querier, ids []string, userID string) error {
	if len(ids) == 0 {
		return nil
	}
	var count int
	query := `SELECT COUNT(*) FROM products WHERE id = ANY($1) AND user_id = $2;`
	if err := q.QueryRowContext(ctx, query, pq.Array(ids), userID).Scan(&count); err != nil {
		if pqCode(err) == pqInvalidTextRepr {
			return ErrProductNotFound
		}
		return fmt.Errorf("store: failed to check product ownership: %w", err)
	}
	if count != len(ids) {
		return ErrProductNotFound
	}
	return nil
}

// productsByIDs loads products with images and prices, keyed by id.
func productsByIDs(ctx context.Context, q querier, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1);`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("store: failed to query products by id: %w", err)
	}
	products, err := collectProducts(rows, len(ids))
	if err != nil {
		return nil, err
	}

	images, err := productImagesTable.listIn(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	prices, err := productPricesTable.listIn(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	imagesBy := map[string][]domain.ProductImage{}
	for _, img := range images {
		imagesBy[img.ProductID] = append(imagesBy[img.ProductID], img)
	}
	pricesBy := map[string][]domain.ProductPrice{}
	for _, pr := range prices {
		pricesBy[pr.ProductID] = append(pricesBy[pr.ProductID], pr)
	}
	for _, p := range products {
		p.Images = imagesBy[p.ID]
		p.Prices = pricesBy[p.ID]
		out[p.ID] = p
	}
	return out, nil
}
