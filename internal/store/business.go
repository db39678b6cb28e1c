package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-builder-service/internal/domain"
)

const businessColumns = `id, user_id, name, slug, description, phone, whatsapp_phone, email, address, city, country,
		website_url, active, avatar, avatar_caption, cover, cover_caption, created_at, updated_at`

func scanBusiness(sc scanner) (*domain.Business, error) {
	var b domain.Business
	err := sc.Scan(
		&b.ID, &b.UserID, &b.Name, &b.Slug, &b.Description, &b.Phone, &b.WhatsappPhone, &b.Email,
		&b.Address, &b.City, &b.Country, &b.WebsiteURL, &b.Active, &b.Avatar, &b.AvatarCaption,
		&b.Cover, &b.CoverCaption, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func mapBusinessWriteError(op string, err error) error {
	if isUniqueViolation(err, "businesses_user_id_slug_key") {
		return ErrBusinessSlugExists
	}
	return fmt.Errorf("store: %s failed: %w", op, err)
}

func (s *PostgresStore) CreateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error) {
	query := `
		INSERT INTO businesses
			(id, user_id, name, slug, description, phone, whatsapp_phone, email, address, city, country,
			 website_url, active, avatar, avatar_caption, cover, cover_caption)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	var created *domain.Business
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id := s.newID()
		b := business
		if _, err := tx.ExecContext(ctx, query,
			id, b.UserID, b.Name, b.Slug, b.Description, b.Phone, b.WhatsappPhone, b.Email, b.Address,
			b.City, b.Country, b.WebsiteURL, b.Active, b.Avatar, b.AvatarCaption, b.Cover, b.CoverCaption,
		); err != nil {
			return mapBusinessWriteError("CreateBusiness", err)
		}
		if err := syncTable(ctx, s, tx, socialLinksTable, id, b.SocialLinks, true); err != nil {
			return err
		}
		var err error
		created, err = s.getBusiness(ctx, tx, id, b.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) GetBusinessByID(ctx context.Context, id, userID string) (*domain.Business, error) {
	return s.getBusiness(ctx, s.db, id, userID)
}

func (s *PostgresStore) getBusiness(ctx context.Context, q querier, id, userID string) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1 AND user_id = $2;`
	b, err := scanBusiness(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if notFound(err, ErrBusinessNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("store: GetBusinessByID failed to scan row: %w", err)
	}
	if b.SocialLinks, err = socialLinksTable.list(ctx, q, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, params ListParams) ([]domain.Business, int, error) {
	where, args := ownerFilter(params, false)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM businesses"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListBusinesses failed to count businesses: %w", err)
	}
	if totalCount == 0 {
		return []domain.Business{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM businesses%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		businessColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListBusinesses failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]domain.Business, 0, params.Limit)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListBusinesses failed to scan business row: %w", err)
		}
		businesses = append(businesses, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListBusinesses iteration error: %w", err)
	}
	return businesses, totalCount, nil
}

// UpdateBusiness overwrites the scalar fields and reconciles the social links
// in one transaction.
func (s *PostgresStore) UpdateBusiness(ctx context.Context, business *domain.Business) (*domain.Business, error) {
	query := `
		UPDATE businesses
		SET name = $1, slug = $2, description = $3, phone = $4, whatsapp_phone = $5, email = $6, address = $7,
			city = $8, country = $9, website_url = $10, active = $11, avatar = $12, avatar_caption = $13,
			cover = $14, cover_caption = $15, updated_at = NOW()
		WHERE id = $16 AND user_id = $17;
	`
	var updated *domain.Business
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b := business
		res, err := tx.ExecContext(ctx, query,
			b.Name, b.Slug, b.Description, b.Phone, b.WhatsappPhone, b.Email, b.Address, b.City, b.Country,
			b.WebsiteURL, b.Active, b.Avatar, b.AvatarCaption, b.Cover, b.CoverCaption, b.ID, b.UserID,
		)
		if err != nil {
			if notFound(err, ErrBusinessNotFound) {
				return ErrBusinessNotFound
			}
			return mapBusinessWriteError("UpdateBusiness", err)
		}
		n, err := rowsAffected(res, "UpdateBusiness")
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrBusinessNotFound
		}
		if err := syncTable(ctx, s, tx, socialLinksTable, b.ID, b.SocialLinks, false); err != nil {
			return err
		}
		updated, err = s.getBusiness(ctx, tx, b.ID, b.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBusiness removes the business and its social links. Products and
// catalogs are not cascaded: a business that still has them is rejected.
func (s *PostgresStore) DeleteBusiness(ctx context.Context, id, userID string) error {
	query := `DELETE FROM businesses WHERE id = $1 AND user_id = $2;`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		switch pqCode(err) {
		case pqForeignKeyViolation:
			return ErrBusinessHasDependents
		case pqInvalidTextRepr:
			return ErrBusinessNotFound
		}
		return fmt.Errorf("store: DeleteBusiness failed to execute delete: %w", err)
	}
	n, err := rowsAffected(result, "DeleteBusiness")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// ownerFilter builds the WHERE clause shared by the list queries.
func ownerFilter(params ListParams, withBusiness bool) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{params.UserID}
	if withBusiness && params.BusinessID != nil {
		args = append(args, *params.BusinessID)
		clauses = append(clauses, fmt.Sprintf("business_id = $%d", len(args)))
	}
	if params.Active != nil {
		args = append(args, *params.Active)
		clauses = append(clauses, fmt.Sprintf("active = $%d", len(args)))
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}
