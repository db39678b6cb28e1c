package store

import (
	"context"
	"fmt"

	"catalog-builder-service/internal/domain"
)

const profileColumns = `id, role, email, full_name, onboarding_completed, created_at, updated_at`

func scanProfile(sc scanner) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := sc.Scan(&p.ID, &p.Role, &p.Email, &p.FullName, &p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile returns the user's profile, creating a USER profile the first
// time an identity is seen. A non-empty email refreshes the stored one.
func (s *PostgresStore) GetProfile(ctx context.Context, userID, email string) (*domain.UserProfile, error) {
	query := `
		INSERT INTO profiles (id, email)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (id) DO UPDATE SET email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email)
		RETURNING ` + profileColumns + `;
	`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, userID, email))
	if err != nil {
		if notFound(err, ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: GetProfile failed to scan row: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CompleteOnboarding(ctx context.Context, userID string, fullName *string) (*domain.UserProfile, error) {
	query := `
		UPDATE profiles
		SET onboarding_completed = TRUE, full_name = COALESCE($1, full_name), updated_at = NOW()
		WHERE id = $2
		RETURNING ` + profileColumns + `;
	`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, fullName, userID))
	if err != nil {
		if notFound(err, ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: CompleteOnboarding failed to scan row: %w", err)
	}
	return p, nil
}

const supportColumns = `m.id, m.user_id, p.email, m.subject, m.message, m.status, m.created_at, m.updated_at`

func scanSupportMessage(sc scanner) (*domain.SupportMessage, error) {
	var m domain.SupportMessage
	if err := sc.Scan(&m.ID, &m.UserID, &m.UserEmail, &m.Subject, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) CreateSupportMessage(ctx context.Context, msg *domain.SupportMessage) (*domain.SupportMessage, error) {
	query := `
		INSERT INTO support_messages (id, user_id, subject, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, subject, message, status, created_at, updated_at;
	`
	var m domain.SupportMessage
	err := s.db.QueryRowContext(ctx, query, s.newID(), msg.UserID, msg.Subject, msg.Message, domain.SupportPending).
		Scan(&m.ID, &m.UserID, &m.Subject, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: CreateSupportMessage failed to scan row: %w", err)
	}
	return &m, nil
}

// ListSupportMessages returns messages newest first, joined with the author's
// profile email.
func (s *PostgresStore) ListSupportMessages(ctx context.Context, params ListSupportParams) ([]domain.SupportMessage, int, error) {
	var (
		clauses []string
		args    []any
	)
	if params.UserID != nil {
		args = append(args, *params.UserID)
		clauses = append(clauses, fmt.Sprintf("m.user_id = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		clauses = append(clauses, fmt.Sprintf("m.status = $%d", len(args)))
	}
	where := ""
	for i, c := range clauses {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM support_messages m"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListSupportMessages failed to count messages: %w", err)
	}
	if totalCount == 0 {
		return []domain.SupportMessage{}, 0, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM support_messages m LEFT JOIN profiles p ON p.id = m.user_id%s
		ORDER BY m.created_at DESC LIMIT $%d OFFSET $%d`, supportColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListSupportMessages failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.SupportMessage, 0, params.Limit)
	for rows.Next() {
		m, err := scanSupportMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListSupportMessages failed to scan row: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListSupportMessages iteration error: %w", err)
	}
	return messages, totalCount, nil
}

func (s *PostgresStore) UpdateSupportMessageStatus(ctx context.Context, id string, status domain.SupportStatus) (*domain.SupportMessage, error) {
	query := `
		UPDATE support_messages SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, user_id, subject, message, status, created_at, updated_at;
	`
	var m domain.SupportMessage
	err := s.db.QueryRowContext(ctx, query, status, id).
		Scan(&m.ID, &m.UserID, &m.Subject, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if notFound(err, ErrSupportMessageNotFound) {
			return nil, ErrSupportMessageNotFound
		}
		return nil, fmt.Errorf("store: UpdateSupportMessageStatus failed to scan row: %w", err)
	}
	return &m, nil
}

// GetDashboardStats counts the user's active catalogs and products and
// returns the three most recently updated catalogs.
func (s *PostgresStore) GetDashboardStats(ctx context.Context, userID string) (*domain.DashboardStats, error) {
	countsQuery := `
		SELECT
			(SELECT COUNT(*) FROM catalogs WHERE user_id = $1 AND active = TRUE),
			(SELECT COUNT(*) FROM products WHERE user_id = $1),
			(SELECT COUNT(*) FROM products WHERE user_id = $1 AND active = TRUE);
	`
	var stats domain.DashboardStats
	if err := s.db.QueryRowContext(ctx, countsQuery, userID).
		Scan(&stats.ActiveCatalogs, &stats.TotalProducts, &stats.ActiveProducts); err != nil {
		return nil, fmt.Errorf("store: GetDashboardStats failed to count: %w", err)
	}

	recentQuery := `
		SELECT id, name, slug, active, updated_at
		FROM catalogs
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 3;
	`
	rows, err := s.db.QueryContext(ctx, recentQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("store: GetDashboardStats failed to query recent catalogs: %w", err)
	}
	defer rows.Close()

	stats.RecentCatalogs = make([]domain.CatalogSummary, 0, 3)
	for rows.Next() {
		var c domain.CatalogSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Active, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: GetDashboardStats failed to scan catalog row: %w", err)
		}
		stats.RecentCatalogs = append(stats.RecentCatalogs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetDashboardStats iteration error: %w", err)
	}
	return &stats, nil
}
