package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserProfile is created the first time an authenticated identity is seen.
type UserProfile struct {
	ID                  string    `json:"id"`
	Role                Role      `json:"role"`
	Email               *string   `json:"email,omitempty"`
	FullName            *string   `json:"full_name,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (p *UserProfile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

type SupportStatus string

const (
	SupportPending SupportStatus = "PENDING"
	SupportSolved  SupportStatus = "SOLVED"
	SupportClosed  SupportStatus = "CLOSED"
)

// SupportMessage is a user-submitted request. Only admins change its status.
type SupportMessage struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	UserEmail *string       `json:"user_email,omitempty"` // filled for admin listings
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	Status    SupportStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CatalogSummary is the short form of a catalog used by the dashboard.
type CatalogSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DashboardStats aggregates a user's content.
type DashboardStats struct {
	ActiveCatalogs int              `json:"active_catalogs"`
	TotalProducts  int              `json:"total_products"`
	ActiveProducts int              `json:"active_products"`
	RecentCatalogs []CatalogSummary `json:"recent_catalogs"`
}
