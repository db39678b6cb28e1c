package domain

import (
	"strings"
	"time"
)

// SocialPlatform names the network a social link points to.
type SocialPlatform string

const (
	PlatformFacebook  SocialPlatform = "facebook"
	PlatformInstagram SocialPlatform = "instagram"
	PlatformTwitter   SocialPlatform = "twitter"
	PlatformYoutube   SocialPlatform = "youtube"
	PlatformLinkedin  SocialPlatform = "linkedin"
	PlatformTiktok    SocialPlatform = "tiktok"
	PlatformWebsite   SocialPlatform = "website"
	PlatformOther     SocialPlatform = "other"
)

// Business is the owner profile products and catalogs hang from.
type Business struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Description   *string `json:"description,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	WhatsappPhone *string `json:"whatsapp_phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	Country       *string `json:"country,omitempty"`
	WebsiteURL    *string `json:"website_url,omitempty"`
	Active        bool    `json:"active"`
	Avatar        *string `json:"avatar,omitempty"`
	AvatarCaption *string `json:"avatar_caption,omitempty"`
	Cover         *string `json:"cover,omitempty"`
	CoverCaption  *string `json:"cover_caption,omitempty"`

	SocialLinks []BusinessSocialLink `json:"social_links"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BusinessSocialLink is an ordered link to one of the business' social profiles.
type BusinessSocialLink struct {
	ID         string         `json:"id"`
	BusinessID string         `json:"business_id"`
	Platform   SocialPlatform `json:"platform"`
	URL        string         `json:"url"`
	SortOrder  int            `json:"sort_order"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (l BusinessSocialLink) Key() string { return l.ID }
func (l BusinessSocialLink) Valid() bool { return strings.TrimSpace(l.URL) != "" }
