/**
 * @description
 * This file defines the campaign-side domain models for the distribution
 * service: the bot accounts that receive webhook traffic and the campaigns
 * (POAP drops) each account runs. Campaigns are created and edited by the
 * admin dashboard; this service only reads them.
 *
 * @dependencies
 * - github.com/google/uuid: For entity identifiers.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BotAccount is one authenticated Twitter actor that posts replies on
// behalf of its campaigns. Credentials are managed elsewhere; the pipeline
// only needs the platform user id to attribute inbound events.
type BotAccount struct {
	ID            uuid.UUID `json:"id"`
	TwitterUserID string    `json:"twitter_user_id"`
	ScreenName    string    `json:"screen_name"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReplyTemplates holds the configured outbound messages for a campaign.
// The eligible template may contain the {claim_url} placeholder.
type ReplyTemplates struct {
	Eligible       string `json:"eligible"`
	NotEligible    string `json:"not_eligible"`
	AlreadyClaimed string `json:"already_claimed"`
}

// Campaign is one configured POAP drop: a hashtag, its eligibility rules,
// reply templates, and a pool of single-use assets.
type Campaign struct {
	ID                  uuid.UUID      `json:"id"`
	BotAccountID        uuid.UUID      `json:"bot_account_id"`
	Name                string         `json:"name"`
	Hashtag             string         `json:"hashtag"`
	RequireUniqueCode   bool           `json:"require_unique_code"`
	RequireImage        bool           `json:"require_image"`
	AllowMultipleClaims bool           `json:"allow_multiple_claims"`
	Templates           ReplyTemplates `json:"templates"`
	Active              bool           `json:"active"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NormalizedHashtag returns the campaign hashtag lowercased with any
// leading '#' stripped, the form used for matching against tweet entities.
func (c Campaign) NormalizedHashtag() string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Hashtag), "#"))
}

// MatchesHashtag reports whether any of the given tweet hashtags equals the
// campaign hashtag, case-insensitively.
func (c Campaign) MatchesHashtag(tags []string) bool {
	want := c.NormalizedHashtag()
	if want == "" {
		return false
	}
	for _, tag := range tags {
		if strings.ToLower(strings.TrimPrefix(tag, "#")) == want {
			return true
		}
	}
	return false
}
