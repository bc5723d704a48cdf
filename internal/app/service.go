/**
 * @description
 * This file defines the core application service for the distribution
 * pipeline. The `Service` struct owns the collaborator boundaries: the
 * repository, the reply client, the event publisher, and the optional
 * claim-attempt rate limiter. The webhook router logic itself lives in
 * pipeline.go.
 *
 * Key features:
 * - Collaborators are interfaces so the pipeline is testable with fakes.
 * - Reply template rendering with claim-URL substitution.
 * - The reply path is gated by a database slot so a reply is sent at most
 *   once per (tweet, campaign) pair even under concurrent redelivery.
 *
 * @dependencies
 * - context, fmt, log, strings: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/poapflow/distribution-service/internal/store"
)

// ReplyClient posts a reply tweet on behalf of a bot account. The pipeline
// treats authentication as opaque.
type ReplyClient interface {
	SendReply(ctx context.Context, inReplyToTweetID, text string) (string, error)
}

// EventPublisher publishes distribution events for whoever is listening;
// the pipeline does not know or care how many consumers are wired.
type EventPublisher interface {
	PublishAssetConsumed(ctx context.Context, event domain.Delivery) error
	PublishDeliveryClaimed(ctx context.Context, event domain.Delivery) error
}

// RateLimiter bounds code-bearing claim attempts per tweet author. A nil
// limiter (Redis not configured) allows everything.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limitPerMinute int) (bool, error)
}

// Service provides the core business logic for the distribution pipeline.
type Service struct {
	repo      store.Repository
	replies   ReplyClient
	publisher EventPublisher

	limiter           RateLimiter
	claimAttemptLimit int
}

// NewService creates a new distribution service instance.
func NewService(repo store.Repository, replies ReplyClient, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		replies:   replies,
		publisher: publisher,
	}
}

// SetRateLimiter wires the optional per-author claim-attempt limiter.
func (s *Service) SetRateLimiter(limiter RateLimiter, limitPerMinute int) {
	s.limiter = limiter
	s.claimAttemptLimit = limitPerMinute
}

// renderReply fills the campaign template for a reply kind. The author
// mention prefix threads the reply correctly, and {claim_url} is
// substituted for eligible replies.
func renderReply(campaign domain.Campaign, kind string, authorHandle, claimURL string) string {
	var template string
	switch kind {
	case domain.ReplyKindEligible:
		template = campaign.Templates.Eligible
	case domain.ReplyKindAlreadyClaimed:
		template = campaign.Templates.AlreadyClaimed
	default:
		template = campaign.Templates.NotEligible
	}

	text := strings.ReplaceAll(template, "{claim_url}", claimURL)
	if authorHandle != "" && !strings.Contains(text, "@"+authorHandle) {
		text = "@" + authorHandle + " " + text
	}
	return text
}

// sendReplyOnce sends one reply for a (tweet, campaign) pair, at most
// once. The DB slot is acquired before composing anything: an insert that
// hits the uniqueness constraint means another invocation (a concurrent
// duplicate or an earlier run) already owns this reply. A failed send
// releases the slot so a redelivered event can retry.
func (s *Service) sendReplyOnce(ctx context.Context, campaign domain.Campaign, event domain.InboundTweetEvent, kind, claimURL string) (bool, error) {
	acquired, err := s.repo.AcquireReplySlot(ctx, campaign.ID, event.TweetID, kind)
	if err != nil {
		return false, fmt.Errorf("acquire reply slot: %w", err)
	}
	if !acquired {
		log.Printf("level=info component=pipeline msg=\"reply already handled\" campaign_id=%s tweet_id=%s kind=%s",
			campaign.ID, event.TweetID, kind)
		return false, nil
	}

	text := renderReply(campaign, kind, event.AuthorHandle, claimURL)
	replyID, err := s.replies.SendReply(ctx, event.TweetID, text)
	if err != nil {
		if releaseErr := s.repo.ReleaseReplySlot(ctx, campaign.ID, event.TweetID); releaseErr != nil {
			log.Printf("level=error component=pipeline msg=\"reply slot release failed\" campaign_id=%s tweet_id=%s err=%v",
				campaign.ID, event.TweetID, releaseErr)
		}
		return false, fmt.Errorf("send %s reply: %w", kind, err)
	}

	if err := s.repo.CompleteReplySlot(ctx, campaign.ID, event.TweetID, replyID); err != nil {
		// The reply is out; a stale processing row is an operator concern,
		// not a user-facing failure.
		log.Printf("level=error component=pipeline msg=\"reply slot completion failed\" campaign_id=%s tweet_id=%s reply_id=%s err=%v",
			campaign.ID, event.TweetID, replyID, err)
	}
	return true, nil
}

// allowClaimAttempt applies the per-author rate limit to code-bearing
// tweets. Limiter failures fail open: Redis being down must not stop
// distribution.
func (s *Service) allowClaimAttempt(ctx context.Context, authorID string) bool {
	if s.limiter == nil || s.claimAttemptLimit <= 0 {
		return true
	}
	allowed, err := s.limiter.Allow(ctx, "claim:"+authorID, s.claimAttemptLimit)
	if err != nil {
		log.Printf("level=warn component=pipeline msg=\"rate limiter unavailable; allowing attempt\" author_id=%s err=%v", authorID, err)
		return true
	}
	return allowed
}

// ImportAssets bulk-imports available assets for a campaign. Rows without
// a claim URL are rejected before touching the store.
func (s *Service) ImportAssets(ctx context.Context, campaignID uuid.UUID, assets []domain.Asset) (int, error) {
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return 0, err
	}
	for i, asset := range assets {
		if strings.TrimSpace(asset.ClaimURL) == "" {
			return 0, fmt.Errorf("asset row %d is missing a claim url", i)
		}
	}
	return s.repo.ImportAssets(ctx, campaignID, assets)
}

// ListCampaigns exposes the campaign directory for the admin API.
func (s *Service) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

// ListDeliveries exposes a campaign's delivery ledger for the admin API.
func (s *Service) ListDeliveries(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Delivery, error) {
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListDeliveriesByCampaign(ctx, campaignID, limit, offset)
}
