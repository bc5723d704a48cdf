/**
 * @description
 * This file contains the webhook event router: the orchestration that
 * turns one Account Activity envelope into per-(tweet, campaign) outcomes.
 * Each pair runs the same strictly sequential steps — duplicate check,
 * eligibility, reservation, delivery, confirmation, reply — and every step
 * is individually idempotent, so re-running the whole sequence for a
 * redelivered event is safe.
 *
 * Failure containment: a pair failure is recorded in the batch result and
 * never aborts sibling pairs; only event-level problems (unknown bot
 * account, malformed payload) fail the invocation as a whole.
 *
 * @dependencies
 * - context, errors, fmt, log: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/poapflow/distribution-service/internal/store"
)

// ErrUnknownBotAccount is the event-level failure for envelopes whose
// for_user_id does not resolve to any configured bot account.
var ErrUnknownBotAccount = errors.New("webhook target does not match a configured bot account")

// ProcessActivity runs the full pipeline for one webhook envelope and
// returns the aggregate result. At-least-once webhook delivery is assumed
// throughout: every mutation sits behind a storage-level idempotency
// primitive rather than an application-level "seen before" check.
func (s *Service) ProcessActivity(ctx context.Context, envelope domain.ActivityEnvelope) (*domain.BatchResult, error) {
	account, err := s.repo.FindBotAccountByTwitterUserID(ctx, envelope.ForUserID)
	if err != nil {
		if errors.Is(err, store.ErrBotAccountNotFound) {
			return nil, fmt.Errorf("%w: for_user_id=%s", ErrUnknownBotAccount, envelope.ForUserID)
		}
		return nil, fmt.Errorf("resolve bot account: %w", err)
	}

	campaigns, err := s.repo.FindActiveCampaignsByBotAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns for bot account %s: %w", account.ID, err)
	}

	result := &domain.BatchResult{}
	for _, raw := range envelope.TweetCreateEvents {
		event := raw.Normalize(envelope.ForUserID)
		if event.TweetID == "" || event.AuthorID == "" {
			result.Skipped++
			continue
		}
		// The bot's own tweets and retweets of others never qualify.
		if event.IsSelfTweet() || event.IsRetweet {
			result.Skipped++
			continue
		}
		event.Codes = ExtractCodes(event.Text)

		for _, campaign := range campaigns {
			s.processPair(ctx, event, campaign, result)
		}
	}

	log.Printf("level=info component=pipeline msg=\"batch processed\" bot=%s tweets=%d processed=%d skipped=%d errors=%d",
		account.ScreenName, len(envelope.TweetCreateEvents), result.Processed, result.Skipped, len(result.Errors))
	return result, nil
}

// processPair drives one (tweet, campaign) pair through the state machine
// and appends its outcome to the batch result.
func (s *Service) processPair(ctx context.Context, event domain.InboundTweetEvent, campaign domain.Campaign, result *domain.BatchResult) {
	pair := domain.PairResult{TweetID: event.TweetID, CampaignID: campaign.ID}

	outcome, reason, err := s.runPair(ctx, event, campaign)
	pair.Outcome = outcome
	pair.Reason = reason

	switch outcome {
	case domain.OutcomeFailed:
		pair.Error = err.Error()
		log.Printf("level=error component=pipeline msg=\"pair failed\" campaign_id=%s tweet_id=%s reason=%s err=%v",
			campaign.ID, event.TweetID, reason, err)
		result.Errors = append(result.Errors, pair)
		result.Pairs = append(result.Pairs, pair)
	case domain.OutcomeDuplicate:
		// Whole pair already handled by an earlier invocation.
		result.Skipped++
		result.Pairs = append(result.Pairs, pair)
	case "":
		// Hashtag mismatch: silently skipped, not processed, not an error.
		result.Skipped++
	default:
		result.Processed++
		result.Pairs = append(result.Pairs, pair)
	}
}

// runPair executes the sequential steps for one pair. It returns the
// outcome, the rejection/failure reason where one applies, and the error
// for failed outcomes.
func (s *Service) runPair(ctx context.Context, event domain.InboundTweetEvent, campaign domain.Campaign) (string, domain.Reason, error) {
	verdict, err := s.Evaluate(ctx, event, campaign)
	if err != nil {
		return domain.OutcomeFailed, "", fmt.Errorf("evaluate eligibility: %w", err)
	}
	if verdict.NotApplicable {
		return "", domain.ReasonHashtagMismatch, nil
	}

	// Redelivered event for a pair that already has a delivery: nothing
	// left to do. The ledger row is the source of truth, not the reply.
	if _, err := s.repo.FindDeliveryByTweet(ctx, campaign.ID, event.TweetID); err == nil {
		return domain.OutcomeDuplicate, "", nil
	} else if !errors.Is(err, store.ErrDeliveryNotFound) {
		return domain.OutcomeFailed, "", fmt.Errorf("check prior delivery: %w", err)
	}

	// Author already holds an asset and the campaign is single-claim:
	// reply before any asset is touched so nothing is wasted.
	if !campaign.AllowMultipleClaims {
		if _, err := s.repo.FindDeliveryByAuthor(ctx, campaign.ID, event.AuthorID); err == nil {
			sent, err := s.sendReplyOnce(ctx, campaign, event, domain.ReplyKindAlreadyClaimed, "")
			if err != nil {
				return domain.OutcomeFailed, domain.ReasonAlreadyClaimed, err
			}
			if !sent {
				return domain.OutcomeDuplicate, domain.ReasonAlreadyClaimed, nil
			}
			return domain.OutcomeAlreadyClaimedReplied, domain.ReasonAlreadyClaimed, nil
		} else if !errors.Is(err, store.ErrDeliveryNotFound) {
			return domain.OutcomeFailed, "", fmt.Errorf("check prior claim: %w", err)
		}
	}

	if !verdict.Eligible {
		sent, err := s.sendReplyOnce(ctx, campaign, event, domain.ReplyKindNotEligible, "")
		if err != nil {
			return domain.OutcomeFailed, verdict.Reason, err
		}
		if !sent {
			return domain.OutcomeDuplicate, verdict.Reason, nil
		}
		return domain.OutcomeNotEligibleReplied, verdict.Reason, nil
	}

	// Guessed codes are cheap to tweet; rate limit attempts per author
	// before reserving anything.
	if len(event.Codes) > 0 && !s.allowClaimAttempt(ctx, event.AuthorID) {
		return domain.OutcomeFailed, "", fmt.Errorf("claim attempts rate limited for author %s", event.AuthorID)
	}

	asset, err := s.reserve(ctx, campaign, verdict.Code)
	if err != nil {
		if errors.Is(err, store.ErrAssetExhausted) {
			// Deliberate silence towards the author; exhaustion surfaces
			// as a pair error so operators can refill the pool.
			return domain.OutcomeFailed, domain.ReasonExhausted, err
		}
		return domain.OutcomeFailed, "", fmt.Errorf("reserve asset: %w", err)
	}

	delivery := &domain.Delivery{
		ID:           uuid.New(),
		CampaignID:   campaign.ID,
		TweetID:      event.TweetID,
		AuthorID:     event.AuthorID,
		AuthorHandle: event.AuthorHandle,
		AssetID:      asset.ID,
		ClaimURL:     asset.ClaimURL,
	}
	recorded, err := s.repo.RecordDelivery(ctx, delivery)
	if err != nil {
		if errors.Is(err, store.ErrDeliveryExists) {
			// A concurrent duplicate won the ledger race; hand our
			// reservation back so the asset is not stranded.
			if releaseErr := s.repo.ReleaseAsset(ctx, asset.ID); releaseErr != nil {
				log.Printf("level=error component=pipeline msg=\"asset release failed\" asset_id=%s err=%v", asset.ID, releaseErr)
			}
			return domain.OutcomeDuplicate, "", nil
		}
		return domain.OutcomeFailed, "", fmt.Errorf("record delivery: %w", err)
	}

	if err := s.repo.ConfirmAsset(ctx, asset.ID, event.AuthorID); err != nil {
		return domain.OutcomeFailed, "", fmt.Errorf("confirm asset: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAssetConsumed(ctx, *recorded); err != nil {
			log.Printf("level=warn component=pipeline msg=\"asset consumed event publish failed\" delivery_id=%s err=%v", recorded.ID, err)
		}
	}

	// Reply failure past this point is not rolled back: the delivery
	// stands, the asset stays consumed, and an operator reconciles. A
	// retry here would risk double-sending the claim link.
	if _, err := s.sendReplyOnce(ctx, campaign, event, domain.ReplyKindEligible, asset.ClaimURL); err != nil {
		return domain.OutcomeFailed, "", fmt.Errorf("delivery %s recorded but reply failed: %w", recorded.ID, err)
	}

	return domain.OutcomeDelivered, "", nil
}

// reserve picks the reservation variant: the specific asset behind a
// tweeted code, or the oldest available one.
func (s *Service) reserve(ctx context.Context, campaign domain.Campaign, code string) (*domain.Asset, error) {
	if code != "" {
		return s.repo.ReserveAssetByCode(ctx, campaign.ID, code)
	}
	return s.repo.ReserveAsset(ctx, campaign.ID)
}
