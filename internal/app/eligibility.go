/**
 * @description
 * This file implements the per-campaign eligibility evaluation: the hashtag
 * gate, hidden-code resolution, and image requirement. The evaluator reads
 * asset availability through the repository but never mutates anything;
 * reservation happens later, in the pipeline.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For campaign rules and the tweet event model.
 */

package app

import (
	"context"
	"fmt"

	"github.com/poapflow/distribution-service/internal/domain"
)

// Evaluate decides one tweet's eligibility against one campaign's rules.
//
// A hashtag mismatch is a silent skip (NotApplicable): replying to tweets
// that never mentioned the campaign would spam unrelated audiences. Once
// the hashtag matches, rule checks run in a fixed order: code first, then
// image, so the rejection reason is deterministic.
func (s *Service) Evaluate(ctx context.Context, event domain.InboundTweetEvent, campaign domain.Campaign) (domain.Verdict, error) {
	if !campaign.MatchesHashtag(event.Hashtags) {
		return domain.Verdict{NotApplicable: true, Reason: domain.ReasonHashtagMismatch}, nil
	}

	// First extracted code that resolves to an available asset of this
	// campaign wins; the rest are ignored.
	var code string
	for _, candidate := range event.Codes {
		available, err := s.repo.AssetCodeAvailable(ctx, campaign.ID, candidate)
		if err != nil {
			return domain.Verdict{}, fmt.Errorf("resolve code %q: %w", candidate, err)
		}
		if available {
			code = candidate
			break
		}
	}

	if campaign.RequireUniqueCode && code == "" {
		return domain.Verdict{Reason: domain.ReasonMissingCode}, nil
	}
	if campaign.RequireImage && !event.HasImage {
		return domain.Verdict{Reason: domain.ReasonMissingImage}, nil
	}

	return domain.Verdict{Eligible: true, Code: code}, nil
}
