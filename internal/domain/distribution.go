/**
 * @description
 * This file defines the distribution-side domain models: single-use assets
 * (hidden codes and mint links), the delivery ledger rows that record an
 * asset being handed to a tweet author, the reply records that make
 * outbound replies idempotent, and the closed set of rejection reasons.
 *
 * @dependencies
 * - github.com/google/uuid: For entity identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset lifecycle states. An asset moves available -> reserved under the
// store's conditional update, and reserved -> consumed on confirmation.
const (
	AssetStatusAvailable = "available"
	AssetStatusReserved  = "reserved"
	AssetStatusConsumed  = "consumed"
)

// Asset is one single-use distributable item scoped to exactly one
// campaign. Code is set for hidden-code drops; ClaimURL is the mint link
// substituted into the eligible reply.
type Asset struct {
	ID         uuid.UUID  `json:"id"`
	CampaignID uuid.UUID  `json:"campaign_id"`
	Code       *string    `json:"code,omitempty"`
	ClaimURL   string     `json:"claim_url"`
	Status     string     `json:"status"`
	Recipient  *string    `json:"recipient,omitempty"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Delivery records that an asset was handed out for one (campaign, tweet)
// pair. The (campaign_id, tweet_id) uniqueness constraint is what makes
// delivery exactly-once under webhook redelivery.
type Delivery struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	TweetID      string     `json:"tweet_id"`
	AuthorID     string     `json:"author_id"`
	AuthorHandle string     `json:"author_handle"`
	AssetID      uuid.UUID  `json:"asset_id"`
	ClaimURL     string     `json:"claim_url"`
	DeliveredAt  time.Time  `json:"delivered_at"`
	Claimed      bool       `json:"claimed"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
}

// Reply kinds, one per template.
const (
	ReplyKindEligible       = "eligible"
	ReplyKindNotEligible    = "not_eligible"
	ReplyKindAlreadyClaimed = "already_claimed"
)

// Reply record states. A processing row is the acquired send slot; it
// becomes sent once the platform accepted the reply.
const (
	ReplyStatusProcessing = "processing"
	ReplyStatusSent       = "sent"
)

// ReplyRecord marks that an outbound reply was (or is being) sent for one
// (campaign, tweet) pair. Not-eligible replies never create a Delivery, so
// they need their own idempotency row.
type ReplyRecord struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	TweetID      string     `json:"tweet_id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	ReplyTweetID *string    `json:"reply_tweet_id,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}

// Reason is the closed enumeration of rejection and failure reasons.
type Reason string

const (
	ReasonMissingCode     Reason = "missing_or_used_code"
	ReasonMissingImage    Reason = "missing_image"
	ReasonHashtagMismatch Reason = "hashtag_mismatch"
	ReasonExhausted       Reason = "exhausted"
	ReasonAlreadyClaimed  Reason = "already_claimed"
)

// Verdict is the outcome of evaluating one tweet against one campaign's
// rules.
type Verdict struct {
	Eligible      bool
	NotApplicable bool
	Code          string
	Reason        Reason
}

// Pair outcomes reported in the batch result.
const (
	OutcomeDelivered             = "delivered"
	OutcomeNotEligibleReplied    = "not_eligible_replied"
	OutcomeAlreadyClaimedReplied = "already_claimed_replied"
	OutcomeDuplicate             = "duplicate"
	OutcomeFailed                = "failed"
)

// PairResult is the outcome for one (tweet, campaign) pair.
type PairResult struct {
	TweetID    string    `json:"tweet_id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	Outcome    string    `json:"outcome"`
	Reason     Reason    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// BatchResult summarizes one webhook invocation: how many pairs were
// processed, how many tweets or pairs were silently skipped, and the
// per-pair failures. A pair failure never fails the batch.
type BatchResult struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Pairs     []PairResult `json:"pairs,omitempty"`
	Errors    []PairResult `json:"errors,omitempty"`
}
