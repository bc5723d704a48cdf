package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poapflow/distribution-service/internal/domain"
)

// The reservation primitives below are the correctness-critical core of
// the service. Exclusion is pushed entirely into the database: a single
// conditional UPDATE flips available -> reserved and returns the affected
// row, so no two callers can ever observe the same available asset. The
// application never read-modify-writes asset state.

// AssetCodeAvailable reports whether a tweeted code resolves to an
// available asset of the campaign. Read-only; the race against a
// concurrent reservation is resolved by ReserveAssetByCode afterwards.
func (r *PostgresRepository) AssetCodeAvailable(ctx context.Context, campaignID uuid.UUID, code string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM assets
			WHERE campaign_id = $1 AND code = $2 AND status = 'available'
		)
	`
	var available bool
	if err := r.db.QueryRow(ctx, query, campaignID, code).Scan(&available); err != nil {
		return false, err
	}
	return available, nil
}

// ReserveAsset reserves the oldest available asset of a campaign. The
// SKIP LOCKED selection lets concurrent reservations proceed on distinct
// rows instead of queueing on the same one.
func (r *PostgresRepository) ReserveAsset(ctx context.Context, campaignID uuid.UUID) (*domain.Asset, error) {
	query := `
		UPDATE assets
		SET status = 'reserved', reserved_at = NOW()
		WHERE id = (
			SELECT id FROM assets
			WHERE campaign_id = $1 AND status = 'available'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, campaign_id, code, claim_url, status, recipient_id, reserved_at, consumed_at, created_at
	`
	return r.scanReservedAsset(ctx, query, campaignID)
}

// ReserveAssetByCode reserves the specific asset matching a tweeted code.
// Returns ErrAssetExhausted if the code was never issued for the campaign
// or was already reserved or consumed by a concurrent event.
func (r *PostgresRepository) ReserveAssetByCode(ctx context.Context, campaignID uuid.UUID, code string) (*domain.Asset, error) {
	query := `
		UPDATE assets
		SET status = 'reserved', reserved_at = NOW()
		WHERE campaign_id = $1 AND code = $2 AND status = 'available'
		RETURNING id, campaign_id, code, claim_url, status, recipient_id, reserved_at, consumed_at, created_at
	`
	return r.scanReservedAsset(ctx, query, campaignID, code)
}

func (r *PostgresRepository) scanReservedAsset(ctx context.Context, query string, args ...interface{}) (*domain.Asset, error) {
	var a domain.Asset
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.CampaignID, &a.Code, &a.ClaimURL, &a.Status,
		&a.Recipient, &a.ReservedAt, &a.ConsumedAt, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAssetExhausted
		}
		return nil, err
	}
	return &a, nil
}

// ConfirmAsset transitions reserved -> consumed. Idempotent: confirming an
// already-consumed asset for the same recipient is a no-op, while any
// other state mismatch surfaces as ErrAssetNotReserved.
func (r *PostgresRepository) ConfirmAsset(ctx context.Context, assetID uuid.UUID, recipientID string) error {
	query := `
		UPDATE assets
		SET status = 'consumed', recipient_id = $2, consumed_at = NOW()
		WHERE id = $1 AND status = 'reserved'
	`
	result, err := r.db.Exec(ctx, query, assetID, recipientID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var status string
		var recipient *string
		checkQuery := `SELECT status, recipient_id FROM assets WHERE id = $1`
		if err := r.db.QueryRow(ctx, checkQuery, assetID).Scan(&status, &recipient); err != nil {
			if err == pgx.ErrNoRows {
				return ErrAssetNotReserved
			}
			return err
		}
		if status == domain.AssetStatusConsumed && recipient != nil && *recipient == recipientID {
			return nil
		}
		return ErrAssetNotReserved
	}
	return nil
}

// ReleaseAsset returns a reserved asset to the pool. Used when the
// delivery insert loses the uniqueness race to a concurrent duplicate
// event; consumed assets are never released.
func (r *PostgresRepository) ReleaseAsset(ctx context.Context, assetID uuid.UUID) error {
	query := `
		UPDATE assets
		SET status = 'available', reserved_at = NULL
		WHERE id = $1 AND status = 'reserved'
	`
	_, err := r.db.Exec(ctx, query, assetID)
	return err
}

// ImportAssets bulk-inserts available assets for a campaign inside one
// transaction. Duplicate codes within the campaign are rejected wholesale.
func (r *PostgresRepository) ImportAssets(ctx context.Context, campaignID uuid.UUID, assets []domain.Asset) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin asset import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO assets (id, campaign_id, code, claim_url, status)
		VALUES ($1, $2, $3, $4, 'available')
	`
	for _, asset := range assets {
		id := asset.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.Exec(ctx, query, id, campaignID, asset.Code, asset.ClaimURL); err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("duplicate code in import for campaign %s", campaignID)
			}
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(assets), nil
}

// AcquireReplySlot claims the exclusive right to send the reply for one
// (campaign, tweet) pair. The UNIQUE (campaign_id, tweet_id) constraint
// plus ON CONFLICT DO NOTHING makes the insert the acquisition primitive:
// RowsAffected == 1 means this caller owns the send.
func (r *PostgresRepository) AcquireReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID, kind string) (bool, error) {
	query := `
		INSERT INTO replies (id, campaign_id, tweet_id, kind, status)
		VALUES ($1, $2, $3, $4, 'processing')
		ON CONFLICT (campaign_id, tweet_id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, uuid.New(), campaignID, tweetID, kind)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// CompleteReplySlot records the posted reply id against an acquired slot.
func (r *PostgresRepository) CompleteReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID, replyTweetID string) error {
	query := `
		UPDATE replies
		SET status = 'sent', reply_tweet_id = $3, sent_at = NOW()
		WHERE campaign_id = $1 AND tweet_id = $2
	`
	result, err := r.db.Exec(ctx, query, campaignID, tweetID, replyTweetID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReplyInProgress
	}
	return nil
}

// ReleaseReplySlot frees a processing slot after a failed send so a
// redelivered event can retry. Sent slots are never released.
func (r *PostgresRepository) ReleaseReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID string) error {
	query := `
		DELETE FROM replies
		WHERE campaign_id = $1 AND tweet_id = $2 AND status = 'processing'
	`
	_, err := r.db.Exec(ctx, query, campaignID, tweetID)
	return err
}
