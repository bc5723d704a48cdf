/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for the directory and delivery-ledger portions of the schema.
 * The reservation and reply-slot primitives live in
 * postgres_repository_reservation.go.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poapflow/distribution-service/internal/domain"
)

var (
	ErrBotAccountNotFound = errors.New("bot account not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrAssetExhausted     = errors.New("no available asset for campaign")
	ErrAssetNotReserved   = errors.New("asset is not in a reservable state")
	ErrDeliveryNotFound   = errors.New("delivery not found")
	ErrDeliveryExists     = errors.New("delivery already recorded for tweet")
	ErrReplyInProgress    = errors.New("reply already in progress for tweet")
)

// PostgresRepository is a concrete implementation of the Repository
// interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindBotAccountByTwitterUserID resolves the bot account an Account
// Activity envelope was delivered for.
func (r *PostgresRepository) FindBotAccountByTwitterUserID(ctx context.Context, twitterUserID string) (*domain.BotAccount, error) {
	var acct domain.BotAccount
	query := `
		SELECT id, twitter_user_id, screen_name, active, created_at
		FROM bot_accounts
		WHERE twitter_user_id = $1
	`
	err := r.db.QueryRow(ctx, query, twitterUserID).Scan(
		&acct.ID, &acct.TwitterUserID, &acct.ScreenName, &acct.Active, &acct.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBotAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// FindActiveCampaignsByBotAccount lists the active campaigns owned by a
// bot account, oldest first so pair ordering is stable across retries.
func (r *PostgresRepository) FindActiveCampaignsByBotAccount(ctx context.Context, botAccountID uuid.UUID) ([]domain.Campaign, error) {
	query := `
		SELECT id, bot_account_id, name, hashtag, require_unique_code, require_image,
		       allow_multiple_claims, reply_eligible, reply_not_eligible, reply_already_claimed,
		       active, created_at, updated_at
		FROM campaigns
		WHERE bot_account_id = $1 AND active = true
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, botAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		err := rows.Scan(
			&c.ID, &c.BotAccountID, &c.Name, &c.Hashtag, &c.RequireUniqueCode, &c.RequireImage,
			&c.AllowMultipleClaims, &c.Templates.Eligible, &c.Templates.NotEligible,
			&c.Templates.AlreadyClaimed, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

// FindCampaignByID retrieves a single campaign.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	var c domain.Campaign
	query := `
		SELECT id, bot_account_id, name, hashtag, require_unique_code, require_image,
		       allow_multiple_claims, reply_eligible, reply_not_eligible, reply_already_claimed,
		       active, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, campaignID).Scan(
		&c.ID, &c.BotAccountID, &c.Name, &c.Hashtag, &c.RequireUniqueCode, &c.RequireImage,
		&c.AllowMultipleClaims, &c.Templates.Eligible, &c.Templates.NotEligible,
		&c.Templates.AlreadyClaimed, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCampaigns retrieves all campaigns, newest first, for the admin read
// endpoint.
func (r *PostgresRepository) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	query := `
		SELECT id, bot_account_id, name, hashtag, require_unique_code, require_image,
		       allow_multiple_claims, reply_eligible, reply_not_eligible, reply_already_claimed,
		       active, created_at, updated_at
		FROM campaigns
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		err := rows.Scan(
			&c.ID, &c.BotAccountID, &c.Name, &c.Hashtag, &c.RequireUniqueCode, &c.RequireImage,
			&c.AllowMultipleClaims, &c.Templates.Eligible, &c.Templates.NotEligible,
			&c.Templates.AlreadyClaimed, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

// RecordDelivery inserts one delivery row. The UNIQUE (campaign_id,
// tweet_id) constraint enforces exactly-once delivery even when the same
// webhook event is redelivered; on conflict the existing row is returned
// together with ErrDeliveryExists so callers can treat it as a no-op.
func (r *PostgresRepository) RecordDelivery(ctx context.Context, delivery *domain.Delivery) (*domain.Delivery, error) {
	query := `
		INSERT INTO deliveries (
			id, campaign_id, tweet_id, author_id, author_handle, asset_id, claim_url, delivered_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING delivered_at
	`
	err := r.db.QueryRow(ctx, query,
		delivery.ID,
		delivery.CampaignID,
		delivery.TweetID,
		delivery.AuthorID,
		delivery.AuthorHandle,
		delivery.AssetID,
		delivery.ClaimURL,
	).Scan(&delivery.DeliveredAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := r.FindDeliveryByTweet(ctx, delivery.CampaignID, delivery.TweetID)
			if findErr != nil {
				return nil, findErr
			}
			return existing, ErrDeliveryExists
		}
		return nil, err
	}
	return delivery, nil
}

// FindDeliveryByTweet retrieves the delivery for one (campaign, tweet)
// pair, if any.
func (r *PostgresRepository) FindDeliveryByTweet(ctx context.Context, campaignID uuid.UUID, tweetID string) (*domain.Delivery, error) {
	var d domain.Delivery
	query := `
		SELECT id, campaign_id, tweet_id, author_id, author_handle, asset_id, claim_url,
		       delivered_at, claimed, claimed_at
		FROM deliveries
		WHERE campaign_id = $1 AND tweet_id = $2
	`
	err := r.db.QueryRow(ctx, query, campaignID, tweetID).Scan(
		&d.ID, &d.CampaignID, &d.TweetID, &d.AuthorID, &d.AuthorHandle, &d.AssetID,
		&d.ClaimURL, &d.DeliveredAt, &d.Claimed, &d.ClaimedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindDeliveryByAuthor retrieves the most recent delivery a tweet author
// already received for a campaign. Backs the allow_multiple_claims check.
func (r *PostgresRepository) FindDeliveryByAuthor(ctx context.Context, campaignID uuid.UUID, authorID string) (*domain.Delivery, error) {
	var d domain.Delivery
	query := `
		SELECT id, campaign_id, tweet_id, author_id, author_handle, asset_id, claim_url,
		       delivered_at, claimed, claimed_at
		FROM deliveries
		WHERE campaign_id = $1 AND author_id = $2
		ORDER BY delivered_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, campaignID, authorID).Scan(
		&d.ID, &d.CampaignID, &d.TweetID, &d.AuthorID, &d.AuthorHandle, &d.AssetID,
		&d.ClaimURL, &d.DeliveredAt, &d.Claimed, &d.ClaimedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDeliveriesByCampaign retrieves delivery rows for the admin read
// endpoint.
func (r *PostgresRepository) ListDeliveriesByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, campaign_id, tweet_id, author_id, author_handle, asset_id, claim_url,
		       delivered_at, claimed, claimed_at
		FROM deliveries
		WHERE campaign_id = $1
		ORDER BY delivered_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		err := rows.Scan(
			&d.ID, &d.CampaignID, &d.TweetID, &d.AuthorID, &d.AuthorHandle, &d.AssetID,
			&d.ClaimURL, &d.DeliveredAt, &d.Claimed, &d.ClaimedAt,
		)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}

// ListUnclaimedDeliveries returns deliveries whose claim status has not
// been confirmed yet, oldest first, for the reconciler.
func (r *PostgresRepository) ListUnclaimedDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, campaign_id, tweet_id, author_id, author_handle, asset_id, claim_url,
		       delivered_at, claimed, claimed_at
		FROM deliveries
		WHERE claimed = false
		ORDER BY delivered_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		err := rows.Scan(
			&d.ID, &d.CampaignID, &d.TweetID, &d.AuthorID, &d.AuthorHandle, &d.AssetID,
			&d.ClaimURL, &d.DeliveredAt, &d.Claimed, &d.ClaimedAt,
		)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}

// MarkDeliveryClaimed flips the claimed flag. The claimed = false guard
// makes repeated reconciler calls no-ops rather than errors.
func (r *PostgresRepository) MarkDeliveryClaimed(ctx context.Context, deliveryID uuid.UUID, claimant *string) error {
	query := `
		UPDATE deliveries
		SET claimed = true, claimed_by = COALESCE($2, claimed_by), claimed_at = NOW()
		WHERE id = $1 AND claimed = false
	`
	_, err := r.db.Exec(ctx, query, deliveryID, claimant)
	return err
}
