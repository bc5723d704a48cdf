/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the distribution pipeline performs. Keeping the pipeline behind an
 * interface decouples it from PostgreSQL and lets the router and evaluator
 * be tested against in-memory fakes.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Directory lookups (read-only to the pipeline)
	FindBotAccountByTwitterUserID(ctx context.Context, twitterUserID string) (*domain.BotAccount, error)
	FindActiveCampaignsByBotAccount(ctx context.Context, botAccountID uuid.UUID) ([]domain.Campaign, error)
	FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// Asset reservation. Both reserve variants are single conditional
	// updates flipping available -> reserved; they return ErrAssetExhausted
	// when no available row matched.
	AssetCodeAvailable(ctx context.Context, campaignID uuid.UUID, code string) (bool, error)
	ReserveAsset(ctx context.Context, campaignID uuid.UUID) (*domain.Asset, error)
	ReserveAssetByCode(ctx context.Context, campaignID uuid.UUID, code string) (*domain.Asset, error)
	ConfirmAsset(ctx context.Context, assetID uuid.UUID, recipientID string) error
	ReleaseAsset(ctx context.Context, assetID uuid.UUID) error
	ImportAssets(ctx context.Context, campaignID uuid.UUID, assets []domain.Asset) (int, error)

	// Delivery ledger
	RecordDelivery(ctx context.Context, delivery *domain.Delivery) (*domain.Delivery, error)
	FindDeliveryByTweet(ctx context.Context, campaignID uuid.UUID, tweetID string) (*domain.Delivery, error)
	FindDeliveryByAuthor(ctx context.Context, campaignID uuid.UUID, authorID string) (*domain.Delivery, error)
	ListDeliveriesByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Delivery, error)
	ListUnclaimedDeliveries(ctx context.Context, limit int) ([]domain.Delivery, error)
	MarkDeliveryClaimed(ctx context.Context, deliveryID uuid.UUID, claimant *string) error

	// Reply slots
	AcquireReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID, kind string) (bool, error)
	CompleteReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID, replyTweetID string) error
	ReleaseReplySlot(ctx context.Context, campaignID uuid.UUID, tweetID string) error
}
