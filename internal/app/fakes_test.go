package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/poapflow/distribution-service/internal/store"
)

// fakeRepository is an in-memory implementation of store.Repository with the
// same idempotency semantics as the Postgres one.
type fakeRepository struct {
	mu         sync.Mutex
	accounts   []domain.BotAccount
	campaigns  []domain.Campaign
	assets     []*domain.Asset
	deliveries []*domain.Delivery
	replies    []*domain.ReplyRecord
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{}
}

func (f *fakeRepository) addAsset(campaignID uuid.UUID, code, claimURL string) *domain.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset := &domain.Asset{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ClaimURL:   claimURL,
		Status:     domain.AssetStatusAvailable,
		CreatedAt:  time.Now(),
	}
	if code != "" {
		asset.Code = &code
	}
	f.assets = append(f.assets, asset)
	return asset
}

func (f *fakeRepository) FindBotAccountByTwitterUserID(_ context.Context, twitterUserID string) (*domain.BotAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.TwitterUserID == twitterUserID && account.Active {
			copied := account
			return &copied, nil
		}
	}
	return nil, store.ErrBotAccountNotFound
}

func (f *fakeRepository) FindActiveCampaignsByBotAccount(_ context.Context, botAccountID uuid.UUID) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, campaign := range f.campaigns {
		if campaign.BotAccountID == botAccountID && campaign.Active {
			out = append(out, campaign)
		}
	}
	return out, nil
}

func (f *fakeRepository) FindCampaignByID(_ context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, campaign := range f.campaigns {
		if campaign.ID == campaignID {
			copied := campaign
			return &copied, nil
		}
	}
	return nil, store.ErrCampaignNotFound
}

func (f *fakeRepository) ListCampaigns(_ context.Context) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Campaign(nil), f.campaigns...), nil
}

func (f *fakeRepository) AssetCodeAvailable(_ context.Context, campaignID uuid.UUID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.CampaignID == campaignID && asset.Code != nil && *asset.Code == code && asset.Status == domain.AssetStatusAvailable {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ReserveAsset(_ context.Context, campaignID uuid.UUID) (*domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.CampaignID == campaignID && asset.Status == domain.AssetStatusAvailable {
			asset.Status = domain.AssetStatusReserved
			copied := *asset
			return &copied, nil
		}
	}
	return nil, store.ErrAssetExhausted
}

func (f *fakeRepository) ReserveAssetByCode(_ context.Context, campaignID uuid.UUID, code string) (*domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.CampaignID == campaignID && asset.Code != nil && *asset.Code == code && asset.Status == domain.AssetStatusAvailable {
			asset.Status = domain.AssetStatusReserved
			copied := *asset
			return &copied, nil
		}
	}
	return nil, store.ErrAssetExhausted
}

func (f *fakeRepository) ConfirmAsset(_ context.Context, assetID uuid.UUID, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.ID != assetID {
			continue
		}
		if asset.Status == domain.AssetStatusReserved {
			asset.Status = domain.AssetStatusConsumed
			asset.Recipient = &recipientID
			return nil
		}
		if asset.Status == domain.AssetStatusConsumed && asset.Recipient != nil && *asset.Recipient == recipientID {
			return nil
		}
		return store.ErrAssetNotReserved
	}
	return store.ErrAssetNotReserved
}

func (f *fakeRepository) ReleaseAsset(_ context.Context, assetID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range f.assets {
		if asset.ID == assetID && asset.Status == domain.AssetStatusReserved {
			asset.Status = domain.AssetStatusAvailable
		}
	}
	return nil
}

func (f *fakeRepository) ImportAssets(_ context.Context, campaignID uuid.UUID, assets []domain.Asset) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, asset := range assets {
		copied := asset
		copied.ID = uuid.New()
		copied.CampaignID = campaignID
		copied.Status = domain.AssetStatusAvailable
		copied.CreatedAt = time.Now()
		f.assets = append(f.assets, &copied)
	}
	return len(assets), nil
}

func (f *fakeRepository) RecordDelivery(_ context.Context, delivery *domain.Delivery) (*domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.deliveries {
		if existing.CampaignID == delivery.CampaignID && existing.TweetID == delivery.TweetID {
			copied := *existing
			return &copied, store.ErrDeliveryExists
		}
	}
	copied := *delivery
	copied.DeliveredAt = time.Now()
	f.deliveries = append(f.deliveries, &copied)
	out := copied
	return &out, nil
}

func (f *fakeRepository) FindDeliveryByTweet(_ context.Context, campaignID uuid.UUID, tweetID string) (*domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, delivery := range f.deliveries {
		if delivery.CampaignID == campaignID && delivery.TweetID == tweetID {
			copied := *delivery
			return &copied, nil
		}
	}
	return nil, store.ErrDeliveryNotFound
}

func (f *fakeRepository) FindDeliveryByAuthor(_ context.Context, campaignID uuid.UUID, authorID string) (*domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, delivery := range f.deliveries {
		if delivery.CampaignID == campaignID && delivery.AuthorID == authorID {
			copied := *delivery
			return &copied, nil
		}
	}
	return nil, store.ErrDeliveryNotFound
}

func (f *fakeRepository) ListDeliveriesByCampaign(_ context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Delivery
	for _, delivery := range f.deliveries {
		if delivery.CampaignID == campaignID {
			out = append(out, *delivery)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) ListUnclaimedDeliveries(_ context.Context, limit int) ([]domain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Delivery
	for _, delivery := range f.deliveries {
		if !delivery.Claimed {
			out = append(out, *delivery)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepository) MarkDeliveryClaimed(_ context.Context, deliveryID uuid.UUID, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, delivery := range f.deliveries {
		if delivery.ID == deliveryID {
			if !delivery.Claimed {
				delivery.Claimed = true
				now := time.Now()
				delivery.ClaimedAt = &now
			}
			return nil
		}
	}
	return store.ErrDeliveryNotFound
}

func (f *fakeRepository) AcquireReplySlot(_ context.Context, campaignID uuid.UUID, tweetID, kind string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reply := range f.replies {
		if reply.CampaignID == campaignID && reply.TweetID == tweetID {
			return false, nil
		}
	}
	f.replies = append(f.replies, &domain.ReplyRecord{
		ID:         uuid.New(),
		CampaignID: campaignID,
		TweetID:    tweetID,
		Kind:       kind,
		Status:     domain.ReplyStatusProcessing,
	})
	return true, nil
}

func (f *fakeRepository) CompleteReplySlot(_ context.Context, campaignID uuid.UUID, tweetID, replyTweetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reply := range f.replies {
		if reply.CampaignID == campaignID && reply.TweetID == tweetID && reply.Status == domain.ReplyStatusProcessing {
			reply.Status = domain.ReplyStatusSent
			reply.ReplyTweetID = &replyTweetID
			now := time.Now()
			reply.SentAt = &now
			return nil
		}
	}
	return store.ErrReplyInProgress
}

func (f *fakeRepository) ReleaseReplySlot(_ context.Context, campaignID uuid.UUID, tweetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.replies[:0]
	for _, reply := range f.replies {
		if reply.CampaignID == campaignID && reply.TweetID == tweetID && reply.Status == domain.ReplyStatusProcessing {
			continue
		}
		kept = append(kept, reply)
	}
	f.replies = kept
	return nil
}

type sentReply struct {
	inReplyTo string
	text      string
}

// fakeReplyClient records outbound replies and can be forced to fail.
type fakeReplyClient struct {
	mu   sync.Mutex
	sent []sentReply
	err  error
}

func (f *fakeReplyClient) SendReply(_ context.Context, inReplyToTweetID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentReply{inReplyTo: inReplyToTweetID, text: text})
	return fmt.Sprintf("reply-%d", len(f.sent)), nil
}

func (f *fakeReplyClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakePublisher records published distribution events.
type fakePublisher struct {
	mu       sync.Mutex
	consumed []domain.Delivery
	claimed  []domain.Delivery
}

func (f *fakePublisher) PublishAssetConsumed(_ context.Context, event domain.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, event)
	return nil
}

func (f *fakePublisher) PublishDeliveryClaimed(_ context.Context, event domain.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed = append(f.claimed, event)
	return nil
}
