package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/poapflow/distribution-service/internal/store"
)

func TestRenderReply(t *testing.T) {
	campaign := domain.Campaign{
		Templates: domain.ReplyTemplates{
			Eligible:       "claim here: {claim_url}",
			NotEligible:    "not this time",
			AlreadyClaimed: "hey @alice you already claimed",
		},
	}

	tests := []struct {
		name     string
		kind     string
		handle   string
		claimURL string
		want     string
	}{
		{
			name:     "eligible substitutes the claim url and prefixes the author",
			kind:     domain.ReplyKindEligible,
			handle:   "alice",
			claimURL: "https://poap.example/claim/aaa",
			want:     "@alice claim here: https://poap.example/claim/aaa",
		},
		{
			name:   "not eligible uses its own template",
			kind:   domain.ReplyKindNotEligible,
			handle: "alice",
			want:   "@alice not this time",
		},
		{
			name:   "existing mention is not prefixed twice",
			kind:   domain.ReplyKindAlreadyClaimed,
			handle: "alice",
			want:   "hey @alice you already claimed",
		},
		{
			name: "missing handle leaves the template alone",
			kind: domain.ReplyKindNotEligible,
			want: "not this time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderReply(campaign, tt.kind, tt.handle, tt.claimURL)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestImportAssetsValidatesClaimURLs(t *testing.T) {
	repo := newFakeRepository()
	campaign := domain.Campaign{ID: uuid.New(), Active: true}
	repo.campaigns = append(repo.campaigns, campaign)
	service := NewService(repo, &fakeReplyClient{}, &fakePublisher{})

	_, err := service.ImportAssets(context.Background(), campaign.ID, []domain.Asset{
		{ClaimURL: "https://poap.example/claim/aaa"},
		{ClaimURL: "  "},
	})
	if err == nil {
		t.Fatal("expected a validation error for the blank claim url")
	}
	if len(repo.assets) != 0 {
		t.Fatalf("expected nothing imported on validation failure, got %d", len(repo.assets))
	}

	count, err := service.ImportAssets(context.Background(), campaign.ID, []domain.Asset{
		{ClaimURL: "https://poap.example/claim/aaa"},
		{ClaimURL: "https://poap.example/claim/bbb"},
	})
	if err != nil {
		t.Fatalf("ImportAssets returned error: %v", err)
	}
	if count != 2 || len(repo.assets) != 2 {
		t.Fatalf("expected 2 imported assets, got count=%d stored=%d", count, len(repo.assets))
	}
}

func TestImportAssetsUnknownCampaign(t *testing.T) {
	repo := newFakeRepository()
	service := NewService(repo, &fakeReplyClient{}, &fakePublisher{})

	_, err := service.ImportAssets(context.Background(), uuid.New(), []domain.Asset{
		{ClaimURL: "https://poap.example/claim/aaa"},
	})
	if !errors.Is(err, store.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}
