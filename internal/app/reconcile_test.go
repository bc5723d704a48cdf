package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/domain"
)

type claimStatus struct {
	claimed  bool
	claimant string
}

// fakeClaimClient serves claim status by claim URL.
type fakeClaimClient struct {
	mu       sync.Mutex
	statuses map[string]claimStatus
	failures map[string]error
	lookups  int
}

func (f *fakeClaimClient) ClaimStatus(_ context.Context, claimURL string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if err, ok := f.failures[claimURL]; ok {
		return false, "", err
	}
	status := f.statuses[claimURL]
	return status.claimed, status.claimant, nil
}

func testDelivery(campaignID uuid.UUID, tweetID, claimURL string) *domain.Delivery {
	return &domain.Delivery{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		TweetID:     tweetID,
		AuthorID:    "author-" + tweetID,
		AssetID:     uuid.New(),
		ClaimURL:    claimURL,
		DeliveredAt: time.Now(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcilerMarksClaimedDeliveries(t *testing.T) {
	repo := newFakeRepository()
	campaignID := uuid.New()
	repo.deliveries = append(repo.deliveries,
		testDelivery(campaignID, "t1", "https://poap.example/claim/aaa"),
		testDelivery(campaignID, "t2", "https://poap.example/claim/bbb"),
	)

	claims := &fakeClaimClient{statuses: map[string]claimStatus{
		"https://poap.example/claim/aaa": {claimed: true, claimant: "0xabc"},
		"https://poap.example/claim/bbb": {claimed: false},
	}}
	publisher := &fakePublisher{}

	reconciler := NewReconciler(repo, claims, publisher, discardLogger(), 50)
	reconciler.Run(context.Background())

	if !repo.deliveries[0].Claimed {
		t.Fatal("expected the redeemed delivery to be marked claimed")
	}
	if repo.deliveries[0].ClaimedAt == nil {
		t.Fatal("expected a claimed timestamp")
	}
	if repo.deliveries[1].Claimed {
		t.Fatal("expected the unredeemed delivery to stay unclaimed")
	}
	if len(publisher.claimed) != 1 {
		t.Fatalf("expected one delivery-claimed event, got %d", len(publisher.claimed))
	}
}

func TestReconcilerContinuesPastLookupFailures(t *testing.T) {
	repo := newFakeRepository()
	campaignID := uuid.New()
	repo.deliveries = append(repo.deliveries,
		testDelivery(campaignID, "t1", "https://poap.example/claim/aaa"),
		testDelivery(campaignID, "t2", "https://poap.example/claim/bbb"),
	)

	claims := &fakeClaimClient{
		statuses: map[string]claimStatus{
			"https://poap.example/claim/bbb": {claimed: true},
		},
		failures: map[string]error{
			"https://poap.example/claim/aaa": errors.New("poap api timeout"),
		},
	}

	reconciler := NewReconciler(repo, claims, &fakePublisher{}, discardLogger(), 50)
	reconciler.Run(context.Background())

	if repo.deliveries[0].Claimed {
		t.Fatal("expected the failed lookup to leave the delivery untouched")
	}
	if !repo.deliveries[1].Claimed {
		t.Fatal("expected the pass to continue past the failure")
	}
}

func TestReconcilerSkipsAlreadyClaimedRows(t *testing.T) {
	repo := newFakeRepository()
	campaignID := uuid.New()
	claimed := testDelivery(campaignID, "t1", "https://poap.example/claim/aaa")
	claimed.Claimed = true
	repo.deliveries = append(repo.deliveries, claimed)

	claims := &fakeClaimClient{}
	reconciler := NewReconciler(repo, claims, &fakePublisher{}, discardLogger(), 50)
	reconciler.Run(context.Background())

	if claims.lookups != 0 {
		t.Fatalf("expected no lookups for claimed rows, got %d", claims.lookups)
	}
}
