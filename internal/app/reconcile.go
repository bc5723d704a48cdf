/**
 * @description
 * Claim-status reconciliation. Delivered mint links are claimed (or not)
 * entirely off-system; this job polls the POAP API for each unclaimed
 * delivery and idempotently marks the ledger row claimed. It runs on the
 * cron scheduler, never inside the webhook pipeline.
 */

package app

import (
	"context"
	"log/slog"

	"github.com/poapflow/distribution-service/internal/store"
)

// ClaimStatusClient looks up whether a delivered mint link was redeemed.
type ClaimStatusClient interface {
	ClaimStatus(ctx context.Context, claimURL string) (claimed bool, claimant string, err error)
}

// Reconciler polls claim status for unclaimed deliveries.
type Reconciler struct {
	repo      store.Repository
	claims    ClaimStatusClient
	publisher EventPublisher
	logger    *slog.Logger
	batchSize int
}

// NewReconciler creates a claim-status reconciler.
func NewReconciler(repo store.Repository, claims ClaimStatusClient, publisher EventPublisher, logger *slog.Logger, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		repo:      repo,
		claims:    claims,
		publisher: publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Run performs one reconciliation pass. Lookup failures for individual
// deliveries are logged and skipped; the pass continues.
func (r *Reconciler) Run(ctx context.Context) {
	deliveries, err := r.repo.ListUnclaimedDeliveries(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list unclaimed deliveries", "error", err)
		return
	}
	if len(deliveries) == 0 {
		return
	}

	reconciled := 0
	for _, delivery := range deliveries {
		claimed, claimant, err := r.claims.ClaimStatus(ctx, delivery.ClaimURL)
		if err != nil {
			r.logger.Warn("claim status lookup failed",
				"delivery_id", delivery.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		var claimantRef *string
		if claimant != "" {
			claimantRef = &claimant
		}
		if err := r.repo.MarkDeliveryClaimed(ctx, delivery.ID, claimantRef); err != nil {
			r.logger.Error("failed to mark delivery claimed",
				"delivery_id", delivery.ID, "error", err)
			continue
		}
		reconciled++

		if r.publisher != nil {
			delivery.Claimed = true
			if err := r.publisher.PublishDeliveryClaimed(ctx, delivery); err != nil {
				r.logger.Warn("delivery claimed event publish failed",
					"delivery_id", delivery.ID, "error", err)
			}
		}
	}

	r.logger.Info("claim reconciliation pass finished",
		"checked", len(deliveries), "reconciled", reconciled)
}
