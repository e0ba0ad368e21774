// internal/workflow/propagate.go
package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"worktrack/internal/models"
	"worktrack/internal/repo"
)

// propagateAssetStatus recomputes the linked asset's operational status after a
// work order status change. It runs inside the same transaction as the
// transition, so the asset is never observably stale relative to its work
// orders. Extra jobs never touch assets.
func propagateAssetStatus(ctx context.Context, tx repo.Tx, wi models.WorkItem) error {
	if wi.Kind != models.KindWorkOrder || wi.AssetID == nil {
		return nil
	}
	return applyAssetStatus(ctx, tx, *wi.AssetID, wi.ID, wi.Status == models.StatusInProgress)
}

// releaseAssetStatus recomputes an asset a work order no longer references,
// e.g. after an edit moved the item to a different asset.
func releaseAssetStatus(ctx context.Context, tx repo.Tx, assetID, exclude uuid.UUID) error {
	return applyAssetStatus(ctx, tx, assetID, exclude, false)
}

func applyAssetStatus(ctx context.Context, tx repo.Tx, assetID, exclude uuid.UUID, busy bool) error {
	asset, err := tx.GetAssetForUpdate(ctx, assetID)
	if err != nil {
		// A dangling asset reference must not fail the transition.
		if errors.Is(err, models.ErrAssetNotFound) {
			slog.WarnContext(ctx, "asset missing, skipping status propagation",
				"asset_id", assetID.String(), "work_item_id", exclude.String())
			return nil
		}
		return err
	}

	if !busy {
		busy, err = tx.HasOtherInProgressForAsset(ctx, assetID, exclude)
		if err != nil {
			return err
		}
	}
	desired := models.AssetOperational
	if busy {
		desired = models.AssetInMaintenance
	}

	if asset.Status == desired {
		return nil
	}
	slog.DebugContext(ctx, "asset status propagated",
		"asset_id", asset.ID.String(), "from", string(asset.Status), "to", string(desired))
	return tx.SetAssetStatus(ctx, assetID, desired)
}
