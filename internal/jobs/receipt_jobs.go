package jobs

import (
	"context"
	"time"

	"medrent-backend/internal/logger"
	"medrent-backend/internal/storage"
)

// PurgeOrphanedReceipts deletes stored receipts that no order references.
// Files younger than the grace period are kept: a checkout may be between
// saving its receipt and inserting its order.
func (jr *JobRunner) PurgeOrphanedReceipts() {
	jr.runWithRecovery("PurgeOrphanedReceipts", func() {
		deleted, err := jr.purgeOrphanedReceipts(context.Background())
		if err != nil {
			logger.Error("Failed to purge orphaned receipts", "error", err)
			return
		}
		logger.Info("Purged orphaned receipts", "count", deleted)
	})
}

func (jr *JobRunner) purgeOrphanedReceipts(ctx context.Context) (int, error) {
	files, err := jr.storage.ListFiles(ctx, storage.ReceiptPrefix)
	if err != nil {
		return 0, err
	}

	cutoff := jr.now().Add(-time.Duration(jr.config.Storage.OrphanGraceHours) * time.Hour)
	candidates := make([]string, 0, len(files))
	for _, f := range files {
		if f.ModTime.Before(cutoff) {
			candidates = append(candidates, f.Key)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := jr.repos.Orders.ReferencedReceipts(ctx, candidates)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range candidates {
		if referenced[key] {
			continue
		}
		if err := jr.storage.DeleteFile(ctx, key); err != nil {
			logger.Error("Failed to delete orphaned receipt", "key", key, "error", err)
			continue
		}
		logger.Debug("Deleted orphaned receipt", "key", key)
		deleted++
	}
	return deleted, nil
}
