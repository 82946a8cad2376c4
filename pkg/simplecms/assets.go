package simplecms

import (
	"context"
	"log/slog"
)

// releaseAssets issues a blob-store delete for every non-empty asset field
// of the record and returns the number of deletes attempted. A failed
// delete is logged and swallowed: an unreachable blob store must never
// block removal of the database row, so the worst case is an orphaned
// blob, never an undeletable record.
func (s *service) releaseAssets(ctx context.Context, desc *EntityDescriptor, rec Record) int {
	attempts := 0
	for _, f := range desc.AssetFields() {
		locator, ok := rec[f.Name].(string)
		if !ok || locator == "" {
			continue
		}
		attempts++
		if err := s.blobStore.Delete(ctx, locator); err != nil {
			slog.Warn("asset release failed",
				"entity", desc.Name,
				"record_id", rec.ID(),
				"field", f.Name,
				"locator", locator,
				"err", err)
		}
	}
	return attempts
}

// releaseChildAssets runs releaseAssets over every loaded child row of the
// graph and returns the total attempts.
func (s *service) releaseChildAssets(ctx context.Context, graph *RecordGraph) (int, error) {
	attempts := 0
	for child, rows := range graph.Children {
		childDesc, err := s.registry.Get(child)
		if err != nil {
			return attempts, err
		}
		for _, row := range rows {
			attempts += s.releaseAssets(ctx, childDesc, row)
		}
	}
	return attempts, nil
}
