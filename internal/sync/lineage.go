// File path: internal/sync/lineage.go
package sync

import (
	"context"
	"fmt"
)

// lineageParentField is the projected parent identifier a search
// returns for a document.
const lineageParentField = "Document.LineageParentName"

// parentMatches reports whether the remote record for a legacy
// identifier already sits under the intended parent. Exactly one
// search match with an equal parent means the parent op can be omitted
// from the update, which preserves any manual ordering of the record
// within its parent. Zero matches, multiple matches, or a failed
// search all report false so the intended parent gets (re)assigned.
func (s *Syncer) parentMatches(ctx context.Context, legacyID, docSubType, parentID string) bool {
	query := fmt.Sprintf("CoreField.Legacy-Identifier:%s DocSubType:%s", legacyID, docSubType)
	result, err := s.client.Search(ctx, query, lineageParentField)
	if err != nil {
		s.logger.Warn("sync: lineage lookup failed", "id", legacyID, "error", err)
		return false
	}
	if result.TotalCount != 1 {
		return false
	}
	return result.Field(lineageParentField) == parentID
}

// remoteExists reports whether a search for the legacy identifier
// finds exactly one remote record. The result is cached for the run.
func (s *Syncer) remoteExists(ctx context.Context, legacyID, docSubType string) bool {
	if cached, ok := s.cache.Lookup(docSubType, legacyID); ok {
		return cached.Exists
	}
	query := fmt.Sprintf("CoreField.Legacy-Identifier:%s DocSubType:%s", legacyID, docSubType)
	result, err := s.client.Search(ctx, query)
	if err != nil {
		s.logger.Warn("sync: existence lookup failed", "id", legacyID, "error", err)
		return false
	}
	exists := result.TotalCount == 1
	s.cache.Record(docSubType, legacyID, CacheResult{Exists: exists})
	return exists
}
