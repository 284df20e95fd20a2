// File path: internal/sync/identity.go
package sync

import (
	"context"

	"github.com/nyparchive/cortex-sync/internal/common"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/dbtext"
)

// identityResolver maps human-entered names to thesaurus IDs, exact
// lookup first and fuzzy best-match second. Resolutions are memoized
// for the run; an unresolved name is memoized too so it is scored only
// once.
type identityResolver struct {
	index *dbtext.NameIndex
	known map[string]string
}

func newIdentityResolver(index *dbtext.NameIndex) *identityResolver {
	return &identityResolver{index: index, known: make(map[string]string)}
}

// resolve returns the thesaurus ID for a name, or false when neither
// an exact nor a close-enough fuzzy match exists.
func (r *identityResolver) resolve(name string) (string, bool) {
	if r == nil || r.index == nil || name == "" {
		return "", false
	}
	if id, ok := r.known[name]; ok {
		return id, id != ""
	}
	id, term, score, ok := r.index.Match(name)
	if !ok {
		common.Logger().Warn("sync: name unresolved", "name", name, "best_score", score)
		r.known[name] = ""
		return "", false
	}
	if score < 100 {
		common.Logger().Info("sync: fuzzy name match", "name", name, "matched", term, "score", score)
	}
	r.known[name] = id
	return id, true
}

// ensureArtist makes sure a Source record exists for an artist ID,
// creating a minimal one when the read finds nothing. Runs at most
// once per artist per run.
func (s *Syncer) ensureArtist(ctx context.Context, artistID string) {
	if artistID == "" || s.cache.Checked("artist", artistID) {
		return
	}
	s.cache.MarkChecked("artist", artistID)
	result, err := s.client.Read(ctx, cortex.EntitySource, "CoreField.Artist-ID", artistID)
	if err != nil {
		s.logger.Warn("sync: artist existence check failed", "artist", artistID, "error", err)
	} else if result.Count > 0 {
		return
	}
	req := cortex.NewRequest(cortex.EntitySource, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Artist-ID", artistID))
	s.apply(ctx, req, artistID, "create source record for artist")
}

// ensureNamedSource makes sure a Source record exists for a thesaurus
// ID, creating one that carries only the ID and the display name. Runs
// at most once per ID per run.
func (s *Syncer) ensureNamedSource(ctx context.Context, nameID, name string) {
	if s.cache.Checked("dbtext", nameID) {
		return
	}
	result, err := s.client.Read(ctx, cortex.EntitySource, "CoreField.DBText-ID", nameID)
	if err != nil {
		s.logger.Warn("sync: source existence check failed", "id", nameID, "error", err)
		return
	}
	s.cache.MarkChecked("dbtext", nameID)
	switch {
	case result.Count == 1:
		return
	case result.Count == 0:
		s.logger.Warn("sync: source not found, creating", "id", nameID, "name", name)
		req := cortex.NewRequest(cortex.EntitySource, cortex.ActionCreate,
			cortex.Set("CoreField.DBText-ID", nameID),
			cortex.Set("CoreField.Last-name", name))
		s.apply(ctx, req, nameID, "create source record for "+name)
	default:
		s.logger.Error("sync: multiple sources share one ID", "id", nameID, "count", result.Count)
	}
}
