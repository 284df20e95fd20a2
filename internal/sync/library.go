// File path: internal/sync/library.go
package sync

import (
	"context"
	"fmt"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
)

// SyncLibrary reconciles the printed-music hierarchy: the Printed-
// Music folder, its optional Score child, and its Part children. Each
// level follows the same clear-then-set-then-link pattern. Marking
// artists are ensured on demand and a part listing the same marking ID
// twice links it once.
func (s *Syncer) SyncLibrary(ctx context.Context) error {
	records, err := carlos.LoadLibraryRecords(s.cfg.LibraryXML())
	if err != nil {
		return fmt.Errorf("sync: load library records: %w", err)
	}
	s.logger.Info("sync: updating printed music", "count", len(records))
	for _, record := range records {
		s.syncPrintedMusic(ctx, record)
		if record.HasScore() {
			s.syncScore(ctx, record)
		}
		for _, part := range record.Parts {
			s.syncPart(ctx, record, part)
		}
	}
	return nil
}

func (s *Syncer) syncPrintedMusic(ctx context.Context, record carlos.LibraryRecord) {
	clear := cortex.NewRequest(cortex.EntityPrintedMusic, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", record.ID),
		cortex.Clear("NYP.Composer/Work"),
		cortex.Clear("NYP.Marking-Artist"),
		cortex.Clear("NYP.Conductor"),
		cortex.Clear("NYP.Composer"))
	s.apply(ctx, clear, record.ID, "clear printed music folder")

	// Notes can exceed the URL length limit, so the metadata goes as a
	// form body.
	update := cortex.NewRequest(cortex.EntityPrintedMusic, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", record.ID),
		cortex.SetLink("CoreField.parent-folder", cortex.EntityAllDocuments,
			"CoreField.Identifier", s.cfg.PrintedMusicParentID),
		cortex.Set("CoreField.Title", record.Title()),
		cortex.Set("NYP.Publisher", record.PublisherName),
		cortex.Set("CoreField.Notes", record.NotesXML),
		cortex.Append("NYP.Composer/Work", record.ComposerName+" / "+record.WorksTitle),
		cortex.Set("NYP.Composer/Work-Full-Title", record.ComposerNameTitle)).WithFormBody()
	s.apply(ctx, update, record.ID, "update printed music folder")

	s.linkHolding(ctx, cortex.EntityPrintedMusic, record.ID, record)

	for _, markingID := range record.ScoreMarkingIDs {
		s.ensureArtist(ctx, markingID)
		req := cortex.NewRequest(cortex.EntityPrintedMusic, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", record.ID),
			cortex.Link("NYP.Marking-Artist", cortex.EntitySource,
				"CoreField.Artist-ID", markingID))
		s.apply(ctx, req, record.ID, "link marking artist "+markingID)
	}

	for _, userID := range record.UsedByIDs {
		req := cortex.NewRequest(cortex.EntityPrintedMusic, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", record.ID),
			cortex.Link("NYP.Conductor", cortex.EntitySource, "CoreField.Artist-ID", userID))
		s.apply(ctx, req, record.ID, "link conductor "+userID)
	}
}

func (s *Syncer) syncScore(ctx context.Context, record carlos.LibraryRecord) {
	scoreID := "MS_" + record.ID
	clear := cortex.NewRequest(cortex.EntityScore, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", scoreID),
		cortex.Clear("NYP.Composer/Work"),
		cortex.Clear("NYP.Marking-Artist"),
		cortex.Clear("NYP.Composer"))
	s.apply(ctx, clear, scoreID, "clear score")

	update := cortex.NewRequest(cortex.EntityScore, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", scoreID),
		cortex.SetLink("CoreField.parent-folder", cortex.EntityPrintedMusic,
			"CoreField.Legacy-Identifier", record.ID),
		cortex.Set("CoreField.Title", scoreID),
		cortex.Set("NYP.Publisher", record.PublisherName),
		cortex.Set("NYP.Edition-Type", record.ScoreEditionType),
		cortex.Set("CoreField.Notes", record.NotesXML),
		cortex.Append("NYP.Composer/Work", record.ComposerName+" / "+record.WorksTitle),
		cortex.Set("NYP.Composer/Work-Full-Title", record.ComposerNameTitle),
		cortex.Set("NYP.Archives-location", record.ScoreLocation)).WithFormBody()
	s.apply(ctx, update, scoreID, "update score")

	s.linkHolding(ctx, cortex.EntityScore, scoreID, record)

	for _, markingID := range record.ScoreMarkingIDs {
		req := cortex.NewRequest(cortex.EntityScore, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", scoreID),
			cortex.Link("NYP.Marking-Artist", cortex.EntitySource,
				"CoreField.Artist-ID", markingID))
		s.apply(ctx, req, scoreID, "link marking artist "+markingID)
	}
}

func (s *Syncer) syncPart(ctx context.Context, record carlos.LibraryRecord, part carlos.Part) {
	partID := "MP_" + part.ID
	clear := cortex.NewRequest(cortex.EntityPart, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", partID),
		cortex.Clear("NYP.Composer/Work"),
		cortex.Clear("NYP.Marking-Artist"),
		cortex.Clear("NYP.Composer"),
		cortex.Clear("NYP.Conductor"),
		cortex.Clear("NYP.Instrument"))
	s.apply(ctx, clear, partID, "clear part")

	update := cortex.NewRequest(cortex.EntityPart, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", partID),
		cortex.SetLink("CoreField.parent-folder", cortex.EntityPrintedMusic,
			"CoreField.Legacy-Identifier", record.ID),
		cortex.Set("CoreField.Title", partID+" - "+part.TypeDesc),
		cortex.Set("NYP.Publisher", record.PublisherName),
		cortex.Set("NYP.Edition-Type", part.EditionType),
		cortex.Set("CoreField.Notes", part.StandNotes),
		cortex.Append("NYP.Composer/Work", record.ComposerName+" / "+record.WorksTitle),
		cortex.Set("NYP.Composer/Work-Full-Title", record.ComposerNameTitle),
		cortex.Append("NYP.Instrument", part.TypeDesc),
		cortex.Set("NYP.Archives-location", part.Location)).WithFormBody()
	s.apply(ctx, update, partID, "update part")

	s.linkHolding(ctx, cortex.EntityPart, partID, record)

	for _, markingID := range dedupe(part.MarkingIDs) {
		s.ensureArtist(ctx, markingID)
		req := cortex.NewRequest(cortex.EntityPart, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", partID),
			cortex.Link("NYP.Marking-Artist", cortex.EntitySource,
				"CoreField.Artist-ID", markingID))
		s.apply(ctx, req, partID, "link marking artist "+markingID)
	}

	for _, userID := range record.UsedByIDs {
		req := cortex.NewRequest(cortex.EntityPart, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", partID),
			cortex.Link("NYP.Conductor", cortex.EntitySource, "CoreField.Artist-ID", userID))
		s.apply(ctx, req, partID, "link conductor "+userID)
	}
}

// linkHolding attaches the shared Work and the composer to a printed-
// music entity.
func (s *Syncer) linkHolding(ctx context.Context, entity, legacyID string, record carlos.LibraryRecord) {
	linkWork := cortex.NewRequest(entity, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", legacyID),
		cortex.Link("NYP.Composer-/-Work", cortex.EntityWork,
			"CoreField.Legacy-identifier", "WORK_"+record.WorksID))
	s.apply(ctx, linkWork, legacyID, "link work "+record.WorksID)

	linkComposer := cortex.NewRequest(entity, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", legacyID),
		cortex.Link("NYP.Composer", cortex.EntitySource,
			"CoreField.Composer-ID", record.ComposerID))
	s.apply(ctx, linkComposer, legacyID, "link composer "+record.ComposerID)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
