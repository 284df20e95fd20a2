// File path: internal/sync/programs.go
package sync

import (
	"context"
	"fmt"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
)

// SyncProgramFolders creates or updates the Program virtual folders
// under their Season folders. When a program already sits under the
// right season the parent op is omitted so manual ordering within the
// season survives the run.
func (s *Syncer) SyncProgramFolders(ctx context.Context) error {
	rows, err := carlos.LoadFolderRows(s.cfg.PrepTable("cortex_folder_names.csv"))
	if err != nil {
		return fmt.Errorf("sync: load folder names: %w", err)
	}
	s.logger.Info("sync: updating program folders", "count", len(rows))
	for idx, row := range rows {
		req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionCreateOrUpdate,
			cortex.Key("CoreField.Legacy-Identifier", row.ProgramID),
			cortex.Set("CoreField.Title", row.Name),
			cortex.Set("NYP.Program-ID", row.ProgramID),
			cortex.Set("CoreField.visibility-class", "Public"))
		if !s.parentMatches(ctx, row.ProgramID, "Program", row.SeasonFolderID) {
			req.Add(cortex.SetLink("CoreField.Parent-folder", cortex.EntitySeason,
				"CoreField.Legacy-identifier", row.SeasonFolderID))
		}
		s.logger.Info("sync: program folder", "id", row.ProgramID, "n", idx+1, "of", len(rows))
		s.apply(ctx, req, row.ProgramID, "program folder")
	}
	return nil
}

// programClearFields are the multi-valued program fields rewritten on
// every run. They must be cleared in a call that lands strictly before
// the call that sets the new values, or the remote side accumulates
// duplicates across runs.
var programClearFields = []string{
	"NYP.Season",
	"NYP.Program-Date(s)",
	"NYP.Program-Times",
	"NYP.Location",
	"NYP.Venue",
	"NYP.Event-Type",
	"NYP.Composer/Work",
	"NYP.Soloist",
	"NYP.Conductor",
	"NYP.Composer",
}

// SyncProgramMetadata rewrites the descriptive metadata on each
// Program folder: clear the multi-valued fields, then send the new
// values as a form body since the notes fields can exceed the URL
// length limit. The public digital-archives ID is looked up per
// program and written when the index holds exactly one match.
func (s *Syncer) SyncProgramMetadata(ctx context.Context) error {
	rows, err := carlos.LoadProgramMetadata(s.cfg.PrepTable("program_data_for_cortex.csv"))
	if err != nil {
		return fmt.Errorf("sync: load program metadata: %w", err)
	}
	s.logger.Info("sync: updating program metadata", "count", len(rows))
	for _, row := range rows {
		digitalID, err := s.solr.ProgramID(ctx, row.ID)
		if err != nil {
			s.logger.Error("sync: digital archives lookup failed", "program", row.ID, "error", err)
		} else if digitalID != "" {
			s.logger.Info("sync: digital archives id", "program", row.ID, "id", digitalID)
		}

		clear := cortex.NewRequest(cortex.EntityProgram, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", row.ID))
		for _, field := range programClearFields {
			clear.Add(cortex.Clear(field))
		}
		if !s.apply(ctx, clear, row.ID, "program: clear old metadata") {
			continue
		}

		update := cortex.NewRequest(cortex.EntityProgram, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", row.ID),
			cortex.Append("NYP.Season", row.Season),
			cortex.Set("NYP.Week", row.Week),
			cortex.Set("NYP.Orchestra", row.OrchestraName),
			cortex.Append("NYP.Program-Date(s)", row.Dates),
			cortex.Set("NYP.Program-Date-Range", row.DateRange),
			cortex.Append("NYP.Program-Times", row.PerformanceTimes),
			cortex.Append("NYP.Location", row.LocationNames),
			cortex.Append("NYP.Venue", row.VenueNames),
			cortex.Append("NYP.Event-Type", row.SubEventNames),
			cortex.Append("NYP.Composer/Work", row.ComposerTitleShort),
			cortex.Set("NYP.Composer/Work-Full-Title", row.ComposerTitle),
			cortex.Set("NYP.Notes-on-program", row.NotesXML),
			cortex.Set("NYP.Digital-Archives-ID", digitalID)).WithFormBody()
		s.apply(ctx, update, row.ID, "program: add new metadata")
	}
	return nil
}

// SyncProgramSources links soloists, conductors, and composers to
// their Program folders. The metadata pass cleared these fields, so
// plain appends cannot duplicate.
func (s *Syncer) SyncProgramSources(ctx context.Context) error {
	links := []struct {
		table    string
		field    string
		keyField string
	}{
		{"soloists.csv", "NYP.Soloist", "CoreField.Artist-ID"},
		{"conductors.csv", "NYP.Conductor", "CoreField.Artist-ID"},
		{"composers.csv", "NYP.Composer", "CoreField.Composer-ID"},
	}
	for _, link := range links {
		rows, err := carlos.LoadPersonLinks(s.cfg.PrepTable(link.table))
		if err != nil {
			return fmt.Errorf("sync: load %s: %w", link.table, err)
		}
		s.logger.Info("sync: linking people to programs", "table", link.table, "count", len(rows))
		for _, row := range rows {
			req := cortex.NewRequest(cortex.EntityProgram, cortex.ActionUpdate,
				cortex.Key("CoreField.Legacy-Identifier", row.ProgramID),
				cortex.Link(link.field, cortex.EntitySource, link.keyField, row.PersonID))
			s.apply(ctx, req, row.ProgramID, "link "+link.field)
		}
	}
	return nil
}
