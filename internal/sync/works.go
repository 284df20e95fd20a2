// File path: internal/sync/works.go
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
)

// maxTitleLen bounds the junction folder title; overlong titles are
// truncated and any dangling separator is stripped.
const maxTitleLen = 250

// junctionTitle composes the Program-Work folder title from the
// composer, the short work title, and the movement when present.
func junctionTitle(work carlos.ProgramWork) string {
	title := fmt.Sprintf("%s / %s", work.ComposerName, carlos.EscapeMarkup(work.TitleShort))
	if work.Movement != "" {
		title += " / " + work.Movement
	}
	return truncateTitle(title, maxTitleLen)
}

func truncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) > limit {
		title = string(runes[:limit])
	}
	title = strings.TrimRight(title, " /")
	return title
}

// workVisibility is Public once the first performance has happened,
// Pending until then.
func workVisibility(program carlos.Program, now time.Time) string {
	if len(program.Dates) == 0 {
		return "Pending"
	}
	first, err := time.Parse("01/02/2006", program.Dates[0])
	if err != nil {
		return "Pending"
	}
	if first.Before(now.Truncate(24 * time.Hour)) {
		return "Public"
	}
	return "Pending"
}

// SyncProgramWorks walks every program in the XML feed and reconciles
// its performed works: the Program-Work junction folder, the shared
// Work record, and the person links on the junction. Intermission
// entries are skipped. A Work shared by many programs is written once
// per run; after the first write the cache short-circuits the rest.
func (s *Syncer) SyncProgramWorks(ctx context.Context) error {
	programs, err := carlos.LoadPrograms(s.cfg.ProgramXML())
	if err != nil {
		return fmt.Errorf("sync: load programs: %w", err)
	}
	s.logger.Info("sync: updating program works", "programs", len(programs))
	now := time.Now()
	for _, program := range programs {
		for _, work := range program.Works {
			if work.Intermission() {
				continue
			}
			s.syncProgramWork(ctx, program, work, now)
		}
	}
	return nil
}

func (s *Syncer) syncProgramWork(ctx context.Context, program carlos.Program, work carlos.ProgramWork, now time.Time) {
	// Establish the junction folder: clear stale values, set the
	// title, and situate it within its Program.
	establish := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", work.ID),
		cortex.Set("CoreField.Title", junctionTitle(work)),
		cortex.SetLink("CoreField.Parent-folder", cortex.EntityProgram,
			"CoreField.Legacy-identifier", program.ID),
		cortex.Set("NYP.Program-ID", program.ID),
		cortex.Clear("NYP.Composer/Work"),
		cortex.Clear("NYP.Conductor"),
		cortex.Clear("NYP.Composer"),
		cortex.Clear("NYP.Soloist"),
		cortex.Clear("NYP.Season"),
		cortex.Clear("NYP.Program-Date(s)"),
		cortex.Clear("NYP.Program-Times"),
		cortex.Clear("NYP.Location"),
		cortex.Clear("NYP.Venue"),
		cortex.Clear("NYP.Event-Type"),
		cortex.Set("CoreField.visibility-class", workVisibility(program, now)))
	s.apply(ctx, establish, work.ID, "establish program work")

	s.syncWork(ctx, work)

	// Link the shared Work to this junction.
	linkWork := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", work.ID),
		cortex.Link("NYP.Composer-/-Work", cortex.EntityWork,
			"CoreField.Legacy-identifier", "WORK_"+work.WorksID))
	s.apply(ctx, linkWork, work.ID, "link work to program work")

	encore := ""
	if work.Encore == "Y" {
		encore = "Yes"
	}
	metadata := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", work.ID),
		cortex.Append("NYP.Composer/Work", carlos.EscapeMarkup(work.ComposerTitleShort)),
		cortex.Set("NYP.Composer/Work-Full-Title",
			fmt.Sprintf("%s / %s", work.ComposerName, carlos.EscapeMarkup(work.TitleFull))),
		cortex.Set("NYP.Movement", work.Movement),
		cortex.Set("NYP.Encore", encore),
		cortex.Append("NYP.Season", program.Season),
		cortex.Set("NYP.Orchestra", program.OrchestraName),
		cortex.Append("NYP.Program-Date(s)", strings.Join(program.Dates, "|")),
		cortex.Set("NYP.Program-Date-Range", program.DateRange),
		cortex.Append("NYP.Program-Times", strings.Join(program.PerformanceTimes, "|")),
		cortex.Append("NYP.Location", strings.Join(program.LocationNames, "|")),
		cortex.Append("NYP.Venue", strings.Join(program.VenueNames, "|")),
		cortex.Append("NYP.Event-Type", strings.Join(program.SubEventNames, "|")))
	s.apply(ctx, metadata, work.ID, "add metadata to program work")

	linkComposer := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", work.ID),
		cortex.Link("NYP.Composer", cortex.EntitySource,
			"CoreField.Composer-ID", work.ComposerNumber))
	s.apply(ctx, linkComposer, work.ID, "link composer to program work")

	for _, soloist := range splitList(work.SoloistIDs) {
		req := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", work.ID),
			cortex.Link("NYP.Soloist", cortex.EntitySource, "CoreField.Artist-ID", soloist))
		s.apply(ctx, req, work.ID, "link soloist "+soloist)
	}

	s.syncSoloistRoles(ctx, work)

	for _, conductor := range splitList(work.ConductorIDs) {
		req := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", work.ID),
			cortex.Link("NYP.Conductor", cortex.EntitySource, "CoreField.Artist-ID", conductor))
		s.apply(ctx, req, work.ID, "link conductor "+conductor)
	}
}

// syncWork writes the shared Work record, at most once per distinct
// works ID per run. The remote side is the source of truth for an
// already-curated parent, so the default parent is supplied only when
// the Work is not found.
func (s *Syncer) syncWork(ctx context.Context, work carlos.ProgramWork) {
	if s.cache.Checked("work", work.WorksID) {
		return
	}
	s.cache.MarkChecked("work", work.WorksID)

	req := cortex.NewRequest(cortex.EntityWork, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "WORK_"+work.WorksID),
		cortex.Set("NYP.Works-ID", work.WorksID),
		cortex.Set("CoreField.Title",
			fmt.Sprintf("%s / %s", work.ComposerName, carlos.EscapeMarkup(work.TitleShort))))
	if s.remoteExists(ctx, "WORK_"+work.WorksID, "Work") {
		s.logger.Info("sync: work already exists", "works_id", work.WorksID)
	} else {
		s.logger.Info("sync: adding new work", "works_id", work.WorksID)
		req.Add(cortex.SetLink("CoreField.Parent-folder", cortex.EntityAllDocuments,
			"CoreField.Identifier", s.cfg.WorkParentID))
	}
	req.Add(
		cortex.Set("NYP.Work-Title-Full", carlos.EscapeMarkup(work.TitleFull)),
		cortex.Set("NYP.Work-Title-Short", carlos.EscapeMarkup(work.TitleShort)))
	s.apply(ctx, req, work.WorksID, "update work")
}

// syncSoloistRoles writes the paired soloist/instrument/role field.
// The three lists pair positionally; a cardinality mismatch is a data
// defect in the export, logged and skipped rather than mispaired.
func (s *Syncer) syncSoloistRoles(ctx context.Context, work carlos.ProgramWork) {
	names := splitList(work.SoloistNames)
	if len(names) == 0 {
		return
	}
	if !work.SoloistListsAligned() {
		s.logger.Error("sync: soloist lists misaligned", "program_work", work.ID,
			"names", len(names), "instruments", splitLen(work.SoloistInstruments),
			"roles", splitLen(work.SoloistFunctions))
		return
	}
	instruments := splitList(work.SoloistInstruments)
	roles := splitList(work.SoloistFunctions)
	for idx, name := range names {
		role := roles[idx]
		switch role {
		case "S":
			role = "Soloist"
		case "A":
			role = "Assisting Artist"
		}
		req := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", work.ID),
			cortex.Paired("NYP.Soloist-/-Instrument-/-Role",
				name+" / "+instruments[idx], role))
		s.apply(ctx, req, work.ID, "add soloist role to program work")
	}
}

// SweepVisibility flips still-Pending Program-Work folders to Public
// once their first performance date has passed. It searches the remote
// side rather than walking the delta feed, so junctions synced in an
// earlier run whose program has since dropped out of the feed are
// still picked up.
func (s *Syncer) SweepVisibility(ctx context.Context) error {
	result, err := s.client.Search(ctx,
		"DocSubType:Program-work CoreField.visibility-class:Pending",
		"CoreField.Legacy-Identifier", "NYP.Program-Date-Range")
	if err != nil {
		return fmt.Errorf("sync: search pending program works: %w", err)
	}
	now := time.Now()
	flipped := 0
	for _, item := range result.Items {
		legacyID := itemField(item, "CoreField.Legacy-Identifier")
		if legacyID == "" {
			continue
		}
		if !rangeStarted(itemField(item, "NYP.Program-Date-Range"), now) {
			continue
		}
		req := cortex.NewRequest(cortex.EntityProgramWork, cortex.ActionUpdate,
			cortex.Key("CoreField.Legacy-Identifier", legacyID),
			cortex.Set("CoreField.visibility-class", "Public"))
		if s.apply(ctx, req, legacyID, "visibility sweep") {
			flipped++
		}
	}
	s.logger.Info("sync: visibility sweep complete", "pending", result.TotalCount, "flipped", flipped)
	return nil
}

// rangeStarted reports whether the first date of a "from/to" range is
// in the past. A missing or unparseable range reports false, leaving
// the record Pending.
func rangeStarted(dateRange string, now time.Time) bool {
	first, _, _ := strings.Cut(dateRange, "/")
	start, err := time.Parse("2006-01-02", first)
	if err != nil {
		return false
	}
	return start.Before(now.Truncate(24 * time.Hour))
}

func itemField(item map[string]any, name string) string {
	value, ok := item[name]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitLen(raw string) int {
	return len(splitList(raw))
}
