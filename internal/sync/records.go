// File path: internal/sync/records.go
package sync

import (
	"context"
	"fmt"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/dbtext"
)

// SyncBusinessRecords reconciles the DBText business-records export:
// the Archives-Box container for each box, the Business-document
// record itself, and the People and Subseries links resolved through
// the name thesaurus.
func (s *Syncer) SyncBusinessRecords(ctx context.Context) error {
	index, err := dbtext.LoadNameIndex(s.cfg.NameMappingCSV())
	if err != nil {
		return fmt.Errorf("sync: load name thesaurus: %w", err)
	}
	s.names = newIdentityResolver(index)
	s.logger.Info("sync: name thesaurus loaded", "terms", index.Len())

	records, err := dbtext.LoadBusinessRecords(s.cfg.BusinessRecordsXML())
	if err != nil {
		return fmt.Errorf("sync: load business records: %w", err)
	}
	s.logger.Info("sync: updating business records", "count", len(records))
	for _, record := range records {
		s.syncBusinessRecord(ctx, record)
	}
	return nil
}

func (s *Syncer) syncBusinessRecord(ctx context.Context, record dbtext.BusinessRecord) {
	legacyID := "BR_" + record.FolderNumber
	boxID := s.ensureBox(ctx, record.BoxNumber())

	establish := cortex.NewRequest(cortex.EntityBusinessDoc, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", legacyID),
		cortex.Set("CoreField.Title", legacyID+" / "+record.FolderName),
		cortex.Set("NYP.Folder-Number", record.FolderNumber),
		cortex.Clear("NYP.People"),
		cortex.Clear("NYP.Subjects"),
		cortex.Clear("NYP.Language"))
	if !s.parentMatches(ctx, legacyID, "Business-document", boxID) {
		establish.Add(cortex.SetLink("CoreField.Parent-folder", cortex.EntityArchivesBox,
			"CoreField.Legacy-Identifier", boxID))
	}
	s.apply(ctx, establish, record.FolderNumber, "establish business record")

	visibility := "Hidden"
	if record.Public() {
		visibility = "Public"
	}
	accessionDate := carlos.ProcessDate(record.AccessionDate, "01/02/2006")

	update := cortex.NewRequest(cortex.EntityBusinessDoc, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", legacyID),
		cortex.Set("CoreField.Description", record.Abstract),
		cortex.Set("NYP.Archives-Folder-Title", record.FolderName),
		cortex.Set("NYP.Date-Range", record.DateRange),
		cortex.Append("NYP.Subjects", record.Subjects),
		cortex.Append("NYP.Language", record.Language),
		cortex.Set("NYP.Archives-Location", record.ArchivesLocation),
		cortex.Set("NYP.Record-Group", record.RecordGroup),
		cortex.Set("NYP.Series", record.Series),
		cortex.Set("NYP.Extent", record.Size),
		cortex.Set("NYP.Condition", record.Condition),
		cortex.Set("CoreField.notes", record.Notes),
		cortex.Set("NYP.Digitization-Notes", record.DigitizationNotes),
		cortex.Set("CoreField.visibility-class", visibility),
		cortex.Set("NYP.Accession-Date", accessionDate)).WithFormBody()
	s.apply(ctx, update, record.FolderNumber, "add metadata to business record")

	for _, name := range record.PeopleNames() {
		s.linkName(ctx, record, name, "NYP.People", false)
	}
	if record.Subseries != "" {
		s.linkName(ctx, record, record.Subseries, "NYP.Sub-Series", true)
	}
}

// ensureBox creates the Archives-Box container for a box number, at
// most once per run regardless of how many records share the box.
// Returns the box legacy identifier.
func (s *Syncer) ensureBox(ctx context.Context, boxNumber string) string {
	boxID := "BOX_" + boxNumber
	if s.cache.Checked("box", boxNumber) {
		return boxID
	}
	s.cache.MarkChecked("box", boxNumber)
	req := cortex.NewRequest(cortex.EntityArchivesBox, cortex.ActionCreateOrUpdate,
		cortex.Key("CoreField.Legacy-Identifier", boxID),
		cortex.Set("CoreField.Title", "Box "+boxNumber),
		cortex.SetLink("CoreField.Parent-folder", cortex.EntityAllDocuments,
			"CoreField.Identifier", s.cfg.BusinessRecordParent))
	s.apply(ctx, req, boxNumber, "ensure archives box")
	return boxID
}

// linkName resolves a human-entered name through the thesaurus and
// links the resulting Source to the record. Subseries is a scalar
// field so its link replaces; People accumulates. Unresolved names are
// logged and skipped; they never abort the record.
func (s *Syncer) linkName(ctx context.Context, record dbtext.BusinessRecord, name, field string, scalar bool) {
	nameID, ok := s.names.resolve(name)
	if !ok {
		return
	}
	s.ensureNamedSource(ctx, nameID, name)
	link := cortex.Link(field, cortex.EntitySource, "CoreField.DBText-ID", nameID)
	if scalar {
		link = cortex.SetLink(field, cortex.EntitySource, "CoreField.DBText-ID", nameID)
	}
	req := cortex.NewRequest(cortex.EntityBusinessDoc, cortex.ActionUpdate,
		cortex.Key("CoreField.Legacy-Identifier", "BR_"+record.FolderNumber),
		link)
	s.apply(ctx, req, record.FolderNumber, "link "+name)
}
