// File path: internal/carlos/library.go
package carlos

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Part is one instrumental part folder underneath a printed-music record.
type Part struct {
	ID          string
	Location    string
	TypeDesc    string
	EditionType string
	StandNotes  string
	MarkingIDs  []string
}

// LibraryRecord is one printed-music holding from the Carlos library
// feed: the parent folder plus an optional score and zero or more parts.
type LibraryRecord struct {
	ID                string
	ComposerID        string
	WorksID           string
	NotesXML          string
	PublisherName     string
	ComposerName      string
	WorksTitle        string
	ComposerNameTitle string
	UsedByIDs         []string

	ScoreID          string
	ScoreLocation    string
	ScoreMarkingIDs  []string
	ScoreEditionType string

	Parts []Part
}

// HasScore reports whether the holding includes a score record.
func (r LibraryRecord) HasScore() bool { return r.ScoreID != "" }

// DisplaySuffix names what the holding physically contains.
func (r LibraryRecord) DisplaySuffix() string {
	hasParts := len(r.Parts) > 0
	switch {
	case r.HasScore() && hasParts:
		return "Score and Parts"
	case r.HasScore():
		return "Score"
	case hasParts:
		return "Parts"
	default:
		return ""
	}
}

// Title renders the printed-music folder title.
func (r LibraryRecord) Title() string {
	return fmt.Sprintf("%s / %s - %s", r.ComposerName, r.WorksTitle, r.DisplaySuffix())
}

type libraryRow struct {
	ID                string   `xml:"id"`
	ComposerID        string   `xml:"composer_id"`
	WorksID           string   `xml:"works_id"`
	NotesXML          string   `xml:"notes_xml"`
	PublisherName     string   `xml:"publisher_name"`
	ComposerName      string   `xml:"composer_name"`
	WorksTitle        string   `xml:"ar_works_title"`
	ComposerNameTitle string   `xml:"composer_name_title"`
	UsedByIDs         []string `xml:"usedby_id"`
	ScoreID           string   `xml:"score_id_display"`
	ScoreLocation     string   `xml:"score_location"`
	ScoreMarkingIDs   string   `xml:"score_marking_ids"`
	ScoreEditionType  string   `xml:"score_edition_type_desc"`

	PartIDs          []string `xml:"part_id_display"`
	PartLocations    []string `xml:"part_location"`
	PartTypeDescs    []string `xml:"part_type_desc"`
	PartEditionTypes []string `xml:"part_edition_type_desc"`
	PartStandNotes   []string `xml:"part_stand_notes"`
	PartMarkingIDs   []string `xml:"part_marking_ids"`
}

type libraryFeed struct {
	Rows []libraryRow `xml:"row"`
}

// LoadLibraryRecords parses the printed-music delta feed.
func LoadLibraryRecords(path string) ([]LibraryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library feed: %w", err)
	}
	return ParseLibraryRecords(data)
}

// ParseLibraryRecords parses feed bytes into typed LibraryRecords.
func ParseLibraryRecords(data []byte) ([]LibraryRecord, error) {
	var feed libraryFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse library feed: %w", err)
	}
	records := make([]LibraryRecord, 0, len(feed.Rows))
	for _, row := range feed.Rows {
		notes := EmphasizeAngleBrackets(strings.ReplaceAll(row.NotesXML, "<br>", "\n"))
		record := LibraryRecord{
			ID:                row.ID,
			ComposerID:        row.ComposerID,
			WorksID:           row.WorksID,
			NotesXML:          notes,
			PublisherName:     row.PublisherName,
			ComposerName:      CollapseSpaces(row.ComposerName),
			WorksTitle:        row.WorksTitle,
			ComposerNameTitle: EmphasizeAngleBrackets(CollapseSpaces(row.ComposerNameTitle)),
			UsedByIDs:         compact(row.UsedByIDs),
			ScoreID:           strings.TrimSpace(row.ScoreID),
			ScoreLocation:     row.ScoreLocation,
			ScoreMarkingIDs:   splitIDs(row.ScoreMarkingIDs),
			ScoreEditionType:  row.ScoreEditionType,
		}
		for idx, partID := range row.PartIDs {
			trimmed := strings.TrimSpace(partID)
			if trimmed == "" {
				continue
			}
			record.Parts = append(record.Parts, Part{
				ID:          trimmed,
				Location:    at(row.PartLocations, idx),
				TypeDesc:    at(row.PartTypeDescs, idx),
				EditionType: at(row.PartEditionTypes, idx),
				StandNotes:  at(row.PartStandNotes, idx),
				MarkingIDs:  splitIDs(at(row.PartMarkingIDs, idx)),
			})
		}
		records = append(records, record)
	}
	return records, nil
}

// splitIDs parses a semicolon-delimited ID list, dropping empty entries.
func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
