// File path: internal/carlos/transform.go
package carlos

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Export is the flat Carlos tabular export: one row per scheduled
// program, keyed by the ID column, filtered to known seasons.
type Export struct {
	order []string
	rows  map[string]map[string]string
}

var bracketed = regexp.MustCompile(`\[.*?\]|\(.*?\)`)

// LoadExport reads the export CSV, keeping only rows whose SEASON is
// one of the provided seasons (programs outside known season folders
// cannot be filed anywhere).
func LoadExport(path string, seasons map[string]string) (*Export, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer file.Close()
	return ParseExport(file, seasons)
}

// ParseExport reads export rows from r, filtered to known seasons.
func ParseExport(r io.Reader, seasons map[string]string) (*Export, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	export := &Export{rows: make(map[string]map[string]string)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		row := make(map[string]string, len(header))
		for idx, name := range header {
			if idx < len(record) {
				row[name] = record[idx]
			}
		}
		id := row["ID"]
		if id == "" {
			continue
		}
		if _, ok := seasons[row["SEASON"]]; !ok {
			continue
		}
		export.order = append(export.order, id)
		export.rows[id] = row
	}
	return export, nil
}

// IDs returns program IDs in input order.
func (e *Export) IDs() []string { return e.order }

// Row returns the raw columns for a program ID.
func (e *Export) Row(id string) map[string]string { return e.rows[id] }

// LoadSeasons reads the Cortex season report table (season,id).
func LoadSeasons(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seasons table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read seasons header: %w", err)
	}
	seasonIdx, idIdx := indexOf(header, "season"), indexOf(header, "id")
	if seasonIdx < 0 || idIdx < 0 {
		return nil, fmt.Errorf("seasons table missing season/id columns")
	}
	seasons := make(map[string]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seasons row: %w", err)
		}
		if seasonIdx < len(row) && idIdx < len(row) {
			seasons[row[seasonIdx]] = row[idIdx]
		}
	}
	return seasons, nil
}

func indexOf(header []string, name string) int {
	for idx, h := range header {
		if h == name {
			return idx
		}
	}
	return -1
}

// BuildFolders derives the virtual-folder rows: a display name per
// program plus primary/secondary placement through RELATED_PROG_IDS.
// Primaries are emitted before secondaries so parents exist first.
func BuildFolders(export *Export, seasons map[string]string) []FolderRow {
	var primaries, secondaries []FolderRow
	for _, id := range export.IDs() {
		row := export.Row(id)
		seasonID, ok := seasons[row["SEASON"]]
		if !ok {
			continue
		}
		folder := FolderRow{SeasonFolderID: seasonID, ProgramID: id, Name: folderName(row)}

		related := row["RELATED_PROG_IDS"]
		if related == "" || row["PRIMARY_PROGRAM_FLAG"] == "Primary" {
			folder.Level = "primary"
			primaries = append(primaries, folder)
			continue
		}
		folder.Level = "secondary"
		folder.ParentProgramID = primaryParent(export, related)
		secondaries = append(secondaries, folder)
	}
	return append(primaries, secondaries...)
}

// primaryParent walks a related-program list (and, failing that, the
// programs related to those) looking for the one flagged Primary.
func primaryParent(export *Export, related string) string {
	var alsoRelated []string
	for _, rel := range strings.Split(related, "|") {
		if rel == "" {
			continue
		}
		row := export.Row(rel)
		if row == nil {
			continue
		}
		if row["PRIMARY_PROGRAM_FLAG"] == "Primary" {
			return rel
		}
		alsoRelated = append(alsoRelated, strings.Split(row["RELATED_PROG_IDS"], "|")...)
	}
	for _, rel := range alsoRelated {
		if rel == "" {
			continue
		}
		if row := export.Row(rel); row != nil && row["PRIMARY_PROGRAM_FLAG"] == "Primary" {
			return rel
		}
	}
	return ""
}

func folderName(row map[string]string) string {
	week := ""
	if row["WEEK"] != "" {
		week = "Wk " + row["WEEK"] + " / "
	}

	star := ""
	if strings.Contains(row["DATE"], "|") || row["PRIMARY_PROGRAM_FLAG"] == "Primary" {
		star = "*"
	}

	date := row["DATE_RANGE"]
	if len(date) > 10 {
		date = date[:10]
	}

	conductor := strings.SplitN(row["CONDUCTOR_LAST_NAME"], "|", 2)[0]
	conductor = strings.TrimSpace(bracketed.ReplaceAllString(conductor, ""))
	if conductor != "" {
		conductor = " / " + conductor
	}

	subEvent := strings.SplitN(row["SUB_EVENT_NAMES"], "|", 2)[0]
	subEvent = strings.NewReplacer(
		"Subscription Season", "Sub",
		"Non-Subscription", "Non-Sub",
	).Replace(subEvent)
	if subEvent != "" {
		subEvent = " / " + subEvent
	}

	return week + date + star + subEvent + conductor
}

// BuildSourceAccounts collects every distinct person across all
// programs: conductors and soloists keyed by Artist-ID, composers by
// Composer-ID. A soloist seen again with a new instrument accumulates
// that instrument as an additional role.
func BuildSourceAccounts(export *Export) (artists, composers []SourceAccount) {
	artistIdx := make(map[string]int)
	composerSeen := make(map[string]bool)

	for _, id := range export.IDs() {
		row := export.Row(id)

		for i, conductor := range strings.Split(row["CONDUCTOR"], "|") {
			if conductor == "" || containsID(artistIdx, conductor) {
				continue
			}
			artistIdx[conductor] = len(artists) + 1
			artists = append(artists, SourceAccount{
				ID:        conductor,
				First:     pipeAt(row["CONDUCTOR_FIRST_NAME"], i),
				Middle:    pipeAt(row["CONDUCTOR_MIDDLE_NAME"], i),
				Last:      pipeAt(row["CONDUCTOR_LAST_NAME"], i),
				BirthYear: pipeAt(row["CONDUCTOR_YEAR_OF_BIRTH"], i),
				DeathYear: pipeAt(row["CONDUCTOR_YEAR_OF_DEATH"], i),
				Roles:     "Conductor",
			})
		}

		for i, soloist := range strings.Split(row["SOLOIST"], "|") {
			if soloist == "" {
				continue
			}
			instrument := pipeAt(row["SOLOIST_INSTRUMENT"], i)
			if pos, ok := lookupID(artistIdx, soloist); ok {
				if instrument != "" {
					artists[pos].Roles = appendRole(artists[pos].Roles, instrument)
				}
				continue
			}
			artistIdx[soloist] = len(artists) + 1
			artists = append(artists, SourceAccount{
				ID:             soloist,
				First:          pipeAt(row["SOLOIST_FIRST_NAME"], i),
				Middle:         pipeAt(row["SOLOIST_MIDDLE_NAME"], i),
				Last:           pipeAt(row["SOLOIST_LAST_NAME"], i),
				BirthYear:      pipeAt(row["SOLOIST_YEAR_OF_BIRTH"], i),
				DeathYear:      pipeAt(row["SOLOIST_YEAR_OF_DEATH"], i),
				Roles:          instrument,
				Orchestra:      strings.TrimLeft(pipeAt(row["SOLOIST_MEMBER_ORCH_NAME"], i), " "),
				OrchestraYears: strings.ReplaceAll(pipeAt(row["SOLOIST_MEMBER_ORCH_YEARS"], i), " ", ""),
			})
		}

		for i, composer := range strings.Split(row["COMPOSER_NUMBER"], "|") {
			if composer == "" || composerSeen[composer] {
				continue
			}
			composerSeen[composer] = true
			composers = append(composers, SourceAccount{
				ID:        composer,
				First:     pipeAt(row["COMPOSER_FIRST_NAME"], i),
				Middle:    pipeAt(row["COMPOSER_MIDDLE_NAME"], i),
				Last:      pipeAt(row["COMPOSER_LAST_NAME"], i),
				BirthYear: pipeAt(row["COMPOSER_YEAR_OF_BIRTH"], i),
				DeathYear: pipeAt(row["COMPOSER_YEAR_OF_DEATH"], i),
			})
		}
	}
	return artists, composers
}

// PersonKind selects which ID column BuildPersonLinks joins on.
type PersonKind string

const (
	Composers  PersonKind = "composers"
	Conductors PersonKind = "conductors"
	Soloists   PersonKind = "soloists"
)

// Column returns the export column carrying this kind's IDs.
func (k PersonKind) Column() string {
	switch k {
	case Composers:
		return "COMPOSER_NUMBER"
	case Conductors:
		return "CONDUCTOR"
	default:
		return "SOLOIST"
	}
}

// BuildPersonLinks produces the program/person join table for one kind.
func BuildPersonLinks(export *Export, kind PersonKind) []PersonLink {
	var links []PersonLink
	column := kind.Column()
	for _, id := range export.IDs() {
		for _, person := range strings.Split(export.Row(id)[column], "|") {
			if person != "" {
				links = append(links, PersonLink{ProgramID: id, PersonID: person})
			}
		}
	}
	return links
}

// ProgramTableColumns is the header of the program-metadata prep table,
// in the column order the sync stage reads.
var ProgramTableColumns = []string{
	"ID", "SEASON", "WEEK", "ORCHESTRA_NAME", "DATE", "DATE_RANGE",
	"PERFORMANCE_TIME", "LOCATION_NAME", "VENUE_NAME", "SUB_EVENT_NAMES",
	"SOLOIST_SLASH_INSTRUMENT", "COMPOSER_TITLE", "COMPOSER_TITLE_SHORT",
	"NOTES_XML",
}

// BuildProgramTable trims the export down to the metadata the sync
// stage pushes onto program folders.
func BuildProgramTable(export *Export) [][]string {
	rows := make([][]string, 0, len(export.IDs()))
	for _, id := range export.IDs() {
		row := export.Row(id)
		rows = append(rows, []string{
			id,
			row["SEASON"],
			row["WEEK"],
			strings.TrimSpace(row["ORCHESTRA_NAME"]),
			row["DATE"],
			row["DATE_RANGE"],
			row["PERFORMANCE_TIME"],
			row["LOCATION_NAME"],
			row["VENUE_NAME"],
			row["SUB_EVENT_NAMES"],
			strings.ReplaceAll(row["SOLOIST_SLASH_INSTRUMENT"], "/", " / "),
			CollapseSpaces(row["COMPOSER_TITLE"]),
			CollapseSpaces(row["COMPOSER_TITLE_SHORT"]),
			row["NOTES_XML"],
		})
	}
	return rows
}

func pipeAt(list string, idx int) string {
	parts := strings.Split(list, "|")
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

func appendRole(roles, role string) string {
	existing := strings.Split(roles, "|")
	for _, r := range existing {
		if r == role {
			return roles
		}
	}
	if roles == "" {
		return role
	}
	return roles + "|" + role
}

func lookupID(idx map[string]int, id string) (int, bool) {
	pos, ok := idx[id]
	if !ok {
		return 0, false
	}
	return pos - 1, true
}

func containsID(idx map[string]int, id string) bool {
	_, ok := idx[id]
	return ok
}
