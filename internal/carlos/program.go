// File path: internal/carlos/program.go
package carlos

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/nyparchive/cortex-sync/internal/common"
)

// ProgramWork is one performed work within a program: the junction
// record between a Program folder and a Work folder.
type ProgramWork struct {
	ID                 string
	WorksID            string
	ComposerNumber     string
	ComposerTitleShort string
	ComposerName       string
	TitleShort         string
	TitleFull          string
	Movement           string
	ConductorIDs       string
	Encore             string
	SoloistFunctions   string
	SoloistIDs         string
	SoloistNames       string
	SoloistInstruments string
}

// Intermission reports whether this entry is the intermission marker
// rather than a performed work.
func (w ProgramWork) Intermission() bool {
	return w.WorksID == "0"
}

// SoloistListsAligned verifies the semicolon-delimited soloist lists are
// positionally pairable. A mismatch is a data-quality defect in the
// export, reported by the caller but never silently dropped.
func (w ProgramWork) SoloistListsAligned() bool {
	names := splitCount(w.SoloistNames)
	if names == 0 {
		return true
	}
	return names == splitCount(w.SoloistInstruments) && names == splitCount(w.SoloistFunctions)
}

func splitCount(list string) int {
	if strings.TrimSpace(list) == "" {
		return 0
	}
	return len(strings.Split(list, ";"))
}

// Program is one concert program parsed from the Carlos delta feed.
// Identity is the external program ID, stable across runs.
type Program struct {
	ID                string
	Season            string
	OrchestraName     string
	Dates             []string
	DateRange         string
	PerformanceTimes  []string
	LocationNames     []string
	VenueNames        []string
	EventTypeNames    []string
	SubEventNames     []string
	ConductorID       string
	SoloistID         string
	SoloistFunction   string
	SoloistInstrument string
	Works             []ProgramWork
}

type programRow struct {
	ID                string   `xml:"id"`
	Season            string   `xml:"season"`
	OrchestraName     string   `xml:"orchestra_name"`
	Dates             []string `xml:"date"`
	PerformanceTimes  []string `xml:"performance_time"`
	LocationNames     []string `xml:"location_name"`
	VenueNames        []string `xml:"venue_name"`
	EventTypeNames    []string `xml:"event_type_names"`
	SubEventNames     []string `xml:"sub_event_names"`
	ConductorID       string   `xml:"conductor"`
	SoloistID         string   `xml:"soloist"`
	SoloistFunction   string   `xml:"soloist_function"`
	SoloistInstrument string   `xml:"soloist_instrument"`

	ProgramWorkIDs      []string `xml:"program_works_ids"`
	WorksIDs            []string `xml:"works_ids"`
	ComposerNumbers     []string `xml:"composer_number"`
	ComposerTitleShorts []string `xml:"composer_title_short"`
	TitleShorts         []string `xml:"title_short"`
	TitlePipes          []string `xml:"title_pipes"`
	WorksConductorIDs   []string `xml:"works_conductors_ids"`
	WorksEncore         []string `xml:"works_encore"`
	SoloistFunctions    []string `xml:"works_soloists_functions"`
	SoloistIDs          []string `xml:"works_soloists_ids"`
	SoloistNames        []string `xml:"works_soloists_names"`
	SoloistInstruments  []string `xml:"works_soloists_inst_names"`
}

type programFeed struct {
	Rows []programRow `xml:"row"`
}

// LoadPrograms parses the Carlos program delta feed into typed Programs.
func LoadPrograms(path string) ([]Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program feed: %w", err)
	}
	return ParsePrograms(data)
}

// ParsePrograms parses feed bytes into typed Programs.
func ParsePrograms(data []byte) ([]Program, error) {
	var feed programFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse program feed: %w", err)
	}
	logger := common.Logger()
	programs := make([]Program, 0, len(feed.Rows))
	for _, row := range feed.Rows {
		program := Program{
			ID:                row.ID,
			Season:            SeasonFix(row.Season),
			OrchestraName:     row.OrchestraName,
			Dates:             row.Dates,
			DateRange:         DateRange(row.Dates, "01/02/2006", "2006-01-02"),
			PerformanceTimes:  row.PerformanceTimes,
			LocationNames:     row.LocationNames,
			VenueNames:        row.VenueNames,
			EventTypeNames:    row.EventTypeNames,
			SubEventNames:     row.SubEventNames,
			ConductorID:       row.ConductorID,
			SoloistID:         row.SoloistID,
			SoloistFunction:   row.SoloistFunction,
			SoloistInstrument: row.SoloistInstrument,
		}
		for idx, workID := range row.ProgramWorkIDs {
			if strings.TrimSpace(workID) == "" {
				continue
			}
			work := buildProgramWork(row, idx, workID)
			if !work.SoloistListsAligned() {
				logger.Warn("carlos: soloist lists misaligned",
					"program", program.ID, "program_work", work.ID)
			}
			program.Works = append(program.Works, work)
		}
		programs = append(programs, program)
	}
	return programs, nil
}

func buildProgramWork(row programRow, idx int, workID string) ProgramWork {
	titlePipe := at(row.TitlePipes, idx)
	titleFull, movement := titlePipe, ""
	if parts := strings.SplitN(titlePipe, " | ", 2); len(parts) == 2 {
		titleFull, movement = parts[0], parts[1]
	}
	composerTitleShort := at(row.ComposerTitleShorts, idx)
	return ProgramWork{
		ID:                 strings.ReplaceAll(workID, "*", "-"),
		WorksID:            at(row.WorksIDs, idx),
		ComposerNumber:     at(row.ComposerNumbers, idx),
		ComposerTitleShort: CollapseSpaces(StripAngleBrackets(composerTitleShort)),
		ComposerName:       CollapseSpaces(strings.SplitN(composerTitleShort, " / ", 2)[0]),
		TitleShort:         StripAngleBrackets(at(row.TitleShorts, idx)),
		TitleFull:          EmphasizeAngleBrackets(titleFull),
		Movement:           movement,
		ConductorIDs:       at(row.WorksConductorIDs, idx),
		Encore:             at(row.WorksEncore, idx),
		SoloistFunctions:   at(row.SoloistFunctions, idx),
		SoloistIDs:         at(row.SoloistIDs, idx),
		SoloistNames:       at(row.SoloistNames, idx),
		SoloistInstruments: at(row.SoloistInstruments, idx),
	}
}

// at indexes a parallel list that may be shorter than its siblings,
// returning "" for absent positions.
func at(list []string, idx int) string {
	if idx < 0 || idx >= len(list) {
		return ""
	}
	return list[idx]
}
