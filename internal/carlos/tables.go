// File path: internal/carlos/tables.go
package carlos

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// FolderRow is one line of the folder-names prep table: which season
// folder a program folder belongs to and what it is called.
type FolderRow struct {
	SeasonFolderID  string
	ProgramID       string
	Name            string
	Level           string
	ParentProgramID string
}

// ProgramMetadataRow is one line of the program-metadata prep table.
type ProgramMetadataRow struct {
	ID                 string
	Season             string
	Week               string
	OrchestraName      string
	Dates              string
	DateRange          string
	PerformanceTimes   string
	LocationNames      string
	VenueNames         string
	SubEventNames      string
	ComposerTitle      string
	ComposerTitleShort string
	NotesXML           string
}

// SourceAccount is one person row from the source-accounts prep tables.
// Composers carry a Composer-ID; artists carry an Artist-ID plus roles
// and orchestra membership.
type SourceAccount struct {
	ID             string
	First          string
	Middle         string
	Last           string
	BirthYear      string
	DeathYear      string
	Roles          string
	Orchestra      string
	OrchestraYears string
}

// PersonLink joins a program to a person by external ID.
type PersonLink struct {
	ProgramID string
	PersonID  string
}

// LoadFolderRows reads the folder-names prep table.
func LoadFolderRows(path string) ([]FolderRow, error) {
	rows, err := readTable(path, 3)
	if err != nil {
		return nil, err
	}
	out := make([]FolderRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, FolderRow{
			SeasonFolderID:  row[0],
			ProgramID:       row[1],
			Name:            row[2],
			Level:           field(row, 3),
			ParentProgramID: field(row, 4),
		})
	}
	return out, nil
}

// LoadProgramMetadata reads the program-metadata prep table.
func LoadProgramMetadata(path string) ([]ProgramMetadataRow, error) {
	rows, err := readTable(path, 14)
	if err != nil {
		return nil, err
	}
	out := make([]ProgramMetadataRow, 0, len(rows))
	for _, row := range rows {
		composerTitle := strings.NewReplacer(
			"|", "\n\n",
			"Intermission, / .", "Intermission",
		).Replace(row[11])
		out = append(out, ProgramMetadataRow{
			ID:                 row[0],
			Season:             row[1],
			Week:               row[2],
			OrchestraName:      row[3],
			Dates:              row[4],
			DateRange:          row[5],
			PerformanceTimes:   row[6],
			LocationNames:      row[7],
			VenueNames:         row[8],
			SubEventNames:      row[9],
			ComposerTitle:      StripAngleBrackets(composerTitle),
			ComposerTitleShort: StripAngleBrackets(row[12]),
			NotesXML:           strings.ReplaceAll(row[13], "<br>", "\n"),
		})
	}
	return out, nil
}

// LoadSourceAccounts reads a source-accounts prep table. Composer rows
// stop at the death-year column; artist rows carry three more.
func LoadSourceAccounts(path string) ([]SourceAccount, error) {
	rows, err := readTable(path, 6)
	if err != nil {
		return nil, err
	}
	out := make([]SourceAccount, 0, len(rows))
	for _, row := range rows {
		out = append(out, SourceAccount{
			ID:             row[0],
			First:          SanitizeName(row[1]),
			Middle:         row[2],
			Last:           SanitizeName(row[3]),
			BirthYear:      row[4],
			DeathYear:      row[5],
			Roles:          field(row, 6),
			Orchestra:      field(row, 7),
			OrchestraYears: field(row, 8),
		})
	}
	return out, nil
}

// LoadPersonLinks reads a program/person link table.
func LoadPersonLinks(path string) ([]PersonLink, error) {
	rows, err := readTable(path, 2)
	if err != nil {
		return nil, err
	}
	out := make([]PersonLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, PersonLink{ProgramID: row[0], PersonID: row[1]})
	}
	return out, nil
}

// readTable reads a headered CSV, skipping the header row and any row
// shorter than minFields.
func readTable(path string, minFields int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	var rows [][]string
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		if len(row) < minFields {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
