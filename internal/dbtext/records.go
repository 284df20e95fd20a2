// File path: internal/dbtext/records.go
package dbtext

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nyparchive/cortex-sync/internal/carlos"
)

// Namespace of the DBText webpublisher query response schema.
const Namespace = "http://www.inmagic.com/webpublisher/query"

// BusinessRecord is one archival folder from the DBText catalog export.
type BusinessRecord struct {
	FolderNumber      string
	FolderName        string
	RecordGroup       string
	Series            string
	Subseries         string
	DateFrom          string
	DateTo            string
	DateRange         string
	Abstract          string
	Notes             string
	Subjects          string
	Names             string
	Contents          string
	ContentType       string
	Language          string
	ArchivesLocation  string
	AccessionDate     string
	Size              string
	Condition         string
	MakePublic        string
	IsPublic          string
	DigitizationNotes string
}

// BoxNumber derives the containing box from the hierarchical folder
// number by stripping the trailing sequence segment ("1234-5" → "1234").
func (r BusinessRecord) BoxNumber() string {
	return BoxNumber(r.FolderNumber)
}

// BoxNumber strips the trailing "-sequence" segment from a folder number.
func BoxNumber(folderNumber string) string {
	if idx := strings.LastIndex(folderNumber, "-"); idx > 0 {
		return folderNumber[:idx]
	}
	return folderNumber
}

// Public applies the visibility policy: either flag truthy grants
// public visibility.
func (r BusinessRecord) Public() bool {
	return strings.HasPrefix(r.MakePublic, "Y") || strings.HasPrefix(r.IsPublic, "Y")
}

// PeopleNames splits the pipe-delimited names list.
func (r BusinessRecord) PeopleNames() []string {
	if strings.TrimSpace(r.Names) == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(r.Names, "|") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

type recordXML struct {
	FolderNumber      string `xml:"BOX-NUMBER"`
	FolderName        string `xml:"FOLDER-TITLE"`
	RecordGroup       string `xml:"RECORD-GROUP"`
	Series            string `xml:"SERIES"`
	Subseries         string `xml:"SUB-SERIES"`
	From              string `xml:"FROM"`
	To                string `xml:"TO"`
	Abstract          string `xml:"ABSTRACT"`
	Notes             string `xml:"NOTES"`
	Subjects          string `xml:"SUBJECTS"`
	Names             string `xml:"NAMES"`
	Contents          string `xml:"CONTENTS"`
	ContentType       string `xml:"CONTENT-TYPE"`
	Language          string `xml:"LANGUAGE"`
	Location          string `xml:"LOCATION"`
	AccessionDate     string `xml:"ACCESSION-DATE"`
	Size              string `xml:"SIZE"`
	Condition         string `xml:"CONDITION"`
	MakePublic        string `xml:"MAKE-PUBLIC"`
	IsPublic          string `xml:"Is-Item-Public"`
	DigitizationNotes string `xml:"Digitize-Notes"`
}

// LoadBusinessRecords parses the DBText catalog export.
func LoadBusinessRecords(path string) ([]BusinessRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open business records feed: %w", err)
	}
	defer file.Close()
	return ParseBusinessRecords(file)
}

// ParseBusinessRecords walks the response for Record elements at any
// depth; the recordset wrapper layout varies between DBText exports.
func ParseBusinessRecords(r io.Reader) ([]BusinessRecord, error) {
	decoder := xml.NewDecoder(r)
	var records []BusinessRecord
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse business records feed: %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Record" {
			continue
		}
		var raw recordXML
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("decode business record: %w", err)
		}
		records = append(records, buildRecord(raw))
	}
	return records, nil
}

func buildRecord(raw recordXML) BusinessRecord {
	from := carlos.ProcessDate(raw.From, "02 Jan 2006")
	to := carlos.ProcessDate(raw.To, "02 Jan 2006")
	return BusinessRecord{
		FolderNumber:      raw.FolderNumber,
		FolderName:        raw.FolderName,
		RecordGroup:       raw.RecordGroup,
		Series:            raw.Series,
		Subseries:         raw.Subseries,
		DateFrom:          from,
		DateTo:            to,
		DateRange:         carlos.DateRange([]string{from, to}, "02 Jan 2006", "2006-01-02"),
		Abstract:          raw.Abstract,
		Notes:             raw.Notes,
		Subjects:          raw.Subjects,
		Names:             raw.Names,
		Contents:          raw.Contents,
		ContentType:       raw.ContentType,
		Language:          raw.Language,
		ArchivesLocation:  raw.Location,
		AccessionDate:     raw.AccessionDate,
		Size:              raw.Size,
		Condition:         raw.Condition,
		MakePublic:        raw.MakePublic,
		IsPublic:          raw.IsPublic,
		DigitizationNotes: raw.DigitizationNotes,
	}
}
