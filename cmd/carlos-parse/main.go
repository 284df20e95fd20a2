// File path: cmd/carlos-parse/main.go

// carlos-parse reshapes the flat Carlos export into the prep tables
// the sync stage consumes: folder names, source accounts, person
// links, and the trimmed program-metadata table.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/common"
	"github.com/nyparchive/cortex-sync/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "carlos-parse:", err)
		os.Exit(1)
	}
}

func run() error {
	envPath := flag.String("env", ".env", "path to the .env configuration file")
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("usage: carlos-parse [flags] <export.csv>")
	}

	cfg, err := config.Load(*envPath)
	if err != nil {
		return err
	}
	logger := common.Logger()

	seasons, err := carlos.LoadSeasons(cfg.PrepTable("cortex-seasons.csv"))
	if err != nil {
		return err
	}
	logger.Info("carlos-parse: seasons loaded", "count", len(seasons))

	export, err := carlos.LoadExport(flag.Arg(0), seasons)
	if err != nil {
		return err
	}
	logger.Info("carlos-parse: export loaded", "programs", len(export.IDs()))

	folders := carlos.BuildFolders(export, seasons)
	folderRows := make([][]string, 0, len(folders))
	for _, folder := range folders {
		folderRows = append(folderRows, []string{
			folder.SeasonFolderID, folder.ProgramID, folder.Name,
			folder.Level, folder.ParentProgramID,
		})
	}
	if err := writeTable(cfg, "cortex_folder_names.csv",
		[]string{"SEASON_FOLDER_ID", "PROGRAM_ID", "FOLDER_NAME", "LEVEL", "PARENT_PROGRAM_ID"},
		folderRows); err != nil {
		return err
	}
	logger.Info("carlos-parse: folder names written", "count", len(folderRows))

	artists, composers := carlos.BuildSourceAccounts(export)
	accountHeader := []string{
		"ID", "FIRST", "MIDDLE", "LAST", "BIRTH", "DEATH",
		"ROLES", "ORCHESTRA", "ORCHESTRA_YEARS",
	}
	if err := writeTable(cfg, "source_accounts_artists.csv", accountHeader, accountRows(artists)); err != nil {
		return err
	}
	if err := writeTable(cfg, "source_accounts_composers.csv", accountHeader, accountRows(composers)); err != nil {
		return err
	}
	logger.Info("carlos-parse: source accounts written",
		"artists", len(artists), "composers", len(composers))

	for _, kind := range []carlos.PersonKind{carlos.Soloists, carlos.Conductors, carlos.Composers} {
		links := carlos.BuildPersonLinks(export, kind)
		rows := make([][]string, 0, len(links))
		for _, link := range links {
			rows = append(rows, []string{link.ProgramID, link.PersonID})
		}
		if err := writeTable(cfg, string(kind)+".csv", []string{"PROGRAM_ID", "PERSON_ID"}, rows); err != nil {
			return err
		}
		logger.Info("carlos-parse: person links written", "kind", string(kind), "count", len(rows))
	}

	if err := writeTable(cfg, "program_data_for_cortex.csv",
		carlos.ProgramTableColumns, carlos.BuildProgramTable(export)); err != nil {
		return err
	}
	logger.Info("carlos-parse: program table written")
	return nil
}

func accountRows(accounts []carlos.SourceAccount) [][]string {
	rows := make([][]string, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, []string{
			account.ID, account.First, account.Middle, account.Last,
			account.BirthYear, account.DeathYear, account.Roles,
			account.Orchestra, account.OrchestraYears,
		})
	}
	return rows
}

func writeTable(cfg *config.Config, name string, header []string, rows [][]string) error {
	path := cfg.PrepTable(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write %s row: %w", name, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return file.Close()
}
