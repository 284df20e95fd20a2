// File path: internal/sync/syncer_test.go
package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyparchive/cortex-sync/internal/config"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/cortex/cortextest"
	"github.com/nyparchive/cortex-sync/internal/solr"
)

func newTestSyncer(t *testing.T, server *cortextest.Server, cfg *config.Config) *Syncer {
	t.Helper()
	client := cortex.New(cortex.Config{
		BaseURL:  server.URL(),
		Login:    "archives",
		Password: "secret",
	})
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	exec := cortex.NewExecutor(cortex.RetryPolicy{MaxAttempts: 2}, nil)
	return New(cfg, client, solr.New("", 0), exec)
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Directory:            dir,
		CarlosXMLPath:        dir,
		DBTextXMLPath:        dir,
		WorkParentID:         config.DefaultWorkParentID,
		PrintedMusicParentID: config.DefaultPrintedMusicParentID,
		BusinessRecordParent: config.DefaultBusinessRecordParent,
	}
}

// opIndex returns the index of the first call carrying an op with the
// given prefix, or -1.
func opIndex(calls []cortextest.Call, opPrefix string) int {
	for idx, call := range calls {
		for _, op := range call.Ops {
			if strings.HasPrefix(op, opPrefix) {
				return idx
			}
		}
	}
	return -1
}

func TestSyncProgramFoldersOmitsMatchingParent(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "cortex_folder_names.csv",
		"SEASON_FOLDER_ID,PROGRAM_ID,FOLDER_NAME,LEVEL,PARENT_PROGRAM_ID\n"+
			"SF_1999,PR_8800,Wk 5 / 2000-01-12* / Sub / Masur,Primary,\n")
	cfg := testConfig(dir)

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncProgramFolders(context.Background()); err != nil {
		t.Fatalf("SyncProgramFolders: %v", err)
	}

	record := server.Get(cortex.EntityProgram, "PR_8800")
	if record == nil {
		t.Fatal("program folder not created")
	}
	if got := record.FieldJoined("CoreField.Title"); got != "Wk 5 / 2000-01-12* / Sub / Masur" {
		t.Fatalf("title = %q", got)
	}
	if !strings.Contains(record.Parent, "SF_1999") {
		t.Fatalf("parent = %q, want season reference", record.Parent)
	}
	if opIndex(server.Calls(), "CoreField.Parent-folder:") < 0 {
		t.Fatal("first run should assign the parent folder")
	}

	// Second run from a cold cache: the search now finds the program
	// under the right season, so the parent op is omitted.
	before := len(server.Calls())
	again := newTestSyncer(t, server, cfg)
	if err := again.SyncProgramFolders(context.Background()); err != nil {
		t.Fatalf("second SyncProgramFolders: %v", err)
	}
	if idx := opIndex(server.Calls()[before:], "CoreField.Parent-folder:"); idx >= 0 {
		t.Fatal("second run reassigned an already-correct parent")
	}
}

const programMetadataCSV = "ID,SEASON,WEEK,ORCHESTRA,DATES,DATE_RANGE,TIMES,LOCATIONS,VENUES,SUB_EVENTS,ATTENDANCE,COMPOSER_TITLE,COMPOSER_TITLE_SHORT,NOTES\n" +
	"PR_8800,1999-2000,5,New York Philharmonic,\"Jan 12, 2000\",2000-01-12/2000-01-15,8:00PM,Manhattan NY,Avery Fisher Hall,Subscription Season,,\"Beethoven / Symphony No. 5\",\"Beethoven / Sym. 5\",Program note\n"

func TestSyncProgramMetadataClearsBeforeSetting(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "program_data_for_cortex.csv", programMetadataCSV)
	cfg := testConfig(dir)

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncProgramMetadata(context.Background()); err != nil {
		t.Fatalf("SyncProgramMetadata: %v", err)
	}

	calls := server.Calls()
	clearIdx := opIndex(calls, "NYP.Season--=")
	setIdx := opIndex(calls, "NYP.Season++")
	if clearIdx < 0 || setIdx < 0 {
		t.Fatalf("missing clear (%d) or append (%d) call", clearIdx, setIdx)
	}
	if clearIdx >= setIdx {
		t.Fatalf("clear call at %d should land before append call at %d", clearIdx, setIdx)
	}
}

func TestSyncProgramMetadataIdempotent(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "program_data_for_cortex.csv", programMetadataCSV)
	cfg := testConfig(dir)

	for run := 0; run < 2; run++ {
		syncer := newTestSyncer(t, server, cfg)
		if err := syncer.SyncProgramMetadata(context.Background()); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	record := server.Get(cortex.EntityProgram, "PR_8800")
	if record == nil {
		t.Fatal("program not created")
	}
	if got := record.FieldJoined("NYP.Season"); got != "1999-2000" {
		t.Fatalf("season after two runs = %q, want single value", got)
	}
	if got := record.FieldJoined("NYP.Composer/Work"); got != "Beethoven / Sym. 5" {
		t.Fatalf("composer/work after two runs = %q", got)
	}
}

func TestSyncSourcesUnionsRoles(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "source_accounts_composers.csv",
		"ID,FIRST,MIDDLE,LAST,BIRTH,DEATH\n"+
			"100501,Ludwig,van,Beethoven,1770,1827\n")
	writeFixture(t, dir, "source_accounts_artists.csv",
		"ID,FIRST,MIDDLE,LAST,BIRTH,DEATH,ROLES,ORCHESTRA,ORCHESTRA_YEARS\n"+
			"100021,Leonard,,Bernstein,1918,1990,Piano,,\n")
	cfg := testConfig(dir)

	// The remote side already knows Bernstein as a conductor; the
	// export only says pianist. Neither role may be lost.
	server.Put(cortex.EntitySource, "100021", map[string][]string{
		"CoreField.Role": {"Conductor"},
	}, "")

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncSources(context.Background()); err != nil {
		t.Fatalf("SyncSources: %v", err)
	}

	artist := server.Get(cortex.EntitySource, "100021")
	if got := artist.FieldJoined("CoreField.Role"); got != "Conductor|Piano" {
		t.Fatalf("artist roles = %q, want union", got)
	}
	composer := server.Get(cortex.EntitySource, "100501")
	if composer == nil {
		t.Fatal("composer source not created")
	}
	if got := composer.FieldJoined("CoreField.Role"); got != "Composer" {
		t.Fatalf("composer roles = %q", got)
	}
	if got := composer.FieldJoined("CoreField.Last-name"); got != "Beethoven" {
		t.Fatalf("composer last name = %q", got)
	}
}

func TestSyncProgramSources(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "soloists.csv", "PROGRAM_ID,PERSON_ID\nPR_8800,100021\n")
	writeFixture(t, dir, "conductors.csv", "PROGRAM_ID,PERSON_ID\nPR_8800,100158\n")
	writeFixture(t, dir, "composers.csv", "PROGRAM_ID,PERSON_ID\nPR_8800,100501\n")
	cfg := testConfig(dir)

	server.Put(cortex.EntityProgram, "PR_8800", nil, "")

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncProgramSources(context.Background()); err != nil {
		t.Fatalf("SyncProgramSources: %v", err)
	}

	record := server.Get(cortex.EntityProgram, "PR_8800")
	if got := record.FieldJoined("NYP.Soloist"); !strings.Contains(got, "CoreField.Artist-ID=100021") {
		t.Fatalf("soloist link = %q", got)
	}
	if got := record.FieldJoined("NYP.Conductor"); !strings.Contains(got, "100158") {
		t.Fatalf("conductor link = %q", got)
	}
	if got := record.FieldJoined("NYP.Composer"); !strings.Contains(got, "CoreField.Composer-ID=100501") {
		t.Fatalf("composer link = %q", got)
	}
}

const businessRecordsXML = `<?xml version="1.0" encoding="UTF-8"?>
<inm:Results xmlns:inm="http://www.inmagic.com/webpublisher/query">
  <inm:Recordset>
    <inm:Record>
      <inm:BOX-NUMBER>012-06-25</inm:BOX-NUMBER>
      <inm:FOLDER-TITLE>Correspondence, General</inm:FOLDER-TITLE>
      <inm:SUB-SERIES>Zirato, Bruno</inm:SUB-SERIES>
      <inm:NAMES>Zirato, Bruno</inm:NAMES>
      <inm:MAKE-PUBLIC>Yes</inm:MAKE-PUBLIC>
    </inm:Record>
    <inm:Record>
      <inm:BOX-NUMBER>012-06-26</inm:BOX-NUMBER>
      <inm:FOLDER-TITLE>Contracts</inm:FOLDER-TITLE>
      <inm:NAMES>Zirato, Bruno</inm:NAMES>
      <inm:MAKE-PUBLIC>No</inm:MAKE-PUBLIC>
    </inm:Record>
  </inm:Recordset>
</inm:Results>`

func TestSyncBusinessRecords(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "CTLG1024-1_full.xml", businessRecordsXML)
	writeFixture(t, dir, "names-1.csv", "19990104|500100|Zirato, Bruno\n")
	cfg := testConfig(dir)

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncBusinessRecords(context.Background()); err != nil {
		t.Fatalf("SyncBusinessRecords: %v", err)
	}

	// Two folders share box 012-06; the container is created once.
	boxCalls := 0
	for _, call := range server.Calls() {
		if strings.HasPrefix(call.Action, cortex.EntityArchivesBox+":") {
			boxCalls++
		}
	}
	if boxCalls != 1 {
		t.Fatalf("archives box touched %d times, want 1", boxCalls)
	}
	box := server.Get(cortex.EntityArchivesBox, "BOX_012-06")
	if box == nil {
		t.Fatal("archives box not created")
	}
	if got := box.FieldJoined("CoreField.Title"); got != "Box 012-06" {
		t.Fatalf("box title = %q", got)
	}

	public := server.Get(cortex.EntityBusinessDoc, "BR_012-06-25")
	if public == nil {
		t.Fatal("business record not created")
	}
	if !strings.Contains(public.Parent, "BOX_012-06") {
		t.Fatalf("record parent = %q, want box reference", public.Parent)
	}
	if got := public.FieldJoined("CoreField.visibility-class"); got != "Public" {
		t.Fatalf("visibility = %q", got)
	}
	if got := public.FieldJoined("NYP.People"); !strings.Contains(got, "CoreField.DBText-ID=500100") {
		t.Fatalf("people link = %q", got)
	}

	hidden := server.Get(cortex.EntityBusinessDoc, "BR_012-06-26")
	if got := hidden.FieldJoined("CoreField.visibility-class"); got != "Hidden" {
		t.Fatalf("visibility = %q", got)
	}

	// The thesaurus person was materialized as a Source exactly once.
	person := server.Get(cortex.EntitySource, "500100")
	if person == nil {
		t.Fatal("named source not created")
	}
	if got := person.FieldJoined("CoreField.Last-name"); got != "Zirato, Bruno" {
		t.Fatalf("source name = %q", got)
	}
}
