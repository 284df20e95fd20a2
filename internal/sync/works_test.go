// File path: internal/sync/works_test.go
package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/cortex/cortextest"
)

const programWorksXML = `<programs>
  <row>
    <id>12345</id>
    <season>1999-00</season>
    <orchestra_name>New York Philharmonic</orchestra_name>
    <date>01/12/2000</date>
    <date>01/15/2000</date>
    <performance_time>8:00PM</performance_time>
    <performance_time>8:00PM</performance_time>
    <location_name>Manhattan, NY</location_name>
    <venue_name>Avery Fisher Hall</venue_name>
    <sub_event_names>Subscription Season</sub_event_names>
    <program_works_ids>12345*1</program_works_ids>
    <program_works_ids>12345*2</program_works_ids>
    <works_ids>811</works_ids>
    <works_ids>0</works_ids>
    <composer_number>121</composer_number>
    <composer_number>0</composer_number>
    <composer_title_short>Beethoven / Symphony No. 5</composer_title_short>
    <composer_title_short>Intermission, / .</composer_title_short>
    <title_short>Symphony No. 5</title_short>
    <title_short>.</title_short>
    <title_pipes>Symphony No. 5, C minor, Op. 67 | I. Allegro con brio</title_pipes>
    <title_pipes>.</title_pipes>
    <works_conductors_ids>1048</works_conductors_ids>
    <works_conductors_ids></works_conductors_ids>
    <works_encore>N</works_encore>
    <works_encore>N</works_encore>
    <works_soloists_functions>S;A</works_soloists_functions>
    <works_soloists_functions></works_soloists_functions>
    <works_soloists_ids>4404;5583</works_soloists_ids>
    <works_soloists_ids></works_soloists_ids>
    <works_soloists_names>Bronfman, Yefim;Dutton, Lawrence</works_soloists_names>
    <works_soloists_names></works_soloists_names>
    <works_soloists_inst_names>Piano;Viola</works_soloists_inst_names>
    <works_soloists_inst_names></works_soloists_inst_names>
  </row>
</programs>`

func TestSyncProgramWorks(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "program_updates.xml", programWorksXML)
	cfg := testConfig(dir)

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncProgramWorks(context.Background()); err != nil {
		t.Fatalf("SyncProgramWorks: %v", err)
	}

	junction := server.Get(cortex.EntityProgramWork, "12345-1")
	if junction == nil {
		t.Fatal("program work not created")
	}
	if got := junction.FieldJoined("CoreField.Title"); got != "Beethoven / Symphony No. 5 / I. Allegro con brio" {
		t.Fatalf("junction title = %q", got)
	}
	if !strings.Contains(junction.Parent, "12345") {
		t.Fatalf("junction parent = %q, want program reference", junction.Parent)
	}
	if got := junction.FieldJoined("CoreField.visibility-class"); got != "Public" {
		t.Fatalf("visibility = %q, performance is long past", got)
	}
	if got := junction.FieldJoined("NYP.Conductor"); !strings.Contains(got, "CoreField.Artist-ID=1048") {
		t.Fatalf("conductor link = %q", got)
	}

	paired := junction.Fields["NYP.Soloist-/-Instrument-/-Role"]
	if len(paired) != 2 {
		t.Fatalf("paired soloist values = %v", paired)
	}
	if paired[0] != "Bronfman, Yefim / Piano{'LinkedKeyword':'Soloist'}" {
		t.Fatalf("soloist pair = %q", paired[0])
	}
	if paired[1] != "Dutton, Lawrence / Viola{'LinkedKeyword':'Assisting Artist'}" {
		t.Fatalf("assisting artist pair = %q", paired[1])
	}

	if server.Get(cortex.EntityProgramWork, "12345-2") != nil {
		t.Fatal("intermission entry should be skipped")
	}

	work := server.Get(cortex.EntityWork, "WORK_811")
	if work == nil {
		t.Fatal("shared work not created")
	}
	if got := work.FieldJoined("CoreField.Title"); got != "Beethoven / Symphony No. 5" {
		t.Fatalf("work title = %q", got)
	}
	if !strings.Contains(work.Parent, cfg.WorkParentID) {
		t.Fatalf("work parent = %q, want default parent", work.Parent)
	}
}

func TestSyncProgramWorksKeepsCuratedWorkParent(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "program_updates.xml", programWorksXML)
	cfg := testConfig(dir)

	curated := "[Documents.All:CoreField.Identifier=CURATED1]"
	server.Put(cortex.EntityWork, "WORK_811", nil, curated)

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SyncProgramWorks(context.Background()); err != nil {
		t.Fatalf("SyncProgramWorks: %v", err)
	}

	work := server.Get(cortex.EntityWork, "WORK_811")
	if work.Parent != curated {
		t.Fatalf("work parent = %q, curated placement must survive", work.Parent)
	}
	if got := work.FieldJoined("NYP.Work-Title-Short"); got != "Symphony No. 5" {
		t.Fatalf("work short title = %q", got)
	}
}

func TestSweepVisibilityFlipsPastPendingWorks(t *testing.T) {
	server := cortextest.NewServer()
	defer server.Close()

	cfg := testConfig(t.TempDir())

	// Junctions synced in earlier runs; neither appears in any current
	// delta feed. One performance is long past, one is not yet due.
	server.Put(cortex.EntityProgramWork, "11111-1", map[string][]string{
		"CoreField.Legacy-Identifier": {"11111-1"},
		"CoreField.visibility-class":  {"Pending"},
		"NYP.Program-Date-Range":      {"2000-01-12/2000-01-15"},
	}, "")
	server.Put(cortex.EntityProgramWork, "22222-1", map[string][]string{
		"CoreField.Legacy-Identifier": {"22222-1"},
		"CoreField.visibility-class":  {"Pending"},
		"NYP.Program-Date-Range":      {"2050-06-01/2050-06-03"},
	}, "")

	syncer := newTestSyncer(t, server, cfg)
	if err := syncer.SweepVisibility(context.Background()); err != nil {
		t.Fatalf("SweepVisibility: %v", err)
	}

	past := server.Get(cortex.EntityProgramWork, "11111-1")
	if got := past.FieldJoined("CoreField.visibility-class"); got != "Public" {
		t.Fatalf("past-dated junction = %q, want Public", got)
	}
	future := server.Get(cortex.EntityProgramWork, "22222-1")
	if got := future.FieldJoined("CoreField.visibility-class"); got != "Pending" {
		t.Fatalf("future-dated junction = %q, want Pending", got)
	}
}

func TestRangeStarted(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		dateRange string
		want      bool
	}{
		{"2000-01-12/2000-01-15", true},
		{"2050-06-01/2050-06-03", false},
		{"", false},
		{"not a range", false},
	}
	for _, tc := range cases {
		if got := rangeStarted(tc.dateRange, now); got != tc.want {
			t.Fatalf("rangeStarted(%q) = %v, want %v", tc.dateRange, got, tc.want)
		}
	}
}

func TestJunctionTitle(t *testing.T) {
	work := carlos.ProgramWork{
		ComposerName: "Beethoven",
		TitleShort:   "Symphony No. 5",
		Movement:     "I. Allegro con brio",
	}
	if got := junctionTitle(work); got != "Beethoven / Symphony No. 5 / I. Allegro con brio" {
		t.Fatalf("junctionTitle = %q", got)
	}

	work.Movement = ""
	work.TitleShort = strings.Repeat("x", 300)
	got := junctionTitle(work)
	if len([]rune(got)) > maxTitleLen {
		t.Fatalf("title not truncated: %d runes", len([]rune(got)))
	}
	if strings.HasSuffix(got, "/") || strings.HasSuffix(got, " ") {
		t.Fatalf("dangling separator after truncation: %q", got)
	}
}

func TestWorkVisibility(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		dates []string
		want  string
	}{
		{[]string{"01/12/2000"}, "Public"},
		{[]string{"01/12/2050"}, "Pending"},
		{nil, "Pending"},
		{[]string{"not a date"}, "Pending"},
	}
	for _, tc := range cases {
		program := carlos.Program{Dates: tc.dates}
		if got := workVisibility(program, now); got != tc.want {
			t.Fatalf("workVisibility(%v) = %q, want %q", tc.dates, got, tc.want)
		}
	}
}
