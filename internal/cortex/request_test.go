// File path: internal/cortex/request_test.go
package cortex

import "testing"

func TestQueryPathEncoding(t *testing.T) {
	req := NewRequest(EntityProgram, ActionCreateOrUpdate,
		Key("CoreField.Legacy-Identifier", "PR_8800"),
		Set("CoreField.Title", "Wk 5 / Masur"),
		Append("NYP.Composer/Work", "Beethoven / Symphony No. 5"),
		Clear("NYP.Soloist"),
	)
	want := EntityProgram + ":CreateOrUpdate" +
		"?CoreField.Legacy-Identifier=PR_8800" +
		"&CoreField.Title:=Wk+5+%2F+Masur" +
		"&NYP.Composer/Work++=Beethoven+%2F+Symphony+No.+5" +
		"&NYP.Soloist--="
	if got := req.QueryPath(); got != want {
		t.Fatalf("QueryPath:\n got %s\nwant %s", got, want)
	}
}

func TestQueryPathLinks(t *testing.T) {
	req := NewRequest(EntityProgramWork, ActionUpdate,
		Key("CoreField.Legacy-Identifier", "PW_1"),
		Link("NYP.Composer/-Work", EntityWork, "CoreField.Legacy-Identifier", "WORK_44"),
		SetLink("CoreField.Parent-folder", EntityProgram, "CoreField.Legacy-identifier", "PR_8800"),
	)
	want := EntityProgramWork + ":Update" +
		"?CoreField.Legacy-Identifier=PW_1" +
		"&NYP.Composer/-Work+=%5BDocuments.Virtual-folder.Work%3ACoreField.Legacy-Identifier%3DWORK_44%5D" +
		"&CoreField.Parent-folder:=%5BDocuments.Virtual-folder.Program%3ACoreField.Legacy-identifier%3DPR_8800%5D"
	if got := req.QueryPath(); got != want {
		t.Fatalf("QueryPath:\n got %s\nwant %s", got, want)
	}
}

func TestQueryPathPaired(t *testing.T) {
	req := NewRequest(EntityProgramWork, ActionUpdate,
		Paired("NYP.Soloist-/-Instrument", "Stern, Isaac / Violin", "Soloist"),
	)
	want := EntityProgramWork + ":Update" +
		"?NYP.Soloist-/-Instrument++=Stern%2C+Isaac+%2F+Violin%7B%27LinkedKeyword%27%3A%27Soloist%27%7D"
	if got := req.QueryPath(); got != want {
		t.Fatalf("QueryPath:\n got %s\nwant %s", got, want)
	}
}

func TestFormKeysCarryOperator(t *testing.T) {
	req := NewRequest(EntityProgram, ActionUpdate,
		Key("CoreField.Legacy-Identifier", "PR_8800"),
		Set("CoreField.Title", "a title"),
		Append("NYP.Season", "1999-2000"),
		Clear("NYP.Conductor"),
		Link("NYP.Conductor", EntitySource, "CoreField.Artist-ID", "100021"),
	).WithFormBody()

	form := req.Form()
	cases := []struct{ key, want string }{
		{"CoreField.Legacy-Identifier", "PR_8800"},
		{"CoreField.Title:", "a title"},
		{"NYP.Season++", "1999-2000"},
		{"NYP.Conductor--", ""},
		{"NYP.Conductor+", "[" + EntitySource + ":CoreField.Artist-ID=100021]"},
	}
	for _, tc := range cases {
		got, present := form[tc.key]
		if !present {
			t.Fatalf("form missing key %q (have %v)", tc.key, form)
		}
		if got[0] != tc.want {
			t.Fatalf("form[%q] = %q, want %q", tc.key, got[0], tc.want)
		}
	}
	if req.ActionPath() != EntityProgram+":Update" {
		t.Fatalf("ActionPath = %q", req.ActionPath())
	}
}

func TestFormKeepsRepeatedOps(t *testing.T) {
	req := NewRequest(EntityProgram, ActionUpdate,
		Key("CoreField.Legacy-Identifier", "PR_8800"),
		Append("NYP.Season", "1999-2000"),
		Append("NYP.Season", "2000-01"),
	).WithFormBody()

	got := req.Form()["NYP.Season++"]
	if len(got) != 2 {
		t.Fatalf("form[NYP.Season++] = %v, want two values", got)
	}
	if got[0] != "1999-2000" || got[1] != "2000-01" {
		t.Fatalf("form[NYP.Season++] = %v, order lost", got)
	}
}

func TestIsClear(t *testing.T) {
	if !Clear("NYP.Soloist").IsClear() {
		t.Fatal("Clear op not reported as clear")
	}
	if Set("CoreField.Title", "x").IsClear() {
		t.Fatal("Set op reported as clear")
	}
}
