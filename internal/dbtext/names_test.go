// File path: internal/dbtext/names_test.go
package dbtext

import (
	"strings"
	"testing"
)

const thesaurusCSV = `19990104|100021|Bernstein, Leonard
19990104|100158|Boulez, Pierre
19990212|100301|Mitropoulos, Dimitri
`

func loadTestIndex(t *testing.T) *NameIndex {
	t.Helper()
	index, err := ParseNameIndex(strings.NewReader(thesaurusCSV))
	if err != nil {
		t.Fatalf("ParseNameIndex: %v", err)
	}
	return index
}

func TestParseNameIndex(t *testing.T) {
	index := loadTestIndex(t)
	if index.Len() != 3 {
		t.Fatalf("indexed %d terms, want 3", index.Len())
	}
	id, ok := index.Exact("Boulez, Pierre")
	if !ok || id != "100158" {
		t.Fatalf("Exact(Boulez, Pierre) = %q, %v", id, ok)
	}
}

func TestParseNameIndexTwoColumns(t *testing.T) {
	index, err := ParseNameIndex(strings.NewReader("100021|Bernstein, Leonard\n"))
	if err != nil {
		t.Fatalf("ParseNameIndex: %v", err)
	}
	if id, ok := index.Exact("Bernstein, Leonard"); !ok || id != "100021" {
		t.Fatalf("Exact = %q, %v", id, ok)
	}
}

func TestMatchExact(t *testing.T) {
	index := loadTestIndex(t)
	id, term, score, ok := index.Match("Bernstein, Leonard")
	if !ok || id != "100021" || term != "Bernstein, Leonard" || score != 100 {
		t.Fatalf("Match = %q %q %d %v", id, term, score, ok)
	}
}

func TestMatchFuzzy(t *testing.T) {
	index := loadTestIndex(t)
	// Misspelled surname, as handwritten finding aids often have.
	id, term, score, ok := index.Match("Bernstien, Leonard")
	if !ok {
		t.Fatalf("fuzzy match rejected: term=%q score=%d", term, score)
	}
	if id != "100021" {
		t.Fatalf("fuzzy match id = %q", id)
	}
	if score >= 100 {
		t.Fatalf("non-exact match reported score %d", score)
	}
}

func TestMatchThreshold(t *testing.T) {
	cases := []struct {
		score int
		ok    bool
	}{
		{FuzzyThreshold - 1, false},
		{FuzzyThreshold, true},
	}
	for _, tc := range cases {
		index := loadTestIndex(t)
		index.scorer = func(name, candidate string) int {
			if candidate == "Bernstein, Leonard" {
				return tc.score
			}
			return 0
		}
		id, _, score, ok := index.Match("Bernstien, Leonard")
		if ok != tc.ok {
			t.Fatalf("score %d accepted=%v, want %v", tc.score, ok, tc.ok)
		}
		if score != tc.score {
			t.Fatalf("reported score = %d, want %d", score, tc.score)
		}
		if tc.ok && id != "100021" {
			t.Fatalf("accepted match id = %q", id)
		}
		if !tc.ok && id != "" {
			t.Fatalf("rejected match leaked id %q", id)
		}
	}
}

func TestMatchRejectsUnrelated(t *testing.T) {
	index := loadTestIndex(t)
	if id, _, score, ok := index.Match("Philharmonic Hall"); ok {
		t.Fatalf("unrelated name matched: id=%q score=%d", id, score)
	}
}

func TestMatchNilIndex(t *testing.T) {
	var index *NameIndex
	if _, _, _, ok := index.Match("anyone"); ok {
		t.Fatal("nil index produced a match")
	}
}
