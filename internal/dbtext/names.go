// File path: internal/dbtext/names.go
package dbtext

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// FuzzyThreshold is the minimum similarity score (0-100) at which a
// fuzzy thesaurus match is accepted.
const FuzzyThreshold = 90

// NameIndex is the DBText name thesaurus: a read-only term → DBText-ID
// mapping shared by every business record in a run.
type NameIndex struct {
	ids   map[string]string
	terms []string

	// scorer rates a name against a candidate term, 0-100. Defaults to
	// the token-sort ratio; tests substitute fixed scores to pin the
	// acceptance boundary.
	scorer func(name, candidate string) int
}

// tokenSortRatio adapts fuzzy.TokenSortRatio's variadic signature to
// the scorer field type.
func tokenSortRatio(name, candidate string) int {
	return fuzzy.TokenSortRatio(name, candidate)
}

// LoadNameIndex reads the pipe-delimited thesaurus export
// (changed-date | id | term).
func LoadNameIndex(path string) (*NameIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open name thesaurus: %w", err)
	}
	defer file.Close()
	return ParseNameIndex(file)
}

// ParseNameIndex reads thesaurus rows from r.
func ParseNameIndex(r io.Reader) (*NameIndex, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.FieldsPerRecord = -1
	index := &NameIndex{ids: make(map[string]string), scorer: tokenSortRatio}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read name thesaurus: %w", err)
		}
		var id, term string
		switch {
		case len(row) >= 3:
			id, term = strings.TrimSpace(row[1]), strings.TrimSpace(row[2])
		case len(row) == 2:
			id, term = strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		default:
			continue
		}
		if id == "" || term == "" {
			continue
		}
		if _, exists := index.ids[term]; !exists {
			index.terms = append(index.terms, term)
		}
		index.ids[term] = id
	}
	return index, nil
}

// Len returns the number of indexed terms.
func (n *NameIndex) Len() int {
	if n == nil {
		return 0
	}
	return len(n.terms)
}

// Exact returns the DBText ID for a verbatim thesaurus term.
func (n *NameIndex) Exact(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	id, ok := n.ids[name]
	return id, ok
}

// Match resolves a name to a DBText ID: exact lookup first, then the
// best fuzzy candidate, accepted only at or above FuzzyThreshold.
// The matched term and its score are returned for audit logging.
func (n *NameIndex) Match(name string) (id, term string, score int, ok bool) {
	if id, exact := n.Exact(name); exact {
		return id, name, 100, true
	}
	term, score = n.bestCandidate(name)
	if score < FuzzyThreshold {
		return "", term, score, false
	}
	id = n.ids[term]
	return id, term, score, true
}

func (n *NameIndex) bestCandidate(name string) (string, int) {
	if n == nil {
		return "", 0
	}
	rate := n.scorer
	if rate == nil {
		rate = tokenSortRatio
	}
	best, bestScore := "", -1
	for _, candidate := range n.terms {
		score := rate(name, candidate)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, bestScore
}
