// File path: internal/carlos/clean.go
package carlos

import (
	"regexp"
	"strings"
	"time"
)

var emphasisPattern = regexp.MustCompile(`<(.*?)>`)

// StripAngleBrackets removes literal angle brackets from Carlos text,
// which uses them to mark emphasized title fragments.
func StripAngleBrackets(text string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(text)
}

// EmphasizeAngleBrackets rewrites Carlos emphasis markers as HTML <em>
// tags for fields that Cortex renders as rich text.
func EmphasizeAngleBrackets(text string) string {
	return emphasisPattern.ReplaceAllString(text, "<em>$1</em>")
}

// CollapseSpaces folds the double spaces Carlos leaves behind when a
// name component is blank.
func CollapseSpaces(text string) string {
	return strings.ReplaceAll(text, "  ", " ")
}

// SanitizeName prepares a person name for the wire: straight quotes and
// ampersands confuse the DAM's contact matching.
func SanitizeName(text string) string {
	return strings.NewReplacer(`"`, "'", "&", "and").Replace(text)
}

// EscapeMarkup XML-escapes ampersands in values the DAM stores as markup.
func EscapeMarkup(text string) string {
	return strings.ReplaceAll(text, "&", "&amp;")
}

// SeasonFix corrects the known upstream defect where the 1899-1900 and
// 1999-2000 seasons are exported as "1899-00"/"1999-00": the second
// component becomes first-year+1.
func SeasonFix(season string) string {
	if len(season) != 7 || !strings.HasSuffix(season, "00") {
		return season
	}
	year := strings.SplitN(season, "-", 2)[0]
	next, err := nextYear(year)
	if err != nil {
		return season
	}
	return year + "-" + next
}

func nextYear(year string) (string, error) {
	t, err := time.Parse("2006", year)
	if err != nil {
		return "", err
	}
	return t.AddDate(1, 0, 0).Format("2006"), nil
}

// ReformatDate converts a date string between two reference layouts.
func ReformatDate(value, inLayout, outLayout string) (string, error) {
	t, err := time.Parse(inLayout, value)
	if err != nil {
		return "", err
	}
	return t.Format(outLayout), nil
}

// ProcessDate normalizes the loosely formatted DBText dates: full
// "02 Jan 2006" values are reformatted, bare years become January 1st,
// anything else is treated as absent.
func ProcessDate(value, outLayout string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) >= 10:
		out, err := ReformatDate(value, "02 Jan 2006", outLayout)
		if err != nil {
			return ""
		}
		return out
	case len(value) == 4:
		out, err := ReformatDate("01/01/"+value, "01/02/2006", outLayout)
		if err != nil {
			return ""
		}
		return out
	default:
		return ""
	}
}

// DateRange renders "first/last" from an ordered date list, swapping the
// endpoints when the source order is reversed.
func DateRange(dates []string, inLayout, outLayout string) string {
	if len(dates) == 0 {
		return ""
	}
	first, last := dates[0], dates[len(dates)-1]
	if first == "" || last == "" {
		return ""
	}
	from, err := ReformatDate(first, inLayout, outLayout)
	if err != nil {
		return ""
	}
	to, err := ReformatDate(last, inLayout, outLayout)
	if err != nil {
		return ""
	}
	if from > to {
		from, to = to, from
	}
	return from + "/" + to
}
