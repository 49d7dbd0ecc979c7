package match

import (
	"strings"
	"time"
	"unicode"
)

// NameQuery is the set of normalized search criteria derived from one scan
// record. Building it never fails: absent input yields an empty variant set.
type NameQuery struct {
	// Variants are the normalized first-name forms, broadest first: the
	// full first name, then each individual token when it has multiple
	// parts. The export emits all-caps text and the directory stores
	// proper-case text, so every variant is title-cased.
	Variants []string `json:"variants"`

	// Canonical values used for exact-match promotion.
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Empty reports whether the query carries no usable criteria.
func (q NameQuery) Empty() bool {
	return len(q.Variants) == 0 && q.DateOfBirth == "" && q.LastName == ""
}

// BuildQuery normalizes free-text name parts and a date of birth into a
// NameQuery. Pure and total: no I/O, deterministic, never fails.
func BuildQuery(firstName, lastName, dateOfBirth string) NameQuery {
	first := TitleCase(firstName)
	last := TitleCase(lastName)

	var variants []string
	if first != "" {
		variants = append(variants, first)
		tokens := strings.Fields(first)
		if len(tokens) > 1 {
			variants = append(variants, tokens...)
		}
	}

	return NameQuery{
		Variants:    dedupeStrings(variants),
		FirstName:   first,
		LastName:    last,
		DateOfBirth: NormalizeDOB(dateOfBirth),
	}
}

// TitleCase folds each whitespace-delimited token to first-rune-upper,
// remainder-lower form.
func TitleCase(s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		runes := []rune(strings.ToLower(tok))
		runes[0] = unicode.ToUpper(runes[0])
		tokens[i] = string(runes)
	}
	return strings.Join(tokens, " ")
}

var dobLayouts = []string{"01-02-2006", "01/02/2006"}

// NormalizeDOB reformats MM-DD-YYYY (or MM/DD/YYYY) values as YYYY-MM-DD,
// the shape the directory query expects. Unparsable values pass through
// unchanged rather than failing.
func NormalizeDOB(dob string) string {
	dob = strings.TrimSpace(dob)
	if dob == "" {
		return ""
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, dob); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return dob
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
