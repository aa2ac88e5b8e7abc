// Package search decides which lines to show, and where the hits in them are.
package search

import (
	"bytes"
	"regexp"
	"unicode"

	"github.com/charlievieth/strcase"
)

type Search struct {
	findMe string

	// If this is false it means the input has to be interpreted as a regexp.
	isSubstringSearch bool

	hasUppercase bool

	pattern *regexp.Regexp
}

func (search Search) Equals(other Search) bool {
	return search.findMe == other.findMe
}

func (search Search) String() string {
	return search.findMe
}

func For(s string) Search {
	search := Search{}
	search.For(s)
	return search
}

func (search *Search) For(s string) *Search {
	search.findMe = s
	if s == "" {
		// No search
		search.pattern = nil
		return search
	}

	search.hasUppercase = false
	for _, char := range s {
		if unicode.IsUpper(char) {
			search.hasUppercase = true
			break
		}
	}

	caseFlag := "(?i)"
	if search.hasUppercase {
		caseFlag = ""
	}

	var err error
	hasSpecialChars := regexp.QuoteMeta(s) != s
	search.pattern, err = regexp.Compile(caseFlag + s)
	isValidRegexp := err == nil
	regexpMatchingRequired := hasSpecialChars && isValidRegexp
	search.isSubstringSearch = !regexpMatchingRequired

	if search.isSubstringSearch {
		// Pattern still needed for GetMatchRanges()
		search.pattern, err = regexp.Compile(caseFlag + regexp.QuoteMeta(s))
		if err != nil {
			panic(err)
		}

		return search
	}

	// At this point we know it's a valid regexp, and that it does include
	// regexp specific characters. We also know the pattern has been
	// successfully compiled.

	return search
}

func (search *Search) Stop() {
	search.findMe = ""
	search.pattern = nil
}

func (search Search) Active() bool {
	return search.findMe != ""
}

func (search Search) Inactive() bool {
	return search.findMe == ""
}

func (search Search) Matches(line []byte) bool {
	if search.findMe == "" {
		return false
	}

	if search.isSubstringSearch && search.hasUppercase {
		// Case sensitive substring search
		return bytes.Contains(line, []byte(search.findMe))
	}

	if search.isSubstringSearch && !search.hasUppercase {
		// Case insensitive substring search
		return strcase.Contains(string(line), search.findMe)
	}

	// Regexp search, case sensitivity is baked into the pattern
	return search.pattern.Match(line)
}

// GetMatchRanges locates one or more matches in a line. Ranges are byte
// offsets into the line.
func (search Search) GetMatchRanges(line []byte) *MatchRanges {
	if search.Inactive() {
		return nil
	}

	var matches [][2]int
	for _, match := range search.pattern.FindAllIndex(line, -1) {
		if match[0] == match[1] {
			// Empty matches have nothing to highlight
			continue
		}
		matches = append(matches, [2]int{match[0], match[1]})
	}

	return &MatchRanges{Matches: matches}
}
