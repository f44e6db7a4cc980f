package domain

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCounty canonicalizes a county name: whitespace collapsed, a trailing
// "County" removed, title-cased. "  LOS  ANGELES COUNTY" -> "Los Angeles".
func NormalizeCounty(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > len(" county") && strings.EqualFold(s[len(s)-len(" county"):], " county") {
		s = s[:len(s)-len(" county")]
	}
	if s == "" {
		return ""
	}
	// A Caser carries state, so build one per call.
	return cases.Title(language.English).String(s)
}

// SplitCounties splits a comma-separated county list into normalized names.
// Empty entries are skipped.
func SplitCounties(text string) []string {
	parts := strings.Split(text, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := NormalizeCounty(p); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// CountySet is the set of county names known from the boundary source.
type CountySet struct {
	byKey map[string]string
	names []string
}

// NewCountySet builds a set from county names; duplicates collapse.
func NewCountySet(names []string) *CountySet {
	s := &CountySet{byKey: make(map[string]string, len(names))}
	for _, n := range names {
		canonical := NormalizeCounty(n)
		if canonical == "" {
			continue
		}
		key := strings.ToLower(canonical)
		if _, ok := s.byKey[key]; ok {
			continue
		}
		s.byKey[key] = canonical
		s.names = append(s.names, canonical)
	}
	slices.Sort(s.names)
	return s
}

// Len returns the number of counties in the set.
func (s *CountySet) Len() int { return len(s.names) }

// Names returns the county names in sorted order.
func (s *CountySet) Names() []string { return slices.Clone(s.names) }

// Lookup returns the canonical name for raw if it names a known county.
func (s *CountySet) Lookup(raw string) (string, bool) {
	n := NormalizeCounty(raw)
	if n == "" {
		return "", false
	}
	canonical, ok := s.byKey[strings.ToLower(n)]
	return canonical, ok
}

// Infer finds a county name embedded in free text such as a station name.
// The match that starts earliest wins; among those the longest, so
// "SAN LUIS OBISPO AIRPORT" yields "San Luis Obispo" rather than a shorter name.
func (s *CountySet) Infer(text string) (string, bool) {
	haystack := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if haystack == "" {
		return "", false
	}
	best, bestPos := "", -1
	for _, name := range s.names {
		pos := indexWord(haystack, strings.ToLower(name))
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(name) > len(best)) {
			best, bestPos = name, pos
		}
	}
	return best, bestPos >= 0
}

// indexWord returns the first index of needle in haystack that starts and ends
// on a word boundary, or -1.
func indexWord(haystack, needle string) int {
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if (start == 0 || !isWordByte(haystack[start-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return start
		}
		offset = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
