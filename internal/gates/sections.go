package gates

import (
	"regexp"
	"strings"
)

// Section ids required in every specification document
const (
	SectionIOExamples          = "io_examples"
	SectionBoundaryValues      = "boundary_values"
	SectionExceptionResponses  = "exception_responses"
	SectionAcceptanceScenarios = "acceptance_scenarios"
)

// RequiredSections returns the section ids Gate C tests, in report order
func RequiredSections() []string {
	return []string{
		SectionIOExamples,
		SectionBoundaryValues,
		SectionExceptionResponses,
		SectionAcceptanceScenarios,
	}
}

// SectionMatcher decides whether a specification document contains a
// required section. Kept behind an interface so the regex heuristic can be
// replaced with a structured parser without touching gate control flow.
type SectionMatcher interface {
	Match(doc string, sectionID string) bool
}

// regexMatcher is the heuristic first-pass implementation: a section is
// present when a matching markdown heading exists and its body is more than
// a placeholder token.
type regexMatcher struct {
	headings map[string]*regexp.Regexp
}

var headingPatterns = map[string]string{
	SectionIOExamples:          `(?im)^#{1,6}\s.*(input\s*/?\s*output|i/o)\s+examples?`,
	SectionBoundaryValues:      `(?im)^#{1,6}\s.*boundary\s+(values?|conditions?)`,
	SectionExceptionResponses:  `(?im)^#{1,6}\s.*(exception|error)\s+(responses?|handling)`,
	SectionAcceptanceScenarios: `(?im)^#{1,6}\s.*acceptance\s+(scenarios?|criteria)`,
}

// placeholders are tokens that mark a section as written-but-empty
var placeholders = map[string]bool{
	"tbd":  true,
	"todo": true,
	"n/a":  true,
}

var headingLine = regexp.MustCompile(`(?m)^#{1,6}\s`)

// NewSectionMatcher returns the default regex-based matcher
func NewSectionMatcher() SectionMatcher {
	m := &regexMatcher{headings: make(map[string]*regexp.Regexp)}
	for id, pattern := range headingPatterns {
		m.headings[id] = regexp.MustCompile(pattern)
	}
	return m
}

func (m *regexMatcher) Match(doc, sectionID string) bool {
	re, ok := m.headings[sectionID]
	if !ok {
		return false
	}

	loc := re.FindStringIndex(doc)
	if loc == nil {
		return false
	}

	// A heading whose body is only a placeholder counts as missing.
	body := sectionBody(doc, loc[1])
	return !isPlaceholder(body)
}

// sectionBody returns the text between a heading and the next heading
func sectionBody(doc string, start int) string {
	rest := doc[start:]
	// Skip to the end of the heading line itself.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	if next := headingLine.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest
}

func isPlaceholder(body string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(body))
	trimmed = strings.Trim(trimmed, "-*_ \t")
	if trimmed == "" {
		return true
	}
	return placeholders[strings.TrimSuffix(trimmed, ".")]
}
