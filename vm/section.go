package leg

import (
	"strings"

	"github.com/pkg/errors"
)

// Section is a named block of source text: a `.name arg0 arg1 ...`
// header followed by its body lines, in source order.
type Section struct {
	Name string
	Args []string
	Body []string
}

// parseSections splits source text into an ordered list of sections.
// A header is any non-empty line beginning with `.`; everything up to
// the next header (or end of input) is that section's body. Blank
// lines are dropped. A duplicate section name fails.
func parseSections(source string) ([]Section, error) {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ".") {
			if current != nil {
				sections = append(sections, *current)
			}
			fields := strings.Fields(strings.TrimPrefix(trimmed, "."))
			if len(fields) == 0 {
				return nil, errors.Errorf("section-syntax: empty section header %q", line)
			}
			current = &Section{Name: fields[0], Args: fields[1:]}
			continue
		}

		if current == nil {
			return nil, errors.Errorf("section-syntax: body line before any section header: %q", line)
		}
		current.Body = append(current.Body, line)
	}
	if current != nil {
		sections = append(sections, *current)
	}

	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if seen[s.Name] {
			return nil, errors.Errorf("duplicate-section: .%s", s.Name)
		}
		seen[s.Name] = true
	}

	return sections, nil
}

// findSection returns the named section, if present.
func findSection(sections []Section, name string) (Section, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
