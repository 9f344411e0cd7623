package section

import (
	"fmt"
	"strings"
)

// Section describes one heading-delimited span of a markdown document.
// Line numbers are 1-based and inclusive; a section runs from its heading
// line to the line before the next heading at any level, or end of file.
type Section struct {
	ID          string
	HeadingPath []string
	Level       int
	Occurrence  int
	LineStart   int
	LineEnd     int
	Text        string
}

const maxHeadingLevel = 6

// Parse splits a markdown document into ordered sections. It is a pure
// function: no I/O, deterministic output for identical input. A document
// without any ATX heading yields an empty slice; callers decide whether
// that is an error.
func Parse(text string) []Section {
	lines := splitLines(text)

	var sections []Section
	occurrences := make(map[string]int)

	// Heading-level stack: setting level L overwrites slot L-1 and clears
	// everything above it.
	stack := make([]string, maxHeadingLevel)
	depth := 0

	var open *Section
	openStart := 0

	closeSection := func(endLine int) {
		if open == nil {
			return
		}
		open.LineEnd = endLine
		open.Text = strings.Join(lines[openStart-1:endLine], "\n")
		sections = append(sections, *open)
		open = nil
	}

	for i, line := range lines {
		level, title, ok := parseHeading(line)
		if !ok {
			continue
		}

		closeSection(i) // previous section ends on the line above

		stack[level-1] = title
		for j := level; j < maxHeadingLevel; j++ {
			stack[j] = ""
		}
		if level > depth {
			depth = level
		}

		path := make([]string, 0, level)
		for j := 0; j < level; j++ {
			if stack[j] != "" {
				path = append(path, stack[j])
			}
		}

		pathSlug := slugPath(path)
		occ := occurrences[pathSlug]
		occurrences[pathSlug] = occ + 1

		id := "s-" + pathSlug
		if occ > 0 {
			id = fmt.Sprintf("%s-%d", id, occ)
		}

		openStart = i + 1
		open = &Section{
			ID:          id,
			HeadingPath: path,
			Level:       level,
			Occurrence:  occ,
			LineStart:   openStart,
		}
	}

	closeSection(len(lines))
	return sections
}

// parseHeading reports whether line is an ATX heading and returns its
// level and title. Hashes must be followed by whitespace and a non-empty
// title; "#   " alone is body text, not a heading.
func parseHeading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > maxHeadingLevel {
		return 0, "", false
	}
	rest := line[level:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return 0, "", false
	}
	title := strings.TrimSpace(rest)
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}

func splitLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}

// Slug lowercases a heading component and collapses every run of
// characters outside [a-z0-9] into a single hyphen.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}

func slugPath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = Slug(p)
	}
	return strings.Join(parts, "--")
}
