package main

import (
	"context"
	"fmt"
	"strings"

	"reviewhub/internal/manifest"
	"reviewhub/internal/tts"
)

// scriptedWalkthrough is the built-in script author: a two-speaker
// walkthrough where S1 announces each section and S2 reads its body.
// Richer narration (an LLM-authored dialogue, for example) can replace it
// through the pipeline's ScriptAuthor hook.
func scriptedWalkthrough(_ context.Context, m *manifest.Manifest, source string) (tts.Script, error) {
	lines := strings.Split(source, "\n")
	script := tts.Script{Language: m.Language}

	for _, section := range m.Sections {
		heading := strings.Join(section.HeadingPath, ", ")
		script.Segments = append(script.Segments, tts.Segment{
			SectionID: section.ID,
			Speaker:   "S1",
			Text:      fmt.Sprintf("Next section: %s.", heading),
		})

		body := sectionBody(lines, section)
		if body == "" {
			continue
		}
		script.Segments = append(script.Segments, tts.Segment{
			SectionID: section.ID,
			Speaker:   "S2",
			Text:      body,
		})
	}

	return script, nil
}

// sectionBody flattens a section's prose for narration, dropping the
// heading line and markdown list markers.
func sectionBody(lines []string, section manifest.Section) string {
	start := section.SourceLineStart
	end := section.SourceLineEnd
	if start < 1 || end > len(lines) || start > end {
		return ""
	}

	var parts []string
	for _, line := range lines[start-1 : end] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.TrimPrefix(trimmed, "* ")
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, " ")
}
