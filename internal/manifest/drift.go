package manifest

import (
	"fmt"
	"os"

	"reviewhub/internal/section"
)

// SectionDrift reports one manifest section against the current source.
// An empty CurrentHash means the derived id no longer exists in the
// document: the section was removed, or its heading text changed (the two
// cases are indistinguishable because identity is derived from heading
// text).
type SectionDrift struct {
	SectionID    string `json:"sectionId"`
	OriginalHash string `json:"originalHash"`
	CurrentHash  string `json:"currentHash"`
}

// DriftResult summarizes how far the current source has moved from the
// state recorded in the manifest.
type DriftResult struct {
	HasDrifted   bool           `json:"hasDrifted"`
	OriginalHash string         `json:"originalHash"`
	CurrentHash  string         `json:"currentHash"`
	Sections     []SectionDrift `json:"sections"`
}

// Removed reports whether the section's derived id vanished from the
// current document.
func (d SectionDrift) Removed() bool {
	return d.CurrentHash == ""
}

// DetectDrift re-reads the manifest's source file and compares every
// recorded section against the freshly parsed document, matching purely by
// derived id. The stored manifest is never mutated.
func DetectDrift(m *Manifest) (DriftResult, error) {
	data, err := os.ReadFile(m.Source)
	if err != nil {
		return DriftResult{}, fmt.Errorf("detect drift: read source: %w", err)
	}
	text := string(data)

	result := DriftResult{
		OriginalHash: m.SourceHash,
		CurrentHash:  HashText(text),
	}

	current := make(map[string]string)
	for _, s := range section.Parse(text) {
		current[s.ID] = HashText(s.Text)
	}

	for _, s := range m.Sections {
		currentHash, ok := current[s.ID]
		if !ok {
			result.Sections = append(result.Sections, SectionDrift{
				SectionID:    s.ID,
				OriginalHash: s.SourceTextHash,
			})
			continue
		}
		if currentHash != s.SourceTextHash {
			result.Sections = append(result.Sections, SectionDrift{
				SectionID:    s.ID,
				OriginalHash: s.SourceTextHash,
				CurrentHash:  currentHash,
			})
		}
	}

	result.HasDrifted = result.CurrentHash != result.OriginalHash || len(result.Sections) > 0
	return result, nil
}
