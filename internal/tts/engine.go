package tts

import (
	"context"
	"fmt"

	"reviewhub/internal/installer"
	"reviewhub/internal/language"
)

// Segment is one speaker-tagged utterance of the dialogue script, anchored
// to the section it discusses. Segments for the same section are always
// contiguous; the script authoring contract never interleaves sections.
type Segment struct {
	SectionID string `json:"sectionId"`
	Speaker   string `json:"speaker"` // "S1" or "S2"
	Text      string `json:"text"`
	// Direction optionally annotates delivery ("laughs", "pauses", ...).
	// Engines map it to native tokens or silence as they support.
	Direction string `json:"direction,omitempty"`
}

// Script is a complete dialogue script for one review.
type Script struct {
	Language string    `json:"language"`
	GapMs    int       `json:"gapMs"`
	Segments []Segment `json:"segments"`
}

// SectionIDs returns the distinct section ids in script order.
func (s Script) SectionIDs() []string {
	var ids []string
	last := ""
	for _, seg := range s.Segments {
		if seg.SectionID != last {
			ids = append(ids, seg.SectionID)
			last = seg.SectionID
		}
	}
	return ids
}

// SectionTimestamp is one section's span within the generated audio.
type SectionTimestamp struct {
	SectionID string  `json:"sectionId"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Result is a successful generation: the audio file on disk, its container
// format, and the authoritative per-section timing table. Sections the
// engine had to skip are listed rather than silently dropped.
type Result struct {
	AudioPath  string
	Format     string
	Timestamps []SectionTimestamp
	Skipped    []string
}

// Progress reports one unit of engine work.
type Progress struct {
	Phase        string
	SectionID    string
	SegmentIndex int
	// ETASeconds is an estimate of remaining work, when the engine
	// provides one. Negative means unknown.
	ETASeconds float64
}

// ProgressFunc receives engine progress events.
type ProgressFunc func(Progress)

// Engine is one interchangeable synthesis engine. Implementations own
// their dependency-installation lifecycle through the installer.
type Engine interface {
	Name() string
	SupportedLanguages() []string
	IsAvailable(ctx context.Context) bool
	Install(ctx context.Context, onProgress installer.ProgressFunc, onConfirm installer.ConfirmFunc) error
	GenerateAudio(ctx context.Context, script Script, outputDir string, onProgress ProgressFunc) (Result, error)
}

// UnsupportedLanguageError is returned when no engine declares support for
// the requested language.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("no synthesis engine supports language %q (%s)",
		e.Language, language.DisplayName(e.Language))
}

// ForLanguage picks the first engine declaring support for the requested
// language. Engines are not ranked by quality; declaration order decides
// ties.
func ForLanguage(engines []Engine, lang string) (Engine, error) {
	normalized := language.Normalize(lang)
	if normalized == "" {
		return nil, &UnsupportedLanguageError{Language: lang}
	}
	for _, engine := range engines {
		for _, supported := range engine.SupportedLanguages() {
			if supported == normalized {
				return engine, nil
			}
		}
	}
	return nil, &UnsupportedLanguageError{Language: normalized}
}
