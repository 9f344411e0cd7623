package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/fileutil"
	"reviewhub/internal/language"
	"reviewhub/internal/section"
)

// ErrNoSections is returned when the source document contains no markdown
// headings, so there is nothing to review.
var ErrNoSections = errors.New("source document has no sections")

var idPattern = regexp.MustCompile(`^review-(\d{3,})$`)

// Create reads the source file once, parses it into sections, and returns
// a new manifest in the generating state. The manifest id is the next
// review-NNN sequence number found in reviewsDir, starting at review-001.
func Create(sourcePath string, reviewType ReviewType, lang string, reviewsDir string) (*Manifest, error) {
	switch reviewType {
	case ReviewTypeProductRequirements, ReviewTypeDesign:
	default:
		return nil, fmt.Errorf("create manifest: unknown review type %q", reviewType)
	}
	normalized := language.Normalize(lang)
	if normalized == "" {
		return nil, fmt.Errorf("create manifest: unsupported language %q", lang)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("create manifest: read source: %w", err)
	}
	text := string(data)

	parsed := section.Parse(text)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("create manifest: %s: %w", sourcePath, ErrNoSections)
	}

	id, err := NextID(reviewsDir)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}

	sections := make([]Section, len(parsed))
	for i, s := range parsed {
		sections[i] = Section{
			ID:              s.ID,
			HeadingPath:     s.HeadingPath,
			HeadingLevel:    s.Level,
			OccurrenceIndex: s.Occurrence,
			SourceLineStart: s.LineStart,
			SourceLineEnd:   s.LineEnd,
			SourceTextHash:  HashText(s.Text),
		}
	}

	return &Manifest{
		ID:         id,
		Source:     sourcePath,
		SourceHash: HashText(text),
		ReviewType: reviewType,
		Language:   normalized,
		Status:     StatusGenerating,
		CreatedAt:  time.Now().UTC(),
		Sections:   sections,
		Comments:   []Comment{},
	}, nil
}

// NextID scans reviewsDir for existing review-NNN artifacts and returns
// the next sequence id. A missing directory yields review-001.
func NextID(reviewsDir string) (string, error) {
	entries, err := os.ReadDir(reviewsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "review-001", nil
		}
		return "", fmt.Errorf("scan reviews directory: %w", err)
	}

	max := 0
	for _, entry := range entries {
		name := entry.Name()
		name = strings.TrimSuffix(name, ".json")
		match := idPattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("review-%03d", max+1), nil
}

// Load deserializes a manifest from disk and validates it. Malformed JSON
// or a record that fails schema validation is a decode error; values are
// never silently coerced.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	var m Manifest
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("load manifest %s: decode: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save serializes the manifest atomically into dir and returns the final
// path. A failed save leaves any previously saved manifest untouched.
func Save(m *Manifest, dir string) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("save manifest: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("save manifest %s: marshal: %w", m.ID, err)
	}
	path := filepath.Join(dir, m.ID+".json")
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save manifest %s: %w", m.ID, err)
	}
	return path, nil
}
