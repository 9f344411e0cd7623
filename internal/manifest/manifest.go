package manifest

import (
	"fmt"
	"time"

	"reviewhub/internal/language"
)

// ReviewType classifies what kind of document is under review.
type ReviewType string

const (
	ReviewTypeProductRequirements ReviewType = "product-requirements"
	ReviewTypeDesign              ReviewType = "design"
)

// Status tracks a review through its lifecycle. Transitions are monotonic;
// see AdvanceStatus.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in-progress"
	StatusReviewed   Status = "reviewed"
	StatusApplied    Status = "applied"
)

// CommentType distinguishes what a reviewer is asking for.
type CommentType string

const (
	CommentChange   CommentType = "change"
	CommentQuestion CommentType = "question"
	CommentApproval CommentType = "approval"
	CommentConcern  CommentType = "concern"
)

// Priority orders comments within a section when feedback is applied.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Manifest ties one review cycle together: identity of the reviewed file,
// its parsed sections, reviewer comments, and generated media.
type Manifest struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	SourceHash  string     `json:"sourceHash"`
	ReviewType  ReviewType `json:"reviewType"`
	Language    string     `json:"language"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Sections    []Section  `json:"sections"`
	Comments    []Comment  `json:"comments"`
	Audio       *Audio     `json:"audio,omitempty"`
	Visual      bool       `json:"visual,omitempty"`
}

// Section is one heading-delimited span of the source document, immutable
// once the manifest is created. Audio times appear only after synthesis.
type Section struct {
	ID              string   `json:"id"`
	HeadingPath     []string `json:"headingPath"`
	HeadingLevel    int      `json:"headingLevel"`
	OccurrenceIndex int      `json:"occurrenceIndex"`
	SourceLineStart int      `json:"sourceLineStart"`
	SourceLineEnd   int      `json:"sourceLineEnd"`
	SourceTextHash  string   `json:"sourceTextHash"`
	AudioStartTime  *float64 `json:"audioStartTime,omitempty"`
	AudioEndTime    *float64 `json:"audioEndTime,omitempty"`
}

// Comment is a single piece of reviewer feedback anchored to a section.
type Comment struct {
	ID             string      `json:"id"`
	SectionID      string      `json:"sectionId"`
	AudioTimestamp *float64    `json:"audioTimestamp,omitempty"`
	Type           CommentType `json:"type"`
	Priority       Priority    `json:"priority"`
	Text           string      `json:"text"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Audio records generated media metadata. Present only once synthesis
// succeeded.
type Audio struct {
	File       string  `json:"file"`
	Duration   float64 `json:"duration"`
	ScriptFile string  `json:"scriptFile"`
}

// Validate checks the structural invariants of a loaded manifest. It
// rejects malformed records rather than coercing them; stale comment
// references caused by later source edits are not structural errors and
// are reported separately by StaleComments.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest: missing id")
	}
	if m.Source == "" {
		return fmt.Errorf("manifest %s: missing source", m.ID)
	}
	if m.SourceHash == "" {
		return fmt.Errorf("manifest %s: missing sourceHash", m.ID)
	}
	switch m.ReviewType {
	case ReviewTypeProductRequirements, ReviewTypeDesign:
	default:
		return fmt.Errorf("manifest %s: unknown reviewType %q", m.ID, m.ReviewType)
	}
	if !language.Supported(m.Language) {
		return fmt.Errorf("manifest %s: unsupported language %q", m.ID, m.Language)
	}
	switch m.Status {
	case StatusGenerating, StatusReady, StatusInProgress, StatusReviewed, StatusApplied:
	default:
		return fmt.Errorf("manifest %s: unknown status %q", m.ID, m.Status)
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("manifest %s: missing createdAt", m.ID)
	}
	seen := make(map[string]struct{}, len(m.Sections))
	for i, s := range m.Sections {
		if s.ID == "" {
			return fmt.Errorf("manifest %s: section %d missing id", m.ID, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("manifest %s: duplicate section id %q", m.ID, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.SourceTextHash == "" {
			return fmt.Errorf("manifest %s: section %q missing sourceTextHash", m.ID, s.ID)
		}
		if s.SourceLineStart < 1 || s.SourceLineEnd < s.SourceLineStart {
			return fmt.Errorf("manifest %s: section %q has invalid line span %d-%d",
				m.ID, s.ID, s.SourceLineStart, s.SourceLineEnd)
		}
	}
	for i, c := range m.Comments {
		if c.ID == "" {
			return fmt.Errorf("manifest %s: comment %d missing id", m.ID, i)
		}
		switch c.Type {
		case CommentChange, CommentQuestion, CommentApproval, CommentConcern:
		default:
			return fmt.Errorf("manifest %s: comment %s has unknown type %q", m.ID, c.ID, c.Type)
		}
		switch c.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return fmt.Errorf("manifest %s: comment %s has unknown priority %q", m.ID, c.ID, c.Priority)
		}
	}
	return nil
}

// StaleComments returns the ids of comments whose sectionId no longer
// matches any section in the manifest. Stale references are tolerated for
// display but flagged, never silently dropped.
func (m *Manifest) StaleComments() []string {
	known := make(map[string]struct{}, len(m.Sections))
	for _, s := range m.Sections {
		known[s.ID] = struct{}{}
	}
	var stale []string
	for _, c := range m.Comments {
		if _, ok := known[c.SectionID]; !ok {
			stale = append(stale, c.ID)
		}
	}
	return stale
}

// SectionByID returns the section with the given id, if present.
func (m *Manifest) SectionByID(id string) (Section, bool) {
	for _, s := range m.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// CommentByID returns the comment with the given id, if present.
func (m *Manifest) CommentByID(id string) (Comment, bool) {
	for _, c := range m.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

var statusOrder = map[Status]int{
	StatusGenerating: 0,
	StatusReady:      1,
	StatusInProgress: 2,
	StatusReviewed:   3,
	StatusApplied:    4,
}

// AdvanceStatus moves the manifest to next. Transitions only move forward;
// a regression, a repeat of the current status, or an unknown status is
// rejected.
func (m *Manifest) AdvanceStatus(next Status) error {
	to, ok := statusOrder[next]
	if !ok {
		return fmt.Errorf("manifest %s: unknown status %q", m.ID, next)
	}
	from, ok := statusOrder[m.Status]
	if !ok {
		return fmt.Errorf("manifest %s: unknown current status %q", m.ID, m.Status)
	}
	if to <= from {
		return fmt.Errorf("manifest %s: cannot move status from %q to %q", m.ID, m.Status, next)
	}
	m.Status = next
	return nil
}
