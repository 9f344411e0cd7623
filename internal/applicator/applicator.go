// Package applicator turns a completed review into an edit instruction
// document. It never rewrites the source itself; the emitted prompt is
// handed to an external edit executor, and "applied" means the
// instructions were generated, not that the file changed.
package applicator

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"reviewhub/internal/manifest"
)

var (
	// ErrAlreadyApplied marks a second apply attempt on the same review.
	ErrAlreadyApplied = errors.New("review already applied")
	// ErrNotReviewed marks an apply attempt before the reviewer finished.
	ErrNotReviewed = errors.New("review is not complete")
	// ErrNoComments marks a completed review with nothing to act on.
	ErrNoComments = errors.New("review has no comments")
)

// Result is a successful application. EditPrompt is empty when every
// comment was an approval; the summaries are always populated.
type Result struct {
	EditPrompt    string
	DiffSummary   string
	ChangeSummary string
	DriftWarnings []string
}

var priorityRank = map[manifest.Priority]int{
	manifest.PriorityHigh:   0,
	manifest.PriorityMedium: 1,
	manifest.PriorityLow:    2,
}

var typeRank = map[manifest.CommentType]int{
	manifest.CommentChange:   0,
	manifest.CommentConcern:  1,
	manifest.CommentQuestion: 2,
	manifest.CommentApproval: 3,
}

// Apply validates the manifest, groups its comments into an instruction
// document, advances the status to applied, and persists. Drift against
// the current source is surfaced as warnings, never a block; the caller
// decides whether to proceed with the prompt.
func Apply(m *manifest.Manifest, reviewsDir string) (Result, error) {
	switch m.Status {
	case manifest.StatusApplied:
		return Result{}, fmt.Errorf("%s: %w", m.ID, ErrAlreadyApplied)
	case manifest.StatusReviewed:
	default:
		return Result{}, fmt.Errorf("%s has status %s: %w", m.ID, m.Status, ErrNotReviewed)
	}
	if len(m.Comments) == 0 {
		return Result{}, fmt.Errorf("%s: %w", m.ID, ErrNoComments)
	}

	warnings := driftWarnings(m)

	source, err := os.ReadFile(m.Source)
	if err != nil {
		return Result{}, fmt.Errorf("read current source: %w", err)
	}

	groups := groupComments(m)
	result := Result{
		DriftWarnings: warnings,
		DiffSummary:   diffSummary(groups),
		ChangeSummary: changeSummary(groups),
	}
	if actionable(groups) {
		result.EditPrompt = buildPrompt(m, groups, string(source))
	}

	if err := m.AdvanceStatus(manifest.StatusApplied); err != nil {
		return Result{}, err
	}
	if _, err := manifest.Save(m, reviewsDir); err != nil {
		return Result{}, err
	}
	return result, nil
}

// sectionGroup is one section's comments in application order.
type sectionGroup struct {
	section  manifest.Section
	comments []manifest.Comment
}

// approvalOnly reports whether the section needs no edits.
func (g sectionGroup) approvalOnly() bool {
	for _, c := range g.comments {
		if c.Type != manifest.CommentApproval {
			return false
		}
	}
	return true
}

// groupComments partitions comments by section in document order, sorted
// so the most consequential asks come first. Comments stranded by drift
// (their section no longer exists in the manifest) are grouped under a
// zero-value section and flagged rather than dropped.
func groupComments(m *manifest.Manifest) []sectionGroup {
	bySection := make(map[string][]manifest.Comment)
	for _, c := range m.Comments {
		bySection[c.SectionID] = append(bySection[c.SectionID], c)
	}

	var groups []sectionGroup
	for _, section := range m.Sections {
		comments, ok := bySection[section.ID]
		if !ok {
			continue
		}
		delete(bySection, section.ID)
		sort.SliceStable(comments, func(i, j int) bool {
			if priorityRank[comments[i].Priority] != priorityRank[comments[j].Priority] {
				return priorityRank[comments[i].Priority] < priorityRank[comments[j].Priority]
			}
			return typeRank[comments[i].Type] < typeRank[comments[j].Type]
		})
		groups = append(groups, sectionGroup{section: section, comments: comments})
	}

	var stale []string
	for id := range bySection {
		stale = append(stale, id)
	}
	sort.Strings(stale)
	for _, id := range stale {
		groups = append(groups, sectionGroup{
			section:  manifest.Section{ID: id},
			comments: bySection[id],
		})
	}
	return groups
}

func actionable(groups []sectionGroup) bool {
	for _, g := range groups {
		if !g.approvalOnly() {
			return true
		}
	}
	return false
}

func driftWarnings(m *manifest.Manifest) []string {
	drift, err := manifest.DetectDrift(m)
	if err != nil {
		return []string{fmt.Sprintf("drift check failed: %v", err)}
	}
	if !drift.HasDrifted {
		return nil
	}
	var warnings []string
	for _, section := range drift.Sections {
		if section.Removed() {
			warnings = append(warnings, fmt.Sprintf("section %s was removed or renamed since the review started", section.SectionID))
		} else {
			warnings = append(warnings, fmt.Sprintf("section %s was modified since the review started", section.SectionID))
		}
	}
	return warnings
}

func headingLabel(section manifest.Section) string {
	if len(section.HeadingPath) == 0 {
		return section.ID
	}
	return strings.Join(section.HeadingPath, " > ")
}

func buildPrompt(m *manifest.Manifest, groups []sectionGroup, source string) string {
	var b strings.Builder
	b.WriteString("Apply the review feedback below to the document that follows.\n\n")
	b.WriteString("Handling rules by comment type:\n")
	b.WriteString("- change: modify the section as requested.\n")
	b.WriteString("- concern: add context or a caveat addressing the concern.\n")
	b.WriteString("- question: do not answer inline; append the question to an \"Open Questions\" section at the end of the document, creating it if absent.\n")
	b.WriteString("- approval: no action.\n\n")
	b.WriteString("Preserve the document's structure and headings. Do not add sections nobody asked for, and leave sections without feedback untouched.\n\n")
	b.WriteString("## Feedback\n\n")

	for _, g := range groups {
		if g.approvalOnly() {
			fmt.Fprintf(&b, "### %s\nApproved as written. Leave this section unchanged.\n\n", headingLabel(g.section))
			continue
		}
		fmt.Fprintf(&b, "### %s\n", headingLabel(g.section))
		if len(g.section.HeadingPath) == 0 {
			b.WriteString("Note: this section no longer exists in the document; fold the feedback in wherever its content moved.\n")
		}
		for _, c := range g.comments {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", c.Priority, c.Type, c.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Current document (%s)\n\n", m.Source)
	b.WriteString(source)
	return b.String()
}

func diffSummary(groups []sectionGroup) string {
	var b strings.Builder
	for _, g := range groups {
		if g.approvalOnly() {
			fmt.Fprintf(&b, "%s: approved, no changes\n", headingLabel(g.section))
			continue
		}
		counts := make(map[manifest.CommentType]int)
		for _, c := range g.comments {
			counts[c.Type]++
		}
		var parts []string
		for _, t := range []manifest.CommentType{manifest.CommentChange, manifest.CommentConcern, manifest.CommentQuestion, manifest.CommentApproval} {
			if counts[t] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", headingLabel(g.section), strings.Join(parts, ", "))
	}
	return b.String()
}

func changeSummary(groups []sectionGroup) string {
	total := 0
	actionableSections := 0
	approvedSections := 0
	for _, g := range groups {
		total += len(g.comments)
		if g.approvalOnly() {
			approvedSections++
		} else {
			actionableSections++
		}
	}
	if actionableSections == 0 {
		return fmt.Sprintf("all %d comments are approvals; nothing to change", total)
	}
	return fmt.Sprintf("%d comments across %d sections need action; %d sections approved as written",
		total, actionableSections, approvedSections)
}
