package applicator

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"reviewhub/internal/manifest"
	"reviewhub/internal/testsupport"
)

const reviewDoc = "# A\nAlpha body.\n## B\nBeta body.\n# A\nSecond alpha body.\n"

func newReviewedManifest(t *testing.T, comments ...manifest.Comment) (*manifest.Manifest, string, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	src := testsupport.WriteDoc(t, testsupport.BaseDir(cfg), "plan.md", reviewDoc)
	m, err := manifest.Create(src, manifest.ReviewTypeProductRequirements, "en", cfg.Paths.ReviewsDir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.AdvanceStatus(manifest.StatusReviewed); err != nil {
		t.Fatal(err)
	}
	for i := range comments {
		if comments[i].CreatedAt.IsZero() {
			comments[i].CreatedAt = time.Now().UTC()
		}
	}
	m.Comments = comments
	if _, err := manifest.Save(m, cfg.Paths.ReviewsDir); err != nil {
		t.Fatalf("save: %v", err)
	}
	return m, cfg.Paths.ReviewsDir, src
}

func comment(id, sectionID string, ct manifest.CommentType, p manifest.Priority, text string) manifest.Comment {
	return manifest.Comment{ID: id, SectionID: sectionID, Type: ct, Priority: p, Text: text}
}

func TestApplyEndToEnd(t *testing.T) {
	m, dir, _ := newReviewedManifest(t,
		comment("c1", "s-a--b", manifest.CommentChange, manifest.PriorityHigh, "Tighten the beta body."),
		comment("c2", "s-a-1", manifest.CommentApproval, manifest.PriorityMedium, "Reads well."),
	)

	result, err := Apply(m, dir)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.EditPrompt == "" {
		t.Fatal("actionable review must produce a prompt")
	}
	if !strings.Contains(result.EditPrompt, "### A > B") {
		t.Fatalf("prompt missing actionable heading path:\n%s", result.EditPrompt)
	}
	if !strings.Contains(result.EditPrompt, "Leave this section unchanged") {
		t.Fatalf("approved section not called out:\n%s", result.EditPrompt)
	}
	if !strings.Contains(result.EditPrompt, "[high/change] Tighten the beta body.") {
		t.Fatalf("comment not rendered:\n%s", result.EditPrompt)
	}
	if !strings.Contains(result.EditPrompt, reviewDoc) {
		t.Fatal("prompt must carry the full current source")
	}
	// Only the approved second A renders under "### A"; the commentless
	// first A must not appear.
	if strings.Count(result.EditPrompt, "### A\n") != 1 {
		t.Fatalf("commentless section rendered:\n%s", result.EditPrompt)
	}
	if len(result.DriftWarnings) != 0 {
		t.Fatalf("unexpected drift: %v", result.DriftWarnings)
	}

	if m.Status != manifest.StatusApplied {
		t.Fatalf("status: %s", m.Status)
	}
	reloaded, err := manifest.Load(dir + "/" + m.ID + ".json")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != manifest.StatusApplied {
		t.Fatalf("persisted status: %s", reloaded.Status)
	}

	// Second application is a deterministic refusal.
	if _, err := Apply(reloaded, dir); !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("second apply: %v", err)
	}
}

func TestApplyPreconditions(t *testing.T) {
	m, dir, _ := newReviewedManifest(t)
	if _, err := Apply(m, dir); !errors.Is(err, ErrNoComments) {
		t.Fatalf("zero comments: %v", err)
	}

	m2, dir2, _ := newReviewedManifest(t,
		comment("c1", "s-a", manifest.CommentChange, manifest.PriorityHigh, "x"))
	m2.Status = manifest.StatusInProgress
	if _, err := Apply(m2, dir2); !errors.Is(err, ErrNotReviewed) {
		t.Fatalf("in-progress: %v", err)
	}
}

func TestApplyApprovalOnlyIsSummaryOnly(t *testing.T) {
	m, dir, _ := newReviewedManifest(t,
		comment("c1", "s-a", manifest.CommentApproval, manifest.PriorityLow, "Fine."),
		comment("c2", "s-a-1", manifest.CommentApproval, manifest.PriorityLow, "Also fine."),
	)

	result, err := Apply(m, dir)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.EditPrompt != "" {
		t.Fatal("approval-only review must not produce a prompt")
	}
	if !strings.Contains(result.ChangeSummary, "nothing to change") {
		t.Fatalf("summary: %q", result.ChangeSummary)
	}
	if m.Status != manifest.StatusApplied {
		t.Fatalf("status: %s", m.Status)
	}
}

func TestApplyOrdersCommentsWithinSection(t *testing.T) {
	m, dir, _ := newReviewedManifest(t,
		comment("c1", "s-a", manifest.CommentQuestion, manifest.PriorityLow, "low question"),
		comment("c2", "s-a", manifest.CommentConcern, manifest.PriorityHigh, "high concern"),
		comment("c3", "s-a", manifest.CommentChange, manifest.PriorityHigh, "high change"),
		comment("c4", "s-a", manifest.CommentChange, manifest.PriorityMedium, "medium change"),
	)

	result, err := Apply(m, dir)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	prompt := result.EditPrompt
	order := []string{"high change", "high concern", "medium change", "low question"}
	last := -1
	for _, text := range order {
		idx := strings.Index(prompt, text)
		if idx < 0 {
			t.Fatalf("%q missing from prompt", text)
		}
		if idx < last {
			t.Fatalf("%q out of order:\n%s", text, prompt)
		}
		last = idx
	}
}

func TestApplyWarnsOnDriftWithoutBlocking(t *testing.T) {
	m, dir, src := newReviewedManifest(t,
		comment("c1", "s-a--b", manifest.CommentChange, manifest.PriorityHigh, "rework"))

	edited := "# A\nAlpha body.\n## B\nBeta body rewritten.\n# A\nSecond alpha body.\n"
	if err := os.WriteFile(src, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Apply(m, dir)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.DriftWarnings) != 1 || !strings.Contains(result.DriftWarnings[0], "s-a--b") {
		t.Fatalf("warnings: %v", result.DriftWarnings)
	}
	if !strings.Contains(result.DriftWarnings[0], "modified") {
		t.Fatalf("warning kind: %v", result.DriftWarnings)
	}
	if result.EditPrompt == "" {
		t.Fatal("drift must not block application")
	}
}

func TestApplyKeepsStaleCommentsVisible(t *testing.T) {
	m, dir, src := newReviewedManifest(t,
		comment("c1", "s-a--b", manifest.CommentChange, manifest.PriorityHigh, "rework the beta text"))

	// Remove the B heading entirely; the comment's section is gone. The
	// edit also rewrites s-a's body, so that section drifts too.
	edited := "# A\nAlpha body with beta folded in.\n# A\nSecond alpha body.\n"
	if err := os.WriteFile(src, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Apply(m, dir)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	removed := false
	for _, warning := range result.DriftWarnings {
		if strings.Contains(warning, "s-a--b") && strings.Contains(warning, "removed") {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("warnings: %v", result.DriftWarnings)
	}
	if !strings.Contains(result.EditPrompt, "rework the beta text") {
		t.Fatal("stale comment dropped from prompt")
	}
}
