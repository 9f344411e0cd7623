package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleDoc = "# Overview\nThe plan.\n## Details\nSpecifics here.\n# Rollout\nPhased.\n"

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateAssignsSequenceID(t *testing.T) {
	source := writeSource(t, sampleDoc)
	reviews := t.TempDir()

	m, err := Create(source, ReviewTypeDesign, "en", reviews)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID != "review-001" {
		t.Fatalf("first id: %q", m.ID)
	}
	if m.Status != StatusGenerating {
		t.Fatalf("status: %q", m.Status)
	}
	if len(m.Sections) != 3 {
		t.Fatalf("sections: %d", len(m.Sections))
	}
	if m.SourceHash == "" || m.Sections[0].SourceTextHash == "" {
		t.Fatal("expected content hashes")
	}

	if _, err := Save(m, reviews); err != nil {
		t.Fatalf("save: %v", err)
	}
	next, err := Create(source, ReviewTypeDesign, "en", reviews)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if next.ID != "review-002" {
		t.Fatalf("second id: %q", next.ID)
	}
}

func TestCreateSequenceSkipsGaps(t *testing.T) {
	source := writeSource(t, sampleDoc)
	reviews := t.TempDir()
	for _, name := range []string{"review-004.json", "review-02.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(reviews, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := Create(source, ReviewTypeProductRequirements, "en", reviews)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID != "review-005" {
		t.Fatalf("id: %q", m.ID)
	}
}

func TestCreateRejectsHeadinglessDocument(t *testing.T) {
	source := writeSource(t, "prose only\nno headings\n")
	_, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err == nil {
		t.Fatal("expected error for headingless document")
	}
	if !strings.Contains(err.Error(), "no sections") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateRejectsUnsupportedLanguage(t *testing.T) {
	source := writeSource(t, sampleDoc)
	if _, err := Create(source, ReviewTypeDesign, "xx", t.TempDir()); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	source := writeSource(t, sampleDoc)
	reviews := t.TempDir()

	m, err := Create(source, ReviewTypeProductRequirements, "es", reviews)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ts := 12.5
	m.Comments = append(m.Comments, Comment{
		ID:             "c-1",
		SectionID:      m.Sections[0].ID,
		AudioTimestamp: &ts,
		Type:           CommentChange,
		Priority:       PriorityHigh,
		Text:           "tighten this",
		CreatedAt:      m.CreatedAt,
	})
	m.Audio = &Audio{File: "audio.m4a", Duration: 93.2, ScriptFile: "script.json"}

	path, err := Save(m, reviews)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(m, loaded) {
		t.Fatalf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", m, loaded)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review-001.json")
	if err := os.WriteFile(path, []byte(`{"id": "review-001", "sourc`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadRejectsInvalidEnums(t *testing.T) {
	source := writeSource(t, sampleDoc)
	reviews := t.TempDir()
	data := `{"id":"review-001","source":"` + source + `","sourceHash":"x","reviewType":"design","language":"en","status":"half-done","createdAt":"2026-01-02T15:04:05Z","sections":[],"comments":[]}`
	path := filepath.Join(reviews, "review-001.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestSaveFailureLeavesPreviousManifest(t *testing.T) {
	source := writeSource(t, sampleDoc)
	reviews := t.TempDir()

	m, err := Create(source, ReviewTypeDesign, "en", reviews)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path, err := Save(m, reviews)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// An invalid manifest fails before any file is touched.
	broken := *m
	broken.Status = Status("bogus")
	if _, err := Save(&broken, reviews); err == nil {
		t.Fatal("expected save of invalid manifest to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("failed save mutated the existing manifest")
	}

	entries, err := os.ReadDir(reviews)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestStatusAdvancesMonotonically(t *testing.T) {
	source := writeSource(t, sampleDoc)
	m, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, next := range []Status{StatusReady, StatusInProgress, StatusReviewed, StatusApplied} {
		if err := m.AdvanceStatus(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if err := m.AdvanceStatus(StatusReviewed); err == nil {
		t.Fatal("expected regression from applied to reviewed to fail")
	}
	if err := m.AdvanceStatus(StatusApplied); err == nil {
		t.Fatal("expected repeat of the current status to fail")
	}
	if err := m.AdvanceStatus(Status("shipped")); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestStaleComments(t *testing.T) {
	source := writeSource(t, sampleDoc)
	m, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Comments = []Comment{
		{ID: "ok", SectionID: m.Sections[0].ID, Type: CommentApproval, Priority: PriorityLow, CreatedAt: m.CreatedAt},
		{ID: "stale", SectionID: "s-gone", Type: CommentChange, Priority: PriorityHigh, CreatedAt: m.CreatedAt},
	}
	stale := m.StaleComments()
	if len(stale) != 1 || stale[0] != "stale" {
		t.Fatalf("stale comments: %v", stale)
	}
}
