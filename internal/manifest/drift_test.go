package manifest

import (
	"os"
	"testing"
)

func TestDetectDriftCleanDocument(t *testing.T) {
	source := writeSource(t, sampleDoc)
	m, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := DetectDrift(m)
	if err != nil {
		t.Fatalf("detect drift: %v", err)
	}
	if result.HasDrifted {
		t.Fatalf("unmodified document reported drift: %+v", result)
	}
	if len(result.Sections) != 0 {
		t.Fatalf("unexpected per-section drift: %v", result.Sections)
	}
}

func TestDetectDriftFlagsOnlyEditedSection(t *testing.T) {
	source := writeSource(t, sampleDoc)
	m, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Edit the body of Details without touching its heading.
	edited := "# Overview\nThe plan.\n## Details\nRevised specifics.\n# Rollout\nPhased.\n"
	if err := os.WriteFile(source, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := DetectDrift(m)
	if err != nil {
		t.Fatalf("detect drift: %v", err)
	}
	if !result.HasDrifted {
		t.Fatal("expected drift")
	}
	if len(result.Sections) != 1 {
		t.Fatalf("expected exactly one drifted section, got %v", result.Sections)
	}
	drifted := result.Sections[0]
	if drifted.SectionID != "s-overview--details" {
		t.Fatalf("wrong section flagged: %s", drifted.SectionID)
	}
	if drifted.Removed() {
		t.Fatal("modified section must not be reported as removed")
	}
}

func TestDetectDriftReportsRemovedHeading(t *testing.T) {
	source := writeSource(t, sampleDoc)
	m, err := Create(source, ReviewTypeDesign, "en", t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edited := "# Overview\nThe plan.\n## Details\nSpecifics here.\n"
	if err := os.WriteFile(source, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := DetectDrift(m)
	if err != nil {
		t.Fatalf("detect drift: %v", err)
	}
	var removed *SectionDrift
	for i := range result.Sections {
		if result.Sections[i].SectionID == "s-rollout" {
			removed = &result.Sections[i]
		}
	}
	if removed == nil {
		t.Fatalf("rollout section not reported: %v", result.Sections)
	}
	if !removed.Removed() {
		t.Fatalf("expected empty current hash, got %q", removed.CurrentHash)
	}
}
