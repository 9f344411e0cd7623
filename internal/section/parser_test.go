package section

import (
	"reflect"
	"testing"
)

func TestParseAssignsStableIDs(t *testing.T) {
	doc := "# A\nbody\n## B\nmore\n# A\ntail\n"

	first := Parse(doc)
	second := Parse(doc)

	ids := make([]string, len(first))
	for i, s := range first {
		ids[i] = s.ID
	}
	want := []string{"s-a", "s-a--b", "s-a-1"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected ids: got %v want %v", ids, want)
	}

	if len(second) != len(first) {
		t.Fatalf("reparse produced %d sections, want %d", len(second), len(first))
	}
	for i := range first {
		if second[i].ID != first[i].ID {
			t.Fatalf("id %d changed between parses: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestParseHeadingPaths(t *testing.T) {
	doc := "# A\n## B\nbody\n"
	sections := Parse(doc)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if !reflect.DeepEqual(sections[1].HeadingPath, []string{"A", "B"}) {
		t.Fatalf("unexpected heading path: %v", sections[1].HeadingPath)
	}
	if sections[1].Level != 2 {
		t.Fatalf("unexpected level: %d", sections[1].Level)
	}
}

func TestParseDuplicateHeadingsDisambiguated(t *testing.T) {
	doc := "# Story\n## Acceptance Criteria\nx\n# Story\n## Acceptance Criteria\ny\n"
	sections := Parse(doc)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(sections))
	}
	if sections[0].ID != "s-story" || sections[2].ID != "s-story-1" {
		t.Fatalf("top-level ids: %q, %q", sections[0].ID, sections[2].ID)
	}
	if sections[1].ID != "s-story--acceptance-criteria" {
		t.Fatalf("first nested id: %q", sections[1].ID)
	}
	if sections[3].ID != "s-story--acceptance-criteria-1" {
		t.Fatalf("second nested id: %q", sections[3].ID)
	}
	if sections[3].Occurrence != 1 {
		t.Fatalf("occurrence index: %d", sections[3].Occurrence)
	}
}

func TestParseLineSpans(t *testing.T) {
	doc := "# A\nline2\nline3\n# B\nline5\n"
	sections := Parse(doc)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	a, b := sections[0], sections[1]
	if a.LineStart != 1 || a.LineEnd != 3 {
		t.Fatalf("section A span: %d-%d", a.LineStart, a.LineEnd)
	}
	// Trailing newline yields a final empty line that belongs to B.
	if b.LineStart != 4 || b.LineEnd != 6 {
		t.Fatalf("section B span: %d-%d", b.LineStart, b.LineEnd)
	}
	if a.Text != "# A\nline2\nline3" {
		t.Fatalf("section A text: %q", a.Text)
	}
}

func TestParseNoHeadings(t *testing.T) {
	if got := Parse("just prose\nno headings here\n"); len(got) != 0 {
		t.Fatalf("expected no sections, got %d", len(got))
	}
}

func TestParseWhitespaceOnlyHeadingIsBody(t *testing.T) {
	doc := "# A\n#   \n## B\n"
	sections := Parse(doc)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].LineEnd != 2 {
		t.Fatalf("bare hash line should stay in section A, span ends at %d", sections[0].LineEnd)
	}
}

func TestParseHashesWithoutSpaceAreBody(t *testing.T) {
	sections := Parse("#nospace\n")
	if len(sections) != 0 {
		t.Fatalf("expected no sections, got %d", len(sections))
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Acceptance Criteria":  "acceptance-criteria",
		"  Mixed -- CASE 42 ":  "mixed-case-42",
		"émigré":               "migr",
		"---":                  "",
		"API & CLI / Surfaces": "api-cli-surfaces",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
