package tts

import (
	"context"
	"errors"
	"testing"

	"reviewhub/internal/installer"
)

type fakeEngine struct {
	name  string
	langs []string
}

func (f *fakeEngine) Name() string                               { return f.name }
func (f *fakeEngine) SupportedLanguages() []string               { return f.langs }
func (f *fakeEngine) IsAvailable(context.Context) bool           { return true }
func (f *fakeEngine) Install(context.Context, installer.ProgressFunc, installer.ConfirmFunc) error {
	return nil
}
func (f *fakeEngine) GenerateAudio(context.Context, Script, string, ProgressFunc) (Result, error) {
	return Result{}, nil
}

func TestForLanguageDispatch(t *testing.T) {
	dia := &fakeEngine{name: "dia", langs: []string{"en"}}
	bark := &fakeEngine{name: "bark", langs: []string{"en", "es"}}
	engines := []Engine{dia, bark}

	got, err := ForLanguage(engines, "en")
	if err != nil {
		t.Fatalf("en: %v", err)
	}
	if got.Name() != "dia" {
		t.Fatalf("declaration order should win for en, got %s", got.Name())
	}

	got, err = ForLanguage(engines, "es-MX")
	if err != nil {
		t.Fatalf("es-MX: %v", err)
	}
	if got.Name() != "bark" {
		t.Fatalf("expected bark for spanish, got %s", got.Name())
	}
}

func TestForLanguageUnsupported(t *testing.T) {
	engines := []Engine{&fakeEngine{name: "dia", langs: []string{"en"}}}
	_, err := ForLanguage(engines, "ja")
	var unsupported *UnsupportedLanguageError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedLanguageError, got %v", err)
	}
	if unsupported.Language != "ja" {
		t.Fatalf("language in error: %q", unsupported.Language)
	}
}

func TestScriptSectionIDs(t *testing.T) {
	script := Script{Segments: []Segment{
		{SectionID: "s-a", Speaker: "S1", Text: "hi"},
		{SectionID: "s-a", Speaker: "S2", Text: "hello"},
		{SectionID: "s-b", Speaker: "S1", Text: "next"},
	}}
	ids := script.SectionIDs()
	if len(ids) != 2 || ids[0] != "s-a" || ids[1] != "s-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
