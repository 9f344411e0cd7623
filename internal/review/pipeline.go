// Package review orchestrates the generation pipeline for one review:
// manifest creation, optional audio synthesis with install-on-demand, and
// the apply step that hands edit instructions to an external executor.
// External collaborators plug in through narrow function types; the
// pipeline never knows about any UI.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"reviewhub/internal/applicator"
	"reviewhub/internal/audio"
	"reviewhub/internal/config"
	"reviewhub/internal/fileutil"
	"reviewhub/internal/installer"
	"reviewhub/internal/logging"
	"reviewhub/internal/manifest"
	"reviewhub/internal/notifications"
	"reviewhub/internal/tts"
)

// ScriptAuthor converts a manifest and its source text into a dialogue
// script. The real author lives outside this module; tests and callers
// supply their own.
type ScriptAuthor func(ctx context.Context, m *manifest.Manifest, source string) (tts.Script, error)

// EditExecutor consumes the applicator's instruction document and
// rewrites the source. The pipeline treats the handoff as the completion
// point; the executor's own success is its caller's concern.
type EditExecutor func(ctx context.Context, prompt string) error

// Callbacks are the pipeline's user-facing hooks. Any nil callback is a
// no-op; Confirm defaults to declining.
type Callbacks struct {
	Progress installer.ProgressFunc
	Confirm  installer.ConfirmFunc
}

func (c Callbacks) progress(message string) {
	if c.Progress != nil {
		c.Progress(message)
	}
}

// GenerateOptions selects what one review run produces.
type GenerateOptions struct {
	SourcePath string
	ReviewType manifest.ReviewType
	Language   string
	WithAudio  bool
	WithVisual bool
	Callbacks  Callbacks
}

// Pipeline wires the generation stages together.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	engines   []tts.Engine
	assembler *audio.Assembler
	notifier  notifications.Service
	author    ScriptAuthor
}

func NewPipeline(cfg *config.Config, logger *slog.Logger, engines []tts.Engine, notifier notifications.Service, author ScriptAuthor) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "pipeline"),
		engines:   engines,
		assembler: audio.NewAssembler(cfg, logger),
		notifier:  notifier,
		author:    author,
	}
}

// Generate runs one review end to end: parse and persist the manifest,
// synthesize audio when requested, and advance to ready. Audio failures
// degrade the review to visual-only or no-media instead of failing it;
// only input and persistence problems abort.
func (p *Pipeline) Generate(ctx context.Context, opts GenerateOptions) (*manifest.Manifest, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	opts.Callbacks.progress(fmt.Sprintf("parsing %s", opts.SourcePath))
	m, err := manifest.Create(opts.SourcePath, opts.ReviewType, opts.Language, p.cfg.Paths.ReviewsDir)
	if err != nil {
		return nil, newError(KindInput, "create review", err)
	}
	if opts.WithVisual {
		m.Visual = true
	}
	if _, err := manifest.Save(m, p.cfg.Paths.ReviewsDir); err != nil {
		return nil, newError(KindPersistence, "save review", err)
	}
	p.logger.Info("review created",
		slog.String("id", m.ID),
		slog.Int("sections", len(m.Sections)),
		slog.String("language", m.Language))

	if opts.WithAudio {
		if err := p.generateAudio(ctx, m, opts.Callbacks); err != nil {
			// Degradation path: the review still ships, without media.
			p.logger.Warn("audio generation failed, continuing without audio",
				slog.String("id", m.ID),
				slog.String("kind", string(KindOf(err))),
				slog.String("error", err.Error()))
			opts.Callbacks.progress("audio unavailable, continuing with a media-free review")
			if p.notifier != nil {
				_ = p.notifier.NotifyError(ctx, err, "audio generation")
			}
		}
	}

	if err := m.AdvanceStatus(manifest.StatusReady); err != nil {
		return nil, newError(KindPersistence, "advance status", err)
	}
	if _, err := manifest.Save(m, p.cfg.Paths.ReviewsDir); err != nil {
		return nil, newError(KindPersistence, "save review", err)
	}
	opts.Callbacks.progress(fmt.Sprintf("review %s is ready", m.ID))
	return m, nil
}

func validateOptions(opts GenerateOptions) error {
	if strings.TrimSpace(opts.SourcePath) == "" {
		return newError(KindInput, "validate options", errors.New("source path is required"))
	}
	if !strings.EqualFold(filepath.Ext(opts.SourcePath), ".md") {
		return newError(KindInput, "validate options", fmt.Errorf("%s is not a markdown file", opts.SourcePath))
	}
	if _, err := os.Stat(opts.SourcePath); err != nil {
		return newError(KindInput, "validate options", err)
	}
	if !opts.WithAudio && !opts.WithVisual {
		return newError(KindInput, "validate options", errors.New("nothing to generate: enable audio, visual, or both"))
	}
	return nil
}

// generateAudio covers engine selection, install-on-demand, script
// authoring, synthesis, and the manifest update. Every failure is
// classified; the caller decides to degrade.
func (p *Pipeline) generateAudio(ctx context.Context, m *manifest.Manifest, cb Callbacks) error {
	engine, err := tts.ForLanguage(p.engines, m.Language)
	if err != nil {
		return newError(KindDependency, "select engine", err)
	}

	if !engine.IsAvailable(ctx) {
		cb.progress(fmt.Sprintf("engine %s is not installed", engine.Name()))
		if err := engine.Install(ctx, cb.Progress, cb.Confirm); err != nil {
			return newError(KindDependency, "install engine", err)
		}
		if p.notifier != nil {
			_ = p.notifier.NotifyEngineInstalled(ctx, engine.Name())
		}
	}

	if p.author == nil {
		return newError(KindDependency, "author script", errors.New("no script author configured"))
	}
	source, err := os.ReadFile(m.Source)
	if err != nil {
		return newError(KindInput, "read source", err)
	}
	cb.progress("authoring dialogue script")
	script, err := p.author(ctx, m, string(source))
	if err != nil {
		return newError(KindSubprocess, "author script", err)
	}
	if script.GapMs <= 0 {
		script.GapMs = p.cfg.Audio.GapMs
	}
	if script.Language == "" {
		script.Language = m.Language
	}

	workDir, err := os.MkdirTemp("", "reviewhub-audio-*")
	if err != nil {
		return newError(KindPersistence, "create work directory", err)
	}
	defer os.RemoveAll(workDir)

	cb.progress(fmt.Sprintf("synthesizing audio with %s", engine.Name()))
	result, err := p.assembler.Generate(ctx, engine, script, workDir, func(progress tts.Progress) {
		p.reportSynthesis(cb, progress)
	})
	if err != nil {
		return newError(KindSubprocess, "synthesize audio", err)
	}
	for _, id := range result.Skipped {
		cb.progress(fmt.Sprintf("section %s was skipped by the engine", id))
	}

	mediaName := m.ID + filepath.Ext(result.AudioPath)
	if err := moveFile(result.AudioPath, filepath.Join(p.cfg.Paths.ReviewsDir, mediaName)); err != nil {
		return newError(KindPersistence, "store audio", err)
	}
	scriptName := m.ID + ".script.json"
	scriptData, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return newError(KindPersistence, "encode script", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(p.cfg.Paths.ReviewsDir, scriptName), scriptData, 0o644); err != nil {
		return newError(KindPersistence, "store script", err)
	}

	applyTimestamps(m, result.Timestamps)
	duration := 0.0
	if len(result.Timestamps) > 0 {
		duration = result.Timestamps[len(result.Timestamps)-1].EndTime
	}
	m.Audio = &manifest.Audio{
		File:       mediaName,
		Duration:   duration,
		ScriptFile: scriptName,
	}

	if p.notifier != nil {
		_ = p.notifier.NotifyAudioReady(ctx, m.ID, time.Duration(duration*float64(time.Second)))
	}
	return nil
}

func (p *Pipeline) reportSynthesis(cb Callbacks, progress tts.Progress) {
	switch progress.Phase {
	case "generating":
		message := "synthesizing"
		if progress.SectionID != "" {
			message = fmt.Sprintf("synthesizing section %s", progress.SectionID)
		}
		if progress.ETASeconds >= 0 {
			message = fmt.Sprintf("%s (~%ds remaining)", message, int(progress.ETASeconds))
		}
		cb.progress(message)
	case "saving":
		cb.progress("writing audio file")
	}
}

func applyTimestamps(m *manifest.Manifest, timestamps []tts.SectionTimestamp) {
	byID := make(map[string]tts.SectionTimestamp, len(timestamps))
	for _, ts := range timestamps {
		byID[ts.SectionID] = ts
	}
	for i := range m.Sections {
		ts, ok := byID[m.Sections[i].ID]
		if !ok {
			continue
		}
		start, end := ts.StartTime, ts.EndTime
		m.Sections[i].AudioStartTime = &start
		m.Sections[i].AudioEndTime = &end
	}
}

// moveFile renames when possible and falls back to a copy across
// filesystems, which is the common case for temp directories.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// Apply runs the applicator against a completed review and hands the
// prompt to the executor. The manifest advances to applied on successful
// emission regardless of the executor's outcome.
func (p *Pipeline) Apply(ctx context.Context, m *manifest.Manifest, executor EditExecutor, cb Callbacks) (applicator.Result, error) {
	result, err := applicator.Apply(m, p.cfg.Paths.ReviewsDir)
	if err != nil {
		return applicator.Result{}, err
	}
	for _, warning := range result.DriftWarnings {
		cb.progress("drift: " + warning)
	}
	if p.notifier != nil {
		_ = p.notifier.NotifyApplied(ctx, m.ID, result.ChangeSummary)
	}
	if result.EditPrompt == "" {
		cb.progress("all comments were approvals; no edits requested")
		return result, nil
	}
	if executor != nil {
		cb.progress("handing edit instructions to the executor")
		if err := executor(ctx, result.EditPrompt); err != nil {
			p.logger.Warn("edit executor failed after handoff",
				slog.String("id", m.ID),
				slog.String("error", err.Error()))
		}
	}
	return result, nil
}
