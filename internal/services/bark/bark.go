// Package bark implements the Bark synthesis engine. Bark synthesizes one
// segment at a time against per-speaker voice presets, which makes it
// slower than dia but multilingual; its worker reports a remaining-time
// estimate once it has timing history. English and Spanish.
package bark

import (
	"context"
	"log/slog"
	"path/filepath"

	"reviewhub/internal/installer"
	"reviewhub/internal/logging"
	"reviewhub/internal/tts"
)

const (
	engineName   = "bark"
	workerName   = "worker.py"
	defaultGapMs = 400
)

var spec = installer.EngineSpec{
	Name: engineName,
	PipPackages: []string{
		"suno-bark==0.1.5",
		"torch==2.3.1",
		"soundfile==0.12.1",
		"numpy==1.26.4",
	},
	SmokeImport: "bark",
}

// Engine drives the Bark worker inside its isolated environment.
type Engine struct {
	manager *installer.Manager
	logger  *slog.Logger
}

func New(manager *installer.Manager, logger *slog.Logger) *Engine {
	return &Engine{
		manager: manager,
		logger:  logging.WithComponent(logger, "tts.bark"),
	}
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) SupportedLanguages() []string { return []string{"en", "es"} }

// IsAvailable re-verifies the environment; it never trusts the ledger.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	return e.manager.Verify(ctx, spec)
}

func (e *Engine) Install(ctx context.Context, onProgress installer.ProgressFunc, onConfirm installer.ConfirmFunc) error {
	return e.manager.Install(ctx, spec, onProgress, onConfirm)
}

// GenerateAudio synthesizes the full script into outputDir/audio.wav. The
// worker receives the language so it can pick voice presets; sections it
// had to skip come back in Result.Skipped.
func (e *Engine) GenerateAudio(ctx context.Context, script tts.Script, outputDir string, onProgress tts.ProgressFunc) (tts.Result, error) {
	if script.GapMs <= 0 {
		script.GapMs = defaultGapMs
	}

	workerPath, err := tts.WriteWorkerScript(e.manager.EnvDir(engineName), workerName, workerScript)
	if err != nil {
		return tts.Result{}, err
	}

	outputPath := filepath.Join(outputDir, "audio.wav")
	timestamps, err := tts.RunWorker(ctx, tts.WorkerInput{
		Python:     e.manager.PythonPath(engineName),
		WorkerPath: workerPath,
		Script:     script,
		OutputPath: outputPath,
		ExtraArgs:  []string{"--lang", script.Language},
	}, onProgress)
	if err != nil {
		return tts.Result{}, err
	}

	skipped := skippedSections(script, timestamps)
	if len(skipped) > 0 {
		e.logger.Warn("worker skipped sections",
			slog.Int("count", len(skipped)),
			slog.String("first", skipped[0]))
	}
	return tts.Result{
		AudioPath:  outputPath,
		Format:     "wav",
		Timestamps: timestamps,
		Skipped:    skipped,
	}, nil
}

func skippedSections(script tts.Script, timestamps []tts.SectionTimestamp) []string {
	generated := make(map[string]bool, len(timestamps))
	for _, ts := range timestamps {
		generated[ts.SectionID] = true
	}
	var skipped []string
	for _, id := range script.SectionIDs() {
		if !generated[id] {
			skipped = append(skipped, id)
		}
	}
	return skipped
}
