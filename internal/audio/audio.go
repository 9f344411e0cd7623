// Package audio runs the synthesis phase end to end: it hands the script
// to an engine, validates the timing table the worker returned, and
// re-encodes the WAV to M4A when ffmpeg is on PATH.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"reviewhub/internal/config"
	"reviewhub/internal/logging"
	"reviewhub/internal/tts"
)

type runFunc func(ctx context.Context, name string, args ...string) error

type lookPathFunc func(name string) (string, error)

// Assembler produces the final audio artifact for one review.
type Assembler struct {
	ffmpegBinary string
	bitrate      string
	logger       *slog.Logger

	run      runFunc
	lookPath lookPathFunc
}

func NewAssembler(cfg *config.Config, logger *slog.Logger) *Assembler {
	return &Assembler{
		ffmpegBinary: cfg.Audio.FFmpegBinary,
		bitrate:      cfg.Audio.Bitrate,
		logger:       logging.WithComponent(logger, "audio"),
		run:          runCommand,
		lookPath:     exec.LookPath,
	}
}

// Generate synthesizes the script with the engine and returns the final
// artifact. The WAV is re-encoded to M4A when ffmpeg is available; a
// failed or unavailable re-encode keeps the WAV and is not an error.
// Cancellation is a failure, never a partial result.
func (a *Assembler) Generate(ctx context.Context, engine tts.Engine, script tts.Script, outputDir string, onProgress tts.ProgressFunc) (tts.Result, error) {
	result, err := engine.GenerateAudio(ctx, script, outputDir, onProgress)
	if err != nil {
		return tts.Result{}, fmt.Errorf("engine %s: %w", engine.Name(), err)
	}
	if ctx.Err() != nil {
		return tts.Result{}, ctx.Err()
	}

	if err := ValidateTimestamps(script, result.Timestamps); err != nil {
		return tts.Result{}, fmt.Errorf("engine %s returned an invalid timing table: %w", engine.Name(), err)
	}
	if len(result.Timestamps) == 0 {
		return tts.Result{}, fmt.Errorf("engine %s produced no sections", engine.Name())
	}

	encoded, err := a.reencode(ctx, result.AudioPath)
	if err != nil {
		if ctx.Err() != nil {
			return tts.Result{}, ctx.Err()
		}
		a.logger.Warn("re-encode failed, keeping wav", slog.String("error", err.Error()))
		return result, nil
	}
	if encoded != "" {
		result.AudioPath = encoded
		result.Format = "m4a"
	}
	return result, nil
}

// ValidateTimestamps checks the worker's timing table against the script:
// every entry names a scripted section, spans are positive, and sections
// do not overlap or run backwards.
func ValidateTimestamps(script tts.Script, timestamps []tts.SectionTimestamp) error {
	scripted := make(map[string]bool)
	for _, id := range script.SectionIDs() {
		scripted[id] = true
	}

	prevEnd := 0.0
	seen := make(map[string]bool, len(timestamps))
	for i, ts := range timestamps {
		if ts.SectionID == "" {
			return fmt.Errorf("entry %d has no section id", i)
		}
		if !scripted[ts.SectionID] {
			return fmt.Errorf("entry %d references unscripted section %q", i, ts.SectionID)
		}
		if seen[ts.SectionID] {
			return fmt.Errorf("section %q appears twice", ts.SectionID)
		}
		seen[ts.SectionID] = true
		if ts.StartTime < 0 || ts.EndTime <= ts.StartTime {
			return fmt.Errorf("section %q has span %.3f..%.3f", ts.SectionID, ts.StartTime, ts.EndTime)
		}
		if ts.StartTime < prevEnd {
			return fmt.Errorf("section %q starts at %.3f before previous section ends at %.3f", ts.SectionID, ts.StartTime, prevEnd)
		}
		prevEnd = ts.EndTime
	}
	return nil
}

// reencode converts the WAV to M4A. Returns "" without error when ffmpeg
// is not installed.
func (a *Assembler) reencode(ctx context.Context, wavPath string) (string, error) {
	binary := a.ffmpegBinary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := a.lookPath(binary); err != nil {
		a.logger.Info("ffmpeg not found, serving wav", slog.String("binary", binary))
		return "", nil
	}

	outPath := strings.TrimSuffix(wavPath, ".wav") + ".m4a"
	args := []string{"-y", "-i", wavPath, "-c:a", "aac", "-b:a", a.bitrate, outPath}
	if err := a.run(ctx, binary, args...); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}
	if err := os.Remove(wavPath); err != nil {
		a.logger.Warn("could not remove intermediate wav", slog.String("path", wavPath))
	}
	return outPath, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
