package tts

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// progressLine mirrors the JSON lines the Python workers print on stdout:
//
//	{"phase": "loading"}
//	{"phase": "generating", "sectionIndex": 0, "sectionId": "s-intro"}
//	{"phase": "saving"}
//	{"phase": "done"}
type progressLine struct {
	Phase               string   `json:"phase"`
	SectionIndex        int      `json:"sectionIndex"`
	SegmentIndex        int      `json:"segmentIndex"`
	SectionID           string   `json:"sectionId"`
	EstRemainingSeconds *float64 `json:"estRemainingSeconds"`
}

// WorkerInput packages a script for one worker run. The script is written
// to a temporary file; workers never read stdin.
type WorkerInput struct {
	Python     string // interpreter inside the engine's environment
	WorkerPath string // the engine's generation script on disk
	Script     Script
	OutputPath string   // WAV destination
	ExtraArgs  []string // engine-specific flags, e.g. --lang
}

// RunWorker executes one synthesis subprocess to completion. Progress
// lines arrive incrementally; output is buffered and split on newlines
// because one read never reliably equals one message. Context cancellation
// terminates the subprocess promptly through CommandContext.
func RunWorker(ctx context.Context, in WorkerInput, onProgress ProgressFunc) ([]SectionTimestamp, error) {
	scriptFile, err := os.CreateTemp("", "reviewhub-script-*.json")
	if err != nil {
		return nil, fmt.Errorf("create script temp file: %w", err)
	}
	scriptPath := scriptFile.Name()
	defer os.Remove(scriptPath)

	encoder := json.NewEncoder(scriptFile)
	if err := encoder.Encode(in.Script); err != nil {
		_ = scriptFile.Close()
		return nil, fmt.Errorf("write script: %w", err)
	}
	if err := scriptFile.Close(); err != nil {
		return nil, fmt.Errorf("close script file: %w", err)
	}

	args := []string{in.WorkerPath, "--script", scriptPath, "--output", in.OutputPath}
	args = append(args, in.ExtraArgs...)

	cmd := commandContext(ctx, in.Python, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var payload progressLine
		if err := json.Unmarshal(line, &payload); err != nil {
			continue // workers may print stray diagnostics
		}
		if onProgress != nil {
			eta := -1.0
			if payload.EstRemainingSeconds != nil {
				eta = *payload.EstRemainingSeconds
			}
			onProgress(Progress{
				Phase:        payload.Phase,
				SectionID:    payload.SectionID,
				SegmentIndex: payload.SegmentIndex,
				ETASeconds:   eta,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("read worker output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("worker failed: %w: %s", err, lastLine(detail))
		}
		return nil, fmt.Errorf("worker failed: %w", err)
	}

	return readTimestamps(filepath.Join(filepath.Dir(in.OutputPath), "timestamps.json"))
}

func readTimestamps(path string) ([]SectionTimestamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timestamps: %w", err)
	}
	var timestamps []SectionTimestamp
	if err := json.Unmarshal(data, &timestamps); err != nil {
		return nil, fmt.Errorf("decode timestamps: %w", err)
	}
	return timestamps, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// WriteWorkerScript materializes an embedded worker script into dir,
// refreshing it when the embedded copy changed.
func WriteWorkerScript(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure worker directory: %w", err)
	}
	path := filepath.Join(dir, name)
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return "", fmt.Errorf("write worker script: %w", err)
	}
	return path, nil
}
