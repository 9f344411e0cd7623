package tts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// stubWorker emits two progress lines, writes a fake WAV and a timestamps
// table, mimicking the real engine workers.
const stubWorker = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo '{"phase": "loading"}'
echo '{"phase": "generating", "sectionIndex": 0, "sectionId": "s-a"}'
echo '{"phase": "done"}'
printf 'RIFF' > "$out"
cat > "$(dirname "$out")/timestamps.json" <<'EOF'
[
  {"sectionId": "s-a", "startTime": 0.0, "endTime": 2.5},
  {"sectionId": "s-b", "startTime": 2.8, "endTime": 5.0}
]
EOF
exit 0
`

func writeStub(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWorkerParsesProgressAndTimestamps(t *testing.T) {
	outDir := t.TempDir()
	input := WorkerInput{
		Python:     "/bin/sh",
		WorkerPath: writeStub(t, stubWorker),
		Script: Script{Language: "en", GapMs: 300, Segments: []Segment{
			{SectionID: "s-a", Speaker: "S1", Text: "hello"},
		}},
		OutputPath: filepath.Join(outDir, "audio.wav"),
	}

	var phases []string
	timestamps, err := RunWorker(context.Background(), input, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	if err != nil {
		t.Fatalf("run worker: %v", err)
	}
	if len(timestamps) != 2 {
		t.Fatalf("timestamps: %v", timestamps)
	}
	if timestamps[0].SectionID != "s-a" || timestamps[0].EndTime != 2.5 {
		t.Fatalf("first timestamp: %+v", timestamps[0])
	}
	want := []string{"loading", "generating", "done"}
	if len(phases) != len(want) {
		t.Fatalf("phases: %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d: %q want %q", i, phases[i], want[i])
		}
	}
}

func TestRunWorkerSurfacesStderrOnFailure(t *testing.T) {
	failing := "#!/bin/sh\necho 'ERROR: model load failed' >&2\nexit 1\n"
	input := WorkerInput{
		Python:     "/bin/sh",
		WorkerPath: writeStub(t, failing),
		OutputPath: filepath.Join(t.TempDir(), "audio.wav"),
	}
	_, err := RunWorker(context.Background(), input, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := err.Error(); !strings.Contains(got, "model load failed") {
		t.Fatalf("stderr not surfaced: %v", got)
	}
}

func TestRunWorkerCancellation(t *testing.T) {
	slow := "#!/bin/sh\nsleep 30\n"
	input := WorkerInput{
		Python:     "/bin/sh",
		WorkerPath: writeStub(t, slow),
		OutputPath: filepath.Join(t.TempDir(), "audio.wav"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := RunWorker(ctx, input, nil)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("cancelled run must fail")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not terminate promptly after cancellation")
	}
}

func TestWriteWorkerScript(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteWorkerScript(dir, "generate.py", "print('v1')\n")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatal("worker script must be executable")
	}

	// Refreshed when content changes, stable when identical.
	again, err := WriteWorkerScript(dir, "generate.py", "print('v1')\n")
	if err != nil || again != path {
		t.Fatalf("rewrite identical: %v %q", err, again)
	}
	if _, err := WriteWorkerScript(dir, "generate.py", "print('v2')\n"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "print('v2')\n" {
		t.Fatalf("content not refreshed: %q", data)
	}
}
