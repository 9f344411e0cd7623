package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/logging"
)

// Minimum Python runtime the engine packages support.
const (
	minPythonMajor = 3
	minPythonMinor = 10
)

// EngineSpec names what an engine needs installed into its environment.
type EngineSpec struct {
	// Name keys the environment directory and the ledger entry.
	Name string
	// PipPackages is the pinned dependency set, one "name==version" per entry.
	PipPackages []string
	// SmokeImport is the module imported to verify the install.
	SmokeImport string
}

// InstallError carries a structured reason and a suggested manual remedy.
type InstallError struct {
	Reason string
	Remedy string
	Err    error
}

func (e *InstallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *InstallError) Unwrap() error { return e.Err }

// ErrDeclined is returned when the caller's confirmation callback refuses
// an install.
var ErrDeclined = errors.New("install declined")

// ConfirmFunc asks the user to approve a heavyweight operation.
type ConfirmFunc func(title, message string) bool

// ProgressFunc receives human-readable install progress messages.
type ProgressFunc func(message string)

type runFunc func(ctx context.Context, name string, args ...string) error

type outputFunc func(ctx context.Context, name string, args ...string) (string, error)

type statfsFunc func(path string) (free uint64, err error)

// Manager provisions per-engine environments and keeps the ledger current.
type Manager struct {
	pythonBinary string
	envsDir      string
	diskFloorGiB int
	ledger       *Ledger
	logger       *slog.Logger

	run    runFunc
	output outputFunc
	statfs statfsFunc
}

// NewManager builds a Manager, opening the ledger at ledgerPath.
func NewManager(pythonBinary, envsDir, ledgerPath string, diskFloorGiB int, logger *slog.Logger) (*Manager, error) {
	ledger, err := OpenLedger(ledgerPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		pythonBinary: pythonBinary,
		envsDir:      envsDir,
		diskFloorGiB: diskFloorGiB,
		ledger:       ledger,
		logger:       logging.WithComponent(logger, "installer"),
		run:          runCommand,
		output:       runCommandOutput,
		statfs:       freeBytes,
	}, nil
}

// Close releases the ledger database.
func (m *Manager) Close() error {
	return m.ledger.Close()
}

// EnvDir returns the isolated environment directory for an engine.
func (m *Manager) EnvDir(engine string) string {
	return filepath.Join(m.envsDir, engine)
}

// PythonPath returns the interpreter inside an engine's environment.
func (m *Manager) PythonPath(engine string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(m.EnvDir(engine), "Scripts", "python.exe")
	}
	return filepath.Join(m.EnvDir(engine), "bin", "python")
}

// Verify reports whether the engine's environment exists and its library
// imports cleanly. This is the authoritative availability check; the
// ledger is only a hint.
func (m *Manager) Verify(ctx context.Context, spec EngineSpec) bool {
	python := m.PythonPath(spec.Name)
	if _, err := os.Stat(python); err != nil {
		return false
	}
	if err := m.run(ctx, python, "-c", "import "+spec.SmokeImport); err != nil {
		return false
	}
	return true
}

// Installed consults the ledger and re-verifies the environment. A stale
// ledger entry is deleted, not trusted.
func (m *Manager) Installed(ctx context.Context, spec EngineSpec) (bool, error) {
	record, err := m.ledger.Get(ctx, spec.Name)
	if err != nil {
		return false, err
	}
	if record == nil || !record.Installed {
		return false, nil
	}
	if !m.Verify(ctx, spec) {
		m.logger.Warn("discarding stale ledger entry", slog.String("engine", spec.Name))
		if err := m.ledger.Delete(ctx, spec.Name); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Install provisions the engine's environment end to end: pre-flight
// checks, confirmation, virtualenv creation, pinned pip install, and a
// smoke import. An existing verified install is left untouched; a broken
// existing environment is never upgraded in place.
func (m *Manager) Install(ctx context.Context, spec EngineSpec, onProgress ProgressFunc, onConfirm ConfirmFunc) error {
	if onProgress == nil {
		onProgress = func(string) {}
	}
	if onConfirm == nil {
		onConfirm = func(string, string) bool { return false }
	}

	installed, err := m.Installed(ctx, spec)
	if err != nil {
		return err
	}
	if installed {
		onProgress(fmt.Sprintf("%s is already installed", spec.Name))
		return nil
	}

	if err := m.preflight(ctx, onConfirm); err != nil {
		return err
	}

	envDir := m.EnvDir(spec.Name)
	if _, err := os.Stat(envDir); err == nil {
		return &InstallError{
			Reason: fmt.Sprintf("environment %s exists but failed verification", envDir),
			Remedy: fmt.Sprintf("remove %s and retry the install", envDir),
		}
	}

	size := estimateInstallNote(spec)
	if !onConfirm("Install "+spec.Name, size) {
		return fmt.Errorf("install %s: %w", spec.Name, ErrDeclined)
	}

	onProgress(fmt.Sprintf("creating environment for %s", spec.Name))
	if err := m.run(ctx, m.pythonBinary, "-m", "venv", envDir); err != nil {
		return &InstallError{
			Reason: "virtualenv creation failed",
			Remedy: fmt.Sprintf("check that %s ships the venv module", m.pythonBinary),
			Err:    err,
		}
	}

	python := m.PythonPath(spec.Name)
	args := append([]string{"-m", "pip", "install", "--no-input"}, spec.PipPackages...)
	onProgress(fmt.Sprintf("installing %d pinned packages for %s", len(spec.PipPackages), spec.Name))
	if err := m.run(ctx, python, args...); err != nil {
		return &InstallError{
			Reason: fmt.Sprintf("pip install for %s failed", spec.Name),
			Remedy: fmt.Sprintf("inspect %s, remove it, and retry", envDir),
			Err:    err,
		}
	}

	onProgress(fmt.Sprintf("verifying %s import", spec.SmokeImport))
	if !m.Verify(ctx, spec) {
		return &InstallError{
			Reason: fmt.Sprintf("%s installed but %q does not import", spec.Name, spec.SmokeImport),
			Remedy: fmt.Sprintf("remove %s and retry", envDir),
		}
	}

	record := Record{
		Engine:      spec.Name,
		Installed:   true,
		EnvPath:     envDir,
		Platform:    Platform(),
		InstalledAt: time.Now().UTC(),
	}
	if err := m.ledger.Put(ctx, record); err != nil {
		return err
	}
	onProgress(fmt.Sprintf("%s installed", spec.Name))
	m.logger.Info("engine installed", slog.String("engine", spec.Name), slog.String("env", envDir))
	return nil
}

// preflight runs the checks that precede any install: runtime version is a
// hard requirement, the disk-space floor is soft and only prompts.
func (m *Manager) preflight(ctx context.Context, onConfirm ConfirmFunc) error {
	major, minor, err := m.pythonVersion(ctx)
	if err != nil {
		return &InstallError{
			Reason: fmt.Sprintf("%s not usable", m.pythonBinary),
			Remedy: "install Python 3.10 or newer and ensure it is on PATH",
			Err:    err,
		}
	}
	if major < minPythonMajor || (major == minPythonMajor && minor < minPythonMinor) {
		return &InstallError{
			Reason: fmt.Sprintf("python %d.%d is older than the required %d.%d", major, minor, minPythonMajor, minPythonMinor),
			Remedy: "upgrade Python or point audio.python_binary at a newer interpreter",
		}
	}

	if err := os.MkdirAll(m.envsDir, 0o755); err != nil {
		return fmt.Errorf("ensure envs directory: %w", err)
	}
	free, err := m.statfs(m.envsDir)
	if err != nil {
		m.logger.Warn("disk space check failed", slog.String("error", err.Error()))
		return nil
	}
	floor := uint64(m.diskFloorGiB) << 30
	if free < floor {
		msg := fmt.Sprintf("Only %.1f GiB free under %s; engine models need roughly %d GiB. Continue anyway?",
			float64(free)/(1<<30), m.envsDir, m.diskFloorGiB)
		if !onConfirm("Low disk space", msg) {
			return fmt.Errorf("install: %w", ErrDeclined)
		}
	}
	return nil
}

var pythonVersionPattern = regexp.MustCompile(`Python (\d+)\.(\d+)`)

func (m *Manager) pythonVersion(ctx context.Context) (int, int, error) {
	out, err := m.output(ctx, m.pythonBinary, "--version")
	if err != nil {
		return 0, 0, err
	}
	match := pythonVersionPattern.FindStringSubmatch(out)
	if match == nil {
		return 0, 0, fmt.Errorf("unrecognized version output %q", strings.TrimSpace(out))
	}
	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])
	return major, minor, nil
}

// Platform returns the os/arch string recorded in the ledger, used to pick
// the correct accelerated build.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func estimateInstallNote(spec EngineSpec) string {
	return fmt.Sprintf("%s downloads its model weights on first use; expect several GiB of disk and a long first run (%d pinned packages).",
		spec.Name, len(spec.PipPackages))
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func runCommandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
