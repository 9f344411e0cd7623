package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reviewhub/internal/config"
)

// Requirement defines an external binary Review Hub relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckSystem evaluates the binaries the review pipeline shells out to.
// Python carries the synthesis engines; ffmpeg only shrinks the output, so
// its absence degrades to serving uncompressed audio.
func CheckSystem(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "Python",
			Command:     cfg.Audio.PythonBinary,
			Description: "Required for speech synthesis engines",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Audio.FFmpegBinary,
			Description: "Re-encodes generated audio to a smaller lossy format",
			Optional:    true,
		},
	}
	return CheckBinaries(requirements)
}
