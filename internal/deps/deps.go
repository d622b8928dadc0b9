package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external tool the daemon relies on.
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

// Required lists the media tools the chunk workflows execute.
func Required() []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Frame and audio extraction"},
		{Name: "FFprobe", Command: "ffprobe", Description: "Media duration probing"},
		{Name: "Chromaprint", Command: "fpcalc", Description: "Raw audio fingerprinting"},
	}
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

// MissingRequired returns the names of required tools absent from PATH.
func MissingRequired() []string {
	var missing []string
	for _, status := range CheckBinaries(Required()) {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Command)
		}
	}
	return missing
}
