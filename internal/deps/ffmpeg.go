package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary capture will execute. A configured
// path wins; an empty value falls back to "ffmpeg" on PATH.
func ResolveFFmpeg(configured string) Status {
	cmd := strings.TrimSpace(configured)
	if cmd == "" {
		cmd = "ffmpeg"
	}
	status := CheckBinaries([]Requirement{{
		Name:        "FFmpeg",
		Command:     cmd,
		Description: "Required for webcam and screen capture",
	}})[0]
	if status.Available {
		if resolved, err := exec.LookPath(cmd); err == nil {
			status.Command = resolved
		}
	}
	return status
}
