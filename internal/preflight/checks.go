package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gazerec/internal/capture"
	"gazerec/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary turns a dependency status into a result.
func CheckBinary(status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Command}
}

// CheckDisplay verifies that an X display is configured.
func CheckDisplay(name, display string) Result {
	display = strings.TrimSpace(display)
	if display == "" {
		display = strings.TrimSpace(os.Getenv("DISPLAY"))
	}
	if display == "" {
		return Result{Name: name, Detail: "no X display configured (set capture.screen_display or DISPLAY)"}
	}
	return Result{Name: name, Passed: true, Detail: display}
}

// CheckCapture acquires src and releases it again, translating capture
// errors into operator guidance.
func CheckCapture(ctx context.Context, name string, src capture.Source) Result {
	stream, err := src.Acquire(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%v (%s)", err, capture.Remediation(err))}
	}
	defer stream.Stop()
	tracks := stream.VideoTracks()
	if len(tracks) == 0 {
		return Result{Name: name, Detail: "no video track"}
	}
	s := tracks[0].Settings()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%dx%d", s.Width, s.Height)}
}

// CheckEncoder reports which container the codec negotiates.
func CheckEncoder(name string, codec capture.Codec, preferences []string) Result {
	mime := capture.NegotiateMimeType(codec, preferences)
	if !codec.IsTypeSupported(mime) {
		return Result{Name: name, Detail: fmt.Sprintf("no supported format (fallback %s unavailable)", mime)}
	}
	return Result{Name: name, Passed: true, Detail: mime}
}

// CheckIssuer verifies the upload issuer answers HTTP. The issuer only
// accepts POST, so any non-5xx answer counts as reachable.
func CheckIssuer(ctx context.Context, issuerURL string) Result {
	const name = "Upload issuer"

	base := strings.TrimSpace(issuerURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (issuer unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (issuer unreachable)"
	}
	return err.Error()
}
