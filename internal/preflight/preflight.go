package preflight

import (
	"context"
	"strings"

	"gazerec/internal/config"
	"gazerec/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// RunAll executes the filesystem, binary and display checks for cfg. Device
// probes need a capture source and are run separately with CheckCapture.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
		CheckStorage("Storage", cfg.Paths.DataDir, cfg.Storage.WarnUsagePercent),
		CheckBinary(deps.ResolveFFmpeg(cfg.FFmpegBinary())),
		CheckDisplay("Display", cfg.Capture.ScreenDisplay),
	}
	if strings.TrimSpace(cfg.Upload.IssuerURL) != "" {
		results = append(results, CheckIssuer(ctx, cfg.Upload.IssuerURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
