package preflight

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// StorageEstimate describes the filesystem holding a path.
type StorageEstimate struct {
	Usage      uint64  `json:"usage"`
	Quota      uint64  `json:"quota"`
	Percentage float64 `json:"percentage"`
}

// EstimateStorage reads usage and capacity of the filesystem containing
// path. Blocks reserved for root count as used.
func EstimateStorage(path string) (StorageEstimate, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return StorageEstimate{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	quota := st.Blocks * bsize
	usage := quota - st.Bavail*bsize
	est := StorageEstimate{Usage: usage, Quota: quota}
	if quota > 0 {
		est.Percentage = float64(usage) / float64(quota) * 100
	}
	return est, nil
}

// CheckStorage fails when statfs fails and warns when usage reaches
// warnPercent.
func CheckStorage(name, path string, warnPercent int) Result {
	est, err := EstimateStorage(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%s of %s used (%.1f%%)", humanize.IBytes(est.Usage), humanize.IBytes(est.Quota), est.Percentage)
	result := Result{Name: name, Passed: true, Detail: detail}
	if warnPercent > 0 && est.Percentage >= float64(warnPercent) {
		result.Warning = true
		result.Detail = detail + "; recordings may run out of space"
	}
	return result
}
