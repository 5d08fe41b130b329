package upload

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"
)

// Progress is a snapshot of bytes sent.
type Progress struct {
	Loaded     int64   `json:"loaded"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

func newProgress(loaded, total int64) Progress {
	p := Progress{Loaded: loaded, Total: total}
	if total > 0 {
		p.Percentage = float64(loaded) / float64(total) * 100
	}
	return p
}

// String renders "42% (1.50 MB / 3.00 MB)".
func (p Progress) String() string {
	const mb = 1024 * 1024
	return fmt.Sprintf("%d%% (%.2f MB / %.2f MB)",
		int64(math.Round(p.Percentage)),
		float64(p.Loaded)/mb,
		float64(p.Total)/mb,
	)
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded atomic.Int64
	report func(Progress)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		loaded := pr.loaded.Add(int64(n))
		if pr.report != nil {
			pr.report(newProgress(loaded, pr.total))
		}
	}
	return n, err
}
