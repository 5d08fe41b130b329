package sessiondata

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns an id of the form session-<epochMs>-<random>.
func NewSessionID(now time.Time) string {
	return "session-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomSuffix(12)
}

// NewClickID returns an id of the form click-<epochMs>-<random>. Uniqueness
// only has to hold within one session.
func NewClickID(now time.Time) string {
	return "click-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomSuffix(7)
}

// NewRequestID returns a correlation id for log lines.
func NewRequestID() string {
	return uuid.NewString()
}

func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// EpochMillis converts t to epoch milliseconds, returning 0 for the zero time.
func EpochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
