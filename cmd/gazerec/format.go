package main

import (
	"time"

	"github.com/dustin/go-humanize"
)

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatEpochMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

func formatAge(ms int64, now time.Time) string {
	if ms <= 0 {
		return "-"
	}
	return humanize.RelTime(time.UnixMilli(ms), now, "ago", "from now")
}
