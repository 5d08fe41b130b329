package packager

import (
	"fmt"
	"strings"
	"time"

	"gazerec/internal/sessiondata"
	"gazerec/internal/textutil"
)

const (
	MetadataEntry  = "metadata.json"
	FilenamePrefix = "gaze-experiment-"
)

// Extension maps a negotiated mime type to a file extension.
func Extension(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	case strings.Contains(mimeType, "x-matroska"):
		return "mkv"
	default:
		return "webm"
	}
}

// EntryName returns the archive entry for one stream.
func EntryName(streamType sessiondata.StreamType, mimeType string) string {
	return string(streamType) + "." + Extension(mimeType)
}

// Filename builds gaze-experiment-<session>-<name>-<timestamp>.zip with the
// timestamp's colons and periods replaced by hyphens.
func Filename(sessionID, participantName string, now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%s%s-%s-%s.zip", FilenamePrefix, sessionID, textutil.SanitizeName(participantName), stamp)
}

// FilenamePattern matches every archive name Filename produces for sessionID.
func FilenamePattern(sessionID string) string {
	return FilenamePrefix + sessionID + "-*.zip"
}
