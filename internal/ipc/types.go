package ipc

import (
	"gazerec/internal/clicktrack"
	"gazerec/internal/recording"
	"gazerec/internal/sessiondata"
)

// ServiceName prefixes every RPC method.
const ServiceName = "Gazerec"

// StatusRequest requests the recording state.
type StatusRequest struct{}

// StatusResponse mirrors recording.State.
type StatusResponse struct {
	recording.State
	GameMetadata sessiondata.GameMetadata `json:"gameMetadata"`
}

// CalibrationRequest carries the initial calibration sequence.
type CalibrationRequest struct {
	Data sessiondata.CalibrationData `json:"data"`
}

// CardPositionsRequest carries the game board layout.
type CardPositionsRequest struct {
	Cards []sessiondata.CardPosition `json:"cards"`
}

// GameEventRequest marks game start or end. A zero timestamp means now.
type GameEventRequest struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

// GameMetadataRequest merges counters into the game metadata.
type GameMetadataRequest struct {
	Update sessiondata.GameMetadataUpdate `json:"update"`
}

// ClickRequest is one pointer event. Path lists the target element first and
// the root last.
type ClickRequest struct {
	ClientX float64              `json:"clientX"`
	ClientY float64              `json:"clientY"`
	Path    []clicktrack.Element `json:"path"`
}

// ClickResponse reports the click count after dispatch.
type ClickResponse struct {
	ClickCount int `json:"clickCount"`
}

// FullscreenRequest reports the display's fullscreen state.
type FullscreenRequest struct {
	Active bool `json:"active"`
}

// Empty is used by calls without a payload.
type Empty struct{}

// AckResponse acknowledges a command.
type AckResponse struct {
	OK bool `json:"ok"`
}
