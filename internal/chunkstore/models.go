package chunkstore

import (
	"time"

	"gazerec/internal/sessiondata"
)

// VideoChunk is one encoded media fragment as delivered by an encoder.
type VideoChunk struct {
	ID        int64
	SessionID string
	Type      sessiondata.StreamType
	// Timestamp is the arrival wall-clock time in epoch milliseconds.
	Timestamp int64
	// ChunkOffset is milliseconds since the owning recorder started.
	ChunkOffset int64
	Data        []byte
}

// Size returns the payload length in bytes.
func (c VideoChunk) Size() int64 {
	return int64(len(c.Data))
}

// Session is the persisted record of one experiment run. The JSON form
// mirrors the exported metadata layout.
type Session struct {
	SessionID              string                       `json:"sessionId"`
	Participant            sessiondata.Participant      `json:"participant"`
	RecordingStartTime     int64                        `json:"recordingStartTime"`
	RecordingDuration      int64                        `json:"recordingDuration"`
	ScreenResolution       sessiondata.Resolution       `json:"screenResolution"`
	ScreenStreamResolution sessiondata.Resolution       `json:"screenStreamResolution"`
	WebcamResolution       sessiondata.Resolution       `json:"webcamResolution"`
	WebcamMimeType         string                       `json:"webcamMimeType"`
	ScreenMimeType         string                       `json:"screenMimeType"`
	Status                 sessiondata.Status           `json:"status"`
	ErrorMessage           string                       `json:"errorMessage,omitempty"`
	InitialCalibration     *sessiondata.CalibrationData `json:"initialCalibration,omitempty"`
	CardPositions          []sessiondata.CardPosition   `json:"cardPositions,omitempty"`
	GameStartTimestamp     int64                        `json:"gameStartTimestamp,omitempty"`
	GameEndTimestamp       int64                        `json:"gameEndTimestamp,omitempty"`
	Clicks                 []sessiondata.Click          `json:"clicks,omitempty"`
	GameMetadata           *sessiondata.GameMetadata    `json:"gameMetadata,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Clone returns a deep copy so callers can mutate without aliasing slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.InitialCalibration != nil {
		cal := *s.InitialCalibration
		cal.Points = append([]sessiondata.CalibrationPoint(nil), s.InitialCalibration.Points...)
		cp.InitialCalibration = &cal
	}
	cp.CardPositions = append([]sessiondata.CardPosition(nil), s.CardPositions...)
	cp.Clicks = append([]sessiondata.Click(nil), s.Clicks...)
	if s.GameMetadata != nil {
		gm := *s.GameMetadata
		cp.GameMetadata = &gm
	}
	return &cp
}

// SessionSummary pairs a session with its stored chunk footprint.
type SessionSummary struct {
	Session     *Session
	WebcamCount int
	ScreenCount int
	TotalBytes  int64
}
