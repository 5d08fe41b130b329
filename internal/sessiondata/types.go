package sessiondata

import (
	"fmt"
	"strings"
)

// StreamType identifies one of the two recorded media streams.
type StreamType string

const (
	StreamWebcam StreamType = "webcam"
	StreamScreen StreamType = "screen"
)

// StreamTypes lists every recorded stream in a stable order.
var StreamTypes = []StreamType{StreamWebcam, StreamScreen}

// Valid reports whether t is a known stream type.
func (t StreamType) Valid() bool {
	return t == StreamWebcam || t == StreamScreen
}

// ParseStreamType converts user input into a StreamType.
func ParseStreamType(value string) (StreamType, error) {
	t := StreamType(strings.ToLower(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown stream type %q", value)
	}
	return t, nil
}

// Status is the lifecycle state of a recording session.
type Status string

const (
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
	StatusUploaded  Status = "uploaded"
	StatusError     Status = "error"
)

// Incomplete reports whether the session never reached a finished state.
func (s Status) Incomplete() bool {
	return s == StatusRecording || s == StatusError
}

// ClickType classifies a click as aimed at a designated target or not.
type ClickType string

const (
	ClickExplicit ClickType = "explicit"
	ClickImplicit ClickType = "implicit"
)

// Resolution is a pixel size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether no resolution was captured.
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Participant describes the person taking part in the session.
type Participant struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	WearingGlasses  bool   `json:"wearingGlasses"`
	WearingContacts bool   `json:"wearingContacts"`
}

// CalibrationPoint is one gaze-calibration target the participant fixated.
type CalibrationPoint struct {
	PointID        string  `json:"pointId"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	ScreenX        float64 `json:"screenX"`
	ScreenY        float64 `json:"screenY"`
	Timestamp      int64   `json:"timestamp"`
	VideoTimestamp int64   `json:"videoTimestamp"`
}

// CalibrationData is the initial calibration sequence.
type CalibrationData struct {
	StartTimestamp int64              `json:"startTimestamp"`
	EndTimestamp   int64              `json:"endTimestamp"`
	Points         []CalibrationPoint `json:"points"`
}

// CardPosition is the on-screen rectangle of one game card.
type CardPosition struct {
	CardID  string  `json:"cardId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
}

// NewCardPosition derives the center from a rectangle.
func NewCardPosition(cardID string, x, y, width, height float64) CardPosition {
	return CardPosition{
		CardID:  cardID,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		CenterX: x + width/2,
		CenterY: y + height/2,
	}
}

// Click is one captured pointer click.
//
// TargetX, TargetY and CardID are null in JSON unless the click landed on a
// game card.
type Click struct {
	ID             string    `json:"id"`
	Timestamp      int64     `json:"timestamp"`
	VideoTimestamp int64     `json:"videoTimestamp"`
	Type           ClickType `json:"type"`
	ScreenX        float64   `json:"screenX"`
	ScreenY        float64   `json:"screenY"`
	TargetX        *float64  `json:"targetX"`
	TargetY        *float64  `json:"targetY"`
	CardID         *string   `json:"cardId"`
}

// GameMetadata aggregates gameplay statistics.
type GameMetadata struct {
	Duration            int `json:"duration"`
	TotalMoves          int `json:"totalMoves"`
	TotalMatches        int `json:"totalMatches"`
	TotalExplicitClicks int `json:"totalExplicitClicks"`
	TotalImplicitClicks int `json:"totalImplicitClicks"`
}

// GameMetadataUpdate is a partial update; nil fields are left untouched.
type GameMetadataUpdate struct {
	Duration            *int `json:"duration,omitempty"`
	TotalMoves          *int `json:"totalMoves,omitempty"`
	TotalMatches        *int `json:"totalMatches,omitempty"`
	TotalExplicitClicks *int `json:"totalExplicitClicks,omitempty"`
	TotalImplicitClicks *int `json:"totalImplicitClicks,omitempty"`
}

// Apply merges the non-nil fields of u into m.
func (u GameMetadataUpdate) Apply(m GameMetadata) GameMetadata {
	if u.Duration != nil {
		m.Duration = *u.Duration
	}
	if u.TotalMoves != nil {
		m.TotalMoves = *u.TotalMoves
	}
	if u.TotalMatches != nil {
		m.TotalMatches = *u.TotalMatches
	}
	if u.TotalExplicitClicks != nil {
		m.TotalExplicitClicks = *u.TotalExplicitClicks
	}
	if u.TotalImplicitClicks != nil {
		m.TotalImplicitClicks = *u.TotalImplicitClicks
	}
	return m
}

// CountClicks returns the explicit and implicit click totals.
func CountClicks(clicks []Click) (explicit, implicit int) {
	for _, c := range clicks {
		switch c.Type {
		case ClickExplicit:
			explicit++
		case ClickImplicit:
			implicit++
		}
	}
	return explicit, implicit
}
