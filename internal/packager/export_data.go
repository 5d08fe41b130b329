package packager

import (
	"gazerec/internal/alignment"
	"gazerec/internal/chunkstore"
	"gazerec/internal/sessiondata"
)

// ExportData is the metadata.json document.
type ExportData struct {
	SessionID              string                       `json:"sessionId"`
	Participant            sessiondata.Participant      `json:"participant"`
	RecordingStartTime     int64                        `json:"recordingStartTime"`
	RecordingDuration      int64                        `json:"recordingDuration"`
	ScreenResolution       sessiondata.Resolution       `json:"screenResolution"`
	ScreenStreamResolution sessiondata.Resolution       `json:"screenStreamResolution"`
	WebcamResolution       sessiondata.Resolution       `json:"webcamResolution"`
	InitialCalibration     *sessiondata.CalibrationData `json:"initialCalibration"`
	CardPositions          []sessiondata.CardPosition   `json:"cardPositions"`
	GameStartTimestamp     int64                        `json:"gameStartTimestamp"`
	Clicks                 []sessiondata.Click          `json:"clicks"`
	GameEndTimestamp       int64                        `json:"gameEndTimestamp"`
	GameMetadata           sessiondata.GameMetadata     `json:"gameMetadata"`
	WebcamMimeType         string                       `json:"webcamMimeType"`
	ScreenMimeType         string                       `json:"screenMimeType"`
	VideoAlignment         *alignment.Info              `json:"videoAlignment"`
}

// FromSession builds export data from a stored session record. Lists are
// never nil so they encode as [].
func FromSession(s *chunkstore.Session) ExportData {
	data := ExportData{
		SessionID:              s.SessionID,
		Participant:            s.Participant,
		RecordingStartTime:     s.RecordingStartTime,
		RecordingDuration:      s.RecordingDuration,
		ScreenResolution:       s.ScreenResolution,
		ScreenStreamResolution: s.ScreenStreamResolution,
		WebcamResolution:       s.WebcamResolution,
		InitialCalibration:     s.InitialCalibration,
		CardPositions:          append([]sessiondata.CardPosition{}, s.CardPositions...),
		GameStartTimestamp:     s.GameStartTimestamp,
		Clicks:                 append([]sessiondata.Click{}, s.Clicks...),
		GameEndTimestamp:       s.GameEndTimestamp,
		WebcamMimeType:         s.WebcamMimeType,
		ScreenMimeType:         s.ScreenMimeType,
	}
	if s.GameMetadata != nil {
		data.GameMetadata = *s.GameMetadata
	}
	return data
}

// Validate lists every problem with data. An empty result means the export
// is complete; callers decide whether problems block the export.
func Validate(data ExportData) []string {
	var problems []string
	if data.SessionID == "" {
		problems = append(problems, "Session ID is required")
	}
	if data.Participant.Name == "" {
		problems = append(problems, "Participant name is required")
	}
	if data.InitialCalibration == nil || len(data.InitialCalibration.Points) == 0 {
		problems = append(problems, "Calibration data is missing or incomplete")
	}
	if len(data.Clicks) == 0 {
		problems = append(problems, "No clicks recorded")
	}
	if len(data.CardPositions) == 0 {
		problems = append(problems, "Card positions not recorded")
	}
	if data.RecordingDuration == 0 {
		problems = append(problems, "Recording duration is zero")
	}
	return problems
}
