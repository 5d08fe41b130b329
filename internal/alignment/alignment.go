package alignment

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/sessiondata"
)

// Reader is the chunk store surface alignment needs.
type Reader interface {
	GetSession(ctx context.Context, sessionID string) (*chunkstore.Session, error)
	GetFirstChunkTimestamp(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (int64, bool, error)
	CountChunks(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (int, error)
}

// StreamInfo describes one stream's first chunk.
type StreamInfo struct {
	FirstChunkTime  int64 `json:"firstChunkTime"`
	OffsetFromStart int64 `json:"offsetFromStart"`
	TotalChunks     int   `json:"totalChunks"`
}

// Offsets holds the lead and trim amounts in milliseconds. At most one lead
// is non-zero and both are never negative.
type Offsets struct {
	WebcamLeadsBy int64 `json:"webcamLeadsBy"`
	ScreenLeadsBy int64 `json:"screenLeadsBy"`
	TrimWebcamBy  int64 `json:"trimWebcamBy"`
	TrimScreenBy  int64 `json:"trimScreenBy"`
}

// Info is the alignment of one session.
type Info struct {
	SessionID          string     `json:"sessionId"`
	RecordingStartTime int64      `json:"recordingStartTime"`
	Webcam             StreamInfo `json:"webcam"`
	Screen             StreamInfo `json:"screen"`
	Alignment          Offsets    `json:"alignment"`
}

// Align derives lead and trim amounts from each stream's offset from the
// shared recording start.
func Align(webcamOffset, screenOffset int64) Offsets {
	webcamLeads := max(0, screenOffset-webcamOffset)
	screenLeads := max(0, webcamOffset-screenOffset)
	return Offsets{
		WebcamLeadsBy: webcamLeads,
		ScreenLeadsBy: screenLeads,
		TrimWebcamBy:  webcamLeads,
		TrimScreenBy:  screenLeads,
	}
}

// Calculator reads first-chunk data from the store. It only reads, so
// repeated calls return the same result for a finished session.
type Calculator struct {
	store  Reader
	logger *slog.Logger
}

// NewCalculator returns a calculator over store.
func NewCalculator(store Reader, logger *slog.Logger) *Calculator {
	return &Calculator{store: store, logger: logging.NewComponentLogger(logger, "alignment")}
}

// Calculate returns the alignment for sessionID, or nil when the session is
// missing or either stream has no chunks.
func (c *Calculator) Calculate(ctx context.Context, sessionID string) (*Info, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	var (
		webcamFirst, screenFirst int64
		webcamOK, screenOK       bool
		webcamCount, screenCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		webcamFirst, webcamOK, err = c.store.GetFirstChunkTimestamp(gctx, sessionID, sessiondata.StreamWebcam)
		return err
	})
	g.Go(func() (err error) {
		screenFirst, screenOK, err = c.store.GetFirstChunkTimestamp(gctx, sessionID, sessiondata.StreamScreen)
		return err
	})
	g.Go(func() (err error) {
		webcamCount, err = c.store.CountChunks(gctx, sessionID, sessiondata.StreamWebcam)
		return err
	})
	g.Go(func() (err error) {
		screenCount, err = c.store.CountChunks(gctx, sessionID, sessiondata.StreamScreen)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read first chunks: %w", err)
	}

	logger := logging.WithSessionID(c.logger, sessionID)
	if !webcamOK || !screenOK {
		logger.Info("alignment unavailable",
			logging.Int("webcam_chunks", webcamCount),
			logging.Int("screen_chunks", screenCount),
			logging.String(logging.FieldEventType, "alignment_unavailable"),
		)
		return nil, nil
	}

	start := session.RecordingStartTime
	info := &Info{
		SessionID:          sessionID,
		RecordingStartTime: start,
		Webcam: StreamInfo{
			FirstChunkTime:  webcamFirst,
			OffsetFromStart: webcamFirst - start,
			TotalChunks:     webcamCount,
		},
		Screen: StreamInfo{
			FirstChunkTime:  screenFirst,
			OffsetFromStart: screenFirst - start,
			TotalChunks:     screenCount,
		},
	}
	info.Alignment = Align(info.Webcam.OffsetFromStart, info.Screen.OffsetFromStart)
	logger.Debug("alignment computed",
		logging.Int64("webcam_offset_ms", info.Webcam.OffsetFromStart),
		logging.Int64("screen_offset_ms", info.Screen.OffsetFromStart),
		logging.Int64("webcam_leads_by_ms", info.Alignment.WebcamLeadsBy),
		logging.Int64("screen_leads_by_ms", info.Alignment.ScreenLeadsBy),
	)
	return info, nil
}
