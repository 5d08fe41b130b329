package testsupport

import (
	"context"
	"testing"

	"gazerec/internal/chunkstore"
	"gazerec/internal/config"
	"gazerec/internal/sessiondata"
)

// MustOpenStore opens a chunkstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *chunkstore.Store {
	t.Helper()

	store, err := chunkstore.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("chunkstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutSession stores a minimal session record with the given start time.
func PutSession(t testing.TB, store *chunkstore.Store, sessionID string, startMs int64) *chunkstore.Session {
	t.Helper()

	session := &chunkstore.Session{
		SessionID:          sessionID,
		Participant:        sessiondata.Participant{Name: "Test Participant", Age: 30},
		RecordingStartTime: startMs,
		Status:             sessiondata.StatusRecording,
		WebcamMimeType:     "video/webm;codecs=vp8,opus",
		ScreenMimeType:     "video/webm;codecs=vp8,opus",
	}
	if err := store.PutSession(context.Background(), session); err != nil {
		t.Fatalf("store.PutSession: %v", err)
	}
	return session
}

// StoreChunks appends count chunks of size bytes each, starting at firstMs
// and spaced intervalMs apart. Chunk offsets are relative to firstMs.
func StoreChunks(t testing.TB, store *chunkstore.Store, sessionID string, streamType sessiondata.StreamType, count, size int, firstMs, intervalMs int64) {
	t.Helper()

	for i := 0; i < count; i++ {
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(i)
		}
		chunk := chunkstore.VideoChunk{
			SessionID:   sessionID,
			Type:        streamType,
			Timestamp:   firstMs + int64(i)*intervalMs,
			ChunkOffset: int64(i) * intervalMs,
			Data:        data,
		}
		if err := store.StoreChunk(context.Background(), chunk); err != nil {
			t.Fatalf("store.StoreChunk: %v", err)
		}
	}
}
