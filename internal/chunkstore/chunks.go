package chunkstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gazerec/internal/sessiondata"
)

// StoreChunk appends one chunk. Failures are returned as *PersistenceError.
func (s *Store) StoreChunk(ctx context.Context, chunk VideoChunk) error {
	if s.closed.Load() {
		return persistErr("store chunk", ErrClosed)
	}
	if chunk.SessionID == "" {
		return persistErr("store chunk", errors.New("session id is required"))
	}
	if !chunk.Type.Valid() {
		return persistErr("store chunk", fmt.Errorf("invalid stream type %q", chunk.Type))
	}
	data := chunk.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO video_chunks (session_id, type, timestamp, chunk_offset, size, data)
         VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.SessionID,
		string(chunk.Type),
		chunk.Timestamp,
		chunk.ChunkOffset,
		len(data),
		data,
	)
	return persistErr("store chunk", err)
}

// GetChunks returns every chunk of one stream ordered by arrival timestamp.
// Ties are broken by insertion id. An empty stream yields an empty slice.
func (s *Store) GetChunks(ctx context.Context, sessionID string, streamType sessiondata.StreamType) ([]VideoChunk, error) {
	chunks := make([]VideoChunk, 0)
	err := s.EachChunk(ctx, sessionID, streamType, func(chunk VideoChunk) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// EachChunk streams the chunks of one stream in arrival order without
// holding the whole set in memory. fn must not call back into the Store.
func (s *Store) EachChunk(ctx context.Context, sessionID string, streamType sessiondata.StreamType, fn func(VideoChunk) error) error {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, chunk_offset, data FROM video_chunks
         WHERE session_id = ? AND type = ?
         ORDER BY timestamp, id`,
		sessionID, string(streamType),
	)
	if err != nil {
		return persistErr("get chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		chunk := VideoChunk{SessionID: sessionID, Type: streamType}
		if err := rows.Scan(&chunk.ID, &chunk.Timestamp, &chunk.ChunkOffset, &chunk.Data); err != nil {
			return persistErr("scan chunk", err)
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return persistErr("iterate chunks", rows.Err())
}

// ChunkOffsets returns the stored chunk offsets of one stream in arrival
// order without reading payloads.
func (s *Store) ChunkOffsets(ctx context.Context, sessionID string, streamType sessiondata.StreamType) ([]int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_offset FROM video_chunks
         WHERE session_id = ? AND type = ?
         ORDER BY timestamp, id`,
		sessionID, string(streamType),
	)
	if err != nil {
		return nil, persistErr("chunk offsets", err)
	}
	defer rows.Close()

	var offsets []int64
	for rows.Next() {
		var offset int64
		if err := rows.Scan(&offset); err != nil {
			return nil, persistErr("scan chunk offset", err)
		}
		offsets = append(offsets, offset)
	}
	return offsets, persistErr("iterate chunk offsets", rows.Err())
}

// GetFirstChunkTimestamp returns the earliest arrival timestamp of a stream.
// ok is false when the stream has no chunks.
func (s *Store) GetFirstChunkTimestamp(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (ts int64, ok bool, err error) {
	return s.firstChunkColumn(ctx, "timestamp", sessionID, streamType)
}

// GetFirstChunkOffset returns the stored offset of the earliest chunk.
// ok is false when the stream has no chunks.
func (s *Store) GetFirstChunkOffset(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (offset int64, ok bool, err error) {
	return s.firstChunkColumn(ctx, "chunk_offset", sessionID, streamType)
}

func (s *Store) firstChunkColumn(ctx context.Context, column, sessionID string, streamType sessiondata.StreamType) (int64, bool, error) {
	ctx = ensureContext(ctx)
	var value int64
	err := s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM video_chunks
         WHERE session_id = ? AND type = ?
         ORDER BY timestamp, id LIMIT 1`,
		sessionID, string(streamType),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, persistErr("first chunk "+column, err)
	}
	return value, true, nil
}

// CountChunks counts the chunks of one stream.
func (s *Store) CountChunks(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM video_chunks WHERE session_id = ? AND type = ?`,
		sessionID, string(streamType),
	).Scan(&count)
	if err != nil {
		return 0, persistErr("count chunks", err)
	}
	return count, nil
}

// CalculateTotalSize sums payload sizes of every chunk of a session using the
// size column only.
func (s *Store) CalculateTotalSize(ctx context.Context, sessionID string) (int64, error) {
	ctx = ensureContext(ctx)
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM video_chunks WHERE session_id = ?`,
		sessionID,
	).Scan(&total)
	if err != nil {
		return 0, persistErr("total size", err)
	}
	return total, nil
}

// StreamSize sums payload sizes of one stream.
func (s *Store) StreamSize(ctx context.Context, sessionID string, streamType sessiondata.StreamType) (int64, error) {
	ctx = ensureContext(ctx)
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM video_chunks WHERE session_id = ? AND type = ?`,
		sessionID, string(streamType),
	).Scan(&total)
	if err != nil {
		return 0, persistErr("stream size", err)
	}
	return total, nil
}
