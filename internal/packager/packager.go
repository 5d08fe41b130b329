package packager

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"

	"gazerec/internal/alignment"
	"gazerec/internal/chunkstore"
	"gazerec/internal/logging"
	"gazerec/internal/sessiondata"
)

const (
	DefaultCompressionLevel = 6
	DefaultMetadataOverhead = 10 * 1024
)

// ChunkReader is the chunk store surface packaging needs.
type ChunkReader interface {
	EachChunk(ctx context.Context, sessionID string, streamType sessiondata.StreamType, fn func(chunkstore.VideoChunk) error) error
	CalculateTotalSize(ctx context.Context, sessionID string) (int64, error)
}

// Aligner computes stream alignment; *alignment.Calculator satisfies it.
type Aligner interface {
	Calculate(ctx context.Context, sessionID string) (*alignment.Info, error)
}

// Options tunes a Packager.
type Options struct {
	// CompressionLevel is the flate level for metadata.json. 0 stores it
	// without compression; out of range values select the default.
	CompressionLevel int
	MetadataOverhead int64
	Logger           *slog.Logger
}

// Result summarizes one written archive.
type Result struct {
	WebcamEntry  string
	ScreenEntry  string
	WebcamChunks int
	ScreenChunks int
	WebcamBytes  int64
	ScreenBytes  int64
	ArchiveBytes int64
	Alignment    *alignment.Info
}

// Packager writes session archives.
type Packager struct {
	store    ChunkReader
	aligner  Aligner
	level    int
	overhead int64
	logger   *slog.Logger
}

// New returns a Packager reading chunks from store.
func New(store ChunkReader, aligner Aligner, opts Options) *Packager {
	level := opts.CompressionLevel
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = DefaultCompressionLevel
	}
	overhead := opts.MetadataOverhead
	if overhead <= 0 {
		overhead = DefaultMetadataOverhead
	}
	return &Packager{
		store:    store,
		aligner:  aligner,
		level:    level,
		overhead: overhead,
		logger:   logging.NewComponentLogger(opts.Logger, "packager"),
	}
}

type streamBlob struct {
	buf    bytes.Buffer
	chunks int
}

func (p *Packager) collect(ctx context.Context, sessionID string, streamType sessiondata.StreamType, blob *streamBlob) error {
	return p.store.EachChunk(ctx, sessionID, streamType, func(chunk chunkstore.VideoChunk) error {
		blob.buf.Write(chunk.Data)
		blob.chunks++
		return nil
	})
}

// CreatePackage fetches both streams and the alignment concurrently, then
// writes the archive to w. data.VideoAlignment is filled in from the store.
func (p *Packager) CreatePackage(ctx context.Context, data ExportData, w io.Writer) (Result, error) {
	var (
		webcam, screen streamBlob
		info           *alignment.Info
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.collect(gctx, data.SessionID, sessiondata.StreamWebcam, &webcam)
	})
	g.Go(func() error {
		return p.collect(gctx, data.SessionID, sessiondata.StreamScreen, &screen)
	})
	if p.aligner != nil {
		g.Go(func() (err error) {
			info, err = p.aligner.Calculate(gctx, data.SessionID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("collect session data: %w", err)
	}
	data.VideoAlignment = info

	metadata, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode metadata: %w", err)
	}

	result := Result{
		WebcamEntry:  EntryName(sessiondata.StreamWebcam, data.WebcamMimeType),
		ScreenEntry:  EntryName(sessiondata.StreamScreen, data.ScreenMimeType),
		WebcamChunks: webcam.chunks,
		ScreenChunks: screen.chunks,
		WebcamBytes:  int64(webcam.buf.Len()),
		ScreenBytes:  int64(screen.buf.Len()),
		Alignment:    info,
	}

	counter := &countingWriter{w: w}
	zw := zip.NewWriter(counter)
	level := p.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	modified := time.UnixMilli(data.RecordingStartTime).UTC()

	entries := []struct {
		name    string
		method  uint16
		payload []byte
	}{
		{result.WebcamEntry, zip.Store, webcam.buf.Bytes()},
		{result.ScreenEntry, zip.Store, screen.buf.Bytes()},
		{MetadataEntry, zip.Deflate, metadata},
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: entry.name, Method: entry.method, Modified: modified})
		if err != nil {
			return Result{}, fmt.Errorf("create %s: %w", entry.name, err)
		}
		if _, err := fw.Write(entry.payload); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("finish archive: %w", err)
	}
	result.ArchiveBytes = counter.n

	logging.WithSessionID(p.logger, data.SessionID).Info("package created",
		logging.Int("webcam_chunks", result.WebcamChunks),
		logging.Int("screen_chunks", result.ScreenChunks),
		logging.Int64("archive_bytes", result.ArchiveBytes),
		logging.Bool("aligned", info != nil),
	)
	return result, nil
}

// EstimateExportSize returns stored chunk bytes plus the metadata overhead,
// or 0 when the size cannot be read.
func (p *Packager) EstimateExportSize(ctx context.Context, sessionID string) int64 {
	size, err := p.store.CalculateTotalSize(ctx, sessionID)
	if err != nil {
		logging.WarnWithContext(p.logger, "export size estimate failed", "estimate_failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "size shown as zero"),
		)
		return 0
	}
	return size + p.overhead
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
