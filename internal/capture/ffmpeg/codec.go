package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"gazerec/internal/capture"
)

type profile struct {
	format  string
	encoder string
	args    []string
}

// profileFor maps a mime string onto an ffmpeg muxer and video encoder.
func profileFor(mimeType string) (profile, bool) {
	m := capture.ParseMimeType(mimeType)
	switch m.Container {
	case "video/mp4":
		if len(m.Codecs) > 0 && !m.HasCodec("avc1") {
			return profile{}, false
		}
		return profile{
			format:  "mp4",
			encoder: "libx264",
			args:    []string{"-preset", "veryfast", "-tune", "zerolatency", "-pix_fmt", "yuv420p", "-movflags", "frag_keyframe+empty_moov+default_base_moof"},
		}, true
	case "video/webm":
		switch {
		case m.HasCodec("vp9"):
			return profile{format: "webm", encoder: "libvpx-vp9", args: []string{"-deadline", "realtime", "-cpu-used", "8"}}, true
		case len(m.Codecs) == 0 || m.HasCodec("vp8"):
			return profile{format: "webm", encoder: "libvpx", args: []string{"-deadline", "realtime", "-cpu-used", "8"}}, true
		}
		return profile{}, false
	case "video/x-matroska":
		return profile{format: "matroska", encoder: "libx264", args: []string{"-preset", "veryfast", "-tune", "zerolatency"}}, true
	default:
		return profile{}, false
	}
}

// Codec probes the ffmpeg binary once for available encoders.
type Codec struct {
	binary string
	probe  func(ctx context.Context, binary string) ([]byte, error)

	once     sync.Once
	encoders map[string]bool
	probeErr error
}

// NewCodec returns a codec backed by binary ("ffmpeg" when empty).
func NewCodec(binary string) *Codec {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Codec{binary: binary, probe: listEncoders}
}

func listEncoders(ctx context.Context, binary string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-encoders")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders: %w", err)
	}
	return output, nil
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output.
func parseEncoders(output []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	listing := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			listing = true
			continue
		}
		if !listing {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasPrefix(fields[0], "V") {
			encoders[fields[1]] = true
		}
	}
	return encoders
}

func (c *Codec) load() {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		output, err := c.probe(ctx, c.binary)
		if err != nil {
			c.probeErr = err
			c.encoders = map[string]bool{}
			return
		}
		c.encoders = parseEncoders(output)
	})
}

// ProbeError reports why encoder probing failed, if it did.
func (c *Codec) ProbeError() error {
	c.load()
	return c.probeErr
}

func (c *Codec) IsTypeSupported(mimeType string) bool {
	p, ok := profileFor(mimeType)
	if !ok {
		return false
	}
	c.load()
	return c.encoders[p.encoder]
}

func (c *Codec) NewEncoder(stream capture.Stream, opts capture.EncoderOptions) (capture.Encoder, error) {
	s, ok := stream.(*Stream)
	if !ok {
		return nil, errors.New("ffmpeg encoder requires an ffmpeg stream")
	}
	p, ok := profileFor(opts.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", capture.ErrUnsupportedMimeType, opts.MimeType)
	}
	enc := &Encoder{
		binary: c.binary,
		args:   buildArgs(s.InputArgs(), p, s.track.settings, opts.VideoBitsPerSecond),
		state:  capture.StateInactive,
	}
	s.attach(enc)
	return enc, nil
}

func buildArgs(input []string, p profile, settings capture.TrackSettings, bitrate int) []string {
	// stdin stays open: ffmpeg finishes the container when it reads "q".
	args := []string{"-hide_banner", "-loglevel", "error", "-nostats"}
	args = append(args, input...)
	args = append(args, "-an", "-c:v", p.encoder)
	if bitrate > 0 {
		args = append(args, "-b:v", strconv.Itoa(bitrate))
	}
	if fps := int(settings.FrameRate); fps > 0 {
		args = append(args, "-g", strconv.Itoa(fps))
	}
	args = append(args, p.args...)
	args = append(args, "-f", p.format, "pipe:1")
	return args
}
