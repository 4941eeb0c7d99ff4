package muxer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrMuxFailed marks an encoder run that could not produce a complete
// artifact: launch failure, nonzero exit, or a timeout kill. Delivery is
// gated on its absence; a partial output file is never served.
var ErrMuxFailed = errors.New("mux failed")

// Encoder produces a muxed MP4 from a pair of remote rendition paths.
type Encoder interface {
	// Mux combines id's video and audio renditions into a single local file
	// and returns its path. tag disambiguates concurrent jobs for the same
	// identifier.
	Mux(ctx context.Context, id MediaID, videoPath, audioPath string, tag int64) (string, error)
}

// FFmpegEncoder shells out to ffmpeg for a lossless stream copy. Both inputs
// are remote URLs; ffmpeg performs the fetches itself, so nothing is
// downloaded ahead of the mux.
type FFmpegEncoder struct {
	binary     string
	streamHost string
	tmpDir     string
	timeout    time.Duration
}

// NewFFmpegEncoder returns an encoder writing artifacts under tmpDir.
// binary defaults to "ffmpeg" on PATH; a timeout of 0 lets a run go
// unbounded.
func NewFFmpegEncoder(binary, streamHost, tmpDir string, timeout time.Duration) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{
		binary:     binary,
		streamHost: strings.TrimRight(streamHost, "/"),
		tmpDir:     tmpDir,
		timeout:    timeout,
	}
}

// OutputPath returns the artifact path for an id and tag pair.
func (e *FFmpegEncoder) OutputPath(id MediaID, tag int64) string {
	return filepath.Join(e.tmpDir, fmt.Sprintf("%s_%d.mp4", id, tag))
}

// Mux implements Encoder. The context bounds the run; a hung ffmpeg is
// killed when the deadline passes.
func (e *FFmpegEncoder) Mux(ctx context.Context, id MediaID, videoPath, audioPath string, tag int64) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out := e.OutputPath(id, tag)
	cmd := exec.CommandContext(ctx, e.binary,
		"-i", fmt.Sprintf("%s/%s/%s", e.streamHost, id, videoPath),
		"-i", fmt.Sprintf("%s/%s/%s", e.streamHost, id, audioPath),
		"-c:v", "copy",
		"-c:a", "copy",
		out,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// A failed or killed run may have written a partial file; it will
		// never be delivered, so it is removed here rather than accumulating.
		_ = Artifact{Path: out}.Remove()
		return "", fmt.Errorf("%w: %v: %s", ErrMuxFailed, err, lastLine(stderr.String()))
	}
	return out, nil
}

// lastLine trims ffmpeg's chatty stderr down to its final line for logging.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
