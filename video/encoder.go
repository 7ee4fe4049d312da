// Package video drives the frame-sequential export loop: it renders
// each frame of a clip in presentation order and feeds the raster
// output to an H.264 encoder.
//
// Encoding is delegated to an external ffmpeg binary fed raw RGB24
// frames over stdin. The Encoder interface keeps the sequencer
// testable without ffmpeg installed.
package video

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/gogpu/reel"
)

// Encoder consumes raw frames and writes an encoded video file.
//
// Start must be called once before the first WriteFrame. Frames arrive
// strictly in presentation order; frame K's timestamp is K/fps seconds.
// Close flushes and finalizes the output; it must be called even after
// a mid-stream failure so a truncated file is still playable.
type Encoder interface {
	Start(width, height, fps int) error
	WriteFrame(rgb []byte) error
	Close() error
}

// FFmpegEncoder encodes H.264 yuv420p by piping rawvideo RGB24 frames
// to an ffmpeg process.
type FFmpegEncoder struct {
	binary  string
	preset  string
	crf     int
	output  string
	verbose bool

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ctx   context.Context
}

// Option configures an FFmpegEncoder.
type Option func(*FFmpegEncoder)

// WithBinary overrides the ffmpeg binary path. Defaults to "ffmpeg"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(e *FFmpegEncoder) {
		if path != "" {
			e.binary = path
		}
	}
}

// WithPreset sets the libx264 preset. Defaults to "medium".
func WithPreset(preset string) Option {
	return func(e *FFmpegEncoder) {
		if preset != "" {
			e.preset = preset
		}
	}
}

// WithCRF sets the libx264 constant rate factor. Defaults to 23.
func WithCRF(crf int) Option {
	return func(e *FFmpegEncoder) {
		if crf >= 0 {
			e.crf = crf
		}
	}
}

// WithVerboseLog forwards ffmpeg's stderr to the reel logger instead of
// discarding it.
func WithVerboseLog() Option {
	return func(e *FFmpegEncoder) {
		e.verbose = true
	}
}

// NewFFmpegEncoder creates an encoder writing to outputPath. The
// context bounds the lifetime of the ffmpeg process.
func NewFFmpegEncoder(ctx context.Context, outputPath string, opts ...Option) *FFmpegEncoder {
	e := &FFmpegEncoder{
		binary: "ffmpeg",
		preset: "medium",
		crf:    23,
		output: outputPath,
		ctx:    ctx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start spawns the ffmpeg process reading rawvideo from stdin.
func (e *FFmpegEncoder) Start(width, height, fps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil {
		return fmt.Errorf("encoder already started")
	}
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("invalid encode parameters %dx%d@%d", width, height, fps)
	}

	args := []string{
		"-hide_banner",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", e.preset,
		"-crf", strconv.Itoa(e.crf),
		"-pix_fmt", "yuv420p",
		"-y", e.output,
	}
	cmd := exec.CommandContext(e.ctx, e.binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open encoder stdin: %w", err)
	}
	if e.verbose {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("open encoder stderr: %w", err)
		}
		go logStderr(stderr)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.binary, err)
	}
	e.cmd = cmd
	e.stdin = stdin

	reel.Logger().Info("encoder started",
		"binary", e.binary, "output", e.output,
		"width", width, "height", height, "fps", fps)
	return nil
}

// WriteFrame streams one RGB24 frame to the encoder.
func (e *FFmpegEncoder) WriteFrame(rgb []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stdin == nil {
		return fmt.Errorf("encoder not started")
	}
	if _, err := e.stdin.Write(rgb); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close closes the frame stream and waits for ffmpeg to finalize the
// file. Safe to call after a partial stream: ffmpeg flushes what it
// received and writes a valid truncated file.
func (e *FFmpegEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return nil
	}
	closeErr := e.stdin.Close()
	waitErr := e.cmd.Wait()
	e.cmd = nil
	e.stdin = nil

	if waitErr != nil {
		return fmt.Errorf("encoder exited: %w", waitErr)
	}
	return closeErr
}

// logStderr forwards encoder diagnostics line by line.
func logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			reel.Logger().Debug("encoder", "line", line)
		}
	}
}

var _ Encoder = (*FFmpegEncoder)(nil)
