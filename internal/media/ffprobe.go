// Package media discovers the real length of video sources with FFprobe.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/vitrine/internal/logger"
)

const (
	defaultBinary  = "ffprobe"
	defaultTimeout = 30 * time.Second
)

// Common errors
var (
	ErrFFprobeNotFound   = errors.New("ffprobe not found in PATH")
	ErrSourceUnavailable = errors.New("media source not found or not readable")
	ErrInvalidFile       = errors.New("invalid or corrupted media source")
	ErrTimeout           = errors.New("ffprobe execution timed out")
)

// FFprobeResult represents the top-level JSON output from FFprobe
type FFprobeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream represents a video or audio stream
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"` // "video" or "audio"
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Format represents the container information
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Info is the subset of probe output the scheduler cares about
type Info struct {
	DurationMs int64
	VideoCodec string
	Width      int
	Height     int
}

// runFunc executes the probe binary and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFprobe probes media sources (local paths or URLs) with the ffprobe binary.
type FFprobe struct {
	binary  string
	timeout time.Duration
	run     runFunc
	log     zerolog.Logger
}

// NewFFprobe creates a prober. Empty binary and non-positive timeout select defaults.
func NewFFprobe(binary string, timeout time.Duration) *FFprobe {
	if binary == "" {
		binary = defaultBinary
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FFprobe{
		binary:  binary,
		timeout: timeout,
		run:     runCommand,
		log:     logger.With("ffprobe"),
	}
}

// Available checks that the configured binary can be found
func (f *FFprobe) Available() error {
	if _, err := exec.LookPath(f.binary); err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// ProbeDuration returns the length of src in whole milliseconds
func (f *FFprobe) ProbeDuration(ctx context.Context, src string) (int64, error) {
	info, err := f.Probe(ctx, src)
	if err != nil {
		return 0, err
	}
	return info.DurationMs, nil
}

// Probe executes FFprobe against src. The child process is bounded by the probe
// timeout and is always reaped before Probe returns.
func (f *FFprobe) Probe(ctx context.Context, src string) (*Info, error) {
	if err := f.Available(); err != nil {
		return nil, err
	}

	f.log.Debug().
		Str("src", src).
		Msg("Probing media source")

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	output, err := f.run(ctx,
		f.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		src,
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFile, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var result FFprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info, err := extractInfo(&result)
	if err != nil {
		return nil, err
	}

	f.log.Debug().
		Str("src", src).
		Int64("duration_ms", info.DurationMs).
		Str("video_codec", info.VideoCodec).
		Msg("Probed media source")

	return info, nil
}

// extractInfo converts FFprobeResult to Info. The first video stream's duration wins,
// the container duration is the fallback.
func extractInfo(result *FFprobeResult) (*Info, error) {
	info := &Info{}

	var videoStream *Stream
	for i := range result.Streams {
		if result.Streams[i].CodecType == "video" {
			videoStream = &result.Streams[i]
			break
		}
	}

	if videoStream != nil {
		info.VideoCodec = videoStream.CodecName
		info.Width = videoStream.Width
		info.Height = videoStream.Height
		info.DurationMs = secondsToMs(videoStream.Duration)
	}

	if info.DurationMs == 0 {
		info.DurationMs = secondsToMs(result.Format.Duration)
	}

	if info.DurationMs == 0 {
		return nil, fmt.Errorf("%w: could not determine duration", ErrInvalidFile)
	}

	return info, nil
}

// secondsToMs parses a decimal seconds string and floors it to milliseconds.
// Unparseable or non-finite values yield 0.
func secondsToMs(s string) int64 {
	if s == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return int64(math.Floor(seconds * 1000))
}
