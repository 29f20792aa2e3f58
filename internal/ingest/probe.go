// Package ingest validates uploaded videos before a job is accepted.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeResult is the subset of stream metadata the API checks.
type ProbeResult struct {
	Width    int
	Height   int
	Duration time.Duration
	Codec    string
}

// Probe runs ffprobe on the file and returns the first video stream's
// metadata. A file without a decodable video stream is rejected.
func Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-hide_banner",
		"-loglevel", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height:format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var parsed struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", path)
	}

	stream := parsed.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("video stream has no dimensions")
	}

	var duration time.Duration
	if raw := strings.TrimSpace(parsed.Format.Duration); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			duration = time.Duration(secs * float64(time.Second))
		}
	}

	return &ProbeResult{
		Width:    stream.Width,
		Height:   stream.Height,
		Duration: duration,
		Codec:    stream.CodecName,
	}, nil
}
