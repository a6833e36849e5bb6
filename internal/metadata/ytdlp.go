package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// YtDlpResolver asks the local yt-dlp binary for video durations and channel listings
type YtDlpResolver struct {
	binaryPath string
	timeout    time.Duration
}

// NewYtDlpResolver creates a resolver running binaryPath with a per-lookup timeout
func NewYtDlpResolver(binaryPath string, timeout time.Duration) *YtDlpResolver {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &YtDlpResolver{
		binaryPath: binaryPath,
		timeout:    timeout,
	}
}

// Resolve implements DurationResolver
func (r *YtDlpResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	out, err := r.run(ctx, "--get-duration", "--no-warnings", "--no-playlist", videoURL)
	if err != nil {
		return 0, err
	}

	lines := splitLines(out)
	if len(lines) == 0 {
		return 0, errors.New("yt-dlp returned no duration")
	}
	// playlists print one duration per entry
	return ParseClockDuration(lines[0])
}

// ChannelVideos implements ChannelResolver with a flat listing of each tab
func (r *YtDlpResolver) ChannelVideos(ctx context.Context, channel string, filter ContentFilter) ([]ChannelVideo, error) {
	return collectChannel(ctx, channel, filter, func(ctx context.Context, tabURL string) ([]string, error) {
		out, err := r.run(ctx,
			"--flat-playlist", "--get-id", "--no-warnings",
			"--playlist-end", strconv.Itoa(MaxChannelVideos),
			tabURL,
		)
		if err != nil {
			return nil, err
		}
		return splitLines(out), nil
	})
}

func (r *YtDlpResolver) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binaryPath, args...)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
