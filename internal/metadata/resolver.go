// Package metadata looks up video information needed to schedule playback.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration is returned when no resolver could determine a duration
var ErrNoDuration = errors.New("video duration not available")

// DurationResolver determines how long a video plays
type DurationResolver interface {
	Resolve(ctx context.Context, videoURL string) (time.Duration, error)
}

// ChainResolver tries each resolver in order and returns the first success
type ChainResolver []DurationResolver

// Resolve implements DurationResolver
func (c ChainResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	var errs []error
	for _, r := range c {
		d, err := r.Resolve(ctx, videoURL)
		if err == nil {
			return d, nil
		}
		slog.Debug("Duration resolver failed",
			"resolver", fmt.Sprintf("%T", r),
			"video_url", videoURL,
			"error", err,
		)
		errs = append(errs, err)
	}
	return 0, fmt.Errorf("%w: %w", ErrNoDuration, errors.Join(errs...))
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// ExtractVideoID returns the 11 character video id embedded in a YouTube URL
func ExtractVideoID(videoURL string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(videoURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses ISO 8601 durations such as PT4M13S or P1DT2H
func ParseISODuration(value string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", value)
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", value, err)
		}
		total += time.Duration(n) * unit
	}

	if total <= 0 {
		return 0, fmt.Errorf("zero duration %q", value)
	}
	return total, nil
}

// ParseClockDuration parses [[h:]m:]s strings as printed by yt-dlp
func ParseClockDuration(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	var total time.Duration
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		total = total*60 + time.Duration(n)*time.Second
	}

	if total <= 0 {
		return 0, fmt.Errorf("zero duration %q", value)
	}
	return total, nil
}

// FormatDuration renders d as m:ss or h:mm:ss
func FormatDuration(d time.Duration) string {
	seconds := int(d.Round(time.Second) / time.Second)
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
