package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaxChannelVideos caps how many videos are taken from one channel tab
const MaxChannelVideos = 50

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ErrNoChannelVideos is returned when a channel yields no playable video
var ErrNoChannelVideos = errors.New("no videos found on channel")

// ErrInvalidChannel is returned for references that do not name a YouTube channel
var ErrInvalidChannel = errors.New("invalid channel")

// ContentFilter selects which channel tab videos are taken from
type ContentFilter string

const (
	ContentAll    ContentFilter = "all"
	ContentVideos ContentFilter = "videos"
	ContentShorts ContentFilter = "shorts"
	ContentLive   ContentFilter = "live"
)

// ParseContentFilter maps an empty value to ContentAll and rejects unknown ones
func ParseContentFilter(value string) (ContentFilter, error) {
	switch f := ContentFilter(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return ContentAll, nil
	case ContentAll, ContentVideos, ContentShorts, ContentLive:
		return f, nil
	}
	return "", fmt.Errorf("unknown content filter %q", value)
}

// tabs lists the single-tab filters a filter expands to
func (f ContentFilter) tabs() []ContentFilter {
	if f == ContentAll {
		return []ContentFilter{ContentVideos, ContentShorts, ContentLive}
	}
	return []ContentFilter{f}
}

func (f ContentFilter) path() string {
	switch f {
	case ContentShorts:
		return "/shorts"
	case ContentLive:
		return "/streams"
	}
	return "/videos"
}

// ChannelVideo is one video found on a channel
type ChannelVideo struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// ChannelResolver lists the videos a channel publishes
type ChannelResolver interface {
	ChannelVideos(ctx context.Context, channel string, filter ContentFilter) ([]ChannelVideo, error)
}

// ChannelTabURL turns a channel reference (@handle, /c/name, /channel/id, a
// channel URL or a bare name) into the URL of the tab selected by filter
func ChannelTabURL(channel string, filter ContentFilter) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", fmt.Errorf("%w: channel is required", ErrInvalidChannel)
	}
	if filter == ContentAll {
		filter = ContentVideos
	}
	tab := filter.path()

	if !strings.Contains(channel, "youtube.com") {
		if strings.Contains(channel, "/") || strings.ContainsAny(channel, " ?#") {
			return "", fmt.Errorf("%w: not a YouTube channel: %q", ErrInvalidChannel, channel)
		}
		return "https://www.youtube.com/@" + strings.TrimPrefix(channel, "@") + tab, nil
	}

	if !strings.Contains(channel, "://") {
		channel = "https://" + channel
	}
	u, err := url.Parse(channel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChannel, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@"):
		return "https://www.youtube.com/" + segments[0] + tab, nil
	case len(segments) >= 2 && (segments[0] == "c" || segments[0] == "channel" || segments[0] == "user"):
		return "https://www.youtube.com/" + segments[0] + "/" + segments[1] + tab, nil
	}
	return "", fmt.Errorf("%w: not a YouTube channel: %q", ErrInvalidChannel, channel)
}

// collectChannel runs list for each tab of filter. With ContentAll a failing
// tab is skipped, since channels often lack shorts or streams.
func collectChannel(ctx context.Context, channel string, filter ContentFilter, list func(ctx context.Context, tabURL string) ([]string, error)) ([]ChannelVideo, error) {
	tabs := filter.tabs()
	seen := make(map[string]bool)
	var videos []ChannelVideo

	for _, tab := range tabs {
		tabURL, err := ChannelTabURL(channel, tab)
		if err != nil {
			return nil, err
		}

		ids, err := list(ctx, tabURL)
		if err != nil {
			if len(tabs) == 1 || ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("Channel tab lookup failed", "tab_url", tabURL, "error", err)
			continue
		}

		taken := 0
		for _, id := range ids {
			if taken == MaxChannelVideos {
				break
			}
			if !videoIDPattern.MatchString(id) || seen[id] {
				continue
			}
			seen[id] = true
			taken++
			videos = append(videos, ChannelVideo{
				URL:      "https://www.youtube.com/watch?v=" + id,
				Category: string(tab),
			})
		}
	}

	if len(videos) == 0 {
		return nil, ErrNoChannelVideos
	}
	return videos, nil
}

// URLs returns the video URLs in order
func URLs(videos []ChannelVideo) []string {
	urls := make([]string, 0, len(videos))
	for _, v := range videos {
		urls = append(urls, v.URL)
	}
	return urls
}
