package service

import (
	"context"
	"errors"
	"time"

	"github.com/dandantas/adbfleet/internal/metadata"
)

// ErrChannelsDisabled is returned when no channel resolver is configured
var ErrChannelsDisabled = errors.New("channel lookup is not configured")

// VideoDuration is the lookup result for one video
type VideoDuration struct {
	URL       string `json:"url"`
	Seconds   int    `json:"duration,omitempty"`
	Formatted string `json:"formatted_duration,omitempty"`
	Error     string `json:"error,omitempty"`
}

// VideoService looks up video durations ahead of a playlist job
type VideoService struct {
	resolver metadata.DurationResolver
	channels metadata.ChannelResolver
}

// NewVideoService creates a video service
func NewVideoService(resolver metadata.DurationResolver) *VideoService {
	return &VideoService{resolver: resolver}
}

// WithChannels enables channel listings
func (s *VideoService) WithChannels(channels metadata.ChannelResolver) *VideoService {
	s.channels = channels
	return s
}

// ChannelVideos lists a channel's videos for filter
func (s *VideoService) ChannelVideos(ctx context.Context, channel string, filter metadata.ContentFilter) ([]metadata.ChannelVideo, error) {
	if s.channels == nil {
		return nil, ErrChannelsDisabled
	}
	return s.channels.ChannelVideos(ctx, channel, filter)
}

// Durations resolves each video in order. A failed lookup is reported per video.
func (s *VideoService) Durations(ctx context.Context, videos []string) []VideoDuration {
	results := make([]VideoDuration, 0, len(videos))
	for _, url := range videos {
		entry := VideoDuration{URL: url}

		if s.resolver == nil {
			entry.Error = metadata.ErrNoDuration.Error()
			results = append(results, entry)
			continue
		}

		d, err := s.resolver.Resolve(ctx, url)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Seconds = int(d / time.Second)
			entry.Formatted = metadata.FormatDuration(d)
		}
		results = append(results, entry)
	}
	return results
}
