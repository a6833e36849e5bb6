package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dandantas/adbfleet/internal/evaluator"
)

const durationPath = "$.items[0].contentDetails.duration"

// NewHTTPClient creates an HTTP client with connection pooling
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// YouTubeResolver reads durations from the YouTube Data API v3
type YouTubeResolver struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTubeResolver creates a resolver against baseURL (the videos endpoint)
func NewYouTubeResolver(apiKey, baseURL string, client *http.Client) *YouTubeResolver {
	return &YouTubeResolver{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

// Resolve implements DurationResolver
func (r *YouTubeResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	if r.apiKey == "" {
		return 0, errors.New("YouTube API key not configured")
	}

	videoID, ok := ExtractVideoID(videoURL)
	if !ok {
		return 0, fmt.Errorf("could not extract video ID from %q", videoURL)
	}

	query := url.Values{}
	query.Set("part", "contentDetails")
	query.Set("id", videoID)
	query.Set("key", r.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("YouTube API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read YouTube API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("YouTube API returned status %d", resp.StatusCode)
	}

	value, err := evaluator.Extract(body, durationPath)
	if err != nil {
		return 0, err
	}
	raw, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected duration value %v", value)
	}

	return ParseISODuration(raw)
}
