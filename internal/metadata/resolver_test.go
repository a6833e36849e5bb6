package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/video", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractVideoID(tt.url)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractVideoID(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"PT4M13S", 4*time.Minute + 13*time.Second, false},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second, false},
		{"PT45S", 45 * time.Second, false},
		{"P1DT1H", 25 * time.Hour, false},
		{"PT0S", 0, true},
		{"4:13", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseISODuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseISODuration(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"45", 45 * time.Second, false},
		{"4:13", 253 * time.Second, false},
		{"1:02:03", 3723 * time.Second, false},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClockDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseClockDuration(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(253 * time.Second); got != "4:13" {
		t.Errorf("FormatDuration(253s) = %s, want 4:13", got)
	}
	if got := FormatDuration(3723 * time.Second); got != "1:02:03" {
		t.Errorf("FormatDuration(3723s) = %s, want 1:02:03", got)
	}
}

func TestYouTubeResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" || r.URL.Query().Get("part") != "contentDetails" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Query().Get("id") {
		case "dQw4w9WgXcQ":
			w.Write([]byte(`{"items":[{"id":"dQw4w9WgXcQ","contentDetails":{"duration":"PT3M33S"}}]}`))
		default:
			w.Write([]byte(`{"items":[]}`))
		}
	}))
	defer server.Close()

	resolver := NewYouTubeResolver("test-key", server.URL, server.Client())

	got, err := resolver.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != 213*time.Second {
		t.Errorf("Resolve() = %v, want 3m33s", got)
	}

	if _, err := resolver.Resolve(context.Background(), "https://youtu.be/aaaaaaaaaaa"); err == nil {
		t.Errorf("Resolve() for unknown video returned no error")
	}
	if _, err := resolver.Resolve(context.Background(), "https://example.com"); err == nil {
		t.Errorf("Resolve() for non-YouTube URL returned no error")
	}

	noKey := NewYouTubeResolver("", server.URL, server.Client())
	if _, err := noKey.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Errorf("Resolve() without API key returned no error")
	}

	badKey := NewYouTubeResolver("wrong", server.URL, server.Client())
	if _, err := badKey.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Errorf("Resolve() with rejected key returned no error")
	}
}

type staticResolver struct {
	d   time.Duration
	err error
}

func (s staticResolver) Resolve(ctx context.Context, videoURL string) (time.Duration, error) {
	return s.d, s.err
}

func TestChainResolver(t *testing.T) {
	chain := ChainResolver{
		staticResolver{err: errors.New("api down")},
		staticResolver{d: time.Minute},
	}
	got, err := chain.Resolve(context.Background(), "x")
	if err != nil || got != time.Minute {
		t.Errorf("Resolve() = %v, %v; want 1m, nil", got, err)
	}

	failing := ChainResolver{staticResolver{err: errors.New("a")}, staticResolver{err: errors.New("b")}}
	if _, err := failing.Resolve(context.Background(), "x"); !errors.Is(err, ErrNoDuration) {
		t.Errorf("Resolve() error = %v, want ErrNoDuration", err)
	}

	if _, err := (ChainResolver{}).Resolve(context.Background(), "x"); !errors.Is(err, ErrNoDuration) {
		t.Errorf("empty chain error = %v, want ErrNoDuration", err)
	}
}

func TestYtDlpResolverMissingBinary(t *testing.T) {
	r := NewYtDlpResolver(filepath.Join(t.TempDir(), "yt-dlp"), time.Second)
	if _, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Errorf("Resolve() with missing binary returned no error")
	}
}
