package platform

import (
	"context"
	"testing"
)

type stubHandler struct {
	platform Platform
	calls    int
}

func (h *stubHandler) Platform() Platform { return h.platform }

func (h *stubHandler) Handle(ctx context.Context, rawURL string) Result {
	h.calls++
	return ok("stub", nil)
}

func newTestRegistry() (*Registry, map[Platform]*stubHandler) {
	handlers := map[Platform]*stubHandler{}
	registry := &Registry{}
	add := func(p Platform, tokens ...string) {
		h := &stubHandler{platform: p}
		handlers[p] = h
		registry.Add(h, tokens...)
	}
	add(YouTube, "youtube.com", "youtu.be")
	add(Instagram, "instagram.com")
	add(TikTok, "tiktok.com")
	add(Freepik, "freepik.com")
	add(Dribbble, "dribbble.com")
	add(Spotify, "spotify.com")
	add(LottieFiles, "lottiefiles.com")
	return registry, handlers
}

func TestClassify(t *testing.T) {
	registry, _ := newTestRegistry()

	cases := []struct {
		name  string
		url   string
		want  Platform
		match bool
	}{
		{name: "youtube watch", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: YouTube, match: true},
		{name: "youtube short link", url: "https://youtu.be/dQw4w9WgXcQ", want: YouTube, match: true},
		{name: "youtube music subdomain", url: "https://music.youtube.com/watch?v=abc", want: YouTube, match: true},
		{name: "uppercase host", url: "https://WWW.INSTAGRAM.COM/p/ABC123/", want: Instagram, match: true},
		{name: "tiktok", url: "https://www.tiktok.com/@user/video/123", want: TikTok, match: true},
		{name: "spotify track", url: "https://open.spotify.com/track/xyz?si=abc", want: Spotify, match: true},
		{name: "lottie", url: "https://assets.lottiefiles.com/a.json", want: LottieFiles, match: true},
		{name: "unsupported host", url: "https://example.com/video", want: Unknown, match: false},
		{name: "no host", url: "not a url at all", want: Unknown, match: false},
		{name: "empty", url: "", want: Unknown, match: false},
		{name: "scheme only", url: "https://", want: Unknown, match: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, match := registry.Classify(tc.url)
			if match != tc.match {
				t.Fatalf("Classify(%q) match = %v, want %v", tc.url, match, tc.match)
			}
			if got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// A redirector host containing two platform tokens resolves to whichever
	// entry was declared first.
	registry := &Registry{}
	first := &stubHandler{platform: YouTube}
	second := &stubHandler{platform: TikTok}
	registry.Add(first, "youtube.com")
	registry.Add(second, "tiktok.com")

	got, match := registry.Classify("https://youtube.com.tiktok.com/clip/1")
	if !match || got != YouTube {
		t.Fatalf("expected first declared entry to win, got %q (match=%v)", got, match)
	}
}

func TestHandlerForUnmatchedInvokesNothing(t *testing.T) {
	registry, handlers := newTestRegistry()

	if _, found := registry.HandlerFor("https://example.org/x"); found {
		t.Fatal("expected no handler for unsupported host")
	}
	for p, h := range handlers {
		if h.calls != 0 {
			t.Fatalf("handler %s was invoked %d times", p, h.calls)
		}
	}
}

func TestRegistryPlatformsOrder(t *testing.T) {
	registry, _ := newTestRegistry()
	want := []Platform{YouTube, Instagram, TikTok, Freepik, Dribbble, Spotify, LottieFiles}
	got := registry.Platforms()
	if len(got) != len(want) {
		t.Fatalf("expected %d platforms, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("platform %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSpotifyTrackID(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "si param preferred", url: "https://open.spotify.com/track/4uLU6hMC?si=abc123", want: "abc123"},
		{name: "path fallback", url: "https://open.spotify.com/track/4uLU6hMC", want: "4uLU6hMC"},
		{name: "si beats path", url: "https://open.spotify.com/track/pathid?si=paramid", want: "paramid"},
		{name: "empty path", url: "https://open.spotify.com/", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := spotifyTrackID(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("spotifyTrackID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestInstagramShortcode(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "post shape", url: "https://www.instagram.com/p/Cxyz123/", want: "Cxyz123"},
		{name: "reel shape", url: "https://www.instagram.com/reel/Babc456/", want: "Babc456"},
		{name: "reels shape", url: "https://instagram.com/reels/Babc456", want: "Babc456"},
		{name: "tv shape", url: "https://www.instagram.com/tv/Qdef789/", want: "Qdef789"},
		{name: "profile url", url: "https://www.instagram.com/someuser/", wantErr: true},
		{name: "bare host", url: "https://www.instagram.com/", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := instagramShortcode(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("instagramShortcode(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}
