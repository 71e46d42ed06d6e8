package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyClient holds an API client obtained through the client-credentials
// flow. Construction is lazy so missing credentials only surface when a
// Spotify URL is actually submitted.
type SpotifyClient struct {
	clientID     string
	clientSecret string

	mu  sync.Mutex
	api *spotify.Client
}

func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{clientID: clientID, clientSecret: clientSecret}
}

func (c *SpotifyClient) ensureAPI(ctx context.Context) (*spotify.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return nil, categorizedf(CategoryAuthRequired, "Spotify credentials not configured (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET)")
	}
	config := &clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, wrapCategory(CategoryAuthRequired, fmt.Errorf("spotify token request: %w", err))
	}
	c.api = spotify.New(spotifyauth.New().Client(ctx, token))
	return c.api, nil
}

// SpotifyHandler returns track metadata only; the upstream service provides
// no raw audio.
type SpotifyHandler struct {
	opts   Options
	client *SpotifyClient
}

func NewSpotifyHandler(opts Options, client *SpotifyClient) *SpotifyHandler {
	return &SpotifyHandler{opts: opts, client: client}
}

func (h *SpotifyHandler) Platform() Platform { return Spotify }

func (h *SpotifyHandler) Handle(ctx context.Context, rawURL string) Result {
	trackID, err := spotifyTrackID(rawURL)
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()

	api, err := h.client.ensureAPI(ctx)
	if err != nil {
		return fail(err)
	}

	track, err := api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return fail(classifySpotifyError(err))
	}

	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0].Name
	}
	payload := map[string]any{
		"track_name": track.Name,
		"artist":     artist,
	}
	return ok(fmt.Sprintf("Track: %s by %s", track.Name, artist), payload)
}

func classifySpotifyError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusTooManyRequests:
			return categorizedf(CategoryRateLimited, "Spotify rate limit hit, wait before retrying")
		case http.StatusNotFound:
			return categorizedf(CategoryNotFound, "track not found")
		case http.StatusUnauthorized, http.StatusForbidden:
			return categorizedf(CategoryAuthRequired, "Spotify rejected the configured credentials")
		}
	}
	return wrapCategory(CategoryGeneric, fmt.Errorf("Spotify info retrieval failed: %w", err))
}

// spotifyTrackID prefers the si query parameter and falls back to the last
// path segment, mirroring the URL shapes the share dialogs produce.
func spotifyTrackID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", wrapCategory(CategoryInvalidURL, fmt.Errorf("invalid Spotify URL: %w", err))
	}
	if si := parsed.Query().Get("si"); si != "" {
		return si, nil
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return "", categorizedf(CategoryInvalidURL, "no track identifier in %s", rawURL)
	}
	return last, nil
}
