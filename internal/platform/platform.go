// Package platform implements URL classification and the per-platform
// retrieval handlers behind it. Each handler talks to exactly one external
// service and normalizes its outcome into a uniform Result.
package platform

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/match"
)

// Platform identifies one of the supported content services.
type Platform string

const (
	YouTube     Platform = "YouTube"
	Instagram   Platform = "Instagram"
	TikTok      Platform = "TikTok"
	Freepik     Platform = "Freepik"
	Dribbble    Platform = "Dribbble"
	Spotify     Platform = "Spotify"
	LottieFiles Platform = "LottieFiles"
	Unknown     Platform = "Unknown"
)

// Result is the uniform outcome every handler returns. It is constructed
// once by a handler and never mutated after; Payload, when present, is a
// flat map of primitive values whose keys are part of the handler contract.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`

	// Category carries the failure taxonomy for exit codes and logs; it is
	// not part of the persisted payload shape.
	Category Category `json:"-"`
}

func ok(message string, payload map[string]any) Result {
	return Result{Success: true, Message: message, Payload: payload}
}

// fail converts a handler error into a failed Result, keeping the error's
// text as the user-facing message.
func fail(err error) Result {
	return Result{Success: false, Message: err.Error(), Category: ErrorCategory(err)}
}

// Handler retrieves content or metadata for one platform.
type Handler interface {
	Platform() Platform
	Handle(ctx context.Context, rawURL string) Result
}

// Options carries the caller-tunable knobs shared by handlers.
type Options struct {
	OutputDir string        // destination for downloaded media, created on demand
	Quality   string        // e.g. "720p", "lowest"; empty means highest available
	Format    string        // preferred container for audio output (mp3, m4a, opus)
	AudioOnly bool          // download audio only, reformatted via ffmpeg
	Timeout   time.Duration // per-request timeout for metadata calls
}

const (
	defaultMetadataTimeout = 30 * time.Second
	downloadTimeout        = 10 * time.Minute
)

func (o Options) metadataTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultMetadataTimeout
}

type registryEntry struct {
	tokens  []string
	handler Handler
}

// Registry maps URL hosts to handlers. Entries are tested in the order they
// were added; the first entry with a matching token wins, which is the
// deliberate tie-break for hosts containing several platform tokens.
type Registry struct {
	entries []registryEntry
}

// Add registers a handler for the given domain tokens. Declaration order is
// significant and preserved.
func (r *Registry) Add(handler Handler, tokens ...string) {
	r.entries = append(r.entries, registryEntry{tokens: tokens, handler: handler})
}

// Classify maps a URL to a platform by substring-matching its host against
// each entry's domain tokens. Malformed URLs yield an empty host and
// therefore no match; classification never fails with an error.
func (r *Registry) Classify(rawURL string) (Platform, bool) {
	h, ok := r.handlerFor(rawURL)
	if !ok {
		return Unknown, false
	}
	return h.Platform(), true
}

// HandlerFor returns the handler for the URL's platform, or false when the
// host matches no registered token.
func (r *Registry) HandlerFor(rawURL string) (Handler, bool) {
	return r.handlerFor(rawURL)
}

func (r *Registry) handlerFor(rawURL string) (Handler, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return nil, false
	}
	for _, entry := range r.entries {
		for _, token := range entry.tokens {
			if match.Match(host, "*"+token+"*") {
				return entry.handler, true
			}
		}
	}
	return nil, false
}

// Platforms lists the registered platforms in declaration order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.handler.Platform())
	}
	return out
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
