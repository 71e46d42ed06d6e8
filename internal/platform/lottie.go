package platform

import (
	"context"
	"mime"
	"net/http"
	"strings"
)

// LottieHandler verifies that a URL serves a Lottie animation: a successful
// response whose content type indicates JSON. Nothing is persisted.
type LottieHandler struct {
	opts   Options
	client *http.Client
}

func NewLottieHandler(opts Options) *LottieHandler {
	return &LottieHandler{opts: opts, client: newHTTPClient(opts.metadataTimeout())}
}

func (h *LottieHandler) Platform() Platform { return LottieFiles }

func (h *LottieHandler) Handle(ctx context.Context, rawURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()

	resp, err := getWithContext(ctx, h.client, rawURL)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !isJSONContentType(resp.Header.Get("Content-Type")) {
		return fail(categorizedf(CategoryMalformed, "invalid Lottie URL"))
	}
	return ok("Lottie JSON downloaded successfully", nil)
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
