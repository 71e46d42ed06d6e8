package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

// fetchDocument issues one browser-flavored GET and parses the returned
// markup. No retries and no script execution: if the page does not carry the
// expected markup statically, extraction fails.
func fetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	resp, err := getWithContext(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, categorizedf(CategoryNetwork, "fetching page: %s", resp.Status)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, wrapCategory(CategoryMalformed, fmt.Errorf("parsing markup: %w", err))
	}
	return doc, nil
}

// TikTokHandler extracts the direct video URL from a TikTok page's markup.
type TikTokHandler struct {
	opts   Options
	client *http.Client
}

func NewTikTokHandler(opts Options) *TikTokHandler {
	return &TikTokHandler{opts: opts, client: newHTTPClient(opts.metadataTimeout())}
}

func (h *TikTokHandler) Platform() Platform { return TikTok }

func (h *TikTokHandler) Handle(ctx context.Context, rawURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()

	doc, err := fetchDocument(ctx, h.client, rawURL)
	if err != nil {
		return fail(fmt.Errorf("TikTok info retrieval failed: %w", err))
	}

	src, exists := doc.Find("video").First().Attr("src")
	if !exists || src == "" {
		return fail(categorizedf(CategoryMalformed, "TikTok info retrieval failed: no video source in page markup"))
	}
	return ok("Found TikTok video URL", map[string]any{"video_url": src})
}
