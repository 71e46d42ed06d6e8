package platform

import (
	"context"
	"fmt"
	"net/http"
)

// GalleryHandler covers the image-gallery platforms, which differ only in the
// CSS class of the preview image element.
type GalleryHandler struct {
	opts     Options
	client   *http.Client
	platform Platform
	selector string
	noun     string
}

func NewFreepikHandler(opts Options) *GalleryHandler {
	return &GalleryHandler{
		opts:     opts,
		client:   newHTTPClient(opts.metadataTimeout()),
		platform: Freepik,
		selector: "img.preview-image",
		noun:     "Freepik image",
	}
}

func NewDribbbleHandler(opts Options) *GalleryHandler {
	return &GalleryHandler{
		opts:     opts,
		client:   newHTTPClient(opts.metadataTimeout()),
		platform: Dribbble,
		selector: "img.Prose-image",
		noun:     "Dribbble image",
	}
}

func (h *GalleryHandler) Platform() Platform { return h.platform }

func (h *GalleryHandler) Handle(ctx context.Context, rawURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()

	doc, err := fetchDocument(ctx, h.client, rawURL)
	if err != nil {
		return fail(fmt.Errorf("%s retrieval failed: %w", h.noun, err))
	}

	src, exists := doc.Find(h.selector).First().Attr("src")
	if !exists || src == "" {
		return fail(categorizedf(CategoryMalformed, "%s retrieval failed: no %s element in page markup", h.noun, h.selector))
	}
	return ok(fmt.Sprintf("Found %s URL", h.noun), map[string]any{"image_url": src})
}
