package platform

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// CloseIdleConnections releases pooled connections on shutdown.
func CloseIdleConnections() {
	sharedTransport.CloseIdleConnections()
}

// browserTransport fills in browser-like headers so scrape targets serve the
// same markup they would to a real client. There is no retry layer: failures
// surface to the handler immediately.
type browserTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	}
	return t.base.RoundTrip(req)
}

// outboundLimiter paces all scrape-style requests; a single shared bucket is
// enough for the strictly sequential invocation model.
var outboundLimiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &browserTransport{
			base:    sharedTransport,
			limiter: outboundLimiter,
		},
	}
}

func getWithContext(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapCategory(CategoryInvalidURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapCategory(CategoryNetwork, err)
	}
	return resp, nil
}

// downloadFile streams a media URL into dir/name, creating the directory if
// absent. The extension is derived from the response when name has none.
// Existing files are overwritten; last write wins.
func downloadFile(ctx context.Context, client *http.Client, url, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("creating output directory: %w", err))
	}

	resp, err := getWithContext(ctx, client, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", categorizedf(CategoryNetwork, "fetching media: %s", resp.Status)
	}

	if filepath.Ext(name) == "" {
		name += responseExtension(resp)
	}
	path := filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", wrapCategory(CategoryFilesystem, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", wrapCategory(CategoryNetwork, fmt.Errorf("writing %s: %w", filepath.Base(path), err))
	}
	return path, nil
}

// responseExtension derives a file extension from Content-Disposition or
// Content-Type, falling back to .bin.
func responseExtension(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if filename, ok := params["filename"]; ok {
				if ext := filepath.Ext(filename); ext != "" {
					return ext
				}
			}
		}
	}
	ct := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		switch mediaType {
		case "video/mp4":
			return ".mp4"
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "application/json":
			return ".json"
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".bin"
}

// sanitizeFilename strips path separators and characters that commonly break
// filesystems from a service-reported name.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "", "\x00", "",
	)
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if cleaned == "" {
		return "download"
	}
	return cleaned
}
