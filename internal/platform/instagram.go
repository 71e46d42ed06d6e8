package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const igAppID = "936619743392459" // web client app id sent by instagram.com itself

const instagramBaseURL = "https://www.instagram.com"

// InstagramSession wraps the Instagram web API. Credentials are optional:
// without them the session stays unauthenticated and some content is simply
// inaccessible. Login happens lazily, once, on first use.
type InstagramSession struct {
	client   *http.Client
	baseURL  string
	username string
	password string

	mu        sync.Mutex
	attempted bool
	loginErr  error
}

func NewInstagramSession(username, password string) *InstagramSession {
	jar, _ := cookiejar.New(nil)
	// No client-level timeout: metadata and media calls carry their own
	// context deadlines and a media download may legitimately run long.
	client := &http.Client{
		Jar:       jar,
		Transport: &browserTransport{base: sharedTransport, limiter: outboundLimiter},
	}
	return &InstagramSession{
		client:   client,
		baseURL:  instagramBaseURL,
		username: username,
		password: password,
	}
}

// ensureLogin performs the web login once when credentials are configured.
// A failed login degrades to unauthenticated access rather than failing the
// invocation; the upstream service decides what is visible.
func (s *InstagramSession) ensureLogin(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempted || s.username == "" || s.password == "" {
		return
	}
	s.attempted = true
	s.loginErr = s.login(ctx)
}

func (s *InstagramSession) login(ctx context.Context) error {
	resp, err := getWithContext(ctx, s.client, s.baseURL+"/accounts/login/")
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	var csrf string
	loginURL, _ := url.Parse(s.baseURL + "/")
	for _, c := range s.client.Jar.Cookies(loginURL) {
		if c.Name == "csrftoken" {
			csrf = c.Value
		}
	}

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), s.password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/v1/web/accounts/login/ajax/",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrf)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	loginResp, err := s.client.Do(req)
	if err != nil {
		return wrapCategory(CategoryNetwork, err)
	}
	defer loginResp.Body.Close()
	body, err := io.ReadAll(loginResp.Body)
	if err != nil {
		return wrapCategory(CategoryNetwork, err)
	}
	if !gjson.GetBytes(body, "authenticated").Bool() {
		return categorizedf(CategoryAuthRequired, "instagram login rejected for %s", s.username)
	}
	return nil
}

// authRequiredError reports auth-required failures, surfacing a degraded
// login when one happened so the operator can tell the two apart.
func (s *InstagramSession) authRequiredError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginErr != nil {
		return categorizedf(CategoryAuthRequired, "instagram requires login for this content (login degraded: %v)", s.loginErr)
	}
	return categorizedf(CategoryAuthRequired, "instagram requires login for this content")
}

// fetchPost retrieves the JSON representation of a post by shortcode.
func (s *InstagramSession) fetchPost(ctx context.Context, shortcode string) (gjson.Result, error) {
	endpoint := fmt.Sprintf("%s/p/%s/?__a=1&__d=dis", s.baseURL, shortcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, wrapCategory(CategoryInvalidURL, err)
	}
	req.Header.Set("X-IG-App-ID", igAppID)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return gjson.Result{}, wrapCategory(CategoryNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return gjson.Result{}, categorizedf(CategoryRateLimited, "instagram rate limit hit, wait before retrying")
	case http.StatusNotFound:
		return gjson.Result{}, categorizedf(CategoryNotFound, "post %s not found", shortcode)
	case http.StatusUnauthorized, http.StatusForbidden:
		return gjson.Result{}, s.authRequiredError()
	default:
		return gjson.Result{}, categorizedf(CategoryNetwork, "instagram returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, wrapCategory(CategoryNetwork, err)
	}
	parsed := gjson.ParseBytes(body)
	if parsed.Get("require_login").Bool() || parsed.Get("message").String() == "login_required" {
		return gjson.Result{}, s.authRequiredError()
	}
	item := parsed.Get("items.0")
	if !item.Exists() {
		return gjson.Result{}, categorizedf(CategoryNotFound, "post %s not found", shortcode)
	}
	return item, nil
}

func (s *InstagramSession) Close() {
	s.client.CloseIdleConnections()
}

// InstagramHandler fetches a post's metadata and media through a shared
// session and persists the media locally.
type InstagramHandler struct {
	opts    Options
	session *InstagramSession
}

func NewInstagramHandler(opts Options, session *InstagramSession) *InstagramHandler {
	return &InstagramHandler{opts: opts, session: session}
}

func (h *InstagramHandler) Platform() Platform { return Instagram }

func (h *InstagramHandler) Handle(ctx context.Context, rawURL string) Result {
	shortcode, err := instagramShortcode(rawURL)
	if err != nil {
		return fail(err)
	}

	metaCtx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()
	h.session.ensureLogin(metaCtx)

	item, err := h.session.fetchPost(metaCtx, shortcode)
	if err != nil {
		return fail(err)
	}

	isVideo := item.Get("media_type").Int() == 2
	mediaURL := item.Get("image_versions2.candidates.0.url").String()
	if isVideo {
		mediaURL = item.Get("video_versions.0.url").String()
	}
	if mediaURL == "" {
		return fail(categorizedf(CategoryMalformed, "post %s carries no media URL", shortcode))
	}

	dlCtx, cancelDl := context.WithTimeout(ctx, downloadTimeout)
	defer cancelDl()
	path, err := downloadFile(dlCtx, h.session.client, mediaURL, h.opts.OutputDir, shortcode)
	if err != nil {
		return fail(err)
	}

	caption := item.Get("caption.text").String()
	if caption == "" {
		caption = "(no caption)"
	}
	payload := map[string]any{
		"post_url": fmt.Sprintf("https://www.instagram.com/p/%s/", shortcode),
		"caption":  caption,
		"date":     time.Unix(item.Get("taken_at").Int(), 0).UTC().Format(time.RFC3339),
		"is_video": isVideo,
		"likes":    item.Get("like_count").Int(),
		"comments": item.Get("comment_count").Int(),
		"path":     path,
	}
	return ok(fmt.Sprintf("Downloaded Instagram post %s", shortcode), payload)
}

// instagramShortcode pulls the post identifier out of the URL path. Both the
// post shape (/p/<code>/) and the short-form shapes (/reel/, /reels/, /tv/)
// are supported.
func instagramShortcode(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", wrapCategory(CategoryInvalidURL, fmt.Errorf("invalid Instagram URL: %w", err))
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		switch segment {
		case "p", "reel", "reels", "tv":
			if i+1 < len(segments) && segments[i+1] != "" {
				return segments[i+1], nil
			}
		}
	}
	return "", categorizedf(CategoryInvalidURL, "no post identifier in %s", parsed.Path)
}
