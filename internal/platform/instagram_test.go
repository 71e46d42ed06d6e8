package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func newTestInstagramSession(ts *httptest.Server, username, password string) *InstagramSession {
	s := NewInstagramSession(username, password)
	s.baseURL = ts.URL
	return s
}

func TestInstagramFetchPostTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Category
	}{
		{name: "not found", status: http.StatusNotFound, want: CategoryNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: CategoryRateLimited},
		{name: "forbidden", status: http.StatusForbidden, want: CategoryAuthRequired},
		{name: "unauthorized", status: http.StatusUnauthorized, want: CategoryAuthRequired},
		{name: "login wall in body", status: http.StatusOK, body: `{"message": "login_required"}`, want: CategoryAuthRequired},
		{name: "empty items", status: http.StatusOK, body: `{"items": []}`, want: CategoryNotFound},
		{name: "server error", status: http.StatusBadGateway, want: CategoryNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			session := newTestInstagramSession(ts, "", "")
			_, err := session.fetchPost(context.Background(), "Cxyz123")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ErrorCategory(err); got != tc.want {
				t.Fatalf("category = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInstagramHandlerNotFoundWritesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	dir := t.TempDir()
	h := NewInstagramHandler(Options{OutputDir: dir}, newTestInstagramSession(ts, "", ""))

	result := h.Handle(context.Background(), "https://www.instagram.com/p/Cgone404/")
	if result.Success {
		t.Fatal("expected failure for a missing post")
	}
	if result.Category != CategoryNotFound {
		t.Fatalf("category = %v, want %v", result.Category, CategoryNotFound)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed invocation wrote %d files", len(entries))
	}
}

func TestInstagramHandlerDownloadsVideoPost(t *testing.T) {
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/p/Cvid123/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-IG-App-ID"); got != igAppID {
			t.Errorf("X-IG-App-ID = %q", got)
		}
		fmt.Fprintf(w, `{"items": [{
			"media_type": 2,
			"taken_at": 1700000000,
			"like_count": 5,
			"comment_count": 2,
			"caption": {"text": "hello world"},
			"video_versions": [{"url": "%s/media/clip"}]
		}]}`, ts.URL)
	})
	mux.HandleFunc("/media/clip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("video-bytes"))
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	dir := t.TempDir()
	h := NewInstagramHandler(Options{OutputDir: dir}, newTestInstagramSession(ts, "", ""))

	result := h.Handle(context.Background(), "https://www.instagram.com/p/Cvid123/")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if got := result.Payload["post_url"]; got != "https://www.instagram.com/p/Cvid123/" {
		t.Fatalf("post_url = %v", got)
	}
	if got := result.Payload["caption"]; got != "hello world" {
		t.Fatalf("caption = %v", got)
	}
	if got := result.Payload["is_video"]; got != true {
		t.Fatalf("is_video = %v", got)
	}
	if got := result.Payload["likes"]; got != int64(5) {
		t.Fatalf("likes = %v", got)
	}
	if got := result.Payload["date"]; got != "2023-11-14T22:13:20Z" {
		t.Fatalf("date = %v", got)
	}

	path, ok := result.Payload["path"].(string)
	if !ok || path == "" {
		t.Fatalf("path missing from payload: %v", result.Payload["path"])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded media: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("media content = %q", data)
	}
}

func TestInstagramHandlerImagePostCaptionSentinel(t *testing.T) {
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/p/Cimg456/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items": [{
			"media_type": 1,
			"taken_at": 1700000000,
			"image_versions2": {"candidates": [{"url": "%s/media/pic"}]}
		}]}`, ts.URL)
	})
	mux.HandleFunc("/media/pic", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	h := NewInstagramHandler(Options{OutputDir: t.TempDir()}, newTestInstagramSession(ts, "", ""))

	result := h.Handle(context.Background(), "https://instagram.com/reel/Cimg456")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if got := result.Payload["caption"]; got != "(no caption)" {
		t.Fatalf("caption sentinel = %v", got)
	}
	if got := result.Payload["is_video"]; got != false {
		t.Fatalf("is_video = %v", got)
	}
}

func TestInstagramHandlerReportsDegradedLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "token"})
	})
	mux.HandleFunc("/api/v1/web/accounts/login/ajax/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"authenticated": false}`))
	})
	mux.HandleFunc("/p/Cwall789/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	h := NewInstagramHandler(Options{OutputDir: t.TempDir()}, newTestInstagramSession(ts, "someuser", "wrongpass"))

	result := h.Handle(context.Background(), "https://www.instagram.com/p/Cwall789/")
	if result.Success {
		t.Fatal("expected failure behind a login wall")
	}
	if result.Category != CategoryAuthRequired {
		t.Fatalf("category = %v, want %v", result.Category, CategoryAuthRequired)
	}
	if !strings.Contains(result.Message, "login degraded") {
		t.Fatalf("message does not surface the failed login: %q", result.Message)
	}
}
