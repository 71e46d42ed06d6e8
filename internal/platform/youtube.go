package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
)

const (
	minChunkSize     int64 = 256 * 1024
	maxChunkSize     int64 = 2 * 1024 * 1024
	targetChunkCount int64 = 64
)

var youtubeClientOnce sync.Once

// YouTubeHandler negotiates available encodings through the YouTube client
// library, applies the quality policy, and streams the selected encoding to
// the destination directory.
type YouTubeHandler struct {
	opts      Options
	newClient func() videoClient
}

func NewYouTubeHandler(opts Options) *YouTubeHandler {
	youtubeClientOnce.Do(func() {
		youtube.DefaultClient = youtube.AndroidClient
	})
	return &YouTubeHandler{opts: opts, newClient: newVideoClient}
}

func (h *YouTubeHandler) Platform() Platform { return YouTube }

func (h *YouTubeHandler) Handle(ctx context.Context, rawURL string) Result {
	payload, err := h.download(ctx, rawURL)
	if err != nil {
		return fail(classifyYouTubeError(err))
	}
	return ok(fmt.Sprintf("Downloaded: %s", payload["filename"]), payload)
}

func (h *YouTubeHandler) download(ctx context.Context, rawURL string) (map[string]any, error) {
	if _, err := youtube.ExtractVideoID(rawURL); err != nil {
		return nil, wrapCategory(CategoryInvalidURL, fmt.Errorf("invalid YouTube URL: %w", err))
	}

	client := h.newClient()

	metaCtx, cancel := context.WithTimeout(ctx, h.opts.metadataTimeout())
	defer cancel()
	video, err := client.GetVideoContext(metaCtx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}

	format, err := selectFormat(video, h.opts)
	if err != nil {
		return nil, err
	}

	filename := sanitizeFilename(video.Title) + formatExtension(format)
	outputPath := filepath.Join(h.opts.OutputDir, filename)
	if err := os.MkdirAll(h.opts.OutputDir, 0o755); err != nil {
		return nil, wrapCategory(CategoryFilesystem, fmt.Errorf("creating output directory: %w", err))
	}

	dlCtx, cancelDl := context.WithTimeout(ctx, downloadTimeout)
	defer cancelDl()
	if err := h.streamToFile(dlCtx, client, video, format, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	if h.opts.AudioOnly {
		converted, err := h.reformatAudio(video, outputPath)
		if err != nil {
			return nil, err
		}
		outputPath = converted
		filename = filepath.Base(outputPath)
	}

	return map[string]any{
		"filename": filename,
		"title":    video.Title,
		"author":   video.Author,
		"length":   int(video.Duration.Seconds()),
		"views":    video.Views,
		"path":     outputPath,
	}, nil
}

func (h *YouTubeHandler) streamToFile(ctx context.Context, client videoClient, video *youtube.Video, format *youtube.Format, outputPath string) error {
	adjustChunkSize(client, format.ContentLength)

	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return wrapCategory(CategoryNetwork, fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return wrapCategory(CategoryFilesystem, fmt.Errorf("opening output file: %w", err))
	}
	defer file.Close()

	if _, err := copyWithContext(ctx, file, stream); err != nil {
		return wrapCategory(CategoryNetwork, fmt.Errorf("download failed: %w", err))
	}
	return nil
}

// reformatAudio converts a downloaded audio stream into the requested audio
// container and embeds metadata tags.
func (h *YouTubeHandler) reformatAudio(video *youtube.Video, inputPath string) (string, error) {
	targetExt := "." + strings.TrimPrefix(strings.ToLower(h.opts.Format), ".")
	if targetExt == "." {
		targetExt = ".mp3"
	}
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + targetExt
	if outputPath == inputPath {
		embedAudioTags(video, outputPath)
		return outputPath, nil
	}
	if !ffmpegAvailable() {
		return "", categorizedf(CategoryUnsupported, "audio reformat to %s requires ffmpeg on PATH", targetExt)
	}
	if err := extractAudio(inputPath, outputPath); err != nil {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("ffmpeg conversion failed: %w", err))
	}
	os.Remove(inputPath)
	embedAudioTags(video, outputPath)
	return outputPath, nil
}

// adjustChunkSize picks a smaller chunk size for the YouTube client to keep
// requests frequent on small files without spawning thousands on large ones.
func adjustChunkSize(client videoClient, contentLength int64) {
	if client == nil || contentLength <= 0 {
		return
	}
	chunk := contentLength / targetChunkCount
	if chunk < minChunkSize {
		chunk = minChunkSize
	} else if chunk > maxChunkSize {
		chunk = maxChunkSize
	}
	client.SetChunkSize(chunk)
}

// classifyYouTubeError maps client library errors onto the failure taxonomy.
func classifyYouTubeError(err error) error {
	if ErrorCategory(err) != CategoryGeneric {
		return err
	}

	var playability *youtube.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate), errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return wrapCategory(CategoryUnavailable, errors.New("video is unavailable (possibly private or deleted)"))
	case errors.As(err, &playability):
		return wrapCategory(CategoryUnavailable, fmt.Errorf("video is unavailable: %s", playability.Reason))
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID), errors.Is(err, youtube.ErrVideoIDMinLength):
		return wrapCategory(CategoryInvalidURL, errors.New("invalid YouTube URL"))
	}

	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) && int(statusErr) == http.StatusForbidden {
		return wrapCategory(CategoryRateLimited, errors.New("access denied, retry in a few minutes"))
	}
	if strings.Contains(err.Error(), "403") {
		return wrapCategory(CategoryRateLimited, errors.New("access denied, retry in a few minutes"))
	}
	return wrapCategory(CategoryGeneric, fmt.Errorf("YouTube download failed: %w", err))
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
