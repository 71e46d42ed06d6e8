package platform

import (
	"context"
	"io"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// videoClient is the slice of the YouTube API the handler needs. It decouples
// the handler from the concrete youtube.Client type so tests can substitute a
// double.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
	// SetChunkSize configures the chunk size for stream downloads.
	SetChunkSize(size int64)
}

// videoClientAdapter wraps *youtube.Client to satisfy videoClient.
type videoClientAdapter struct {
	*youtube.Client
}

func (a *videoClientAdapter) SetChunkSize(s int64) { a.Client.ChunkSize = s }

var _ videoClient = (*videoClientAdapter)(nil)

func newVideoClient() videoClient {
	return &videoClientAdapter{&youtube.Client{
		HTTPClient: &http.Client{Timeout: downloadTimeout, Transport: sharedTransport},
	}}
}
