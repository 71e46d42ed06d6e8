package platform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// selectFormat applies the quality policy to a video's available formats.
// The default is the highest-resolution progressive (combined audio+video)
// format; an explicit "720p"-style quality pins a resolution, "lowest" takes
// the smallest, and AudioOnly switches to audio-only formats by bitrate.
func selectFormat(video *youtube.Video, opts Options) (*youtube.Format, error) {
	candidates := make([]*youtube.Format, 0, len(video.Formats))
	for i := range video.Formats {
		format := &video.Formats[i]
		if opts.AudioOnly {
			if format.AudioChannels == 0 || format.Width != 0 || format.Height != 0 {
				continue
			}
		} else {
			// Progressive only: both an audio track and video dimensions.
			if format.AudioChannels == 0 || format.Width == 0 || format.Height == 0 {
				continue
			}
		}
		candidates = append(candidates, format)
	}

	if len(candidates) == 0 {
		reason := "no progressive (audio+video) formats available"
		if opts.AudioOnly {
			reason = "no audio-only formats available"
		}
		return nil, wrapCategory(CategoryUnavailable, errors.New(reason))
	}

	if opts.AudioOnly {
		return pickAudioFormat(candidates), nil
	}
	return pickVideoFormat(candidates, opts)
}

func pickVideoFormat(candidates []*youtube.Format, opts Options) (*youtube.Format, error) {
	targetHeight, preferLowest, err := parseVideoQuality(opts.Quality)
	if err != nil {
		return nil, wrapCategory(CategoryUnsupported, err)
	}

	if targetHeight > 0 {
		for _, f := range candidates {
			if f.Height == targetHeight {
				return f, nil
			}
		}
		return nil, categorizedf(CategoryUnavailable, "no progressive format at %dp", targetHeight)
	}

	best := candidates[0]
	for _, f := range candidates[1:] {
		if preferLowest {
			if f.Height < best.Height {
				best = f
			}
		} else if betterVideoFormat(f, best) {
			best = f
		}
	}
	return best, nil
}

func pickAudioFormat(candidates []*youtube.Format) *youtube.Format {
	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

func betterVideoFormat(a, b *youtube.Format) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}

// parseVideoQuality understands "", "best", "lowest"/"worst", and "<n>p".
func parseVideoQuality(quality string) (height int, preferLowest bool, err error) {
	q := strings.ToLower(strings.TrimSpace(quality))
	switch q {
	case "", "best", "highest":
		return 0, false, nil
	case "lowest", "worst":
		return 0, true, nil
	}
	n, convErr := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if convErr != nil || n <= 0 {
		return 0, false, fmt.Errorf("unrecognized quality %q", quality)
	}
	return n, false, nil
}

// formatExtension maps a format's mime type to a file extension.
func formatExtension(format *youtube.Format) string {
	mimeType := format.MimeType
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	switch strings.TrimSpace(mimeType) {
	case "video/mp4", "audio/mp4":
		return ".mp4"
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/3gpp":
		return ".3gp"
	}
	return ".mp4"
}
