package platform

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
	"github.com/kkdai/youtube/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// extractAudio strips the video track and encodes the audio into the
// container implied by the output extension.
func extractAudio(inputPath, outputPath string) error {
	kwargs := ffmpeg.KwArgs{"vn": ""}
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp3":
		kwargs["acodec"] = "libmp3lame"
		kwargs["q:a"] = "2"
	case ".m4a", ".aac":
		kwargs["acodec"] = "aac"
		kwargs["b:a"] = "192k"
	case ".opus", ".webm":
		kwargs["acodec"] = "libopus"
		kwargs["b:a"] = "160k"
	default:
		kwargs["acodec"] = "copy"
	}

	return ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
}

// embedAudioTags writes metadata tags into an audio file. MP3 gets ID3v2
// frames directly; tagging failures are deliberately swallowed since the
// downloaded file itself is fine.
func embedAudioTags(video *youtube.Video, outputPath string) {
	if strings.ToLower(filepath.Ext(outputPath)) != ".mp3" {
		return
	}
	tag, err := id3v2.Open(outputPath, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer tag.Close()

	if video.Title != "" {
		tag.SetTitle(video.Title)
	}
	if video.Author != "" {
		tag.SetArtist(video.Author)
	}
	if !video.PublishDate.IsZero() {
		tag.AddTextFrame(tag.CommonID("Year"), tag.DefaultEncoding(), strconv.Itoa(video.PublishDate.Year()))
	}
	_ = tag.Save()
}
