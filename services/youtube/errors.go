package youtube

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidURL means no video id could be parsed from the input
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrExtractionFailed means yt-dlp errored or returned nothing usable
	ErrExtractionFailed = errors.New("could not extract video information")
	// ErrExtractionTimeout means the extraction exceeded its time bound
	ErrExtractionTimeout = errors.New("video extraction timed out")
	// ErrVideoUnavailable means yt-dlp ran fine but this particular video cannot be served
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrNoAudioAvailable means extraction succeeded but no usable audio stream exists
	ErrNoAudioAvailable = errors.New("no audio stream available")
	// ErrUpstreamUnavailable means the lightweight summary source failed
	ErrUpstreamUnavailable = errors.New("upstream video service unavailable")
)

// yt-dlp messages that describe the requested video rather than the health of YouTube
var videoErrorMarkers = []string{
	"video unavailable",
	"private video",
	"has been removed",
	"is not available",
	"members-only",
	"confirm your age",
	"premieres in",
	"live event will begin",
	"unsupported url",
	"incomplete youtube id",
	"not a valid url",
	"does not exist",
}

// IsVideoError reports whether err is about the requested video itself.
// Such failures say nothing about whether extraction works for other videos.
func IsVideoError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrVideoUnavailable) || errors.Is(err, ErrInvalidURL) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range videoErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
