package youtube

import "regexp"

// Rules are tried in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([^&\n?#]+)`),
	regexp.MustCompile(`youtu\.be/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
}

// ExtractVideoID returns the video id contained in a YouTube URL.
// It reports false when the URL matches none of the known forms.
func ExtractVideoID(url string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}

// EmbedURL returns the player embed URL for a video id
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}

// WatchURL returns the canonical watch URL for a video id
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the max resolution thumbnail for a video id
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
}
