package youtube

import (
	"fmt"
	"math"
)

const (
	defaultTitle    = "Unknown Title"
	defaultAuthor   = "Unknown"
	defaultLanguage = "en"
	captionFormat   = "vtt"
)

// Normalize converts a raw yt-dlp info dict into a MetadataRecord,
// filling absent fields with defaults.
func Normalize(id string, info *RawInfo) *MetadataRecord {
	record := &MetadataRecord{
		VideoID:          id,
		Title:            orDefault(info.Title, defaultTitle),
		Description:      info.Description,
		Thumbnail:        orDefault(info.Thumbnail, ThumbnailURL(id)),
		Duration:         int(math.Round(info.Duration)),
		ViewCount:        info.ViewCount,
		LikeCount:        info.LikeCount,
		Author:           orDefault(info.Uploader, defaultAuthor),
		ChannelID:        info.ChannelID,
		ChannelURL:       info.ChannelURL,
		UploadDate:       info.UploadDate,
		Categories:       append([]string{}, info.Categories...),
		Tags:             append([]string{}, info.Tags...),
		EmbedURL:         EmbedURL(id),
		WatchURL:         WatchURL(id),
		Subtitles:        captionTracks(info.Subtitles),
		AutoCaptions:     captionTracks(info.AutomaticCaptions),
		OriginalLanguage: orDefault(info.Language, defaultLanguage),
	}
	return record
}

// captionTracks keeps, per language, the first vtt track
func captionTracks(raw map[string][]RawSubtitle) map[string][]SubtitleTrack {
	out := make(map[string][]SubtitleTrack)
	for lang, subs := range raw {
		for _, s := range subs {
			if s.Ext == captionFormat {
				out[lang] = []SubtitleTrack{{Ext: captionFormat, URL: s.URL}}
				break
			}
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatDuration renders seconds as H:MM:SS, or M:SS under an hour
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
