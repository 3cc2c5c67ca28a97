package fetcher

import "learntube-api-go/services/youtube"

// Where a VideoInfo came from
const (
	SourceExtraction = "extraction"
	SourceCache      = "cache"
	SourceOEmbed     = "oembed"
)

// VideoInfo is the learning-page view of a video
type VideoInfo struct {
	ID               string                             `json:"id"`
	Title            string                             `json:"title"`
	Description      string                             `json:"description"`
	Thumbnail        string                             `json:"thumbnail"`
	Duration         int                                `json:"duration"`
	DurationString   string                             `json:"duration_string"`
	Uploader         string                             `json:"uploader"`
	ViewCount        *int64                             `json:"view_count"`
	EmbedURL         string                             `json:"embed_url"`
	WatchURL         string                             `json:"watch_url"`
	Subtitles        map[string][]youtube.SubtitleTrack `json:"subtitles"`
	AutoCaptions     map[string][]youtube.SubtitleTrack `json:"auto_captions"`
	OriginalLanguage string                             `json:"original_language"`
	Source           string                             `json:"source"`
}

// EmbedInfo holds the fields the video player needs
type EmbedInfo struct {
	VideoID   string `json:"video_id"`
	EmbedURL  string `json:"embed_url"`
	WatchURL  string `json:"watch_url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	Author    string `json:"author"`
}

// CaptionsSummary lists the caption languages available for a video
type CaptionsSummary struct {
	VideoID          string   `json:"video_id,omitempty"`
	Available        bool     `json:"available"`
	Subtitles        []string `json:"subtitles"`
	AutoCaptions     []string `json:"auto_captions"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// NewVideoInfo builds the learning-page view of m tagged with source
func NewVideoInfo(m *youtube.MetadataRecord, source string) *VideoInfo {
	return &VideoInfo{
		ID:               m.VideoID,
		Title:            m.Title,
		Description:      m.Description,
		Thumbnail:        m.Thumbnail,
		Duration:         m.Duration,
		DurationString:   youtube.FormatDuration(m.Duration),
		Uploader:         m.Author,
		ViewCount:        m.ViewCount,
		EmbedURL:         m.EmbedURL,
		WatchURL:         m.WatchURL,
		Subtitles:        m.Subtitles,
		AutoCaptions:     m.AutoCaptions,
		OriginalLanguage: m.OriginalLanguage,
		Source:           source,
	}
}

func infoFromOEmbed(id string, s *youtube.OEmbedSummary) *VideoInfo {
	info := &VideoInfo{
		ID:               id,
		Title:            s.Title,
		Thumbnail:        s.ThumbnailURL,
		DurationString:   youtube.FormatDuration(0),
		Uploader:         s.AuthorName,
		EmbedURL:         youtube.EmbedURL(id),
		WatchURL:         youtube.WatchURL(id),
		Subtitles:        map[string][]youtube.SubtitleTrack{},
		AutoCaptions:     map[string][]youtube.SubtitleTrack{},
		OriginalLanguage: "en",
		Source:           SourceOEmbed,
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	if info.Thumbnail == "" {
		info.Thumbnail = youtube.ThumbnailURL(id)
	}
	return info
}

// NewEmbedInfo picks the player fields out of m
func NewEmbedInfo(m *youtube.MetadataRecord) *EmbedInfo {
	return &EmbedInfo{
		VideoID:   m.VideoID,
		EmbedURL:  m.EmbedURL,
		WatchURL:  m.WatchURL,
		Title:     m.Title,
		Thumbnail: m.Thumbnail,
		Duration:  m.Duration,
		Author:    m.Author,
	}
}

// NewCaptionsSummary lists the caption languages of m in sorted order
func NewCaptionsSummary(m *youtube.MetadataRecord) *CaptionsSummary {
	return &CaptionsSummary{
		VideoID:          m.VideoID,
		Available:        m.HasCaptions(),
		Subtitles:        sortedKeys(m.Subtitles),
		AutoCaptions:     sortedKeys(m.AutoCaptions),
		OriginalLanguage: m.OriginalLanguage,
	}
}
