package youtube

// SubtitleTrack is a single caption file reference
type SubtitleTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// MetadataRecord is the normalized metadata of one video.
// A record is never mutated once it has been cached; use Clone before changing it.
type MetadataRecord struct {
	VideoID          string                     `json:"video_id"`
	Title            string                     `json:"title"`
	Description      string                     `json:"description"`
	Thumbnail        string                     `json:"thumbnail"`
	Duration         int                        `json:"duration"`
	ViewCount        *int64                     `json:"view_count"`
	LikeCount        *int64                     `json:"like_count"`
	Author           string                     `json:"author"`
	ChannelID        string                     `json:"channel_id"`
	ChannelURL       string                     `json:"channel_url"`
	UploadDate       string                     `json:"upload_date,omitempty"`
	Categories       []string                   `json:"categories"`
	Tags             []string                   `json:"tags"`
	EmbedURL         string                     `json:"embed_url"`
	WatchURL         string                     `json:"watch_url"`
	Subtitles        map[string][]SubtitleTrack `json:"subtitles"`
	AutoCaptions     map[string][]SubtitleTrack `json:"auto_captions"`
	OriginalLanguage string                     `json:"original_language"`
}

// HasCaptions reports whether any manual or automatic caption track exists
func (m *MetadataRecord) HasCaptions() bool {
	return len(m.Subtitles) > 0 || len(m.AutoCaptions) > 0
}

// Clone returns a deep copy of the record
func (m *MetadataRecord) Clone() *MetadataRecord {
	if m == nil {
		return nil
	}
	c := *m
	if m.ViewCount != nil {
		v := *m.ViewCount
		c.ViewCount = &v
	}
	if m.LikeCount != nil {
		v := *m.LikeCount
		c.LikeCount = &v
	}
	c.Categories = append([]string{}, m.Categories...)
	c.Tags = append([]string{}, m.Tags...)
	c.Subtitles = cloneTracks(m.Subtitles)
	c.AutoCaptions = cloneTracks(m.AutoCaptions)
	return &c
}

func cloneTracks(in map[string][]SubtitleTrack) map[string][]SubtitleTrack {
	out := make(map[string][]SubtitleTrack, len(in))
	for lang, tracks := range in {
		out[lang] = append([]SubtitleTrack{}, tracks...)
	}
	return out
}

// RawInfo is the subset of yt-dlp's JSON info dict used for normalization
type RawInfo struct {
	ID                string                   `json:"id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	Thumbnail         string                   `json:"thumbnail"`
	Duration          float64                  `json:"duration"`
	ViewCount         *int64                   `json:"view_count"`
	LikeCount         *int64                   `json:"like_count"`
	Uploader          string                   `json:"uploader"`
	ChannelID         string                   `json:"channel_id"`
	ChannelURL        string                   `json:"channel_url"`
	UploadDate        string                   `json:"upload_date"`
	Categories        []string                 `json:"categories"`
	Tags              []string                 `json:"tags"`
	Language          string                   `json:"language"`
	Subtitles         map[string][]RawSubtitle `json:"subtitles"`
	AutomaticCaptions map[string][]RawSubtitle `json:"automatic_captions"`

	// populated when a single format was selected (-f)
	URL     string      `json:"url"`
	Formats []RawFormat `json:"formats"`
}

// RawSubtitle is one caption file entry in yt-dlp output
type RawSubtitle struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// RawFormat is one entry of yt-dlp's format listing
type RawFormat struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	ACodec   string  `json:"acodec"`
	VCodec   string  `json:"vcodec"`
	ABR      float64 `json:"abr"`
	TBR      float64 `json:"tbr"`
	URL      string  `json:"url"`
}

// RawFormats is the result of best-audio discovery
type RawFormats struct {
	DirectURL string
	Formats   []RawFormat
}
