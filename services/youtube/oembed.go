package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"learntube-api-go/logcolors"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultOEmbedEndpoint = "https://www.youtube.com/oembed"
	defaultOEmbedTimeout  = 6 * time.Second
	userAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// OEmbedSummary is the lightweight title/author/thumbnail summary of a video
type OEmbedSummary struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// OEmbedClient queries YouTube's public oEmbed endpoint
type OEmbedClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewOEmbedClient returns a client bounded by timeout
func NewOEmbedClient(timeout time.Duration) *OEmbedClient {
	if timeout <= 0 {
		timeout = defaultOEmbedTimeout
	}
	return &OEmbedClient{
		Endpoint:   defaultOEmbedEndpoint,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Summary fetches the oEmbed summary for a watch URL.
// All failures are reported as ErrUpstreamUnavailable.
func (c *OEmbedClient) Summary(ctx context.Context, videoURL string) (*OEmbedSummary, error) {
	params := url.Values{}
	params.Set("url", videoURL)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Warnf("%s Request failed for %s: %v", logcolors.LogOEmbed, videoURL, err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: oembed returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}

	var summary OEmbedSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstreamUnavailable, err)
	}
	return &summary, nil
}
