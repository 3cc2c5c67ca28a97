package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learntube-api-go/logcolors"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	log "github.com/sirupsen/logrus"
)

// ExtractionClient wraps the blocking extraction tool
type ExtractionClient interface {
	ExtractMetadata(ctx context.Context, url string) (*RawInfo, error)
	ExtractAudioFormats(ctx context.Context, url string) (*RawFormats, error)
}

// RunOptions are the per-call yt-dlp settings
type RunOptions struct {
	Format string
}

// Runner executes yt-dlp for url and returns the JSON it printed
type Runner func(ctx context.Context, opts RunOptions, url string) ([]byte, error)

// YTDLPClient extracts metadata with yt-dlp. It never downloads media.
type YTDLPClient struct {
	Path  string
	Proxy string
	Run   Runner
}

// NewYTDLPClient returns a client running the yt-dlp binary at path
func NewYTDLPClient(path, proxy string) *YTDLPClient {
	if strings.TrimSpace(path) == "" {
		path = "yt-dlp"
	}
	c := &YTDLPClient{Path: path, Proxy: proxy}
	c.Run = c.runYTDLP
	return c
}

func (c *YTDLPClient) runYTDLP(ctx context.Context, opts RunOptions, url string) ([]byte, error) {
	dl := ytdlp.New().
		SetExecutable(c.Path).
		SkipDownload().
		PrintJSON().
		NoPlaylist().
		NoWarnings()

	if opts.Format != "" {
		dl = dl.Format(opts.Format)
	}
	if c.Proxy != "" {
		dl = dl.Proxy(c.Proxy)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, err
	}
	return []byte(result.Stdout), nil
}

// ExtractMetadata returns the full info dict for url
func (c *YTDLPClient) ExtractMetadata(ctx context.Context, url string) (*RawInfo, error) {
	return c.extract(ctx, RunOptions{}, url)
}

// ExtractAudioFormats asks yt-dlp to resolve the best audio-only format
func (c *YTDLPClient) ExtractAudioFormats(ctx context.Context, url string) (*RawFormats, error) {
	info, err := c.extract(ctx, RunOptions{Format: "bestaudio"}, url)
	if err != nil {
		return nil, err
	}
	return &RawFormats{DirectURL: info.URL, Formats: info.Formats}, nil
}

func (c *YTDLPClient) extract(ctx context.Context, opts RunOptions, url string) (*RawInfo, error) {
	run := c.Run
	if run == nil {
		run = c.runYTDLP
	}

	start := time.Now()
	out, err := run(ctx, opts, url)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrExtractionTimeout, time.Since(start).Round(time.Millisecond))
		}
		if IsVideoError(err) {
			return nil, fmt.Errorf("%w: %w: yt-dlp: %v", ErrExtractionFailed, ErrVideoUnavailable, err)
		}
		return nil, fmt.Errorf("%w: yt-dlp: %v", ErrExtractionFailed, err)
	}

	info, err := decodeInfo(out)
	if err != nil {
		return nil, err
	}

	log.Debugf("%s yt-dlp finished for %s in %v (format: %q)", logcolors.LogExtract, url, time.Since(start), opts.Format)
	return info, nil
}

// decodeInfo reads the first JSON document from yt-dlp output
func decodeInfo(out []byte) (*RawInfo, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrExtractionFailed
	}

	var info *RawInfo
	if err := json.NewDecoder(bytes.NewReader(trimmed)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: parse yt-dlp output: %v", ErrExtractionFailed, err)
	}
	if info == nil {
		return nil, ErrExtractionFailed
	}
	return info, nil
}
