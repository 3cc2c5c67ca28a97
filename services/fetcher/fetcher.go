package fetcher

import (
	"context"
	"errors"
	"fmt"
	"learntube-api-go/cache"
	"learntube-api-go/circuitbreaker"
	"learntube-api-go/coalesce"
	"learntube-api-go/logcolors"
	"learntube-api-go/services/youtube"
	"learntube-api-go/stats"
	"learntube-api-go/workerpool"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// SummaryClient provides the lightweight fallback used by FastInfo
type SummaryClient interface {
	Summary(ctx context.Context, videoURL string) (*youtube.OEmbedSummary, error)
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Workers         int
	QueueSize       int
	MetadataTTL     time.Duration
	AudioTTL        time.Duration
	MetadataTimeout time.Duration
	AudioTimeout    time.Duration

	// Breaker guards the extraction client; nil disables it
	Breaker *circuitbreaker.CircuitBreaker
	// Stats receives cache and extraction counters; nil uses the global instance
	Stats *stats.Stats
}

const (
	defaultTTL     = 600 * time.Second
	defaultTimeout = 30 * time.Second
)

// Fetcher coordinates cached, coalesced and bounded access to the extraction client
type Fetcher struct {
	client  youtube.ExtractionClient
	summary SummaryClient
	pool    *workerpool.Pool
	breaker *circuitbreaker.CircuitBreaker
	stats   *stats.Stats

	metadata *coalesce.Coalescer[*youtube.MetadataRecord]
	audio    *coalesce.Coalescer[string]

	metadataTimeout time.Duration
	audioTimeout    time.Duration
}

// New creates a Fetcher and starts its worker pool
func New(client youtube.ExtractionClient, summary SummaryClient, opts Options) *Fetcher {
	if opts.MetadataTTL <= 0 {
		opts.MetadataTTL = defaultTTL
	}
	if opts.AudioTTL <= 0 {
		opts.AudioTTL = defaultTTL
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = defaultTimeout
	}
	if opts.AudioTimeout <= 0 {
		opts.AudioTimeout = defaultTimeout
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}

	metadataStore := cache.NewStore[*youtube.MetadataRecord](stats.KindMetadata, opts.MetadataTTL)
	audioStore := cache.NewStore[string](stats.KindAudio, opts.AudioTTL)

	return &Fetcher{
		client:          client,
		summary:         summary,
		pool:            workerpool.New("yt-dlp", workerpool.Config{Workers: opts.Workers, QueueSize: opts.QueueSize}),
		breaker:         opts.Breaker,
		stats:           opts.Stats,
		metadata:        coalesce.New(metadataStore, opts.MetadataTTL),
		audio:           coalesce.New(audioStore, opts.AudioTTL),
		metadataTimeout: opts.MetadataTimeout,
		audioTimeout:    opts.AudioTimeout,
	}
}

// GetMetadata returns the normalized metadata for the video at url
func (f *Fetcher) GetMetadata(ctx context.Context, url string) (*youtube.MetadataRecord, error) {
	record, _, err := f.LookupMetadata(ctx, url)
	return record, err
}

// LookupMetadata is GetMetadata that also reports where the result came from
func (f *Fetcher) LookupMetadata(ctx context.Context, url string) (*youtube.MetadataRecord, coalesce.Source, error) {
	id, ok := youtube.ExtractVideoID(url)
	if !ok {
		return nil, "", youtube.ErrInvalidURL
	}

	record, source, err := f.metadata.GetOrCompute(ctx, id, func() (*youtube.MetadataRecord, error) {
		info, err := runExtraction(ctx, f, f.metadataTimeout, func(ctx context.Context) (*youtube.RawInfo, error) {
			return f.client.ExtractMetadata(ctx, url)
		})
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, youtube.ErrExtractionFailed
		}
		return youtube.Normalize(id, info), nil
	})
	f.recordLookup(stats.KindMetadata, id, source)
	if err != nil {
		return nil, source, err
	}
	return record.Clone(), source, nil
}

// GetAudioURL returns the best audio stream URL for the video at url
func (f *Fetcher) GetAudioURL(ctx context.Context, url string) (string, error) {
	audioURL, _, err := f.LookupAudioURL(ctx, url)
	return audioURL, err
}

// LookupAudioURL is GetAudioURL that also reports where the result came from
func (f *Fetcher) LookupAudioURL(ctx context.Context, url string) (string, coalesce.Source, error) {
	id, ok := youtube.ExtractVideoID(url)
	if !ok {
		return "", "", youtube.ErrInvalidURL
	}

	audioURL, source, err := f.audio.GetOrCompute(ctx, id, func() (string, error) {
		formats, err := runExtraction(ctx, f, f.audioTimeout, func(ctx context.Context) (*youtube.RawFormats, error) {
			return f.client.ExtractAudioFormats(ctx, url)
		})
		if err != nil {
			return "", err
		}
		if formats == nil {
			return "", youtube.ErrExtractionFailed
		}
		best, err := youtube.SelectBestAudio(formats.Formats, formats.DirectURL)
		if err != nil {
			log.Warnf("%s No usable audio stream for %s (%d formats)", logcolors.LogAudio, id, len(formats.Formats))
			return "", err
		}
		return best, nil
	})
	f.recordLookup(stats.KindAudio, id, source)
	return audioURL, source, err
}

// CachedMetadata returns the cached record for id without triggering extraction
func (f *Fetcher) CachedMetadata(id string) (*youtube.MetadataRecord, bool) {
	record, ok := f.metadata.Peek(id)
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// CachedAudioURL returns the cached audio URL for id without triggering extraction
func (f *Fetcher) CachedAudioURL(id string) (string, bool) {
	return f.audio.Peek(id)
}

// CaptionsSummary reports which caption languages exist for the video at url
func (f *Fetcher) CaptionsSummary(ctx context.Context, url string) (*CaptionsSummary, error) {
	record, err := f.GetMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewCaptionsSummary(record), nil
}

// Info returns the learning-page view of a video, extracting it if needed
func (f *Fetcher) Info(ctx context.Context, url string) (*VideoInfo, coalesce.Source, error) {
	record, source, err := f.LookupMetadata(ctx, url)
	if err != nil {
		return nil, source, err
	}
	return NewVideoInfo(record, SourceExtraction), source, nil
}

// FastInfo serves cached metadata when present and otherwise a minimal oEmbed summary.
// It never triggers yt-dlp.
func (f *Fetcher) FastInfo(ctx context.Context, url string) (*VideoInfo, error) {
	id, ok := youtube.ExtractVideoID(url)
	if !ok {
		return nil, youtube.ErrInvalidURL
	}

	if record, ok := f.CachedMetadata(id); ok {
		f.stats.RecordCacheHit(stats.KindMetadata)
		return NewVideoInfo(record, SourceCache), nil
	}
	if f.summary == nil {
		return nil, youtube.ErrUpstreamUnavailable
	}

	summary, err := f.summary.Summary(ctx, youtube.WatchURL(id))
	f.stats.RecordOEmbed(err)
	if err != nil {
		log.Warnf("%s Fast info unavailable for %s: %v", logcolors.LogOEmbed, id, err)
		if !errors.Is(err, youtube.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %v", youtube.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return infoFromOEmbed(id, summary), nil
}

// EmbedInfo returns the player fields for the video at url
func (f *Fetcher) EmbedInfo(ctx context.Context, url string) (*EmbedInfo, error) {
	record, err := f.GetMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewEmbedInfo(record), nil
}

// Reset drops every cached metadata record and audio URL
func (f *Fetcher) Reset() (metadata, audio int) {
	metadata, audio = f.metadata.Store().Len(), f.audio.Store().Len()
	f.metadata.Store().Flush()
	f.audio.Store().Flush()
	log.Infof("%s Cleared %d metadata and %d audio entries", logcolors.LogCacheClear, metadata, audio)
	return metadata, audio
}

// Shutdown drains the extraction worker pool
func (f *Fetcher) Shutdown(ctx context.Context) error {
	return f.pool.Shutdown(ctx)
}

// Snapshot returns the live entries of both caches
func (f *Fetcher) Snapshot() (map[string]cache.Entry[*youtube.MetadataRecord], map[string]cache.Entry[string]) {
	return f.metadata.Store().Snapshot(), f.audio.Store().Snapshot()
}

// PoolStats reports worker pool occupancy
func (f *Fetcher) PoolStats() map[string]interface{} {
	return map[string]interface{}{
		"workers":   f.pool.Workers(),
		"active":    f.pool.Active(),
		"queued":    f.pool.Queued(),
		"completed": f.pool.Completed(),
	}
}

// CoalescerStats reports per-kind coalescer counters
func (f *Fetcher) CoalescerStats() map[string]coalesce.Stats {
	return map[string]coalesce.Stats{
		stats.KindMetadata: f.metadata.Stats(),
		stats.KindAudio:    f.audio.Stats(),
	}
}

// Breaker returns the extraction circuit breaker, or nil
func (f *Fetcher) Breaker() *circuitbreaker.CircuitBreaker {
	return f.breaker
}

func (f *Fetcher) recordLookup(kind, id string, source coalesce.Source) {
	switch source {
	case coalesce.SourceHit:
		f.stats.RecordCacheHit(kind)
	case coalesce.SourceMiss:
		f.stats.RecordCacheMiss(kind)
	case coalesce.SourceCoalesced:
		f.stats.RecordCoalesced()
		log.Debugf("%s %s lookup for %s shared an in-flight extraction", logcolors.LogCoalesce, kind, id)
	}
}

// runExtraction runs call on the worker pool under its own deadline. The
// request's cancellation is not propagated: once scheduled the extraction runs
// to completion so coalesced and later callers can still use the result.
func runExtraction[T any](parent context.Context, f *Fetcher, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	var out T
	work := func() error {
		v, err := workerpool.Do(ctx, f.pool, call)
		out = v
		return err
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Execute(work, isVideoOrQueueError)
	} else {
		err = work()
	}
	if err == nil {
		f.stats.RecordExtraction(nil, false)
		return out, nil
	}

	var zero T
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		log.Warnf("%s Skipping yt-dlp, circuit open (retry in %v)", logcolors.LogExtract, f.breaker.TimeUntilRetry().Round(time.Second))
		return zero, fmt.Errorf("%w: %w", youtube.ErrExtractionFailed, err)
	case errors.Is(err, workerpool.ErrNotStarted):
		log.Warnf("%s Extraction still queued after %v (%d active, %d queued)", logcolors.LogExtract, timeout, f.pool.Active(), f.pool.Queued())
		return zero, fmt.Errorf("%w: %w", youtube.ErrExtractionTimeout, err)
	case errors.Is(err, youtube.ErrExtractionTimeout), errors.Is(err, context.DeadlineExceeded):
		f.stats.RecordExtraction(err, true)
		log.Warnf("%s Extraction exceeded %v", logcolors.LogExtract, timeout)
		if !errors.Is(err, youtube.ErrExtractionTimeout) {
			err = fmt.Errorf("%w after %v", youtube.ErrExtractionTimeout, timeout)
		}
		return zero, err
	case errors.Is(err, workerpool.ErrPoolClosed):
		return zero, fmt.Errorf("%w: %w", youtube.ErrExtractionFailed, err)
	}

	f.stats.RecordExtraction(err, false)
	if youtube.IsVideoError(err) {
		log.Warnf("%s Video cannot be extracted: %v", logcolors.LogExtract, err)
	} else {
		log.Errorf("%s Extraction failed: %v", logcolors.LogExtract, err)
	}
	if !errors.Is(err, youtube.ErrExtractionFailed) {
		err = fmt.Errorf("%w: %w", youtube.ErrExtractionFailed, err)
	}
	return zero, err
}

// isVideoOrQueueError reports errors that must not trip the breaker: failures
// about one video, and work that never reached yt-dlp.
func isVideoOrQueueError(err error) bool {
	return errors.Is(err, workerpool.ErrPoolClosed) ||
		errors.Is(err, workerpool.ErrNotStarted) ||
		youtube.IsVideoError(err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
