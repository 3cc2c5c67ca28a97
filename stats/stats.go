package stats

import (
	"strings"
	"sync/atomic"
	"time"
)

// Cache kinds
const (
	KindMetadata = "metadata"
	KindAudio    = "audio"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests    atomic.Int64
	InfoRequests     atomic.Int64
	FastInfoRequests atomic.Int64
	MetadataRequests atomic.Int64
	CaptionsRequests atomic.Int64
	AudioRequests    atomic.Int64
	SubtitleRequests atomic.Int64
	CacheRequests    atomic.Int64
	StatsRequests    atomic.Int64
	HealthRequests   atomic.Int64
	OtherRequests    atomic.Int64

	// Cache performance per kind
	MetadataHits   atomic.Int64
	MetadataMisses atomic.Int64
	AudioHits      atomic.Int64
	AudioMisses    atomic.Int64
	CoalescedWaits atomic.Int64

	// Extraction
	ExtractionCalls     atomic.Int64
	ExtractionFailures  atomic.Int64
	ExtractionTimeouts  atomic.Int64
	CircuitBreakerTrips atomic.Int64
	OEmbedLookups       atomic.Int64
	OEmbedFailures      atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under normal rate limit
	RateLimitCached   atomic.Int64 // Requests served under cached-only tier
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Extraction-backed endpoint response times (microseconds)
	extractionResponseTime  atomic.Int64
	extractionResponseCount atomic.Int64
}

// Global stats instance
var global = New()

// New returns an empty stats instance
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(int64(^uint64(0) >> 1)) // Max int64
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch {
	case strings.HasSuffix(endpoint, "/video/info/fast"):
		s.FastInfoRequests.Add(1)
	case strings.HasSuffix(endpoint, "/video/info"), strings.HasSuffix(endpoint, "/video/embed-info"):
		s.InfoRequests.Add(1)
	case strings.HasSuffix(endpoint, "/video/metadata"):
		s.MetadataRequests.Add(1)
	case strings.HasSuffix(endpoint, "/video/captions"):
		s.CaptionsRequests.Add(1)
	case strings.HasSuffix(endpoint, "/video/audio-url"):
		s.AudioRequests.Add(1)
	case strings.HasSuffix(endpoint, "/video/subtitles/proxy"):
		s.SubtitleRequests.Add(1)
	case strings.HasPrefix(endpoint, "/cache"):
		s.CacheRequests.Add(1)
	case endpoint == "/stats":
		s.StatsRequests.Add(1)
	case endpoint == "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit for the given cache kind
func (s *Stats) RecordCacheHit(kind string) {
	switch kind {
	case KindMetadata:
		s.MetadataHits.Add(1)
	case KindAudio:
		s.AudioHits.Add(1)
	}
}

// RecordCacheMiss records a cache miss for the given cache kind
func (s *Stats) RecordCacheMiss(kind string) {
	switch kind {
	case KindMetadata:
		s.MetadataMisses.Add(1)
	case KindAudio:
		s.AudioMisses.Add(1)
	}
}

// RecordCoalesced records a caller that waited on another caller's extraction
func (s *Stats) RecordCoalesced() {
	s.CoalescedWaits.Add(1)
}

// RecordExtraction records the outcome of one yt-dlp invocation
func (s *Stats) RecordExtraction(err error, timedOut bool) {
	s.ExtractionCalls.Add(1)
	switch {
	case timedOut:
		s.ExtractionTimeouts.Add(1)
	case err != nil:
		s.ExtractionFailures.Add(1)
	}
}

// RecordCircuitBreakerTrip records the extraction breaker opening
func (s *Stats) RecordCircuitBreakerTrip() {
	s.CircuitBreakerTrips.Add(1)
}

// RecordOEmbed records an oEmbed summary lookup
func (s *Stats) RecordOEmbed(err error) {
	s.OEmbedLookups.Add(1)
	if err != nil {
		s.OEmbedFailures.Add(1)
	}
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, endpoint string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if isExtractionEndpoint(endpoint) {
		s.extractionResponseTime.Add(us)
		s.extractionResponseCount.Add(1)
	}
}

func isExtractionEndpoint(endpoint string) bool {
	for _, suffix := range []string{"/video/info", "/video/metadata", "/video/captions", "/video/embed-info", "/video/audio-url"} {
		if strings.HasSuffix(endpoint, suffix) {
			return true
		}
	}
	return false
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// CacheHitRate returns the combined hit rate of both caches as a percentage
func (s *Stats) CacheHitRate() float64 {
	return hitRate(s.MetadataHits.Load()+s.AudioHits.Load(), s.MetadataMisses.Load()+s.AudioMisses.Load())
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == int64(^uint64(0)>>1) {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgExtractionResponseTime returns the average response time of extraction-backed endpoints
func (s *Stats) AvgExtractionResponseTime() time.Duration {
	count := s.extractionResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.extractionResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":     s.TotalRequests.Load(),
			"info":      s.InfoRequests.Load(),
			"fast_info": s.FastInfoRequests.Load(),
			"metadata":  s.MetadataRequests.Load(),
			"captions":  s.CaptionsRequests.Load(),
			"audio":     s.AudioRequests.Load(),
			"subtitles": s.SubtitleRequests.Load(),
			"cache":     s.CacheRequests.Load(),
			"stats":     s.StatsRequests.Load(),
			"health":    s.HealthRequests.Load(),
			"other":     s.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"metadata_hits":     s.MetadataHits.Load(),
			"metadata_misses":   s.MetadataMisses.Load(),
			"metadata_hit_rate": hitRate(s.MetadataHits.Load(), s.MetadataMisses.Load()),
			"audio_hits":        s.AudioHits.Load(),
			"audio_misses":      s.AudioMisses.Load(),
			"audio_hit_rate":    hitRate(s.AudioHits.Load(), s.AudioMisses.Load()),
			"coalesced_waits":   s.CoalescedWaits.Load(),
			"hit_rate":          s.CacheHitRate(),
		},
		"extraction": map[string]interface{}{
			"calls":                 s.ExtractionCalls.Load(),
			"failures":              s.ExtractionFailures.Load(),
			"timeouts":              s.ExtractionTimeouts.Load(),
			"circuit_breaker_trips": s.CircuitBreakerTrips.Load(),
			"oembed_lookups":        s.OEmbedLookups.Load(),
			"oembed_failures":       s.OEmbedFailures.Load(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":            s.AvgResponseTime().String(),
			"min":            s.MinResponseTime().String(),
			"max":            s.MaxResponseTime().String(),
			"avg_extraction": s.AvgExtractionResponseTime().String(),
		},
	}
}
