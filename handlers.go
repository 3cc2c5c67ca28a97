package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"learntube-api-go/circuitbreaker"
	"learntube-api-go/coalesce"
	"learntube-api-go/logcolors"
	"learntube-api-go/middleware"
	"learntube-api-go/services/fetcher"
	"learntube-api-go/services/notifier"
	"learntube-api-go/services/youtube"
	"learntube-api-go/stats"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// statusForError maps fetch errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, youtube.ErrNoAudioAvailable):
		return http.StatusNotFound
	case errors.Is(err, youtube.ErrExtractionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, youtube.ErrUpstreamUnavailable), errors.Is(err, youtube.ErrExtractionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeFetchError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusForError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = fmt.Sprintf("Failed to %s: %v", action, err)
		log.Errorf("%s Failed to %s: %v", logcolors.LogExtract, action, err)
	} else {
		log.Warnf("%s Rejected %s request: %v", logcolors.LogRequest, action, err)
	}
	Respond(w, r).Fail(status, message)
}

// requireVideoURL reads the mandatory url query parameter
func requireVideoURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		Respond(w, r).Fail(http.StatusBadRequest, "URL parameter is required")
		return "", false
	}
	return raw, true
}

// isCacheOnly reports whether the request must be answered without a fresh extraction
func isCacheOnly(r *http.Request) bool {
	if conf.FeatureFlags.CacheOnlyMode {
		return true
	}
	cacheOnly, _ := r.Context().Value(cacheOnlyModeKey).(bool)
	return cacheOnly
}

func rejectCacheMiss(w http.ResponseWriter, r *http.Request, kind, id string) {
	s := stats.Get()
	s.RecordCacheMiss(kind)

	if conf.FeatureFlags.CacheOnlyMode {
		log.Warnf("%s Cache-only mode enabled and %s is not cached", logcolors.CachePrefix(kind), id)
		Respond(w, r).SetCacheStatus("MISS").Error(http.StatusServiceUnavailable, ErrorResponse{
			Success: false,
			Error:   "Fresh extraction is disabled and this video is not cached.",
		})
		return
	}

	s.RecordRateLimit("exceeded")
	log.Warnf("%s Cache-only mode but no cache found for: %s", logcolors.CachePrefix(kind), id)
	w.Header().Set("Retry-After", "60")
	Respond(w, r).SetCacheStatus("MISS").Error(http.StatusTooManyRequests, ErrorResponse{
		Success: false,
		Error:   "Rate limit exceeded. This request requires cached data, but this video is not cached.",
		Message: "Please try again later or reduce your request rate.",
	})
}

// cachedMetadataOnly answers a cache-only request from the metadata cache.
// It writes the response itself when no record can be served.
func cachedMetadataOnly(w http.ResponseWriter, r *http.Request, rawURL string) (*youtube.MetadataRecord, bool) {
	id, ok := youtube.ExtractVideoID(rawURL)
	if !ok {
		writeFetchError(w, r, youtube.ErrInvalidURL, "fetch video metadata")
		return nil, false
	}
	record, ok := videoFetcher.CachedMetadata(id)
	if !ok {
		rejectCacheMiss(w, r, stats.KindMetadata, id)
		return nil, false
	}
	stats.Get().RecordCacheHit(stats.KindMetadata)
	return record, true
}

func getVideoInfo(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	if isCacheOnly(r) {
		record, ok := cachedMetadataOnly(w, r, rawURL)
		if !ok {
			return
		}
		Respond(w, r).SetCacheStatus(string(coalesce.SourceHit)).
			SetSource(fetcher.SourceCache).
			Success(fetcher.NewVideoInfo(record, fetcher.SourceCache))
		return
	}

	info, source, err := videoFetcher.Info(r.Context(), rawURL)
	if err != nil {
		writeFetchError(w, r, err, "fetch video info")
		return
	}
	Respond(w, r).SetCacheStatus(string(source)).SetSource(info.Source).Success(info)
}

func getVideoInfoFast(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	info, err := videoFetcher.FastInfo(r.Context(), rawURL)
	if err != nil {
		writeFetchError(w, r, err, "fetch fast video info")
		return
	}

	cacheStatus := string(coalesce.SourceMiss)
	if info.Source == fetcher.SourceCache {
		cacheStatus = string(coalesce.SourceHit)
	}
	Respond(w, r).SetCacheStatus(cacheStatus).SetSource(info.Source).Success(info)
}

func getVideoMetadata(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	if isCacheOnly(r) {
		record, ok := cachedMetadataOnly(w, r, rawURL)
		if !ok {
			return
		}
		Respond(w, r).SetCacheStatus(string(coalesce.SourceHit)).Success(record)
		return
	}

	record, source, err := videoFetcher.LookupMetadata(r.Context(), rawURL)
	if err != nil {
		writeFetchError(w, r, err, "fetch video metadata")
		return
	}
	Respond(w, r).SetCacheStatus(string(source)).Success(record)
}

// getCaptionsInfo never fails once a url is given: errors degrade to an
// unavailable summary carrying the error text.
func getCaptionsInfo(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	if isCacheOnly(r) {
		record, ok := cachedMetadataOnly(w, r, rawURL)
		if !ok {
			return
		}
		Respond(w, r).SetCacheStatus(string(coalesce.SourceHit)).Success(fetcher.NewCaptionsSummary(record))
		return
	}

	summary, err := videoFetcher.CaptionsSummary(r.Context(), rawURL)
	if err != nil {
		log.Warnf("%s Captions unavailable for %s: %v", logcolors.LogSubtitles, rawURL, err)
		Respond(w, r).Success(emptyCaptions(err))
		return
	}
	Respond(w, r).Success(summary)
}

func getEmbedInfo(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	if isCacheOnly(r) {
		record, ok := cachedMetadataOnly(w, r, rawURL)
		if !ok {
			return
		}
		Respond(w, r).SetCacheStatus(string(coalesce.SourceHit)).Success(fetcher.NewEmbedInfo(record))
		return
	}

	embed, err := videoFetcher.EmbedInfo(r.Context(), rawURL)
	if err != nil {
		writeFetchError(w, r, err, "fetch embed info")
		return
	}
	Respond(w, r).Success(embed)
}

func getAudioURL(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	if isCacheOnly(r) {
		id, ok := youtube.ExtractVideoID(rawURL)
		if !ok {
			writeFetchError(w, r, youtube.ErrInvalidURL, "fetch audio URL")
			return
		}
		audioURL, ok := videoFetcher.CachedAudioURL(id)
		if !ok {
			rejectCacheMiss(w, r, stats.KindAudio, id)
			return
		}
		stats.Get().RecordCacheHit(stats.KindAudio)
		Respond(w, r).SetCacheStatus(string(coalesce.SourceHit)).Success(AudioURLData{AudioURL: audioURL})
		return
	}

	audioURL, source, err := videoFetcher.LookupAudioURL(r.Context(), rawURL)
	if err != nil {
		writeFetchError(w, r, err, "fetch audio URL")
		return
	}
	Respond(w, r).SetCacheStatus(string(source)).Success(AudioURLData{AudioURL: audioURL})
}

var subtitleHTTPClient = &http.Client{}

// subtitleHostAllowed keeps the proxy from being used against arbitrary hosts
var subtitleHostAllowed = func(host string) bool {
	host = strings.ToLower(host)
	for _, suffix := range []string{"youtube.com", "googlevideo.com", "youtube-nocookie.com"} {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// proxySubtitles relays a caption file so the browser can read it without CORS
func proxySubtitles(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireVideoURL(w, r)
	if !ok {
		return
	}

	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || !subtitleHostAllowed(target.Hostname()) {
		Respond(w, r).Fail(http.StatusBadRequest, "Invalid subtitle URL")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), conf.SubtitleProxyTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to proxy subtitles: %v", err))
		return
	}

	resp, err := subtitleHTTPClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			log.Warnf("%s Subtitle request timed out: %s", logcolors.LogSubtitles, target.Host)
			Respond(w, r).Fail(http.StatusGatewayTimeout, "Subtitle request timed out")
			return
		}
		log.Errorf("%s Failed to proxy subtitles: %v", logcolors.LogSubtitles, err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to proxy subtitles: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("%s Subtitle source returned %d", logcolors.LogSubtitles, resp.StatusCode)
		Respond(w, r).Fail(resp.StatusCode, "Failed to fetch subtitles from source")
		return
	}

	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warnf("%s Subtitle stream interrupted: %v", logcolors.LogSubtitles, err)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Fail(http.StatusMethodNotAllowed, "Method not allowed")
}

func getStats(w http.ResponseWriter, r *http.Request) {
	s := stats.Get()
	snapshot := s.Snapshot()

	snapshot["cache_storage"] = map[string]interface{}{
		"metadata_keys": len(metadataDump()),
		"audio_keys":    len(audioDump()),
	}
	snapshot["coalescer"] = videoFetcher.CoalescerStats()
	snapshot["worker_pool"] = videoFetcher.PoolStats()

	if cb := videoFetcher.Breaker(); cb != nil {
		snapshot["circuit_breaker"] = breakerStatus(cb)
	}

	Respond(w, r).JSON(snapshot)
}

func metadataDump() map[string]MetadataDumpEntry {
	metadata, _ := videoFetcher.Snapshot()
	out := make(map[string]MetadataDumpEntry, len(metadata))
	for id, entry := range metadata {
		out[id] = MetadataDumpEntry{
			Title:     entry.Value.Title,
			Author:    entry.Value.Author,
			Duration:  entry.Value.Duration,
			ExpiresAt: entry.ExpiresAt,
		}
	}
	return out
}

func audioDump() map[string]AudioDumpEntry {
	_, audio := videoFetcher.Snapshot()
	out := make(map[string]AudioDumpEntry, len(audio))
	for id, entry := range audio {
		out[id] = AudioDumpEntry{AudioURL: entry.Value, ExpiresAt: entry.ExpiresAt}
	}
	return out
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	s := stats.Get()
	metadata := metadataDump()
	audio := audioDump()

	Respond(w, r).JSON(CacheDumpResponse{
		NumberOfKeys: len(metadata) + len(audio),
		Performance: CachePerformance{
			Hits:      s.MetadataHits.Load() + s.AudioHits.Load(),
			Misses:    s.MetadataMisses.Load() + s.AudioMisses.Load(),
			Coalesced: s.CoalescedWaits.Load(),
			HitRate:   s.CacheHitRate(),
		},
		Metadata: metadata,
		Audio:    audio,
	})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	metadata, audio := videoFetcher.Reset()
	log.Infof("%s Cache cleared by %s", logcolors.LogCacheClear, middleware.ClientIP(r))
	notifier.PublishCacheCleared(metadata, audio)
	Respond(w, r).JSON(map[string]interface{}{
		"message":          "Cache cleared successfully",
		"metadata_cleared": metadata,
		"audio_cleared":    audio,
	})
}

func breakerStatus(cb *circuitbreaker.CircuitBreaker) map[string]interface{} {
	state, failures, lastFailure := cb.Stats()
	status := map[string]interface{}{
		"name":      cb.Name(),
		"state":     state.String(),
		"failures":  failures,
		"threshold": cb.Threshold(),
	}
	if !lastFailure.IsZero() {
		status["last_failure"] = lastFailure.Format(time.RFC3339)
	}
	if state == circuitbreaker.StateOpen {
		status["cooldown_remaining"] = cb.TimeUntilRetry().String()
	}
	return status
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	cb := videoFetcher.Breaker()
	if cb == nil {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": "Circuit breaker not configured"})
		return
	}
	Respond(w, r).JSON(breakerStatus(cb))
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	cb := videoFetcher.Breaker()
	if cb == nil {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": "Circuit breaker not configured"})
		return
	}
	cb.Reset()
	log.Infof("%s Reset by %s", logcolors.CircuitBreakerPrefix(cb.Name()), middleware.ClientIP(r))
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset",
		"state":   cb.State().String(),
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"message":   fmt.Sprintf("%s API is running", conf.App.ProjectName),
		"version":   conf.App.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if cb := videoFetcher.Breaker(); cb != nil {
		health["circuit_breaker"] = cb.State().String()
		// Extraction is paused while the breaker is open
		if cb.IsOpen() {
			health["status"] = "degraded"
			health["circuit_breaker_retry_in"] = cb.TimeUntilRetry().String()
		}
	}

	Respond(w, r).JSON(health)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"name":        conf.App.ProjectName,
		"version":     conf.App.Version,
		"description": conf.App.Description,
		"api":         conf.App.APIPrefix,
		"health":      "/health",
	})
}
