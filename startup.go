package main

import (
	"context"
	"fmt"
	"learntube-api-go/circuitbreaker"
	"learntube-api-go/config"
	"learntube-api-go/logcolors"
	"learntube-api-go/middleware"
	"learntube-api-go/services/fetcher"
	"learntube-api-go/services/notifier"
	"learntube-api-go/services/youtube"
	"learntube-api-go/stats"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// newExtractionBreaker builds the breaker around yt-dlp with logging and stats hooks
func newExtractionBreaker(c config.Config) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(circuitbreaker.Config{
		Name:      "yt-dlp",
		Threshold: c.Configuration.CircuitBreakerThreshold,
		Cooldown:  c.CircuitBreakerCooldown(),
		Hooks: circuitbreaker.Hooks{
			OnOpen: func(name string, failures int, cooldown time.Duration) {
				stats.Get().RecordCircuitBreakerTrip()
				log.Errorf("%s Extraction paused for %v after %d consecutive failures",
					logcolors.CircuitBreakerPrefix(name), cooldown, failures)
				notifier.PublishExtractionCircuitOpen(name, failures, cooldown)
			},
			OnRecover: func(name string) {
				log.Infof("%s Extraction recovered", logcolors.CircuitBreakerPrefix(name))
				notifier.PublishExtractionRecovered(name)
			},
			OnHighFailureRate: func(name string, failures, threshold int) {
				log.Warnf("%s %d/%d consecutive extraction failures",
					logcolors.CircuitBreakerPrefix(name), failures, threshold)
				notifier.PublishExtractionFailureRate(name, failures, threshold)
			},
		},
	})
}

// setupAlerts forwards service events to every configured notifier
func setupAlerts(c config.Config) {
	notifiers := notifier.FromConfig(c)
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts disabled", logcolors.LogNotifier)
		return
	}

	notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: c.AlertCooldown(),
	}).Start(notifier.GetEventBus())
}

// newVideoFetcher wires the extraction client, oEmbed client and breaker into a Fetcher
func newVideoFetcher(c config.Config) *fetcher.Fetcher {
	client := youtube.NewYTDLPClient(c.Configuration.YTDLPPath, c.Configuration.YTDLPProxy)
	summary := youtube.NewOEmbedClient(c.OEmbedTimeout())

	log.Infof("%s yt-dlp at %q, %d worker(s), queue %d",
		logcolors.LogConfig, c.Configuration.YTDLPPath, c.Configuration.ExtractionWorkers, c.Configuration.ExtractionQueueSize)

	return fetcher.New(client, summary, fetcher.Options{
		Workers:         c.Configuration.ExtractionWorkers,
		QueueSize:       c.Configuration.ExtractionQueueSize,
		MetadataTTL:     c.MetadataCacheTTL(),
		AudioTTL:        c.AudioCacheTTL(),
		MetadataTimeout: c.MetadataTimeout(),
		AudioTimeout:    c.AudioTimeout(),
		Breaker:         newExtractionBreaker(c),
		Stats:           stats.Get(),
	})
}

// limitMiddleware keys clients on their remote address; forwarding headers
// count only when they come from one of proxies.
func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter, proxies *middleware.TrustedProxies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := proxies.ClientIP(r)
		limiters := limiter.GetLimiter(ip)

		// Try normal tier first
		if limiters.Normal.Allow() {
			stats.Get().RecordRateLimit("normal")
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetNormalLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiters.GetNormalTokens()))
			w.Header().Set("X-RateLimit-Type", "normal")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Normal tier exceeded, try cached tier
		if limiters.Cached.Allow() {
			// Cached tier allows, but only for cached responses
			stats.Get().RecordRateLimit("cached")
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetCachedLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiters.GetCachedTokens()))
			w.Header().Set("X-RateLimit-Type", "cached")
			log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
			ctx := context.WithValue(r.Context(), cacheOnlyModeKey, true)
			ctx = context.WithValue(ctx, rateLimitTypeKey, "cached")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Both tiers exceeded
		stats.Get().RecordRateLimit("exceeded")
		log.Warnf("%s IP %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetCachedLimit()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Type", "exceeded")
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	})
}
