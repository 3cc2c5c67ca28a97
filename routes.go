package main

import (
	"learntube-api-go/middleware"
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Registered on the root router: subrouter routes share the prefix matcher,
	// which makes mux report a wrong method as 404 instead of 405.
	api := func(path string) string { return conf.App.APIPrefix + path }
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Video endpoints - metadata only, never media
	router.HandleFunc(api("/video/info"), getVideoInfo).Methods(http.MethodGet)
	router.HandleFunc(api("/video/info/fast"), getVideoInfoFast).Methods(http.MethodGet)
	router.HandleFunc(api("/video/metadata"), getVideoMetadata).Methods(http.MethodGet)
	router.HandleFunc(api("/video/captions"), getCaptionsInfo).Methods(http.MethodGet)
	router.HandleFunc(api("/video/embed-info"), getEmbedInfo).Methods(http.MethodGet)
	router.HandleFunc(api("/video/audio-url"), getAudioURL).Methods(http.MethodGet)
	router.HandleFunc(api("/video/subtitles/proxy"), proxySubtitles).Methods(http.MethodGet)

	// Operational endpoints, guarded by the cache access token
	admin := middleware.RequireAccessToken(conf.Configuration.CacheAccessToken)
	router.Handle("/stats", admin(http.HandlerFunc(getStats))).Methods(http.MethodGet)
	router.Handle("/cache", admin(http.HandlerFunc(getCacheDump))).Methods(http.MethodGet)
	router.Handle("/cache/clear", admin(http.HandlerFunc(clearCache))).Methods(http.MethodPost)
	router.Handle("/circuit-breaker", admin(http.HandlerFunc(getCircuitBreakerStatus))).Methods(http.MethodGet)
	router.Handle("/circuit-breaker/reset", admin(http.HandlerFunc(resetCircuitBreaker))).Methods(http.MethodPost)

	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/", rootHandler)
}
