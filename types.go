package main

import (
	"learntube-api-go/services/fetcher"
	"time"
)

type contextKey string

const (
	cacheOnlyModeKey contextKey = "cacheOnlyMode"
	rateLimitTypeKey contextKey = "rateLimitType"
)

// SuccessResponse is the envelope for every successful video endpoint
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the envelope for every failed video endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AudioURLData is returned by /video/audio-url
type AudioURLData struct {
	AudioURL string `json:"audio_url"`
}

// MetadataDumpEntry describes one cached metadata record in the /cache dump
type MetadataDumpEntry struct {
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Duration  int       `json:"duration"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AudioDumpEntry describes one cached audio URL in the /cache dump
type AudioDumpEntry struct {
	AudioURL  string    `json:"audio_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Coalesced int64   `json:"coalesced"`
	HitRate   float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	NumberOfKeys int                          `json:"number_of_keys"`
	Performance  CachePerformance             `json:"performance"`
	Metadata     map[string]MetadataDumpEntry `json:"metadata"`
	Audio        map[string]AudioDumpEntry    `json:"audio"`
}

// emptyCaptions is served when caption discovery fails
func emptyCaptions(err error) *fetcher.CaptionsSummary {
	return &fetcher.CaptionsSummary{
		Available:    false,
		Subtitles:    []string{},
		AutoCaptions: []string{},
		Error:        err.Error(),
	}
}
