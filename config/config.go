package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	App struct {
		Port        string `envconfig:"PORT" default:"8000"`
		APIPrefix   string `envconfig:"API_PREFIX" default:"/api/v1"`
		ProjectName string `envconfig:"PROJECT_NAME" default:"LearnTube AI"`
		Version     string `envconfig:"VERSION" default:"1.0.0"`
		Description string `envconfig:"DESCRIPTION" default:"AI-Powered Learning Platform - Transform YouTube videos into study materials"`
		FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
		LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	}

	Configuration struct {
		RateLimitPerSecond        int      `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit       int      `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		CachedRateLimitPerSecond  int      `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10"`
		CachedRateLimitBurstLimit int      `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20"`
		CacheAccessToken          string   `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		TrustedProxies            []string `envconfig:"TRUSTED_PROXIES"` // IPs/CIDRs whose X-Forwarded-For is honoured
		// Cache lifetimes
		MetadataCacheTTLInSeconds int `envconfig:"METADATA_CACHE_TTL_IN_SECONDS" default:"600"`
		AudioCacheTTLInSeconds    int `envconfig:"AUDIO_CACHE_TTL_IN_SECONDS" default:"600"`
		// Extraction
		ExtractionWorkers             int    `envconfig:"EXTRACTION_WORKERS" default:"3"`
		ExtractionQueueSize           int    `envconfig:"EXTRACTION_QUEUE_SIZE" default:"32"`
		MetadataTimeoutInSeconds      int    `envconfig:"METADATA_TIMEOUT_IN_SECONDS" default:"30"`
		AudioTimeoutInSeconds         int    `envconfig:"AUDIO_TIMEOUT_IN_SECONDS" default:"30"`
		OEmbedTimeoutInSeconds        int    `envconfig:"OEMBED_TIMEOUT_IN_SECONDS" default:"6"`
		SubtitleProxyTimeoutInSeconds int    `envconfig:"SUBTITLE_PROXY_TIMEOUT_IN_SECONDS" default:"15"`
		YTDLPPath                     string `envconfig:"YTDLP_PATH" default:"yt-dlp"`
		YTDLPProxy                    string `envconfig:"YTDLP_PROXY" default:""`
		CircuitBreakerThreshold       int    `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`      // Consecutive extraction failures before circuit opens
		CircuitBreakerCooldownSecs    int    `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"60"` // Seconds to wait before probing yt-dlp again
	}

	Notifier struct {
		SMTPHost             string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort             string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername         string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword         string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail            string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail              string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken     string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID       string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic            string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer           string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		AlertCooldownMinutes int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_MINUTES" default:"15"`
	}

	FeatureFlags struct {
		CacheOnlyMode bool `envconfig:"FF_CACHE_ONLY_MODE" default:"false"` // Never trigger fresh extraction
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// AllowedOrigins returns the CORS origins for the learning frontend
func (c Config) AllowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:3001",
		"http://127.0.0.1:3001",
		"http://localhost:3004",
		"http://127.0.0.1:3004",
	}
	for _, o := range origins {
		if o == c.App.FrontendURL {
			return origins
		}
	}
	if c.App.FrontendURL == "" {
		return origins
	}
	return append([]string{c.App.FrontendURL}, origins...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c Config) MetadataCacheTTL() time.Duration {
	return seconds(c.Configuration.MetadataCacheTTLInSeconds)
}

func (c Config) AudioCacheTTL() time.Duration {
	return seconds(c.Configuration.AudioCacheTTLInSeconds)
}

func (c Config) MetadataTimeout() time.Duration {
	return seconds(c.Configuration.MetadataTimeoutInSeconds)
}

func (c Config) AudioTimeout() time.Duration {
	return seconds(c.Configuration.AudioTimeoutInSeconds)
}

func (c Config) OEmbedTimeout() time.Duration {
	return seconds(c.Configuration.OEmbedTimeoutInSeconds)
}

func (c Config) SubtitleProxyTimeout() time.Duration {
	return seconds(c.Configuration.SubtitleProxyTimeoutInSeconds)
}

func (c Config) CircuitBreakerCooldown() time.Duration {
	return seconds(c.Configuration.CircuitBreakerCooldownSecs)
}

func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Notifier.AlertCooldownMinutes) * time.Minute
}
