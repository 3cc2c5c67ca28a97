package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
)

// Cache-related log prefixes
const (
	LogCacheClear = Blue + "[Cache:Clear]" + Reset
	LogCoalesce   = Cyan + "[Coalesce]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAuth      = Yellow + "[Auth]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// CachePrefix returns a colored cache prefix for a named cache kind
func CachePrefix(kind string) string {
	return Green + "[Cache:" + kind + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
)

// Extraction log prefixes
const (
	LogExtract    = Blue + "[Extract]" + Reset
	LogAudio      = Blue + "[Audio]" + Reset
	LogWorkerPool = Cyan + "[WorkerPool]" + Reset
	LogOEmbed     = Cyan + "[OEmbed]" + Reset
	LogSubtitles  = Cyan + "[Subtitles]" + Reset
	LogRequest    = Purple + "[Request]" + Reset
	LogNotifier   = Cyan + "[Notifier]" + Reset
)
