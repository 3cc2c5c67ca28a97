package main

import (
	"context"
	"errors"
	"learntube-api-go/config"
	"learntube-api-go/logcolors"
	"learntube-api-go/middleware"
	"learntube-api-go/services/fetcher"
	"learntube-api-go/services/notifier"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

var videoFetcher *fetcher.Fetcher

const shutdownTimeout = 15 * time.Second

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.App.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	setupAlerts(conf)
	videoFetcher = newVideoFetcher(conf)

	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   conf.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Cache-Status", "X-Data-Source", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Type", "X-Request-ID"},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond),
		conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.CachedRateLimitPerSecond),
		conf.Configuration.CachedRateLimitBurstLimit,
	)
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(time.Minute, 10*time.Minute, stopCleanup)

	loggedRouter := middleware.LoggingMiddleware(router)
	corsHandler := c.Handler(loggedRouter)
	proxies := middleware.NewTrustedProxies(conf.Configuration.TrustedProxies)
	handler := limitMiddleware(corsHandler, limiter, proxies)

	server := &http.Server{
		Addr:              ":" + conf.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("%s %s v%s listening on port %s", logcolors.LogServer, conf.App.ProjectName, conf.App.Version, conf.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s %v", logcolors.LogServer, err)
		}
	}()

	notifier.PublishServerStarted(conf.App.Port, conf.Configuration.ExtractionWorkers)

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s HTTP shutdown: %v", logcolors.LogServer, err)
	}
	if err := videoFetcher.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Worker pool shutdown: %v", logcolors.LogWorkerPool, err)
	}
}
