// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/auth"
	"github.com/bugmatch/bugmatch/internal/content"
	"github.com/bugmatch/bugmatch/internal/handlers"
	"github.com/bugmatch/bugmatch/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	var provider content.Provider
	if endpoint := os.Getenv("CONTENT_API_URL"); endpoint != "" {
		provider = content.NewHTTPProvider(endpoint)
		logger.Infof("content provider: %s", endpoint)
	} else {
		logger.Info("CONTENT_API_URL unset, using built-in pair set")
	}

	src := content.NewSource(provider, logger)
	if t := os.Getenv("CONTENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			src.Timeout = d
		} else {
			logger.Warnf("ignoring bad CONTENT_TIMEOUT %q: %v", t, err)
		}
	}

	srv := handlers.NewGameServer(src, nil, logger)
	if v := os.Getenv("NOMATCH_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			srv.NoMatchDelay = d
		} else {
			logger.Warnf("ignoring bad NOMATCH_DELAY %q: %v", v, err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
