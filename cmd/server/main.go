// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vitalsync/go-vitalsync/vitalsync"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vitalsync-server",
		Short: "Sync server for vitalsync health-tracking clients",
		Long: `vitalsync-server exposes the bidirectional sync engine over HTTP.

Clients POST /sync with their local snapshot and last-sync timestamp;
the server pushes new records into the shared PostgreSQL store, pulls
records newer than the session cutoff, and returns counts plus the full
pulled records for the client to merge locally.`,
		RunE: run,
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.String("jwt-secret", "", "HMAC secret for JWT validation")
	flags.String("database-url", "", "default PostgreSQL URL for requests without a connection string")
	flags.String("log-file", "", "log file path (rotated); empty logs to stdout only")
	flags.Bool("log-stage-timings", false, "log per-stage sync timings at debug level")

	viper.SetEnvPrefix("VITALSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger(viper.GetString("log-file"))

	jwtSecret := viper.GetString("jwt-secret")
	if jwtSecret == "" {
		jwtSecret = "dev-secret"
		logger.Warn("No JWT secret configured, using insecure development default")
	}

	connector := vitalsync.NewPGConnector("vitalsync-server", logger)
	defer connector.Close()

	service := vitalsync.NewSyncService(connector, &vitalsync.ServiceConfig{
		AppName:                 "vitalsync-server",
		DefaultConnectionString: viper.GetString("database-url"),
		LogStageTimings:         viper.GetBool("log-stage-timings"),
	}, logger)
	defer service.Close()

	jwtAuth := vitalsync.NewJWTAuth(jwtSecret)
	handlers := vitalsync.NewHTTPSyncHandlers(service, jwtAuth, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("POST /sync", jwtAuth.Middleware(http.HandlerFunc(handlers.HandleSync)))
	mux.HandleFunc("POST /signin", signinHandler(jwtAuth, logger))

	addr := viper.GetString("addr")
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("vitalsync server listening", "addr", addr)
	logger.Info("Endpoints:")
	logger.Info("  POST /sync    - run one sync session (push + pull)")
	logger.Info("  POST /signin  - obtain a JWT for a user/device pair")
	logger.Info("  GET  /health  - liveness check")

	return server.ListenAndServe()
}

func newLogger(logFile string) *slog.Logger {
	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// signinHandler issues development tokens. Any user is accepted; a
// device id is generated when the client does not supply one.
func signinHandler(jwtAuth *vitalsync.JWTAuth, logger *slog.Logger) http.HandlerFunc {
	type signinRequest struct {
		User   string `json:"user"`
		Device string `json:"device"`
	}
	type signinResponse struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
		User      string `json:"user"`
		Device    string `json:"device"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req signinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "user_required"})
			return
		}
		if req.Device == "" {
			req.Device = "device-" + uuid.NewString()
		}

		const tokenTTL = time.Hour
		token, err := jwtAuth.GenerateToken(req.User, req.Device, tokenTTL)
		if err != nil {
			logger.Error("Token generation failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "token_error"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(signinResponse{
			Token:     token,
			ExpiresIn: int64(tokenTTL.Seconds()),
			User:      req.User,
			Device:    req.Device,
		})
	}
}
