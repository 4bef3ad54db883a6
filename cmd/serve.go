package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexiusacademia/gosewer/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	serveAddr    string
	serveRate    float64
	serveBurst   int
	serveEnvFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the design engine over HTTP under /api.

Settings are read from the environment, optionally loaded from a .env
file, and flags override them:
  GOSEWER_ADDR        listen address (default :8080)
  GOSEWER_RATE_LIMIT  requests per second per client (default 5)
  GOSEWER_RATE_BURST  burst size per client (default 10)

Examples:
  gosewer serve
  gosewer serve --addr :9000 --env-file deploy.env`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address")
	serveCmd.Flags().Float64Var(&serveRate, "rate", 0, "Requests per second per client")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 0, "Burst size per client")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "Environment file to load if present")
}

func runServe(cmd *cobra.Command, args []string) {
	if err := godotenv.Load(serveEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading %s: %v", serveEnvFile, err)
	}

	addr := envOr(serveAddr, "GOSEWER_ADDR", server.DefaultAddr)
	limit, err := strconv.ParseFloat(envOr(formatFlag(serveRate), "GOSEWER_RATE_LIMIT", "0"), 64)
	if err != nil {
		log.Fatalf("Invalid GOSEWER_RATE_LIMIT: %v", err)
	}
	burst, err := strconv.Atoi(envOr(formatInt(serveBurst), "GOSEWER_RATE_BURST", "0"))
	if err != nil {
		log.Fatalf("Invalid GOSEWER_RATE_BURST: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(server.Config{RateLimit: rate.Limit(limit), RateBurst: burst}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Error stopping server: %v", err)
	}
	log.Println("Server stopped")
}

// envOr prefers a set flag, then the environment, then def.
func envOr(flag, key, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func formatFlag(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
