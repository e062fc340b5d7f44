// Package obs 进程级可观测性：日志初始化、指标、健康检查。
// Process-wide observability: logger bootstrap, metrics, health endpoint.
package obs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger configures process-wide zerolog defaults and returns the root
// logger for service. LOG_LEVEL selects the level; anything other than
// ENVIRONMENT=production gets console output.
func NewLogger(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	logger := log.Logger
	if os.Getenv("ENVIRONMENT") != "production" {
		logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
	return logger.With().Str("service", service).Logger()
}

var (
	PublishAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "boardpush_publish_attempts_total", Help: "Publish attempts by outcome"},
		[]string{"board", "outcome"},
	)
	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "boardpush_publish_duration_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
		[]string{"board"},
	)
	GasPriceWei = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "boardpush_gas_price_wei", Help: "Current gas price in wei"},
		[]string{"board"},
	)
	FeesEth = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "boardpush_fees_eth_total", Help: "Cumulative fees paid in ETH"},
		[]string{"board"},
	)
)

func init() {
	prometheus.MustRegister(PublishAttempts, PublishDuration, GasPriceWei, FeesEth)
}

// ServeHealth exposes /healthz and /metrics until ctx is canceled.
func ServeHealth(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Health endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
