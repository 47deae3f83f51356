package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/ongopool/internal/config"
	"github.com/example/ongopool/internal/logging"
	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/storage"
)

var (
	msgsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ongopool",
		Name:      "consumer_messages_consumed_total",
		Help:      "Total listing event messages consumed.",
	})
	msgsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ongopool",
		Name:      "consumer_messages_invalid_total",
		Help:      "Total listing event messages that failed to decode.",
	})
	snapshotUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ongopool",
		Name:      "consumer_snapshot_updates_total",
		Help:      "Total successful snapshot upserts.",
	})
	snapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ongopool",
		Name:      "consumer_snapshot_errors_total",
		Help:      "Total snapshot upserts that exhausted retries.",
	})
)

// The consumer tails the listing-events topic and mirrors every
// listing into the Redis snapshot hash so the search path has a warm
// local copy when the primary store is unreachable.
func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	brokers := cfg.KafkaBrokers
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "ongopool-listing-consumer"
	}
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rc := redis.NewClient(&redis.Options{Addr: redisAddr, Password: cfg.RedisPassword})
	snapshot := storage.NewRedisListingCacheFromClient(rc, cfg.RedisListingKey)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  group,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer started", "topic", cfg.KafkaTopic, "brokers", brokers, "group", group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var rec models.ListingRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil || rec.ID == "" {
			msgsInvalid.Inc()
			logger.Warn("invalid listing event", "error", err, "offset", m.Offset)
			continue
		}

		if err := upsertWithRetry(ctx, snapshot, rec, 3, 200*time.Millisecond); err != nil {
			snapshotErrors.Inc()
			logger.Warn("snapshot upsert failed", "listing_id", rec.ID, "error", err)
			continue
		}
		snapshotUpdates.Inc()
	}
}

// SnapshotUpserter is the subset of the snapshot store the consumer
// needs; tests substitute a fake.
type SnapshotUpserter interface {
	UpsertListing(ctx context.Context, rec models.ListingRecord) error
}

func upsertWithRetry(ctx context.Context, s SnapshotUpserter, rec models.ListingRecord, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = s.UpsertListing(ctx, rec); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return err
}
