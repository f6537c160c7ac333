package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"

	"github.com/example/campus-carpool/internal/config"
	"github.com/example/campus-carpool/internal/logging"
	"github.com/example/campus-carpool/internal/messaging"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total notification messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total undecodable messages received",
	})
	redisAppends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_appends_total",
		Help: "Total messages appended to conversation logs",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total messages dropped after exhausting redis retries",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisAppends, redisErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	conversations := messaging.NewRedisLog(rc)

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

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
		// reset backoff on success
		backoff = time.Second
		msgsConsumed.Inc()

		if err := handle(ctx, conversations, m.Value, cfg.Attempts, cfg.RetryDelay); err != nil {
			if errors.Is(err, errInvalid) {
				msgsInvalid.Inc()
			} else {
				redisErrors.Inc()
			}
			logger.Warn("notification dropped", "partition", m.Partition, "offset", m.Offset, "error", err)
			continue
		}
		redisAppends.Inc()
	}
}

var errInvalid = errors.New("invalid envelope")

// handle decodes one notification and appends it to its conversation log.
func handle(ctx context.Context, sink messaging.Sink, payload []byte, attempts int, delay time.Duration) error {
	env, err := messaging.DecodeEnvelope(payload)
	if err != nil {
		return errors.Join(errInvalid, err)
	}
	if env.ConversationKey == "" || env.Message.ID == "" {
		return errInvalid
	}
	return appendWithRetry(ctx, sink, env, attempts, delay)
}

// appendWithRetry tries the append up to attempts times with exponential
// backoff starting at delay.
func appendWithRetry(ctx context.Context, sink messaging.Sink, env messaging.Envelope, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := sink.Append(ctx, env.ConversationKey, env.Message); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
