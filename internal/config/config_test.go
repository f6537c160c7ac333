package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "ride-notifications", cfg.KafkaTopic)
	assert.Equal(t, "open_rides_geo", cfg.RedisGeoKey)
	assert.Equal(t, 5*time.Second, cfg.CompletionCooldown)
	assert.Equal(t, time.Second, cfg.AckDelay)
	assert.False(t, cfg.SeedDemo)
	assert.False(t, cfg.RunMigrations)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadServerConfig_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("COMPLETION_COOLDOWN", "0s")
	t.Setenv("ACK_DELAY", "250ms")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("MIGRATE", "TRUE")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OSRM_ENDPOINT", "http://osrm:5000")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Zero(t, cfg.CompletionCooldown)
	assert.Equal(t, 250*time.Millisecond, cfg.AckDelay)
	assert.True(t, cfg.SeedDemo)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://osrm:5000", cfg.OSRMEndpoint)
}

func TestLoadServerConfig_JoinsErrors(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("COMPLETION_COOLDOWN", "-1s")
	t.Setenv("SEED_DEMO", "maybe")

	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_READ_TIMEOUT")
	assert.Contains(t, err.Error(), "COMPLETION_COOLDOWN")
	assert.Contains(t, err.Error(), "SEED_DEMO")
}

func TestLoadConsumerConfig(t *testing.T) {
	cfg, err := LoadConsumerConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "carpool-notification-consumer", cfg.KafkaGroup)

	t.Setenv("KAFKA_GROUP", "g2")
	t.Setenv("CONSUMER_RETRY_ATTEMPTS", "0")
	cfg, err = LoadConsumerConfig()
	assert.Error(t, err)
	assert.Equal(t, "g2", cfg.KafkaGroup)
}
