package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/campus-carpool/internal/config"
	"github.com/example/campus-carpool/internal/dispatch"
	"github.com/example/campus-carpool/internal/messaging"
)

func containsSink(sinks messaging.Fanout, want messaging.Sink) bool {
	for _, s := range sinks {
		if s == want {
			return true
		}
	}
	return false
}

func TestNotificationSinks_History(t *testing.T) {
	kafkaCfg := config.ServerConfig{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "ride-notifications"}

	cases := []struct {
		name          string
		cfg           config.ServerConfig
		sharedHistory bool
		writesHistory bool
		closers       int
	}{
		{name: "no kafka", cfg: config.ServerConfig{}, sharedHistory: true, writesHistory: true},
		{name: "kafka with redis history", cfg: kafkaCfg, sharedHistory: true, writesHistory: false, closers: 1},
		{name: "kafka without redis", cfg: kafkaCfg, sharedHistory: false, writesHistory: true, closers: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := messaging.NewMemoryLog()
			hub := dispatch.NewHub()
			sinks, closers := notificationSinks(tc.cfg, tc.sharedHistory, history, hub)
			t.Cleanup(func() {
				for _, c := range closers {
					_ = c()
				}
			})

			assert.True(t, containsSink(sinks, hub))
			assert.Equal(t, tc.writesHistory, containsSink(sinks, history))
			assert.Len(t, closers, tc.closers)
		})
	}
}

func TestNotificationSinks_Webhook(t *testing.T) {
	sinks, _ := notificationSinks(config.ServerConfig{WebhookURL: "http://localhost:9/hook"}, false, messaging.NewMemoryLog(), dispatch.NewHub())
	assert.Len(t, sinks, 3)
}
