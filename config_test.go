/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		coordinator:      "ws://localhost:9002/",
		dialTimeout:      time.Second,
		feedbackDuration: time.Second,
		participantID:    "abc123",
	}
}

func TestConfig_Validate(t *testing.T) {
	for name, tt := range map[string]struct {
		mutate func(*Config)
		ok     bool
	}{
		"defaults":          {func(*Config) {}, true},
		"wss":               {func(c *Config) { c.coordinator = "wss://example.org/game" }, true},
		"status port":       {func(c *Config) { c.port = 8080 }, true},
		"http scheme":       {func(c *Config) { c.coordinator = "http://localhost:9002/" }, false},
		"no host":           {func(c *Config) { c.coordinator = "ws:///" }, false},
		"negative port":     {func(c *Config) { c.port = -1 }, false},
		"huge port":         {func(c *Config) { c.port = 70000 }, false},
		"zero dial timeout": {func(c *Config) { c.dialTimeout = 0 }, false},
		"zero feedback":     {func(c *Config) { c.feedbackDuration = 0 }, false},
		"path in id":        {func(c *Config) { c.participantID = "../x" }, false},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfig_FlagsFromEnvironment(t *testing.T) {
	t.Setenv("DYADIC_COORDINATOR", "wss://coordinator.example/")
	t.Setenv("DYADIC_FEEDBACK_DURATION", "3s")
	t.Setenv("DYADIC_SKIP_OBSERVATION", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)

	require.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "wss://coordinator.example/", cfg.coordinator)
	assert.Equal(t, 3*time.Second, cfg.feedbackDuration)
	assert.True(t, cfg.skipObservation)
	assert.Equal(t, ".", cfg.dataDir)
}

func TestConfig_FlagsOverrideDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	require.NoError(t, cmd.ParseFlags([]string{"--participant-id", "P7", "--port", "9100", "--redis_addr", "localhost:6379"}))

	assert.Equal(t, "P7", cfg.participantID)
	assert.Equal(t, 9100, cfg.port)
	assert.Equal(t, "localhost:6379", cfg.redisAddr)
	assert.NoError(t, cfg.validate())
}

func TestNewParticipantID(t *testing.T) {
	a, b := newParticipantID(), newParticipantID()

	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
}
