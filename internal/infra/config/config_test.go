package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"PORT",
		"GENERATION_TIMEOUT",
		"GENERATION_MAX_TOKENS",
		"DISPATCH_SWEEP_INTERVAL",
		"SWEEP_CRON",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "9020", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 2000, cfg.GenerationTokens)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "0 * * * *", cfg.SweepCron)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("GENERATION_MAX_TOKENS", "4096")
	t.Setenv("DISPATCH_SWEEP_INTERVAL", "30m")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 4096, cfg.GenerationTokens)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
}

func TestGetSecret_FromFile(t *testing.T) {
	secretFile := t.TempDir() + "/webhook_secret"
	if err := os.WriteFile(secretFile, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_ = os.Unsetenv("EMAIL_WEBHOOK_SECRET")
	t.Setenv("EMAIL_WEBHOOK_SECRET_FILE", secretFile)

	assert.Equal(t, "s3cret", getSecret("EMAIL_WEBHOOK_SECRET", "EMAIL_WEBHOOK_SECRET_FILE", ""))
}

func TestGetSecret_EnvWinsOverFile(t *testing.T) {
	t.Setenv("EMAIL_WEBHOOK_SECRET", "from-env")
	t.Setenv("EMAIL_WEBHOOK_SECRET_FILE", "/nonexistent")

	assert.Equal(t, "from-env", getSecret("EMAIL_WEBHOOK_SECRET", "EMAIL_WEBHOOK_SECRET_FILE", ""))
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback time.Duration
		expected time.Duration
	}{
		{
			name:     "valid value",
			envValue: "45s",
			fallback: time.Minute,
			expected: 45 * time.Second,
		},
		{
			name:     "invalid value uses fallback",
			envValue: "soon",
			fallback: time.Minute,
			expected: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			result := getEnvDuration("TEST_DURATION", tt.fallback)
			assert.Equal(t, tt.expected, result)
		})
	}
}
