package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
logger:
  output_file: ./logs/errors.log
db:
  connection_string: ./test.db
broker:
  url: nats://localhost:4222
`

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func Test_Config_DefaultsAreApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, LevelInfo, cfg.Logger.LogLevel)
	assert.Equal(t, "JOB_POSTINGS", cfg.Broker.Stream)
	assert.Equal(t, "jobs.created", cfg.Broker.Subject)
	assert.Equal(t, "notification-worker", cfg.Broker.Durable)
	assert.Equal(t, 5, cfg.Broker.MaxDeliver)
	assert.Equal(t, 30*time.Second, cfg.Broker.ProcessingTimeout)
	assert.Equal(t, 40*time.Second, cfg.Broker.AckWait())
	assert.Equal(t, 100, cfg.Notifier.ContextMaxLength)
	assert.Equal(t, 200, cfg.Notifier.CandidatesPageSize)
	assert.Equal(t, ":3000", cfg.Server.Address)
}

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "newConnectionString")
	t.Setenv("BROKER_URL", "nats://broker:4222")
	t.Setenv("BROKER_MAX_DELIVER", "9")
	t.Setenv("BROKER_PROCESSING_TIMEOUT", "1m")
	t.Setenv("NOTIFIER_CONTEXT_MAX_LENGTH", "42")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SERVER_ADDRESS", ":9999")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "newConnectionString", cfg.DB.ConnectionString)
	assert.Equal(t, "nats://broker:4222", cfg.Broker.URL)
	assert.Equal(t, 9, cfg.Broker.MaxDeliver)
	assert.Equal(t, time.Minute, cfg.Broker.ProcessingTimeout)
	assert.Equal(t, 42, cfg.Notifier.ContextMaxLength)
	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
	assert.Equal(t, ":9999", cfg.Server.Address)
}

func Test_Config_MissingRequiredValues_ReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, "logger:\n  log_level: INFO\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db connection string")
	assert.Contains(t, err.Error(), "output_file")
	assert.Contains(t, err.Error(), "url")
}

func Test_Config_InvalidNotifierValues_ReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"notifier:\n  context_max_length: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context_max_length")
}

func Test_Config_InvalidBrokerDurations_ReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"  duplicates_window: 0s\n  max_redelivery_delay: 0s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates_window")
	assert.Contains(t, err.Error(), "max_redelivery_delay")
}

func Test_Config_RedeliveryDelayAboveMaximum_ReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"  redelivery_delay: 10m\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_redelivery_delay")
}

func Test_Config_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
