package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, "ws://127.0.0.1:24727/eID-Kernel", cfg.Kernel.URL)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.Debounce)
	assert.Equal(t, 64, cfg.Session.MailboxSize)
	assert.Equal(t, AuditMemory, cfg.Audit.Backend)
	assert.Equal(t, 5, cfg.Audit.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Audit.BreakerCooldown)
	assert.Equal(t, "eid.audit", cfg.Kafka.Topic)
	assert.Equal(t, 720*time.Hour, cfg.Redis.Retention)
	assert.False(t, cfg.OTel.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EID_SESSION_DEBOUNCE", "0s")
	t.Setenv("EID_AUDIT_BACKEND", "Kafka")
	t.Setenv("EID_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("EID_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Session.Debounce)
	assert.Equal(t, AuditKafka, cfg.Audit.Backend)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unparseable duration",
			env:     map[string]string{"EID_SESSION_DEBOUNCE": "soon"},
			wantErr: "parse env:",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"EID_AUDIT_BACKEND": "s3"},
			wantErr: "unknown audit backend",
		},
		{
			name:    "redis backend without url",
			env:     map[string]string{"EID_AUDIT_BACKEND": "redis"},
			wantErr: "EID_REDIS_URL is required",
		},
		{
			name:    "postgres backend without dsn",
			env:     map[string]string{"EID_AUDIT_BACKEND": "postgres"},
			wantErr: "EID_POSTGRES_DSN is required",
		},
		{
			name:    "kafka backend without brokers",
			env:     map[string]string{"EID_AUDIT_BACKEND": "kafka"},
			wantErr: "EID_KAFKA_BROKERS is required",
		},
		{
			name:    "empty mailbox",
			env:     map[string]string{"EID_SESSION_MAILBOX_SIZE": "0"},
			wantErr: "mailbox size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
