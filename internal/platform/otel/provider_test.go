package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidgate/internal/platform/config"
)

func TestSetupDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.OTel
	}{
		{name: "disabled", cfg: config.OTel{Enabled: false, Endpoint: "http://collector:4318"}},
		{name: "no endpoint", cfg: config.OTel{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}
