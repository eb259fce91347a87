package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.Schedule)
}

func TestConfigValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		valid    bool
	}{
		{name: "empty disables scheduling", schedule: "", valid: true},
		{name: "standard cron", schedule: "0 6 * * *", valid: true},
		{name: "descriptor", schedule: "@daily", valid: true},
		{name: "garbage", schedule: "whenever", valid: false},
		{name: "too many fields", schedule: "0 0 6 * * *", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Schedule: tt.schedule}
			err := cfg.Validate()

			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
