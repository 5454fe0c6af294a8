//go:build unit

package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid minimal",
			config: Config{
				FailureThreshold: 1,
				HalfOpenMaxCalls: 1,
				OpenTimeout:      time.Second,
			},
		},
		{
			name: "valid with ratio",
			config: Config{
				FailureThreshold: 5,
				HalfOpenMaxCalls: 2,
				OpenTimeout:      time.Second,
				FailureRatio:     0.5,
				MinRequests:      10,
			},
		},
		{
			name: "zero failure threshold",
			config: Config{
				HalfOpenMaxCalls: 1,
				OpenTimeout:      time.Second,
			},
			wantErr: true,
		},
		{
			name: "zero half-open calls",
			config: Config{
				FailureThreshold: 1,
				OpenTimeout:      time.Second,
			},
			wantErr: true,
		},
		{
			name: "zero open timeout",
			config: Config{
				FailureThreshold: 1,
				HalfOpenMaxCalls: 1,
			},
			wantErr: true,
		},
		{
			name: "negative open timeout",
			config: Config{
				FailureThreshold: 1,
				HalfOpenMaxCalls: 1,
				OpenTimeout:      -time.Second,
			},
			wantErr: true,
		},
		{
			name: "ratio above one",
			config: Config{
				FailureThreshold: 1,
				HalfOpenMaxCalls: 1,
				OpenTimeout:      time.Second,
				FailureRatio:     1.5,
				MinRequests:      10,
			},
			wantErr: true,
		},
		{
			name: "ratio without sample floor",
			config: Config{
				FailureThreshold: 1,
				HalfOpenMaxCalls: 1,
				OpenTimeout:      time.Second,
				FailureRatio:     0.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Presets(t *testing.T) {
	presets := map[string]Config{
		"default":      DefaultConfig(),
		"aggressive":   AggressiveConfig(),
		"conservative": ConservativeConfig(),
		"http":         HTTPServiceConfig(),
		"database":     DatabaseConfig(),
	}

	for name, config := range presets {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, config.Validate())
		})
	}

	assert.Less(t, AggressiveConfig().FailureThreshold, ConservativeConfig().FailureThreshold)
	assert.Less(t, AggressiveConfig().OpenTimeout, ConservativeConfig().OpenTimeout)
}
