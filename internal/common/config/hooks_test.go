package config

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hooked struct {
	Level    log.Level
	Interval time.Duration
	Addrs    []string
}

func decode(t *testing.T, input map[string]interface{}) (hooked, error) {
	var out hooked
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			LogLevelHookFunc(),
			DurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &out,
	})
	require.NoError(t, err)
	return out, decoder.Decode(input)
}

func TestHooks(t *testing.T) {
	tests := map[string]struct {
		input    map[string]interface{}
		expected hooked
		err      bool
	}{
		"level and duration strings": {
			input:    map[string]interface{}{"level": "debug", "interval": "1m30s"},
			expected: hooked{Level: log.DebugLevel, Interval: 90 * time.Second},
		},
		"duration in seconds": {
			input:    map[string]interface{}{"interval": 5},
			expected: hooked{Interval: 5 * time.Second},
		},
		"comma separated addresses": {
			input:    map[string]interface{}{"addrs": "a:6379,b:6379"},
			expected: hooked{Addrs: []string{"a:6379", "b:6379"}},
		},
		"bad level": {
			input: map[string]interface{}{"level": "chatty"},
			err:   true,
		},
		"bad duration": {
			input: map[string]interface{}{"interval": "soon"},
			err:   true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := decode(t, tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(RedisConfig{Addrs: []string{"localhost:6379"}, PoolSize: 10}))

	err := Validate(RedisConfig{DB: 20})
	require.Error(t, err)
	LogValidationErrors(err)
}
