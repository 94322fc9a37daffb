package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		expected    *Config
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "10.0.0.1:7000", "-s", "k", "-u", "U1", "-t", "3"},
			expected: &Config{
				ServerEndpointAddr: "10.0.0.1:7000",
				SecretKey:          "k",
				UID:                "U1",
				RequestTimeout:     3 * time.Second,
			},
		},
		{
			name:     "defaults kept",
			args:     []string{"cmd"},
			expected: &Config{ServerEndpointAddr: "127.0.0.1:50051", SecretKey: "secretKey", RequestTimeout: 10 * time.Second},
		},
		{name: "bad timeout", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}
			cfg.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
