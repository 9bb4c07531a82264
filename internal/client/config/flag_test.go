package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-s", "grpc", "-d", "127.0.0.1:50051", "-b", "cloudinary", "-m", "http://m:7700",
				"-i", "10", "-w", "60", "-l", "debug", "-metrics", ":9100"},
			expected: &Config{
				PresenceInterval: 10 * time.Second,
				ActivityWindow:   60 * time.Second,
				MeiliURL:         "http://m:7700",
				LogLevel:         "debug",
				MetricsAddr:      ":9100",
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"cmd", "-x", "y", "-i", "5"},
			expected: &Config{
				PresenceInterval: 5 * time.Second,
			},
		},
		{name: "incorrect interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			if tt.name == "all flags" {
				tt.expected.Store.Backend = "grpc"
				tt.expected.Store.DSN = "127.0.0.1:50051"
				tt.expected.Blob.Backend = "cloudinary"
			}
			if diff := cmp.Diff(tt.expected, config); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
