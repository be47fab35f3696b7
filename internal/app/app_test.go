package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/config"
)

func TestKeyspace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	testCases := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"ride cache", redis.NewStringCmd(ctx, "get", "cache:ride:ride-1"), "cache:ride"},
		{"report cache", redis.NewStatusCmd(ctx, "set", "cache:report:driver-1", "{}"), "cache:report"},
		{"plain set", redis.NewIntCmd(ctx, "sadd", "available_drivers", "driver-1"), "available_drivers"},
		{"no key", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := keyspace(tc.cmd); got != tc.want {
				t.Errorf("keyspace() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger("production", config.LogConfig{Level: "info"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := NewLogger("development", config.LogConfig{Level: "debug"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := NewLogger("production", config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
