package db

import (
	"context"
	"testing"

	"github.com/notifyhub/push-dispatch/internal/config"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"postgres scheme",
			"postgres://user:pw@localhost:5432/push?sslmode=disable",
			"pgx5://user:pw@localhost:5432/push?sslmode=disable",
		},
		{
			"postgresql scheme",
			"postgresql://user:pw@localhost:5432/push",
			"pgx5://user:pw@localhost:5432/push",
		},
		{
			"bare connection string",
			"user:pw@localhost:5432/push",
			"pgx5://user:pw@localhost:5432/push",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := migrateURL(tc.in); got != tc.want {
				t.Fatalf("migrateURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "://not-a-url"}
	if _, err := Connect(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an unparseable database URL")
	}
}
