package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := NewFromEnv(ctx, &Config{FilePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewFromEnvBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewFromEnv(context.Background(), &Config{FilePath: filepath.Join(t.TempDir(), "missing", "test.db")})
	if err == nil {
		t.Fatal("want error for missing directory")
	}
}
