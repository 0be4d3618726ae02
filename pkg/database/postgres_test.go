package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/wonny/aegis-momentum/pkg/config"
)

func TestNewNotConfigured(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestNewBadURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "://not a url"})
	if err == nil {
		t.Fatal("Expected parse error, got nil")
	}
}

func TestHealthCheck(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(context.Background(), cfg.Database)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.Stats.MaxConns != int32(cfg.Database.MaxConns) {
		t.Errorf("Expected MaxConns %d, got %d", cfg.Database.MaxConns, status.Stats.MaxConns)
	}
}
