package main

import (
	"testing"

	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/internal/config"
	"github.com/voxelforge/buildcore/pkg/buildservice"
)

func TestNewLockerFallsBackToLocalWithoutRedisAddr(t *testing.T) {
	cfg := &config.Config{}
	locker, closeLocker := newLocker(cfg, zap.NewNop())
	defer closeLocker()

	if _, ok := locker.(*buildservice.LocalLocker); !ok {
		t.Fatalf("expected *buildservice.LocalLocker, got %T", locker)
	}
}

func TestNewLockerUsesRedisWhenAddrConfigured(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Addr: "localhost:6379"}}
	locker, closeLocker := newLocker(cfg, zap.NewNop())
	defer closeLocker()

	if _, ok := locker.(*buildservice.RedisLocker); !ok {
		t.Fatalf("expected *buildservice.RedisLocker, got %T", locker)
	}
}
