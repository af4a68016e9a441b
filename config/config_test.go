package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PreferredPort != 5000 {
		t.Fatalf("default port: %d", cfg.PreferredPort)
	}
	if cfg.SyncIntervalPosition != 100*time.Millisecond {
		t.Fatalf("default position interval: %v", cfg.SyncIntervalPosition)
	}
	if cfg.SyncIntervalEnemy != 500*time.Millisecond {
		t.Fatalf("default enemy interval: %v", cfg.SyncIntervalEnemy)
	}
	if !cfg.MessageCompression || cfg.CompressionThreshold != 1024 {
		t.Fatalf("default compression: %v %d", cfg.MessageCompression, cfg.CompressionThreshold)
	}
	if cfg.ParticipationRadius != 5 {
		t.Fatalf("default join radius: %d", cfg.ParticipationRadius)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DUNGEONNET_PORT", "6000")
	t.Setenv("DUNGEONNET_SYNC_ENEMY", "650ms")
	t.Setenv("DUNGEONNET_COMPRESSION", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PreferredPort != 6000 {
		t.Fatalf("port override: %d", cfg.PreferredPort)
	}
	if cfg.SyncIntervalEnemy != 650*time.Millisecond {
		t.Fatalf("enemy interval override: %v", cfg.SyncIntervalEnemy)
	}
	if cfg.MessageCompression {
		t.Fatal("compression override failed")
	}
}

func TestDefaultMatchesLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	checks := []struct {
		name string
		want any
		got  any
	}{
		{"port", def.PreferredPort, cfg.PreferredPort},
		{"scan attempts", def.PortScanAttempts, cfg.PortScanAttempts},
		{"handshake", def.HandshakeTimeout, cfg.HandshakeTimeout},
		{"position interval", def.PositionInterval(), cfg.PositionInterval()},
		{"enemy interval", def.EnemyInterval(), cfg.EnemyInterval()},
		{"join interval", def.JoinInterval(), cfg.JoinInterval()},
		{"ping interval", def.PingInterval, cfg.PingInterval},
		{"compression", def.MessageCompression, cfg.MessageCompression},
		{"threshold", def.CompressionThreshold, cfg.CompressionThreshold},
		{"join radius", def.JoinRadius(), cfg.JoinRadius()},
		{"action wait", def.ActionWaitTime, cfg.ActionWaitTime},
		{"max latency", def.MaxLatencyAllowed, cfg.MaxLatencyAllowed},
		{"exp divide", def.ExpDivideByParticipants, cfg.ExpDivideByParticipants},
		{"log file", def.LogFile, cfg.LogFile},
	}
	for _, c := range checks {
		if c.want != c.got {
			t.Fatalf("%s: Default()=%v, Load()=%v", c.name, c.want, c.got)
		}
	}
}

func TestHotUpdateAccessors(t *testing.T) {
	cfg := Default()
	cfg.SetPositionInterval(250 * time.Millisecond)
	cfg.SetEnemyInterval(time.Second)
	cfg.SetJoinInterval(750 * time.Millisecond)
	cfg.SetJoinRadius(8)

	if cfg.PositionInterval() != 250*time.Millisecond {
		t.Fatalf("position interval: %v", cfg.PositionInterval())
	}
	if cfg.EnemyInterval() != time.Second {
		t.Fatalf("enemy interval: %v", cfg.EnemyInterval())
	}
	if cfg.JoinInterval() != 750*time.Millisecond {
		t.Fatalf("join interval: %v", cfg.JoinInterval())
	}
	if cfg.JoinRadius() != 8 {
		t.Fatalf("join radius: %d", cfg.JoinRadius())
	}
}
