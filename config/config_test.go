package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" || cfg.Server.RPCAddress != ":9090" {
		t.Errorf("Unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Expected memory driver by default, got %s", cfg.Database.Driver)
	}
	if cfg.Game.MaxRolls != 3 || cfg.Game.ShinyChance != 0.01 || cfg.Game.EncounterChance != 0.005 {
		t.Errorf("Unexpected game defaults %+v", cfg.Game)
	}
	if cfg.Game.EncounterTTL != 10*time.Minute {
		t.Errorf("Expected 10m encounter ttl, got %v", cfg.Game.EncounterTTL)
	}
	if times := cfg.ResetTimes(); len(times) != 1 || times[0].Hour != 0 {
		t.Errorf("Expected midnight reset, got %v", times)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":18080"
database:
  driver: sqlite
  sqlite:
    path: /tmp/test.db
game:
  max_rolls: 5
  reset_times: ["06:00", "18:00"]
  encounter_ttl: 2m
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POKEBOT_GAME_SHINY_CHANCE", "0.5")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":18080" || cfg.Database.SQLite.Path != "/tmp/test.db" {
		t.Errorf("Expected values from file, got %+v", cfg)
	}
	if cfg.Game.MaxRolls != 5 || len(cfg.Game.ResetTimes) != 2 || cfg.Game.EncounterTTL != 2*time.Minute {
		t.Errorf("Unexpected game config %+v", cfg.Game)
	}
	if cfg.Game.ShinyChance != 0.5 {
		t.Errorf("Expected env override 0.5, got %v", cfg.Game.ShinyChance)
	}
	if cfg.Server.RPCAddress != ":9090" {
		t.Errorf("Expected unset keys to keep defaults, got %s", cfg.Server.RPCAddress)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverMemory},
			Game:     GameConfig{MaxRolls: 3, ShinyChance: 0.01, ResetTimes: []string{"00:00"}},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := map[string]func(c *Config){
		"driver":      func(c *Config) { c.Database.Driver = "mysql" },
		"max rolls":   func(c *Config) { c.Game.MaxRolls = 0 },
		"probability": func(c *Config) { c.Game.BerryChance = 1.5 },
		"reset time":  func(c *Config) { c.Game.ResetTimes = []string{"24:61"} },
		"no resets":   func(c *Config) { c.Game.ResetTimes = nil },
	}
	for name, mutate := range tests {
		c := valid()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("game:\n  max_rolls: 0\n"), 0o644)
	if _, err := LoadConfig(dir); err == nil {
		t.Error("Expected max_rolls 0 to be rejected")
	}
}
