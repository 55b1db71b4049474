// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wdlord/discord-pokebot/timer"
)

const (
	DriverMemory      = "memory"
	DriverSQLite      = "sqlite"
	DriverPostgres    = "postgres"
	DriverPostgresSQL = "postgres_sql"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GameConfig 游戏参数
type GameConfig struct {
	MaxRolls        uint64        `mapstructure:"max_rolls"`
	ShinyChance     float64       `mapstructure:"shiny_chance"`
	BerryChance     float64       `mapstructure:"berry_chance"`
	EncounterChance float64       `mapstructure:"encounter_chance"`
	ResetTimes      []string      `mapstructure:"reset_times"`
	SpeciesFile     string        `mapstructure:"species_file"`
	PokeAPIURL      string        `mapstructure:"pokeapi_url"`
	EncounterTTL    time.Duration `mapstructure:"encounter_ttl"`
	TradeTTL        time.Duration `mapstructure:"trade_ttl"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.metrics_address", ":9100")

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "pokebot")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.sqlite.path", "pokebot.db")

	v.SetDefault("game.max_rolls", 3)
	v.SetDefault("game.shiny_chance", 0.01)
	v.SetDefault("game.berry_chance", 0.01)
	v.SetDefault("game.encounter_chance", 0.005)
	v.SetDefault("game.reset_times", []string{"00:00"})
	v.SetDefault("game.species_file", "pokemon_names.json")
	v.SetDefault("game.pokeapi_url", "https://pokeapi.co/api/v2")
	v.SetDefault("game.encounter_ttl", "10m")
	v.SetDefault("game.trade_ttl", "1h")

	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path. A missing file falls back to defaults;
// POKEBOT_* environment variables override both (POKEBOT_DATABASE_DRIVER=sqlite).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("pokebot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 检查配置是否合法
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverPostgresSQL:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Game.MaxRolls == 0 {
		return errors.New("game.max_rolls must be positive")
	}
	for name, p := range map[string]float64{
		"shiny_chance":     c.Game.ShinyChance,
		"berry_chance":     c.Game.BerryChance,
		"encounter_chance": c.Game.EncounterChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("game.%s must be within [0, 1], got %v", name, p)
		}
	}
	if _, err := timer.ParseResetTimes(c.Game.ResetTimes); err != nil {
		return fmt.Errorf("game.reset_times: %w", err)
	}
	return nil
}

// ResetTimes returns the parsed daily reset instants.
func (c *Config) ResetTimes() []timer.ResetTime {
	times, _ := timer.ParseResetTimes(c.Game.ResetTimes)
	return times
}
