package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/go-playground/validator.v9"
)

const envPrefix = "POSTURE"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Inventory InventoryConfig `mapstructure:"inventory"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	DbPath string `mapstructure:"db_path" validate:"required"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ScoringConfig struct {
	Trees         int     `mapstructure:"trees" validate:"min=1"`
	MaxSamples    int     `mapstructure:"max_samples" validate:"min=1"`
	Contamination float64 `mapstructure:"contamination" validate:"gt=0,lte=0.5"`
	Seed          int64   `mapstructure:"seed"`
	ClampScore    bool    `mapstructure:"clamp_score"`
	// Interval between background scoring passes; zero disables them.
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
}

type InventoryConfig struct {
	SeedFile     string `mapstructure:"seed_file"`
	ResetOnStart bool   `mapstructure:"reset_on_start"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.db_path", "posture-guard.db")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080"})
	v.SetDefault("scoring.trees", 100)
	v.SetDefault("scoring.max_samples", 256)
	v.SetDefault("scoring.contamination", 0.2)
	v.SetDefault("scoring.seed", 42)
	v.SetDefault("scoring.clamp_score", true)
	v.SetDefault("scoring.interval", time.Duration(0))
	v.SetDefault("inventory.seed_file", "")
	v.SetDefault("inventory.reset_on_start", false)
}

// Load reads the optional config file at path, then applies POSTURE_*
// environment overrides (server.port -> POSTURE_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
