package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	PostgresURL string `mapstructure:"postgres_url"`
	RedisAddr   string `mapstructure:"redis_addr"`

	// SaveQueue bounds the collaboration engine's persistence backlog.
	SaveQueue int `mapstructure:"save_queue"`
	// SnapshotTTL bounds how long a cached attempt snapshot stays in Redis.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 1048576)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("postgres_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("save_queue", 256)
	v.SetDefault("snapshot_ttl", "24h")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
