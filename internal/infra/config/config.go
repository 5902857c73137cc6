package config

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	StoreFile     StoreDriver = "file"
	StorePostgres StoreDriver = "postgres"
	StoreRedis    StoreDriver = "redis"
)

type Config struct {
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordGuild string `env:"DISCORD_GUILD_ID"` // vacío = comandos globales

	StoreDriver   StoreDriver `env:"STORE_DRIVER" envDefault:"file"`
	StoragePath   string      `env:"STORAGE_PATH" envDefault:"data/dj_config.json"`
	DatabaseURL   string      `env:"DATABASE_URL"`
	RedisAddr     string      `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string      `env:"REDIS_PASSWORD"`
	RedisDB       int         `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string      `env:"REDIS_KEY" envDefault:"dj:guild_configs"`

	ConfigDebounce    time.Duration `env:"DJ_CONFIG_DEBOUNCE" envDefault:"2s"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"5m"` // <= 0 desactiva
	DefaultVolume     int           `env:"DEFAULT_VOLUME" envDefault:"80"`
	SearchSource      string        `env:"DEFAULT_SEARCH_SOURCE" envDefault:"ytsearch"`

	Lavalink Lavalink

	HTTPAddr      string  `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel      string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string  `env:"LOG_FORMAT" envDefault:"console"`
	ComponentRate float64 `env:"COMPONENT_RATE" envDefault:"1"` // clicks/seg por usuario
}

type Lavalink struct {
	Host     string `env:"LAVALINK_HOST" envDefault:"localhost"`
	Port     int    `env:"LAVALINK_PORT" envDefault:"2333"`
	Password string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	Secure   bool   `env:"LAVALINK_SECURE"`
}

// Addr = host:port
func (l Lavalink) Addr() string { return l.Host + ":" + strconv.Itoa(l.Port) }

// Parse lee .env (si existe) y el entorno.
func Parse() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.DefaultVolume = max(0, min(cfg.DefaultVolume, 1000))
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreFile:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the file store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Load es Parse pero corta el proceso si falta algo.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
