package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Realtime struct {
		AppKey    string `yaml:"app_key"`    // public key echoed in auth grants
		AppSecret string `yaml:"app_secret"` // HMAC secret for channel grants
		Transport string `yaml:"transport"`  // "memory" or "nats"
		NATSURL   string `yaml:"nats_url"`

		TypingIdleMS int `yaml:"typing_idle_ms"` // typing auto-expiry window
		PushWorkers  int `yaml:"push_workers"`
		PushQueue    int `yaml:"push_queue"`
	} `yaml:"realtime"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or builds the config from environment
// variables when DATABASE_URL is set (test and container deployments).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Realtime.AppKey = os.Getenv("REALTIME_APP_KEY")
	cfg.Realtime.AppSecret = os.Getenv("REALTIME_APP_SECRET")
	cfg.Realtime.Transport = os.Getenv("REALTIME_TRANSPORT")
	cfg.Realtime.NATSURL = os.Getenv("NATS_URL")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Realtime.Transport == "" {
		cfg.Realtime.Transport = "memory"
	}
	if cfg.Realtime.TypingIdleMS == 0 {
		cfg.Realtime.TypingIdleMS = 1000
	}
	if cfg.Realtime.PushWorkers == 0 {
		cfg.Realtime.PushWorkers = 4
	}
	if cfg.Realtime.PushQueue == 0 {
		cfg.Realtime.PushQueue = 1024
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
