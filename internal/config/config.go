package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"telewatch"`
}

type TelegramConfig struct {
	BotToken        string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN" env-default:""`
	APIID           string `yaml:"api_id" env:"TELEGRAM_API_ID" env-default:""`
	APIHash         string `yaml:"api_hash" env:"TELEGRAM_API_HASH" env-default:""`
	WebhookSecret   string `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET" env-default:""`
	OpsAlertChatID  int64  `yaml:"ops_alert_chat_id" env:"TELEGRAM_OPS_ALERT_CHAT_ID" env-default:"0"`
}

type AuthConfig struct {
	SigningKey   string        `yaml:"signing_key" env:"AUTH_SIGNING_KEY" env-default:""`
	TokenLifetime time.Duration `yaml:"token_lifetime" env-default:"24h"`
}

type StorageConfig struct {
	Root string `yaml:"root" env:"STORAGE_ROOT" env-default:"./data"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:""`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type RateLimitConfig struct {
	DestinationPerMinute int `yaml:"destination_per_minute" env-default:"20"`
}

type HealthConfig struct {
	ProbeSchedule string `yaml:"probe_schedule" env-default:"@every 30s"`
}

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Listen    Listen          `yaml:"listen"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Health    HealthConfig    `yaml:"health"`
}

var instance *Config
var once sync.Once

// MustLoad reads the config once per process and caches the result;
// subsequent calls return the same instance regardless of path.
func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
