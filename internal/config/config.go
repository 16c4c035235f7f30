package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	OTP struct {
		TTLSeconds            int `yaml:"ttl_seconds"`
		ResendCooldownSeconds int `yaml:"resend_cooldown_seconds"`
		MaxAttempts           int `yaml:"max_attempts"`
	} `yaml:"otp"`
	Settlement struct {
		MinPayout  int64 `yaml:"min_payout"` // kopecks
		BonusEvery int   `yaml:"bonus_every"`
		BonusPts   int64 `yaml:"bonus_points"`
	} `yaml:"settlement"`
	S3 struct {
		Bucket   string `yaml:"bucket"`
		Folder   string `yaml:"folder"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"s3"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Jump struct {
		BaseURL    string `yaml:"base_url"`
		MerchantID string `yaml:"merchant_id"`
		Callback   string `yaml:"callback"`
	} `yaml:"jump"`
	JWT struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"jwt"`
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}

	if cfg.OTP.TTLSeconds <= 0 {
		cfg.OTP.TTLSeconds = 300
	}
	if cfg.OTP.ResendCooldownSeconds <= 0 {
		cfg.OTP.ResendCooldownSeconds = 60
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.Settlement.MinPayout <= 0 {
		cfg.Settlement.MinPayout = 100000
	}
	return cfg
}
