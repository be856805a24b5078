package main

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	Version     string `mapstructure:"VERSION"`
	AppURL      string `mapstructure:"APP_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	DBHost     string `mapstructure:"POSTGRES_HOST"`
	DBPort     string `mapstructure:"POSTGRES_PORT"`
	DBUser     string `mapstructure:"POSTGRES_USER"`
	DBPassword string `mapstructure:"POSTGRES_PASSWORD"`
	DBName     string `mapstructure:"POSTGRES_DB"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	AuditLogging   bool    `mapstructure:"ENABLE_AUDIT_LOGGING"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":                 ":4000",
	"ENVIRONMENT":          "development",
	"VERSION":              "dev",
	"APP_URL":              "http://localhost:3000",
	"JWT_SECRET":           "",
	"POSTGRES_HOST":        "localhost",
	"POSTGRES_PORT":        "5432",
	"POSTGRES_USER":        "",
	"POSTGRES_PASSWORD":    "",
	"POSTGRES_DB":          "threadline",
	"MAIL_HOST":            "",
	"MAIL_PORT":            587,
	"MAIL_USER":            "",
	"MAIL_PASSWORD":        "",
	"MAIL_SENDER":          "",
	"RABBITMQ_HOST":        "localhost",
	"RABBITMQ_PORT":        "5672",
	"RABBITMQ_USER":        "guest",
	"RABBITMQ_PASSWORD":    "guest",
	"ENABLE_AUDIT_LOGGING": true,
	"RATE_LIMIT_RPS":       2.0,
	"RATE_LIMIT_BURST":     5,
}

// loadConfig reads the env file at path. Variables set in the process environment take precedence.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.AppURL = strings.TrimRight(config.AppURL, "/")

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET must be set")
	case c.Environment == "production" && len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	case c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0:
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}
