package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Search fetchers selectable with SEARCH_FETCHER.
const (
	FetcherHTTP = "http"
	FetcherRod  = "rod"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	TelegramBotToken    string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	QBittorrentBaseURL  string        `mapstructure:"QBITTORRENT_BASE_URL"`
	QBittorrentUsername string        `mapstructure:"QBITTORRENT_USERNAME"`
	QBittorrentPassword string        `mapstructure:"QBITTORRENT_PASSWORD"`
	NyaaURL             string        `mapstructure:"NYAA_URL"`
	CommandPrefix       string        `mapstructure:"COMMAND_PREFIX"`
	CommandCooldown     time.Duration `mapstructure:"COMMAND_COOLDOWN"`
	PagerTimeout        time.Duration `mapstructure:"PAGER_TIMEOUT"`
	HTTPTimeout         time.Duration `mapstructure:"HTTP_TIMEOUT"`
	SearchFetcher       string        `mapstructure:"SEARCH_FETCHER"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	MetricsAddress      string        `mapstructure:"METRICS_ADDRESS"`
}

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN":   "",
	"QBITTORRENT_BASE_URL": "",
	"QBITTORRENT_USERNAME": "",
	"QBITTORRENT_PASSWORD": "",
	"NYAA_URL":             "https://nyaa.si/",
	"COMMAND_PREFIX":       "!",
	"COMMAND_COOLDOWN":     "10s",
	"PAGER_TIMEOUT":        "60s",
	"HTTP_TIMEOUT":         "30s",
	"SEARCH_FETCHER":       FetcherHTTP,
	"LOG_LEVEL":            "info",
	"METRICS_ADDRESS":      "",
}

// LoadConfig reads configuration from file or environment variables.
// Environment variables take precedence over the config file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Every key has a default so AutomaticEnv can resolve it on Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and value formats.
func (c Config) Validate() error {
	var errs []error

	required := []struct{ key, value string }{
		{"TELEGRAM_BOT_TOKEN", c.TelegramBotToken},
		{"QBITTORRENT_BASE_URL", c.QBittorrentBaseURL},
		{"QBITTORRENT_USERNAME", c.QBittorrentUsername},
		{"QBITTORRENT_PASSWORD", c.QBittorrentPassword},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is not set", r.key))
		}
	}

	if c.QBittorrentBaseURL != "" {
		if err := validateHTTPURL(c.QBittorrentBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("QBITTORRENT_BASE_URL: %w", err))
		}
	}
	if err := validateHTTPURL(c.NyaaURL); err != nil {
		errs = append(errs, fmt.Errorf("NYAA_URL: %w", err))
	}

	if c.CommandPrefix == "" || strings.ContainsAny(c.CommandPrefix, " \t\r\n") {
		errs = append(errs, fmt.Errorf("COMMAND_PREFIX %q must be non-empty and contain no whitespace", c.CommandPrefix))
	}
	if c.CommandCooldown < 0 {
		errs = append(errs, fmt.Errorf("COMMAND_COOLDOWN must not be negative"))
	}
	if c.PagerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PAGER_TIMEOUT must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive"))
	}

	switch c.SearchFetcher {
	case FetcherHTTP, FetcherRod:
	default:
		errs = append(errs, fmt.Errorf("SEARCH_FETCHER must be %q or %q, got %q", FetcherHTTP, FetcherRod, c.SearchFetcher))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}
