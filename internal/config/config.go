// Package config loads application configuration from environment variables
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REVIEWQ"

// Source slugs accepted in ENABLED_SOURCES.
var knownSources = []string{"lp", "askubuntu", "github"}

// Config holds the application configuration.
type Config struct {
	ListenAddr      string
	DBPath          string
	PollInterval    time.Duration
	AdaptivePolling bool
	LogLevel        slog.Level

	LaunchpadURL          string
	LaunchpadDistribution string

	StackExchangeURL  string
	StackExchangeSite string
	StackExchangeKey  string
	StackExchangeTags []string

	GitHubToken string
	GitHubRepos []string

	EnabledSources []string
	HTTPTimeout    time.Duration
	RateLimit      float64 // Requests per second per remote client.

	// QueueNotice is markdown shown above the web queue.
	QueueNotice string
}

// SourceEnabled reports whether the source slug is listed in EnabledSources.
func (c *Config) SourceEnabled(slug string) bool {
	return slices.Contains(c.EnabledSources, slug)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("db_path", "reviewq.db")
	v.SetDefault("poll_interval", "5m")
	v.SetDefault("adaptive_polling", "true")
	v.SetDefault("log_level", "info")
	v.SetDefault("launchpad_url", "https://api.launchpad.net/devel/")
	v.SetDefault("launchpad_distribution", "charms")
	v.SetDefault("stackexchange_url", "https://api.stackexchange.com/2.3/")
	v.SetDefault("stackexchange_site", "askubuntu")
	v.SetDefault("stackexchange_key", "")
	v.SetDefault("stackexchange_tags", "juju,maas,openstack,landscape")
	v.SetDefault("github_token", "")
	v.SetDefault("github_repos", "")
	v.SetDefault("enabled_sources", strings.Join(knownSources, ","))
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("rate_limit", "5")
	v.SetDefault("queue_notice", "")
}

// Load reads configuration from REVIEWQ_* environment variables. When
// REVIEWQ_CONFIG names a YAML file its values are used beneath the
// environment. Unset keys fall back to defaults; malformed values are errors.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ListenAddr:            v.GetString("listen_addr"),
		DBPath:                v.GetString("db_path"),
		LaunchpadURL:          v.GetString("launchpad_url"),
		LaunchpadDistribution: v.GetString("launchpad_distribution"),
		StackExchangeURL:      v.GetString("stackexchange_url"),
		StackExchangeSite:     v.GetString("stackexchange_site"),
		StackExchangeKey:      v.GetString("stackexchange_key"),
		StackExchangeTags:     stringList(v, "stackexchange_tags"),
		GitHubToken:           v.GetString("github_token"),
		GitHubRepos:           stringList(v, "github_repos"),
		EnabledSources:        stringList(v, "enabled_sources"),
		QueueNotice:           v.GetString("queue_notice"),
	}

	var errs []error
	cfg.PollInterval = duration(v, "poll_interval", &errs)
	cfg.HTTPTimeout = duration(v, "http_timeout", &errs)

	if b, err := strconv.ParseBool(v.GetString("adaptive_polling")); err != nil {
		errs = append(errs, invalid("adaptive_polling", v.GetString("adaptive_polling"), err))
	} else {
		cfg.AdaptivePolling = b
	}

	if f, err := strconv.ParseFloat(v.GetString("rate_limit"), 64); err != nil || f <= 0 {
		errs = append(errs, invalid("rate_limit", v.GetString("rate_limit"), err))
	} else {
		cfg.RateLimit = f
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		errs = append(errs, invalid("log_level", v.GetString("log_level"), err))
	}

	for _, s := range cfg.EnabledSources {
		if !slices.Contains(knownSources, s) {
			errs = append(errs, invalid("enabled_sources", s, errors.New("unknown source")))
		}
	}

	for _, repo := range cfg.GitHubRepos {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" {
			errs = append(errs, invalid("github_repos", repo, errors.New("expected owner/repo")))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// invalid names the environment variable behind key in a validation error.
func invalid(key, value string, err error) error {
	if err == nil {
		err = errors.New("must be positive")
	}
	return fmt.Errorf("%s_%s has invalid value %q: %w", EnvPrefix, strings.ToUpper(key), value, err)
}

func duration(v *viper.Viper, key string, errs *[]error) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, invalid(key, raw, err))
		return 0
	}
	return d
}

// stringList accepts either a comma separated string (environment) or a
// YAML sequence (config file). Blank entries are dropped.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = val
	}

	out := []string{}
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
