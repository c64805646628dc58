// Package wiring builds the source plugins shared by the reviewq binaries.
package wiring

import (
	"fmt"
	"log/slog"

	githubadapter "github.com/ericfisherdev/reviewq/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewq/internal/adapter/driven/launchpad"
	"github.com/ericfisherdev/reviewq/internal/adapter/driven/restapi"
	"github.com/ericfisherdev/reviewq/internal/adapter/driven/stackexchange"
	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/config"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

const userAgent = "reviewq"

// Plugins creates one plugin per enabled source, in the order the sources
// are listed in the configuration. All plugins share one Helpers cache.
// metrics may be nil.
func Plugins(cfg *config.Config, uow driven.UnitOfWork, metrics driven.IngestMetrics) ([]application.SourcePlugin, error) {
	helpers := application.NewHelpers()
	opts := restapi.Options{
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RateLimit,
		UserAgent:         userAgent,
	}

	plugins := make([]application.SourcePlugin, 0, len(cfg.EnabledSources))
	for _, slug := range cfg.EnabledSources {
		switch slug {
		case model.SourceLaunchpad:
			client, err := launchpad.NewClient(cfg.LaunchpadURL, opts)
			if err != nil {
				return nil, fmt.Errorf("create launchpad client: %w", err)
			}
			plugins = append(plugins, application.NewLaunchpadPlugin(client, uow, helpers, metrics, application.LaunchpadConfig{
				Distribution: cfg.LaunchpadDistribution,
			}))

		case model.SourceAskUbuntu:
			client, err := stackexchange.NewClient(cfg.StackExchangeURL, cfg.StackExchangeSite, cfg.StackExchangeKey, opts)
			if err != nil {
				return nil, fmt.Errorf("create stack exchange client: %w", err)
			}
			plugins = append(plugins, application.NewAskUbuntuPlugin(client, uow, helpers, metrics, cfg.StackExchangeTags))

		case model.SourceGitHub:
			if cfg.GitHubToken == "" {
				slog.Warn("no github token configured, requests are unauthenticated")
			}
			client := githubadapter.NewClient(cfg.GitHubToken, cfg.HTTPTimeout)
			plugins = append(plugins, application.NewGitHubPlugin(client, uow, helpers, metrics, cfg.GitHubRepos))

		default:
			return nil, fmt.Errorf("%w: source %q", model.ErrUnsupportedType, slug)
		}
	}

	return plugins, nil
}
