package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/qr-safe/internal/registry"
	"github.com/serroba/qr-safe/internal/reputation"
	"github.com/serroba/qr-safe/internal/store"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// RegistryPackage provides the registry: the embedded fixtures in memory, or
// PostgreSQL behind the Redis read-through cache.
func RegistryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (trust.Registry, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch opts.RegistryBackend {
		case BackendMemory:
			fixtures, err := registry.Default()
			if err != nil {
				return nil, err
			}

			partners, malicious, err := fixtures.Records(time.Now())
			if err != nil {
				return nil, err
			}

			logger.Info("using in-memory registry",
				zap.Int("partners", len(partners)),
				zap.Int("malicious", len(malicious)),
			)

			mem, err := store.NewMemoryRegistry(partners, malicious)
			if err != nil {
				return nil, err
			}

			return mem, nil
		case BackendPostgres:
			pg := do.MustInvoke[*Postgres](i)

			var reg trust.Registry = store.NewPostgresRegistry(pg.Pool)

			client := do.MustInvoke[*Redis](i).Client
			if client != nil && opts.RegistryCacheTTL > 0 {
				reg = store.NewRedisCacheRegistry(reg, client, Seconds(opts.RegistryCacheTTL), logger)
			}

			return reg, nil
		default:
			return nil, fmt.Errorf("unknown registry backend %q", opts.RegistryBackend)
		}
	})
}

// ReputationPackage provides the reputation source: the configured providers
// combined, cached in Redis and bounded by the reputation timeout.
func ReputationPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (trust.ReputationSource, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		providers, err := reputationProviders(opts, logger)
		if err != nil {
			return nil, err
		}

		if len(providers) == 0 {
			logger.Warn("no reputation providers configured, every signal will be unknown")
		}

		var checker trust.ReputationChecker = reputation.NewComposite(logger, providers...)

		client := do.MustInvoke[*Redis](i).Client
		if client != nil && opts.ReputationCacheTTL > 0 {
			checker = reputation.NewCache(checker, client, Seconds(opts.ReputationCacheTTL), logger)
		}

		return trust.NewReputationAdapter(checker, Seconds(opts.ReputationTimeout), logger), nil
	})
}

func reputationProviders(opts *Options, logger *zap.Logger) ([]reputation.Provider, error) {
	var providers []reputation.Provider

	for _, name := range List(opts.ReputationProviders) {
		switch name {
		case "llm":
			if opts.OpenAIAPIKey == "" {
				logger.Warn("llm reputation provider skipped, no API key configured")

				continue
			}

			providers = append(providers, reputation.Provider{
				Name: name,
				Checker: reputation.NewLLMAnalyst(reputation.LLMConfig{
					APIKey:        opts.OpenAIAPIKey,
					BaseURL:       opts.OpenAIBaseURL,
					SearchModel:   opts.OpenAISearchModel,
					AnalysisModel: opts.OpenAIAnalysisModel,
				}, logger),
			})
		case "dnsbl":
			providers = append(providers, reputation.Provider{
				Name:    name,
				Checker: reputation.NewDNSBLChecker(List(opts.DNSBLZones), opts.DNSBLResolver, logger),
			})
		case "whois":
			providers = append(providers, reputation.Provider{
				Name: name,
				Checker: reputation.NewWhoisChecker(
					time.Duration(opts.WhoisMinAgeDays)*24*time.Hour,
					Seconds(opts.ReputationTimeout),
					logger,
				),
			})
		default:
			return nil, fmt.Errorf("unknown reputation provider %q", name)
		}
	}

	return providers, nil
}

// VerifierPackage provides the verifier.
func VerifierPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*trust.Verifier, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return trust.NewVerifier(
			trust.NewLookup(do.MustInvoke[trust.Registry](i), logger),
			do.MustInvoke[trust.ReputationSource](i),
			logger,
			trust.WithFallback(opts.FallbackEnabled),
		), nil
	})
}

// PingRegistry checks that the registry answers, used at startup so a broken
// backend shows up in the logs before the first scan. Registries without a
// Ping method are checked with a lookup.
func PingRegistry(ctx context.Context, reg trust.Registry) error {
	if p, ok := reg.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}

	_, err := reg.FindPartner(ctx, trust.Normalize("https://example.com"))
	if err != nil && !errors.Is(err, trust.ErrNotFound) {
		return err
	}

	return nil
}
