package container

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do"
	"github.com/serroba/qr-safe/internal/handlers"
	"github.com/serroba/qr-safe/internal/health"
	"github.com/serroba/qr-safe/internal/history"
	"github.com/serroba/qr-safe/internal/messaging"
	"github.com/serroba/qr-safe/internal/middleware"
	"github.com/serroba/qr-safe/internal/ratelimit"
	"github.com/serroba/qr-safe/internal/store"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

// RateLimiter is the policy limiter plus the sweeper of its in-memory store,
// if any.
type RateLimiter struct {
	*ratelimit.PolicyLimiter
	stop context.CancelFunc
}

// Shutdown stops the sweeper.
func (r *RateLimiter) Shutdown() error {
	if r.stop != nil {
		r.stop()
	}

	return nil
}

// RateLimitPackage provides the rate limiter, counting in Redis when it is
// configured and in memory otherwise.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RateLimiter, error) {
		policy := ratelimit.DefaultPolicy()

		if client := do.MustInvoke[*Redis](i).Client; client != nil {
			return &RateLimiter{
				PolicyLimiter: ratelimit.NewPolicyLimiter(store.NewRateLimitRedisStore(client), policy),
			}, nil
		}

		logger := do.MustInvoke[*zap.Logger](i)
		memory := store.NewRateLimitMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					remaining := memory.Sweep(policy.MaxWindow())
					logger.Debug("rate limit store swept", zap.Int("keys", remaining))
				}
			}
		}()

		return &RateLimiter{
			PolicyLimiter: ratelimit.NewPolicyLimiter(memory, policy),
			stop:          cancel,
		}, nil
	})
}

// HealthPackage provides the health handler.
func HealthPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)

		var redisChecker, postgresChecker health.Checker

		if client := do.MustInvoke[*Redis](i).Client; client != nil {
			redisChecker = health.NewRedisChecker(client)
		}

		if opts.RegistryBackend == BackendPostgres {
			postgresChecker = health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
		}

		return health.NewHandler(redisChecker, postgresChecker), nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer)

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[*RateLimiter](i)

		api := humachi.New(router, huma.DefaultConfig("QR Safe", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(api, limiter.PolicyLimiter, logger),
		)

		handlers.RegisterRoutes(api, handlers.NewVerifyHandler(do.MustInvoke[*trust.Verifier](i), logger))
		handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(
			do.MustInvoke[messaging.Publish[history.ScanRecordedEvent]](i),
			logger,
		))
		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))

		return api, nil
	})
}
