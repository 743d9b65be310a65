package middleware

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/qr-safe/internal/ratelimit"
	"go.uber.org/zap"
)

// PolicyRateLimiter limits requests per client. Operations opt into scopes or
// custom limits through ratelimit.EndpointConfig metadata; everything else is
// counted against the global scope only.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		cfg, _ := ratelimit.EndpointConfigFor(op)

		if cfg.Disabled {
			next(ctx)

			return
		}

		var path string
		if op != nil {
			path = op.Path
		}

		key := clientKey(ctx)

		var (
			exceeded *ratelimit.LimitExceeded
			err      error
		)

		if len(cfg.Limits) > 0 {
			exceeded, err = limiter.AllowCustom(ctx.Context(), key, path, cfg.Limits)
		} else {
			exceeded, err = limiter.Allow(ctx.Context(), key, ratelimit.Scopes(op))
		}

		if err != nil {
			// Counters unavailable: serve the request rather than fail verification.
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			next(ctx)

			return
		}

		if exceeded != nil {
			logger.Warn("rate limit exceeded",
				zap.String("path", path),
				zap.String("scope", string(exceeded.Scope)),
				zap.Int64("count", exceeded.Count),
				zap.Int64("max", exceeded.Config.Max),
				zap.Duration("window", exceeded.Config.Window),
				zap.String("clientIp", ClientIP(ctx)),
			)

			ctx.SetHeader("Retry-After", retryAfter(exceeded))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, exceeded.Error())

			return
		}

		next(ctx)
	}
}

func retryAfter(exceeded *ratelimit.LimitExceeded) string {
	return strconv.FormatInt(int64(exceeded.Config.Window.Seconds()), 10)
}
