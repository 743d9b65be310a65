package registry

import (
	"context"
	"fmt"

	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// Writer stores registry records, skipping keys that already exist.
type Writer interface {
	SavePartner(ctx context.Context, partner trust.VerifiedPartner) (bool, error)
	SaveMalicious(ctx context.Context, record trust.MaliciousURL) (bool, error)
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	PartnersAdded    int
	PartnersSkipped  int
	MaliciousAdded   int
	MaliciousSkipped int
}

// Seed writes records through w. Existing keys are skipped so seeding is
// idempotent; the first write error aborts the run.
func Seed(
	ctx context.Context,
	w Writer,
	partners []trust.VerifiedPartner,
	malicious []trust.MaliciousURL,
	logger *zap.Logger,
) (SeedResult, error) {
	var res SeedResult

	for _, p := range partners {
		added, err := w.SavePartner(ctx, p)
		if err != nil {
			return res, fmt.Errorf("seed partner %s: %w", p.NormalizedURL, err)
		}

		if added {
			res.PartnersAdded++
			logger.Info("added verified partner", zap.String("normalizedUrl", p.NormalizedURL.String()))
		} else {
			res.PartnersSkipped++
			logger.Debug("partner already exists", zap.String("normalizedUrl", p.NormalizedURL.String()))
		}
	}

	for _, m := range malicious {
		added, err := w.SaveMalicious(ctx, m)
		if err != nil {
			return res, fmt.Errorf("seed malicious url %s: %w", m.NormalizedURL, err)
		}

		if added {
			res.MaliciousAdded++
			logger.Info("added malicious url",
				zap.String("normalizedUrl", m.NormalizedURL.String()),
				zap.String("threatType", m.ThreatType),
			)
		} else {
			res.MaliciousSkipped++
			logger.Debug("malicious url already exists", zap.String("normalizedUrl", m.NormalizedURL.String()))
		}
	}

	return res, nil
}
