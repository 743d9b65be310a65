package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoProviders is returned by a Composite with nothing to ask.
var ErrNoProviders = errors.New("no reputation providers configured")

// Provider is a named reputation checker.
type Provider struct {
	Name    string
	Checker trust.ReputationChecker
}

// Composite asks every provider concurrently and merges their answers. Any
// unsafe answer wins over safe ones, and a safe answer wins over unknown.
// It fails only when every provider fails.
type Composite struct {
	providers []Provider
	logger    *zap.Logger
}

// NewComposite creates a composite checker.
func NewComposite(logger *zap.Logger, providers ...Provider) *Composite {
	return &Composite{providers: providers, logger: logger}
}

func (c *Composite) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	if len(c.providers) == 0 {
		return trust.ReputationSignal{}, ErrNoProviders
	}

	signals := make([]trust.ReputationSignal, len(c.providers))
	errs := make([]error, len(c.providers))

	var g errgroup.Group

	for i, p := range c.providers {
		g.Go(func() error {
			signals[i], errs[i] = p.Checker.Check(ctx, key)
			return nil
		})
	}

	_ = g.Wait()

	var answered []trust.ReputationSignal

	for i, p := range c.providers {
		if errs[i] != nil {
			c.logger.Warn("reputation provider failed",
				zap.String("provider", p.Name),
				zap.String("normalizedUrl", key.String()),
				zap.Error(errs[i]),
			)

			errs[i] = fmt.Errorf("%s: %w", p.Name, errs[i])

			continue
		}

		answered = append(answered, signals[i])
	}

	if len(answered) == 0 {
		return trust.ReputationSignal{}, errors.Join(errs...)
	}

	return merge(answered), nil
}

func merge(signals []trust.ReputationSignal) trust.ReputationSignal {
	if len(signals) == 1 {
		return signals[0]
	}

	for _, want := range []trust.Safety{trust.SafetyUnsafe, trust.SafetySafe} {
		if picked := filter(signals, want); len(picked) > 0 {
			return combine(want, picked, signals)
		}
	}

	return combine(trust.SafetyUnknown, signals, signals)
}

func filter(signals []trust.ReputationSignal, safety trust.Safety) []trust.ReputationSignal {
	var out []trust.ReputationSignal

	for _, s := range signals {
		if s.Safety == safety {
			out = append(out, s)
		}
	}

	return out
}

// combine reports the deciding signals; raw results come from every answer.
func combine(safety trust.Safety, deciding, all []trust.ReputationSignal) trust.ReputationSignal {
	sources := make([]string, 0, len(deciding))
	details := make([]string, 0, len(deciding))

	for _, s := range deciding {
		sources = append(sources, s.Source)
		details = append(details, s.Details)
	}

	var raw []string

	for _, s := range all {
		if s.RawResults != "" {
			raw = append(raw, s.RawResults)
		}
	}

	return trust.ReputationSignal{
		Safety:     safety,
		Source:     strings.Join(sources, " + "),
		Details:    strings.Join(details, " "),
		RawResults: strings.Join(raw, "\n\n"),
	}
}

var _ trust.ReputationChecker = (*Composite)(nil)
