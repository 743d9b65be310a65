package history

import (
	"context"

	"go.uber.org/zap"
)

// Noop is a Store that only logs entries, used when PostgreSQL is not configured.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new logging-only history store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveScan(_ context.Context, event *ScanRecordedEvent) error {
	n.logger.Info("scan recorded event received",
		zap.String("id", event.ID),
		zap.String("scannedUrl", event.ScannedURL),
		zap.String("action", string(event.Action)),
		zap.Time("scannedAt", event.ScannedAt),
	)

	return nil
}

var _ Store = (*Noop)(nil)
