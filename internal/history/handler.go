package history

import (
	"context"
	"fmt"

	"github.com/serroba/qr-safe/internal/messaging"
	"go.uber.org/zap"
)

// NewHandler returns the consumer handler that validates and persists scan
// events. Invalid actions are rejected permanently so the message is dropped
// rather than redelivered.
func NewHandler(store Store, logger *zap.Logger) messaging.Handler[ScanRecordedEvent] {
	return func(ctx context.Context, event *ScanRecordedEvent) error {
		if _, err := ParseAction(string(event.Action)); err != nil {
			return messaging.Permanent(fmt.Errorf("scan %s: %w", event.ID, err))
		}

		if err := store.SaveScan(ctx, event); err != nil {
			return fmt.Errorf("save scan %s: %w", event.ID, err)
		}

		logger.Debug("scan recorded",
			zap.String("id", event.ID),
			zap.String("normalizedUrl", event.NormalizedURL),
			zap.String("action", string(event.Action)),
		)

		return nil
	}
}
