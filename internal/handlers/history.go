package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/qr-safe/internal/history"
	"github.com/serroba/qr-safe/internal/messaging"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// HistoryHandler records scan history entries.
type HistoryHandler struct {
	publish messaging.Publish[history.ScanRecordedEvent]
	now     func() time.Time
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(publish messaging.Publish[history.ScanRecordedEvent], logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		publish: publish,
		now:     time.Now,
		logger:  logger,
	}
}

// RecordScan publishes a scan history entry for asynchronous persistence.
func (h *HistoryHandler) RecordScan(ctx context.Context, req *RecordScanRequest) (*RecordScanResponse, error) {
	action, err := history.ParseAction(req.Body.Action)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	meta := RequestMetaFromContext(ctx)
	event := history.NewScanRecordedEvent(uuid.NewString(), history.Scan{
		RequestID: req.Body.RequestID,
		URL:       req.Body.URL,
		Flags: trust.Flags{
			Verified:  req.Body.IsVerified,
			Malicious: req.Body.IsMalicious,
			Safe:      req.Body.IsSafe,
		},
		Client: history.Client{
			IP:        meta.ClientIP,
			UserAgent: meta.UserAgent,
			Referrer:  meta.Referrer,
		},
		Action: action,
	}, h.now())

	if err := h.publish(ctx, event); err != nil {
		h.logger.Error("failed to publish scan history event",
			zap.String("id", event.ID),
			zap.Error(err),
		)

		return nil, huma.Error503ServiceUnavailable("scan history is unavailable")
	}

	resp := &RecordScanResponse{}
	resp.Body.ID = event.ID
	resp.Body.Status = "accepted"

	return resp, nil
}
