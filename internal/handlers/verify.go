package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// Verifier produces verdicts for scanned URLs.
type Verifier interface {
	Verify(ctx context.Context, raw string) (trust.Verdict, error)
	CheckRegistry(ctx context.Context, raw string) (trust.NormalizedURL, trust.DBCheck, error)
	CheckReputation(ctx context.Context, raw string) (trust.NormalizedURL, trust.ReputationSignal)
}

// VerifyHandler serves the URL check endpoints.
type VerifyHandler struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(verifier Verifier, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, logger: logger}
}

func scannedURL(req *CheckURLRequest) (string, error) {
	raw := strings.TrimSpace(req.Body.URL)
	if raw == "" {
		return "", huma.Error400BadRequest("url is required")
	}

	return req.Body.URL, nil
}

// CheckURL returns the combined verdict. It fails only when the whole backend
// is unreachable and the local fallback is disabled.
func (h *VerifyHandler) CheckURL(ctx context.Context, req *CheckURLRequest) (*VerdictResponse, error) {
	raw, err := scannedURL(req)
	if err != nil {
		return nil, err
	}

	verdict, err := h.verifier.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, trust.ErrBackendUnreachable) {
			h.logger.Error("verification unavailable", zap.Error(err))

			return nil, huma.Error503ServiceUnavailable("verification services are unreachable")
		}

		return nil, huma.Error500InternalServerError("failed to verify url")
	}

	h.logger.Info("url verified",
		zap.String("requestId", verdict.RequestID),
		zap.String("normalizedUrl", verdict.NormalizedURL.String()),
		zap.String("risk", verdict.Risk.Label),
		zap.String("confidence", string(verdict.Confidence)),
	)

	return &VerdictResponse{Body: newVerdictBody(verdict)}, nil
}

// CheckURLInDB returns only the registry result. Registry outages are
// reported as 503, never as "not verified".
func (h *VerifyHandler) CheckURLInDB(ctx context.Context, req *CheckURLRequest) (*DBCheckResponse, error) {
	raw, err := scannedURL(req)
	if err != nil {
		return nil, err
	}

	key, db, err := h.verifier.CheckRegistry(ctx, raw)
	if err != nil {
		h.logger.Error("registry lookup failed", zap.String("normalizedUrl", key.String()), zap.Error(err))

		return nil, huma.Error503ServiceUnavailable("registry is unavailable")
	}

	body := newDBCheckBody(db)
	body.NormalizedURL = key.String()
	body.NormalizedURLCamel = key.String()

	return &DBCheckResponse{Body: body}, nil
}

// CheckURLWeb returns only the reputation signal. Failures come back as a
// degraded unknown signal.
func (h *VerifyHandler) CheckURLWeb(ctx context.Context, req *CheckURLRequest) (*WebCheckResponse, error) {
	raw, err := scannedURL(req)
	if err != nil {
		return nil, err
	}

	key, web := h.verifier.CheckReputation(ctx, raw)

	body := newWebCheckBody(web)
	body.NormalizedURL = key.String()
	body.NormalizedURLCamel = key.String()

	return &WebCheckResponse{Body: body}, nil
}
