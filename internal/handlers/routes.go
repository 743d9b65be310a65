package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/qr-safe/internal/ratelimit"
)

func limitScope(scope ratelimit.Scope) map[string]any {
	return map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: scope},
	}
}

// RegisterRoutes registers the URL check routes.
func RegisterRoutes(api huma.API, h *VerifyHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "check-url",
		Method:      http.MethodPost,
		Path:        "/api/check-url",
		Summary:     "Check a scanned URL",
		Description: "Looks the URL up in the partner and threat registries and checks its web reputation concurrently.",
		Tags:        []string{"Checks"},
		Metadata:    limitScope(ratelimit.ScopeVerify),
	}, h.CheckURL)

	huma.Register(api, huma.Operation{
		OperationID: "check-url-in-db",
		Method:      http.MethodPost,
		Path:        "/api/check-url-in-db",
		Summary:     "Check a URL against the registries",
		Tags:        []string{"Checks"},
		Metadata:    limitScope(ratelimit.ScopeLookup),
	}, h.CheckURLInDB)

	huma.Register(api, huma.Operation{
		OperationID: "check-url-web",
		Method:      http.MethodPost,
		Path:        "/api/check-url-web",
		Summary:     "Check a URL's web reputation",
		Tags:        []string{"Checks"},
		Metadata:    limitScope(ratelimit.ScopeVerify),
	}, h.CheckURLWeb)

	huma.Register(api, huma.Operation{
		OperationID: "check-url-with-openai",
		Method:      http.MethodPost,
		Path:        "/api/check-url-with-openai",
		Summary:     "Check a URL's web reputation",
		Tags:        []string{"Checks"},
		Deprecated:  true,
		Metadata:    limitScope(ratelimit.ScopeVerify),
	}, h.CheckURLWeb)
}

// RegisterHistoryRoutes registers the scan history routes.
func RegisterHistoryRoutes(api huma.API, h *HistoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "record-scan",
		Method:        http.MethodPost,
		Path:          "/api/scan-history",
		Summary:       "Record a scan action",
		Description:   "Records what the user did with a scanned URL. Entries are persisted asynchronously.",
		Tags:          []string{"History"},
		DefaultStatus: http.StatusAccepted,
		Metadata:      limitScope(ratelimit.ScopeHistory),
	}, h.RecordScan)
}
