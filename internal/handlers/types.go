package handlers

import (
	"time"

	"github.com/serroba/qr-safe/internal/trust"
)

// Response bodies carry every multi-word field under both its snake_case and
// camelCase name so clients can read either.

// CheckURLRequest is the request body of the check endpoints.
type CheckURLRequest struct {
	Body struct {
		URL string `doc:"The scanned URL" example:"https://www.python.org/" json:"url" maxLength:"4096"`
	}
}

// DBCheckBody is the registry half of a verdict.
type DBCheckBody struct {
	Verified         bool   `doc:"Key matches a verified partner"     json:"verified"`
	IsMalicious      bool   `doc:"Key matches a reported URL"         json:"is_malicious"`
	IsMaliciousCamel bool   `json:"isMalicious"`
	Unknown          bool   `doc:"No registry record for the key"     json:"unknown"`
	Unavailable      bool   `doc:"The registry could not be queried"  json:"unavailable"`
	Source           string `json:"source"`
	Details          string `json:"details"`

	CompanyName           string `json:"company_name,omitempty"`
	CompanyNameCamel      string `json:"companyName,omitempty"`
	Category              string `json:"category,omitempty"`
	VerificationDate      string `json:"verification_date,omitempty"`
	VerificationDateCamel string `json:"verificationDate,omitempty"`
	ThreatType            string `json:"threat_type,omitempty"`
	ThreatTypeCamel       string `json:"threatType,omitempty"`
	ThreatDetails         string `json:"threat_details,omitempty"`
	ThreatDetailsCamel    string `json:"threatDetails,omitempty"`

	NormalizedURL      string `json:"normalized_url,omitempty"`
	NormalizedURLCamel string `json:"normalizedUrl,omitempty"`
}

// WebCheckBody is the web reputation half of a verdict.
type WebCheckBody struct {
	Safe            *bool  `doc:"true safe, false unsafe, null unknown" json:"safe"                  nullable:"true"`
	Safety          string `enum:"safe,unsafe,unknown"                   json:"safety"`
	Source          string `json:"source"`
	Details         string `json:"details"`
	RawResults      string `json:"raw_results,omitempty"`
	RawResultsCamel string `json:"rawResults,omitempty"`
	Degraded        bool   `doc:"The reputation check failed or timed out" json:"degraded"`
	Error           string `json:"error,omitempty"`

	NormalizedURL      string `json:"normalized_url,omitempty"`
	NormalizedURLCamel string `json:"normalizedUrl,omitempty"`
}

// RiskBody is the status classification of a verdict.
type RiskBody struct {
	Label string `example:"Use Caution" json:"label"`
	Level string `enum:"safe,caution,danger" json:"level"`
}

// VerdictBody is the combined verdict.
type VerdictBody struct {
	RequestID          string       `json:"request_id"`
	RequestIDCamel     string       `json:"requestId"`
	URL                string       `json:"url"`
	NormalizedURL      string       `json:"normalized_url"`
	NormalizedURLCamel string       `json:"normalizedUrl"`
	DBCheck            DBCheckBody  `json:"db_check"`
	DBCheckCamel       DBCheckBody  `json:"dbCheck"`
	WebCheck           WebCheckBody `json:"web_check"`
	WebCheckCamel      WebCheckBody `json:"webCheck"`
	Risk               RiskBody     `json:"risk"`
	Confidence         string       `enum:"authoritative,degraded,low" json:"confidence"`
	CheckedAt          time.Time    `json:"checked_at"`
	CheckedAtCamel     time.Time    `json:"checkedAt"`
}

// VerdictResponse is the response of the combined check.
type VerdictResponse struct {
	Body VerdictBody
}

// DBCheckResponse is the response of the registry-only check.
type DBCheckResponse struct {
	Body DBCheckBody
}

// WebCheckResponse is the response of the reputation-only check.
type WebCheckResponse struct {
	Body WebCheckBody
}

// RecordScanRequest records what the user did after a verdict.
type RecordScanRequest struct {
	Body struct {
		URL         string `doc:"The scanned URL" json:"url" minLength:"1"`
		RequestID   string `doc:"request_id of the verdict" json:"request_id,omitempty"`
		IsVerified  bool   `json:"is_verified,omitempty"`
		IsMalicious bool   `json:"is_malicious,omitempty"`
		IsSafe      *bool  `json:"is_safe,omitempty"`
		Action      string `enum:"open,copy,ignore" json:"action"`
	}
}

// RecordScanResponse acknowledges a recorded scan.
type RecordScanResponse struct {
	Body struct {
		ID     string `json:"id"`
		Status string `example:"accepted" json:"status"`
	}
}

func newDBCheckBody(db trust.DBCheck) DBCheckBody {
	body := DBCheckBody{
		Verified:           db.Verified,
		IsMalicious:        db.IsMalicious,
		IsMaliciousCamel:   db.IsMalicious,
		Unknown:            db.Unknown,
		Unavailable:        db.Unavailable,
		Source:             db.Source,
		Details:            db.Details,
		CompanyName:        db.CompanyName,
		CompanyNameCamel:   db.CompanyName,
		Category:           db.Category,
		ThreatType:         db.ThreatType,
		ThreatTypeCamel:    db.ThreatType,
		ThreatDetails:      db.ThreatDetails,
		ThreatDetailsCamel: db.ThreatDetails,
	}

	if !db.VerificationDate.IsZero() {
		body.VerificationDate = db.VerificationDate.Format(time.DateOnly)
		body.VerificationDateCamel = body.VerificationDate
	}

	return body
}

func newWebCheckBody(web trust.ReputationSignal) WebCheckBody {
	body := WebCheckBody{
		Safe:            web.Safety.Bool(),
		Safety:          web.Safety.String(),
		Source:          web.Source,
		Details:         web.Details,
		RawResults:      web.RawResults,
		RawResultsCamel: web.RawResults,
		Degraded:        web.Degraded,
	}

	if web.Err != nil {
		body.Error = web.Err.Error()
	}

	return body
}

func newVerdictBody(v trust.Verdict) VerdictBody {
	db := newDBCheckBody(v.DBCheck)
	web := newWebCheckBody(v.WebCheck)

	return VerdictBody{
		RequestID:          v.RequestID,
		RequestIDCamel:     v.RequestID,
		URL:                v.ScannedURL,
		NormalizedURL:      v.NormalizedURL.String(),
		NormalizedURLCamel: v.NormalizedURL.String(),
		DBCheck:            db,
		DBCheckCamel:       db,
		WebCheck:           web,
		WebCheckCamel:      web,
		Risk:               RiskBody{Label: v.Risk.Label, Level: string(v.Risk.Level)},
		Confidence:         string(v.Confidence),
		CheckedAt:          v.CheckedAt,
		CheckedAtCamel:     v.CheckedAt,
	}
}
