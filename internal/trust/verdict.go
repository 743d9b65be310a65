package trust

import (
	"fmt"
	"time"
)

// Safety is the tri-state outcome of a reputation check.
type Safety int

const (
	SafetyUnknown Safety = iota
	SafetySafe
	SafetyUnsafe
)

func (s Safety) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// Bool returns nil for unknown so callers cannot coerce it into a boolean.
func (s Safety) Bool() *bool {
	var b bool

	switch s {
	case SafetySafe:
		b = true
	case SafetyUnsafe:
		b = false
	default:
		return nil
	}

	return &b
}

func (s Safety) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Safety) UnmarshalText(text []byte) error {
	switch string(text) {
	case "safe":
		*s = SafetySafe
	case "unsafe":
		*s = SafetyUnsafe
	case "unknown", "":
		*s = SafetyUnknown
	default:
		return fmt.Errorf("invalid safety %q", text)
	}

	return nil
}

// RiskLevel is the coarse classification shown to the user.
type RiskLevel string

const (
	LevelSafe    RiskLevel = "safe"
	LevelCaution RiskLevel = "caution"
	LevelDanger  RiskLevel = "danger"
)

// Risk labels.
const (
	LabelVerifiedPartner = "Verified Partner"
	LabelSecurityRisk    = "Security Risk"
	LabelNoIssuesFound   = "No Issues Found"
	LabelReportedIssues  = "Reported Issues"
	LabelUseCaution      = "Use Caution"
)

// Risk is the status classification of a verdict.
type Risk struct {
	Label string
	Level RiskLevel
}

// Confidence tells the caller how much of the backend contributed to a verdict.
type Confidence string

const (
	// ConfidenceAuthoritative means registry and reputation both answered.
	ConfidenceAuthoritative Confidence = "authoritative"
	// ConfidenceDegraded means one of the two signals is missing.
	ConfidenceDegraded Confidence = "degraded"
	// ConfidenceLow marks verdicts produced by the local heuristic.
	ConfidenceLow Confidence = "low"
)

// DBCheck is the registry half of a verdict.
type DBCheck struct {
	Verified    bool
	IsMalicious bool
	// Unknown is set when the registries have no record for the key.
	Unknown bool
	// Unavailable is set when the registry could not be queried. Err holds the cause.
	Unavailable bool
	Source      string
	Details     string

	CompanyName      string
	Category         string
	VerificationDate time.Time

	ThreatType    string
	ThreatDetails string
	ThreatSource  string

	Err error
}

// ReputationSignal is the web reputation half of a verdict.
type ReputationSignal struct {
	Safety     Safety
	Source     string
	Details    string
	RawResults string
	// Degraded is set when the collaborator failed or timed out. Err holds the cause.
	Degraded bool
	Err      error
}

// Verdict is the single answer returned for one scanned URL.
type Verdict struct {
	RequestID     string
	ScannedURL    string
	NormalizedURL NormalizedURL
	DBCheck       DBCheck
	WebCheck      ReputationSignal
	Risk          Risk
	Confidence    Confidence
	CheckedAt     time.Time
}

// Flags are the verdict booleans recorded in scan history.
type Flags struct {
	Verified  bool
	Malicious bool
	Safe      *bool
}

// Flags returns the booleans a scan history collaborator needs.
func (v Verdict) Flags() Flags {
	return Flags{
		Verified:  v.DBCheck.Verified,
		Malicious: v.DBCheck.IsMalicious,
		Safe:      v.WebCheck.Safety.Bool(),
	}
}

// Compose merges a registry result and a reputation signal. It is pure.
// Registry status dominates reputation: a verified partner is safe whatever the
// reputation says, and a malicious record is dangerous even with a safe signal.
// Without positive evidence the verdict is never labelled safe.
func Compose(db DBCheck, web ReputationSignal) Verdict {
	confidence := ConfidenceAuthoritative
	if db.Unavailable || web.Degraded {
		confidence = ConfidenceDegraded
	}

	return Verdict{
		DBCheck:    db,
		WebCheck:   web,
		Risk:       classify(db, web),
		Confidence: confidence,
	}
}

func classify(db DBCheck, web ReputationSignal) Risk {
	switch {
	case db.Verified:
		return Risk{Label: LabelVerifiedPartner, Level: LevelSafe}
	case db.IsMalicious:
		return Risk{Label: LabelSecurityRisk, Level: LevelDanger}
	}

	switch web.Safety {
	case SafetySafe:
		return Risk{Label: LabelNoIssuesFound, Level: LevelSafe}
	case SafetyUnsafe:
		return Risk{Label: LabelReportedIssues, Level: LevelDanger}
	default:
		return Risk{Label: LabelUseCaution, Level: LevelCaution}
	}
}
