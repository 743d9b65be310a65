package trust

import "strings"

// SourceHeuristic labels every part of a fallback verdict.
const SourceHeuristic = "Local Heuristic (low confidence)"

var (
	heuristicThreatTokens = []string{"scam", "phish"}
	heuristicAllowedHosts = map[string]bool{
		"example.com":     true,
		"www.example.com": true,
	}
)

// Heuristic classifies raw without any backend. It is a continuity measure for
// when the registry and reputation services are both unreachable, not a
// security control: threat tokens anywhere in the URL mark it malicious, an
// allow-listed example host marks it verified, and anything else is unverified
// with unknown reputation.
func Heuristic(raw string) Verdict {
	key := Normalize(raw)
	lowered := strings.ToLower(raw)

	db := DBCheck{Source: SourceHeuristic}
	web := ReputationSignal{Source: SourceHeuristic}

	switch {
	case containsAny(lowered, heuristicThreatTokens):
		db.IsMalicious = true
		db.Details = "URL contains terms commonly used by scam or phishing sites. Verification service unavailable."
		web.Safety = SafetyUnsafe
		web.Details = "Flagged by local keyword rules while the reputation service is unavailable."
	case heuristicAllowedHosts[key.Host()]:
		db.Verified = true
		db.Details = "Matches a locally known domain. Verification service unavailable."
		web.Safety = SafetySafe
		web.Details = "Matches a locally known domain while the reputation service is unavailable."
	default:
		db.Unknown = true
		db.Details = "Unable to check this URL against the verified partner registry. Please proceed with caution."
		web.Safety = SafetyUnknown
		web.Details = "Unable to check web reputation. Please proceed with caution."
	}

	verdict := Compose(db, web)
	verdict.ScannedURL = raw
	verdict.NormalizedURL = key
	verdict.Confidence = ConfidenceLow

	return verdict
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}

	return false
}
