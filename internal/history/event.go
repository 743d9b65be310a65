package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/serroba/qr-safe/internal/trust"
)

// TopicScanRecorded carries ScanRecordedEvent payloads.
const TopicScanRecorded = "scan.recorded"

// Action is what the user did after seeing a verdict.
type Action string

const (
	ActionOpen   Action = "open"
	ActionCopy   Action = "copy"
	ActionIgnore Action = "ignore"
)

// ErrInvalidAction is returned for actions other than open, copy and ignore.
var ErrInvalidAction = errors.New("invalid scan action")

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionOpen, ActionCopy, ActionIgnore:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// ScanRecordedEvent is one scan history entry: the scanned URL, the verdict
// booleans and what the user did with it.
type ScanRecordedEvent struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"requestId,omitempty"`
	ScannedURL    string    `json:"scannedUrl"`
	NormalizedURL string    `json:"normalizedUrl"`
	ScannedAt     time.Time `json:"scannedAt"`
	ClientIP      string    `json:"clientIp"`
	UserAgent     string    `json:"userAgent"`
	Referrer      string    `json:"referrer,omitempty"`
	IsVerified    bool      `json:"isVerified"`
	IsMalicious   bool      `json:"isMalicious"`
	IsSafe        *bool     `json:"isSafe"`
	Action        Action    `json:"action"`
}

// EventID is the entry id; the stream message carries it so redeliveries
// land on the same scan_history row.
func (e *ScanRecordedEvent) EventID() string {
	return e.ID
}

// Client is the request metadata attached to a scan.
type Client struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Scan is what a client reports once the user acted on a verdict.
type Scan struct {
	RequestID string
	URL       string
	Flags     trust.Flags
	Client    Client
	Action    Action
}

// NewScanRecordedEvent builds a history entry for scan, keyed by the
// normalized form of its URL.
func NewScanRecordedEvent(id string, scan Scan, at time.Time) *ScanRecordedEvent {
	return &ScanRecordedEvent{
		ID:            id,
		RequestID:     scan.RequestID,
		ScannedURL:    scan.URL,
		NormalizedURL: trust.Normalize(scan.URL).String(),
		ScannedAt:     at.UTC(),
		ClientIP:      scan.Client.IP,
		UserAgent:     scan.Client.UserAgent,
		Referrer:      scan.Client.Referrer,
		IsVerified:    scan.Flags.Verified,
		IsMalicious:   scan.Flags.Malicious,
		IsSafe:        scan.Flags.Safe,
		Action:        scan.Action,
	}
}
