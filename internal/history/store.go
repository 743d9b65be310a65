package history

import "context"

// Store persists scan history entries.
type Store interface {
	SaveScan(ctx context.Context, event *ScanRecordedEvent) error
}
