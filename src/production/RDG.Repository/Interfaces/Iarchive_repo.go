package interfaces

import (
	"context"
	"time"
)

// EventArchive stores raw inbound event payloads for replay and debugging.
// Archiving is best effort; callers must not fail the ingest path on error.
type EventArchive interface {
	ArchiveEvent(ctx context.Context, topic string, payload []byte, receivedAt time.Time) error
}
