package txlog

import (
	"fmt"
	"time"

	"github.com/roach88/concord/internal/payload"
)

// Status is the lifecycle state of a sync transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a stored status string back into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusRolledBack:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
}

// Event describes the synchronization work a transaction records.
type Event struct {
	// TransactionID pins the transaction id. Empty means the handler
	// generates one.
	TransactionID string

	// EntityType names the kind of record being synchronized.
	EntityType string

	// EntityID identifies the specific record, when known.
	EntityID string

	// Operation is the free-form verb for the run, e.g. "push", "pull",
	// "resolve".
	Operation string

	// SourceSystem and TargetSystem name the replicas on each side of
	// the run.
	SourceSystem string
	TargetSystem string

	// Data is optional context, persisted canonically in event_data.
	Data payload.Object
}

// Step is one recorded step inside a transaction.
type Step struct {
	Description string         `json:"description"`
	Data        payload.Object `json:"data,omitempty"`
	At          time.Time      `json:"timestamp"`
}

// Transaction is the stored form of one synchronization run, as read
// back from storage.
type Transaction struct {
	ID           string         `json:"transaction_id"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id,omitempty"`
	Operation    string         `json:"operation"`
	SourceSystem string         `json:"source_system"`
	TargetSystem string         `json:"target_system"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time,omitzero"`
	Status       Status         `json:"status"`
	DurationMS   int64          `json:"duration_ms"`
	ErrorMessage string         `json:"error_message,omitempty"`
	EventData    payload.Object `json:"event_data,omitempty"`
	Steps        []Step         `json:"steps"`
}

// timeLayout is RFC 3339 UTC with a fixed nine-digit fraction. The fixed
// width keeps lexicographic ordering of the stored text identical to
// chronological ordering, which the ORDER BY clauses rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
