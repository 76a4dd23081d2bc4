package sim

import "time"

// DecisionLogCapacity is the number of audit entries retained.
const DecisionLogCapacity = 30

// DecisionLogEntry records one advisory or autonomous action.
type DecisionLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	AutoAudit bool      `json:"autoAudit,omitempty"`
}

// DecisionLog is an append-only trail of the newest DecisionLogCapacity entries.
type DecisionLog struct {
	entries []DecisionLogEntry
}

// Append records an entry, dropping the oldest beyond capacity.
func (l *DecisionLog) Append(e DecisionLogEntry) {
	l.entries = append(l.entries, e)
	if over := len(l.entries) - DecisionLogCapacity; over > 0 {
		l.entries = append([]DecisionLogEntry(nil), l.entries[over:]...)
	}
}

// Entries returns a copy, oldest first.
func (l *DecisionLog) Entries() []DecisionLogEntry {
	out := make([]DecisionLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
