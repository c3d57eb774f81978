// AngelaMos | 2026
// history.go

package order

import (
	"time"
)

// BuildTimeline repairs history recorded before every order got a Pending
// row at creation. It never writes; synthesized entries are flagged.
func BuildTimeline(entries []HistoryEntry, createdAt time.Time) []HistoryEntry {
	pending := HistoryEntry{Status: StatusPending, ChangedAt: createdAt, Synthetic: true}

	if len(entries) == 0 {
		return []HistoryEntry{pending}
	}
	if entries[0].Status != StatusPending {
		out := make([]HistoryEntry, 0, len(entries)+1)
		out = append(out, pending)
		return append(out, entries...)
	}
	return entries
}
