// AngelaMos | 2026
// status.go

package order

import (
	"fmt"
	"strings"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Status string

const (
	StatusPending            Status = "Pending"
	StatusInProcess          Status = "In Process"
	StatusPrepared           Status = "Prepared"
	StatusPickedUp           Status = "Picked Up"
	StatusCancelled          Status = "Cancelled"
	StatusRequiresCorrection Status = "Requires Correction"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProcess,
	StatusPrepared,
	StatusPickedUp,
	StatusCancelled,
	StatusRequiresCorrection,
}

// transitions is only consulted with strict transitions enabled. Terminal
// statuses map to an empty set.
var transitions = map[Status][]Status{
	StatusPending:            {StatusInProcess, StatusCancelled, StatusRequiresCorrection},
	StatusRequiresCorrection: {StatusPending, StatusInProcess, StatusCancelled},
	StatusInProcess:          {StatusPrepared, StatusCancelled, StatusRequiresCorrection},
	StatusPrepared:           {StatusPickedUp, StatusCancelled},
	StatusPickedUp:           {},
	StatusCancelled:          {},
}

// ParseStatus accepts the display names exactly, ignoring surrounding space.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: %w", s, core.ErrInvalidState)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is allowed. Without strict mode
// every valid status is reachable from every other.
func CanTransition(from, to Status, strict bool) bool {
	if !to.Valid() {
		return false
	}
	if !strict {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func StatusNames() []string {
	out := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		out[i] = string(s)
	}
	return out
}
