package model

import "time"

// Stale-marking priorities. 1 is the highest; cascades only ever raise
// priority (numerically lower), never lower it.
const (
	PriorityAuthoritative = 1
	PriorityBounded       = 2
	PriorityAdvisory      = 3
)

// Variance policy names. See internal/variance for evaluation semantics.
const (
	PolicyOverrideAllowed = "override_allowed"
	PolicyAuthoritative   = "authoritative"
	PolicyUpperBound      = "upper_bound"
	PolicyLowerBound      = "lower_bound"
	PolicyRange           = "range"
)

// PriorityForPolicy maps a variance policy to a stale-marking priority.
func PriorityForPolicy(policy string) int {
	switch policy {
	case PolicyAuthoritative:
		return PriorityAuthoritative
	case PolicyUpperBound, PolicyLowerBound, PolicyRange:
		return PriorityBounded
	default:
		return PriorityAdvisory
	}
}

// TightenPriority raises a priority by one level, floored at the highest.
func TightenPriority(p int) int {
	if p <= PriorityAuthoritative {
		return PriorityAuthoritative
	}
	return p - 1
}

// MinPriority returns the higher-urgency (numerically smaller) of two
// priorities, treating 0 as unset.
func MinPriority(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if b < a {
		return b
	}
	return a
}

// DirtyFlag is one structured entry appended to a dependent's change queue
// when a cascade marks it stale.
type DirtyFlag struct {
	Reason        string    `json:"reason"`
	ComponentType string    `json:"component_type,omitempty"`
	Name          string    `json:"name,omitempty"`
	Maker         string    `json:"maker,omitempty"`
	Property      string    `json:"property,omitempty"`
	Field         string    `json:"field,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
	Policy        string    `json:"policy,omitempty"`
	Action        string    `json:"action"`
	At            time.Time `json:"at"`
}

// QueueEntry is one dependent's slot in the re-processing queue. Cascades only
// raise Priority and append DirtyFlags; nothing here ever truncates.
type QueueEntry struct {
	Status     string      `json:"status"`
	Priority   int         `json:"priority"`
	DirtyFlags []DirtyFlag `json:"dirty_flags,omitempty"`
}

// QueueStatusStale marks a dependent whose stored value may no longer track
// its canonical source.
const QueueStatusStale = "stale"
