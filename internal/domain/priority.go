package domain

import (
	"fmt"
	"strings"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

// Wire values as stored in tasks.json.
const (
	wireLow    = "nízká"
	wireMedium = "střední"
	wireHigh   = "vysoká"
)

// Priorities lists every priority, highest first.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// String returns the wire value.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return wireLow
	case PriorityMedium:
		return wireMedium
	case PriorityHigh:
		return wireHigh
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Label is the English name used in reports and metric labels.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return "unknown"
}

// ParsePriority accepts the wire values and their English aliases.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case wireLow, "low":
		return PriorityLow, nil
	case wireMedium, "medium":
		return PriorityMedium, nil
	case wireHigh, "high":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// ParseWirePriority accepts only the exact values written to tasks.json.
func ParseWirePriority(s string) (Priority, error) {
	switch s {
	case wireLow:
		return PriorityLow, nil
	case wireMedium:
		return PriorityMedium, nil
	case wireHigh:
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}
