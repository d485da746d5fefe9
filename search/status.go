package search

import "strings"

// HealthStatus is the health of a cluster or an index
type HealthStatus string

const (
	Green  HealthStatus = "GREEN"
	Yellow HealthStatus = "YELLOW"
	Red    HealthStatus = "RED"
)

// ParseHealthStatus returns the status matching value case-insensitively, or false for unknown values
func ParseHealthStatus(value string) (HealthStatus, bool) {
	switch status := HealthStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case Green, Yellow, Red:
		return status, true
	default:
		return "", false
	}
}

func (h HealthStatus) String() string {
	return strings.ToLower(string(h))
}

// IndexStatus tells whether an index is open or closed
type IndexStatus string

const (
	Open  IndexStatus = "OPEN"
	Close IndexStatus = "CLOSE"
)

// ParseIndexStatus returns the status matching value case-insensitively, or false for unknown values
func ParseIndexStatus(value string) (IndexStatus, bool) {
	switch status := IndexStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case Open, Close:
		return status, true
	default:
		return "", false
	}
}

func (s IndexStatus) String() string {
	return strings.ToLower(string(s))
}
