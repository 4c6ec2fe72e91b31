package domain

// Completion sentinels for next.default.
const (
	// SentinelEnd is the canonical marker meaning "no further questions".
	SentinelEnd = "consultation_end"

	// SentinelComplete is accepted as an alias of SentinelEnd.
	SentinelComplete = "__complete__"
)

// IsSentinel reports whether id marks the end of the consultation.
func IsSentinel(id string) bool {
	return id == SentinelEnd || id == SentinelComplete
}
