package domain

// Session is the tracked engagement with one work item. Counters are in
// milliseconds and only grow between resets.
type Session struct {
	ItemID           string
	Section          string
	Source           Source
	ActiveMs         int64
	IdleMs           int64
	LastSentActiveMs int64
	LastSentIdleMs   int64
	Started          bool
}

// HasUnsent reports whether either counter grew since the last transmission.
func (s *Session) HasUnsent() bool {
	return s.ActiveMs > s.LastSentActiveMs || s.IdleMs > s.LastSentIdleMs
}

// MarkSent moves the high-water marks up to the current counters.
func (s *Session) MarkSent() {
	s.LastSentActiveMs = s.ActiveMs
	s.LastSentIdleMs = s.IdleMs
}

// Reset zeroes all four counters and drops the started flag. Item identity
// is left alone; the caller overwrites it after the reset.
func (s *Session) Reset() {
	s.ActiveMs = 0
	s.IdleMs = 0
	s.LastSentActiveMs = 0
	s.LastSentIdleMs = 0
	s.Started = false
}
