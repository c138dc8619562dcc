package domain

import (
	"encoding/json"
	"time"
)

// TimestampLayout matches the millisecond-precision ISO-8601 format the
// ingestion endpoint expects.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Reason labels why an event was emitted.
type Reason string

const (
	ReasonOpen       Reason = "open"
	ReasonHeartbeat  Reason = "heartbeat"
	ReasonSwitch     Reason = "switch"
	ReasonVisibility Reason = "visibility"
	ReasonUnload     Reason = "unload"
)

// Reasons lists every reason in emission order, mainly for metrics labels.
func Reasons() []Reason {
	return []Reason{ReasonOpen, ReasonHeartbeat, ReasonSwitch, ReasonVisibility, ReasonUnload}
}

// Source tells whether the work item came from the primary page or from the
// host-integrated overlay view.
type Source string

const (
	SourcePrimary     Source = "primary"
	SourceOverlayHost Source = "overlay-host"
)

// SelfContained reports whether a session on this source may start without a
// prior interaction. The overlay host view is only ever opened on purpose.
func (s Source) SelfContained() bool {
	return s == SourceOverlayHost
}

// Event is the outbound record sent to the ingestion endpoint.
type Event struct {
	Timestamp   time.Time `json:"-"`
	Email       string    `json:"email"`
	Team        string    `json:"team"`
	ComplaintID string    `json:"complaint_id"`
	Source      Source    `json:"source"`
	Section     string    `json:"section"`
	Reason      Reason    `json:"reason"`
	ActiveMs    int64     `json:"active_ms"`
	IdleMs      int64     `json:"idle_ms"`
	Page        string    `json:"page"`
	SessionID   string    `json:"session_id"`
}

// MarshalJSON renders the timestamp as "ts" in UTC with millisecond precision.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire Event
	return json.Marshal(struct {
		TS string `json:"ts"`
		wire
	}{
		TS:   e.Timestamp.UTC().Format(TimestampLayout),
		wire: wire(e),
	})
}

// NewEvent snapshots the session and identity into an event.
func NewEvent(at time.Time, id Identity, s *Session, reason Reason, page, sessionID string) Event {
	return Event{
		Timestamp:   at,
		Email:       id.Email,
		Team:        id.Team,
		ComplaintID: s.ItemID,
		Source:      s.Source,
		Section:     s.Section,
		Reason:      reason,
		ActiveMs:    s.ActiveMs,
		IdleMs:      s.IdleMs,
		Page:        page,
		SessionID:   sessionID,
	}
}
