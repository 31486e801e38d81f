package timer

type EventType string

const (
	EventSessionStarted     EventType = "session_started"
	EventSessionCompleted   EventType = "session_completed"
	EventSessionInterrupted EventType = "session_interrupted"
	// EventSessionDiscarded is emitted when a session is stopped before any
	// second elapsed.
	EventSessionDiscarded EventType = "session_discarded"
)

// Event describes a session lifecycle transition. TotalTime and Elapsed are
// in seconds.
type Event struct {
	Type          EventType   `json:"type"`
	SessionType   SessionType `json:"sessionType"`
	TotalTime     int         `json:"totalTime"`
	Elapsed       int         `json:"elapsed"`
	TaskID        *string     `json:"taskId,omitempty"`
	Interruptions int         `json:"interruptions"`
}

// PlannedMinutes is the planned session length rounded up to whole minutes.
func (e Event) PlannedMinutes() int {
	return (e.TotalTime + 59) / 60
}
