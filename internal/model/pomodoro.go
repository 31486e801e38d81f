package model

import "time"

// PomodoroSession is a recorded work or break interval. It is created when
// the session starts and finalized once it completes or is stopped.
type PomodoroSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	TaskID          *string    `json:"taskId,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	SessionType     string     `json:"sessionType"`
	Completed       bool       `json:"completed"`
	Interruptions   int        `json:"interruptions"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// SessionPatch is a partial update of a session record.
type SessionPatch struct {
	EndTime            *time.Time
	Completed          *bool
	AddedInterruptions int
}

// TimerSettings is the persisted per-user timer configuration, in minutes.
type TimerSettings struct {
	UserID                 string    `json:"userId"`
	WorkDuration           int       `json:"workDuration"`
	ShortBreakDuration     int       `json:"shortBreakDuration"`
	LongBreakDuration      int       `json:"longBreakDuration"`
	SessionsUntilLongBreak int       `json:"sessionsUntilLongBreak"`
	AutoStartBreaks        bool      `json:"autoStartBreaks"`
	AutoStartWork          bool      `json:"autoStartWork"`
	UpdatedAt              time.Time `json:"updatedAt"`
}
