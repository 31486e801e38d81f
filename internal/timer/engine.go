// Package timer implements the pomodoro countdown as a synchronous state
// reducer. Callers feed it control operations and one Tick per elapsed
// second; every operation returns the lifecycle events it produced.
package timer

import (
	"errors"
	"fmt"
)

type SessionType string

const (
	SessionWork       SessionType = "work"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

func (t SessionType) Valid() bool {
	return t == SessionWork || t == SessionShortBreak || t == SessionLongBreak
}

func (t SessionType) IsBreak() bool {
	return t == SessionShortBreak || t == SessionLongBreak
}

const (
	DefaultWorkDuration           = 25
	DefaultShortBreakDuration     = 5
	DefaultLongBreakDuration      = 15
	DefaultSessionsUntilLongBreak = 4
)

var ErrInvalidSettings = errors.New("invalid timer settings")

// Settings holds durations in minutes.
type Settings struct {
	WorkDuration           int  `json:"workDuration"`
	ShortBreakDuration     int  `json:"shortBreakDuration"`
	LongBreakDuration      int  `json:"longBreakDuration"`
	SessionsUntilLongBreak int  `json:"sessionsUntilLongBreak"`
	AutoStartBreaks        bool `json:"autoStartBreaks"`
	AutoStartWork          bool `json:"autoStartWork"`
}

func DefaultSettings() Settings {
	return Settings{
		WorkDuration:           DefaultWorkDuration,
		ShortBreakDuration:     DefaultShortBreakDuration,
		LongBreakDuration:      DefaultLongBreakDuration,
		SessionsUntilLongBreak: DefaultSessionsUntilLongBreak,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.WorkDuration <= 0:
		return fmt.Errorf("%w: work duration must be positive", ErrInvalidSettings)
	case s.ShortBreakDuration <= 0:
		return fmt.Errorf("%w: short break duration must be positive", ErrInvalidSettings)
	case s.LongBreakDuration <= 0:
		return fmt.Errorf("%w: long break duration must be positive", ErrInvalidSettings)
	case s.SessionsUntilLongBreak <= 0:
		return fmt.Errorf("%w: sessions until long break must be positive", ErrInvalidSettings)
	}
	return nil
}

// DurationSeconds returns the configured length of a session type.
func (s Settings) DurationSeconds(t SessionType) int {
	switch t {
	case SessionShortBreak:
		return s.ShortBreakDuration * 60
	case SessionLongBreak:
		return s.LongBreakDuration * 60
	default:
		return s.WorkDuration * 60
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	WorkDuration           *int  `json:"workDuration,omitempty"`
	ShortBreakDuration     *int  `json:"shortBreakDuration,omitempty"`
	LongBreakDuration      *int  `json:"longBreakDuration,omitempty"`
	SessionsUntilLongBreak *int  `json:"sessionsUntilLongBreak,omitempty"`
	AutoStartBreaks        *bool `json:"autoStartBreaks,omitempty"`
	AutoStartWork          *bool `json:"autoStartWork,omitempty"`
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.WorkDuration != nil {
		s.WorkDuration = *p.WorkDuration
	}
	if p.ShortBreakDuration != nil {
		s.ShortBreakDuration = *p.ShortBreakDuration
	}
	if p.LongBreakDuration != nil {
		s.LongBreakDuration = *p.LongBreakDuration
	}
	if p.SessionsUntilLongBreak != nil {
		s.SessionsUntilLongBreak = *p.SessionsUntilLongBreak
	}
	if p.AutoStartBreaks != nil {
		s.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartWork != nil {
		s.AutoStartWork = *p.AutoStartWork
	}
	return s
}

type State struct {
	SessionType   SessionType `json:"sessionType"`
	CurrentTime   int         `json:"currentTime"`
	TotalTime     int         `json:"totalTime"`
	IsRunning     bool        `json:"isRunning"`
	IsPaused      bool        `json:"isPaused"`
	CurrentTaskID *string     `json:"currentTaskId,omitempty"`
	SessionCount  int         `json:"sessionCount"`
}

func (s State) Idle() bool {
	return !s.IsRunning && !s.IsPaused
}

func (s State) Equal(other State) bool {
	if s.CurrentTaskID == nil || other.CurrentTaskID == nil {
		if s.CurrentTaskID != other.CurrentTaskID {
			return false
		}
	} else if *s.CurrentTaskID != *other.CurrentTaskID {
		return false
	}
	return s.SessionType == other.SessionType &&
		s.CurrentTime == other.CurrentTime &&
		s.TotalTime == other.TotalTime &&
		s.IsRunning == other.IsRunning &&
		s.IsPaused == other.IsPaused &&
		s.SessionCount == other.SessionCount
}

// Engine is not safe for concurrent use; callers serialize access.
type Engine struct {
	settings Settings
	state    State
}

func New(settings Settings) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	total := settings.DurationSeconds(SessionWork)
	return &Engine{
		settings: settings,
		state: State{
			SessionType: SessionWork,
			CurrentTime: total,
			TotalTime:   total,
		},
	}, nil
}

func (e *Engine) State() State {
	state := e.state
	if state.CurrentTaskID != nil {
		taskID := *state.CurrentTaskID
		state.CurrentTaskID = &taskID
	}
	return state
}

func (e *Engine) Settings() Settings {
	return e.settings
}

func (e *Engine) Start(taskID *string) []Event {
	if !e.state.Idle() {
		return nil
	}
	if taskID != nil {
		id := *taskID
		taskID = &id
	}
	e.state.CurrentTaskID = taskID
	return []Event{e.begin()}
}

func (e *Engine) Tick() []Event {
	if !e.state.IsRunning {
		return nil
	}
	if e.state.CurrentTime > 0 {
		e.state.CurrentTime--
	}
	if e.state.CurrentTime > 0 {
		return nil
	}
	return e.complete()
}

func (e *Engine) Pause() []Event {
	if !e.state.IsRunning {
		return nil
	}
	e.state.IsRunning = false
	e.state.IsPaused = true
	return nil
}

func (e *Engine) Resume() []Event {
	if !e.state.IsPaused {
		return nil
	}
	e.state.IsPaused = false
	e.state.IsRunning = true
	return nil
}

func (e *Engine) Stop() []Event {
	if e.state.Idle() {
		return nil
	}
	elapsed := e.state.TotalTime - e.state.CurrentTime
	event := Event{
		SessionType: e.state.SessionType,
		TotalTime:   e.state.TotalTime,
		Elapsed:     elapsed,
		TaskID:      e.state.CurrentTaskID,
	}
	if elapsed > 0 {
		event.Type = EventSessionInterrupted
	} else {
		event.Type = EventSessionDiscarded
	}

	e.state.IsRunning = false
	e.state.IsPaused = false
	e.state.CurrentTaskID = nil
	e.initialize(e.state.SessionType)
	return []Event{event}
}

// UpdateSettings merges patch into the current settings. An in-flight
// countdown keeps its TotalTime; only an idle engine picks up the new
// duration immediately.
func (e *Engine) UpdateSettings(patch SettingsPatch) error {
	next := patch.Apply(e.settings)
	if err := next.Validate(); err != nil {
		return err
	}
	e.settings = next
	if e.state.Idle() {
		e.initialize(e.state.SessionType)
	}
	return nil
}

func (e *Engine) begin() Event {
	e.initialize(e.state.SessionType)
	e.state.IsRunning = true
	e.state.IsPaused = false
	return Event{
		Type:        EventSessionStarted,
		SessionType: e.state.SessionType,
		TotalTime:   e.state.TotalTime,
		TaskID:      e.state.CurrentTaskID,
	}
}

func (e *Engine) complete() []Event {
	finished := e.state.SessionType
	events := []Event{{
		Type:        EventSessionCompleted,
		SessionType: finished,
		TotalTime:   e.state.TotalTime,
		Elapsed:     e.state.TotalTime,
		TaskID:      e.state.CurrentTaskID,
	}}

	e.state.IsRunning = false
	e.state.IsPaused = false
	if finished == SessionWork {
		e.state.SessionCount++
	}

	next := NextSessionType(finished, e.state.SessionCount, e.settings.SessionsUntilLongBreak)
	if next == SessionLongBreak {
		e.state.SessionCount = 0
	}
	e.state.SessionType = next
	e.initialize(next)

	if e.autoStart(next) {
		events = append(events, e.begin())
	} else {
		e.state.CurrentTaskID = nil
	}
	return events
}

func (e *Engine) autoStart(next SessionType) bool {
	if next.IsBreak() {
		return e.settings.AutoStartBreaks
	}
	return e.settings.AutoStartWork
}

func (e *Engine) initialize(t SessionType) {
	total := e.settings.DurationSeconds(t)
	e.state.TotalTime = total
	e.state.CurrentTime = total
}

// NextSessionType applies the rotation policy after a natural completion.
// completedWork is the Work count after the finished session was counted.
func NextSessionType(finished SessionType, completedWork, sessionsUntilLongBreak int) SessionType {
	if finished != SessionWork {
		return SessionWork
	}
	if sessionsUntilLongBreak > 0 && completedWork > 0 && completedWork%sessionsUntilLongBreak == 0 {
		return SessionLongBreak
	}
	return SessionShortBreak
}
