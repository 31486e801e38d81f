package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, settings Settings) *Engine {
	t.Helper()
	engine, err := New(settings)
	require.NoError(t, err)
	return engine
}

func tickN(e *Engine, n int) []Event {
	var events []Event
	for i := 0; i < n; i++ {
		events = append(events, e.Tick()...)
	}
	return events
}

func TestNew_DefaultsToIdleWork(t *testing.T) {
	engine := newEngine(t, DefaultSettings())

	state := engine.State()
	assert.Equal(t, SessionWork, state.SessionType)
	assert.Equal(t, 1500, state.TotalTime)
	assert.Equal(t, 1500, state.CurrentTime)
	assert.True(t, state.Idle())
	assert.Zero(t, state.SessionCount)
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.SessionsUntilLongBreak = 0

	_, err := New(settings)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestStart_EmitsSessionStarted(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	taskID := "task-1"

	events := engine.Start(&taskID)

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionStarted, events[0].Type)
	assert.Equal(t, SessionWork, events[0].SessionType)
	assert.Equal(t, 1500, events[0].TotalTime)
	require.NotNil(t, events[0].TaskID)
	assert.Equal(t, "task-1", *events[0].TaskID)

	state := engine.State()
	assert.True(t, state.IsRunning)
	assert.False(t, state.IsPaused)
	require.NotNil(t, state.CurrentTaskID)
	assert.Equal(t, "task-1", *state.CurrentTaskID)
}

func TestStart_IgnoredWhenNotIdle(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	engine.Start(nil)
	tickN(engine, 10)

	assert.Empty(t, engine.Start(nil))
	assert.Equal(t, 1490, engine.State().CurrentTime)

	engine.Pause()
	assert.Empty(t, engine.Start(nil))
	assert.True(t, engine.State().IsPaused)
	assert.Equal(t, 1490, engine.State().CurrentTime)
}

func TestTick_NonIncreasingAndNeverNegative(t *testing.T) {
	settings := DefaultSettings()
	settings.WorkDuration = 1
	engine := newEngine(t, settings)
	engine.Start(nil)

	previous := engine.State().CurrentTime
	for i := 0; i < 59; i++ {
		engine.Tick()
		current := engine.State().CurrentTime
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, 0)
		previous = current
	}
	assert.Equal(t, 1, engine.State().CurrentTime)
}

func TestTick_NoopWhenIdle(t *testing.T) {
	engine := newEngine(t, DefaultSettings())

	assert.Empty(t, engine.Tick())
	assert.Equal(t, 1500, engine.State().CurrentTime)
}

func TestPause_AbsorbsTicks(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	engine.Start(nil)
	tickN(engine, 30)
	engine.Pause()
	paused := engine.State().CurrentTime

	assert.Empty(t, tickN(engine, 100))
	engine.Resume()

	state := engine.State()
	assert.Equal(t, paused, state.CurrentTime)
	assert.True(t, state.IsRunning)
	assert.False(t, state.IsPaused)
}

func TestPauseResume_NoopOutsideValidStates(t *testing.T) {
	engine := newEngine(t, DefaultSettings())

	engine.Pause()
	assert.True(t, engine.State().Idle())
	engine.Resume()
	assert.True(t, engine.State().Idle())

	engine.Start(nil)
	engine.Resume()
	assert.True(t, engine.State().IsRunning)
	assert.False(t, engine.State().IsPaused)
}

func TestTick_CompletionEmitsEventAndRotates(t *testing.T) {
	settings := DefaultSettings()
	settings.WorkDuration = 1
	engine := newEngine(t, settings)
	taskID := "task-9"
	engine.Start(&taskID)

	events := tickN(engine, 60)

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionCompleted, events[0].Type)
	assert.Equal(t, SessionWork, events[0].SessionType)
	assert.Equal(t, 60, events[0].TotalTime)
	assert.Zero(t, events[0].Interruptions)
	require.NotNil(t, events[0].TaskID)
	assert.Equal(t, "task-9", *events[0].TaskID)

	state := engine.State()
	assert.True(t, state.Idle())
	assert.Equal(t, SessionShortBreak, state.SessionType)
	assert.Equal(t, 300, state.TotalTime)
	assert.Equal(t, 300, state.CurrentTime)
	assert.Equal(t, 1, state.SessionCount)
	assert.Nil(t, state.CurrentTaskID)
}

func TestRotation_LongBreakEveryFourthWork(t *testing.T) {
	settings := Settings{
		WorkDuration:           1,
		ShortBreakDuration:     1,
		LongBreakDuration:      2,
		SessionsUntilLongBreak: 4,
	}
	engine := newEngine(t, settings)

	for i := 1; i <= 4; i++ {
		require.Equal(t, SessionWork, engine.State().SessionType)
		engine.Start(nil)
		tickN(engine, 60)

		state := engine.State()
		if i < 4 {
			assert.Equal(t, SessionShortBreak, state.SessionType, "completion %d", i)
			assert.Equal(t, i, state.SessionCount)
			engine.Start(nil)
			tickN(engine, 60)
			assert.Equal(t, i, engine.State().SessionCount, "break must not count")
		} else {
			assert.Equal(t, SessionLongBreak, state.SessionType)
			assert.Zero(t, state.SessionCount)
			assert.Equal(t, 120, state.TotalTime)
		}
	}

	engine.Start(nil)
	tickN(engine, 120)
	assert.Equal(t, SessionWork, engine.State().SessionType)
}

func TestStop_EmitsInterruptedAndResets(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	engine.Start(nil)
	tickN(engine, 1490)
	require.Equal(t, 10, engine.State().CurrentTime)

	events := engine.Stop()

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionInterrupted, events[0].Type)
	assert.Equal(t, 1490, events[0].Elapsed)
	assert.Equal(t, SessionWork, events[0].SessionType)

	state := engine.State()
	assert.True(t, state.Idle())
	assert.Equal(t, SessionWork, state.SessionType)
	assert.Equal(t, 1500, state.TotalTime)
	assert.Equal(t, state.TotalTime, state.CurrentTime)
	assert.Zero(t, state.SessionCount, "manual stop does not count toward long break")
}

func TestStop_FromPaused(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	engine.Start(nil)
	tickN(engine, 5)
	engine.Pause()

	events := engine.Stop()

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionInterrupted, events[0].Type)
	assert.Equal(t, 5, events[0].Elapsed)
	assert.True(t, engine.State().Idle())
}

func TestStop_WithoutElapsedTimeDiscards(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	engine.Start(nil)

	events := engine.Stop()

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionDiscarded, events[0].Type)
	assert.Zero(t, events[0].Elapsed)
}

func TestStop_NoopWhenIdle(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	assert.Empty(t, engine.Stop())
}

func TestUpdateSettings_DoesNotChangeInFlightSession(t *testing.T) {
	settings := DefaultSettings()
	settings.ShortBreakDuration = 1
	engine := newEngine(t, settings)
	engine.Start(nil)
	tickN(engine, 100)

	work := 50
	require.NoError(t, engine.UpdateSettings(SettingsPatch{WorkDuration: &work}))

	state := engine.State()
	assert.Equal(t, 1500, state.TotalTime)
	assert.Equal(t, 1400, state.CurrentTime)
	assert.Equal(t, 50, engine.Settings().WorkDuration)

	tickN(engine, 1400)
	require.Equal(t, SessionShortBreak, engine.State().SessionType)
	engine.Start(nil)
	tickN(engine, 60)
	require.Equal(t, SessionWork, engine.State().SessionType)

	engine.Start(nil)
	assert.Equal(t, 3000, engine.State().TotalTime)
}

func TestUpdateSettings_RefreshesIdleDuration(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	work := 45

	require.NoError(t, engine.UpdateSettings(SettingsPatch{WorkDuration: &work}))

	assert.Equal(t, 2700, engine.State().TotalTime)
	assert.Equal(t, 2700, engine.State().CurrentTime)
}

func TestUpdateSettings_RejectsInvalidAndKeepsPrevious(t *testing.T) {
	engine := newEngine(t, DefaultSettings())
	zero := 0
	negative := -5

	err := engine.UpdateSettings(SettingsPatch{WorkDuration: &negative})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	err = engine.UpdateSettings(SettingsPatch{SessionsUntilLongBreak: &zero})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	assert.Equal(t, DefaultSettings(), engine.Settings())
}

func TestAutoStart_AdvancesIntoNextSession(t *testing.T) {
	settings := Settings{
		WorkDuration:           1,
		ShortBreakDuration:     1,
		LongBreakDuration:      1,
		SessionsUntilLongBreak: 4,
		AutoStartBreaks:        true,
	}
	engine := newEngine(t, settings)
	engine.Start(nil)

	events := tickN(engine, 60)

	require.Len(t, events, 2)
	assert.Equal(t, EventSessionCompleted, events[0].Type)
	assert.Equal(t, EventSessionStarted, events[1].Type)
	assert.Equal(t, SessionShortBreak, events[1].SessionType)
	assert.True(t, engine.State().IsRunning)

	events = tickN(engine, 60)
	require.Len(t, events, 1)
	assert.Equal(t, SessionShortBreak, events[0].SessionType)
	assert.True(t, engine.State().Idle(), "work does not auto start")
}

func TestNextSessionType(t *testing.T) {
	tests := []struct {
		name      string
		finished  SessionType
		completed int
		interval  int
		want      SessionType
	}{
		{"first work", SessionWork, 1, 4, SessionShortBreak},
		{"fourth work", SessionWork, 4, 4, SessionLongBreak},
		{"eighth work", SessionWork, 8, 4, SessionLongBreak},
		{"every work", SessionWork, 1, 1, SessionLongBreak},
		{"short break", SessionShortBreak, 4, 4, SessionWork},
		{"long break", SessionLongBreak, 0, 4, SessionWork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSessionType(tt.finished, tt.completed, tt.interval))
		})
	}
}
