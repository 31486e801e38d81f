package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"

	apperrors "focusboard/backend/internal/errors"
	"focusboard/backend/internal/model"
	"focusboard/backend/internal/pomodoro"
	"focusboard/backend/internal/recorder"
	"focusboard/backend/internal/repository"
	"focusboard/backend/internal/timer"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	flushTimeout        = 2 * time.Second
)

// PomodoroService owns one timer controller per user for the lifetime of the
// process. Controllers are created lazily from the user's stored settings.
type PomodoroService struct {
	tx           transactor.Transactor
	settingsRepo *repository.SettingsRepository
	recorder     *recorder.Recorder
	defaults     timer.Settings
	options      pomodoro.Options
	logger       *log.Logger

	mu          sync.Mutex
	controllers map[string]*pomodoro.Controller
}

type StateView struct {
	SessionType     timer.SessionType `json:"sessionType"`
	CurrentTime     int               `json:"currentTime"`
	TotalTime       int               `json:"totalTime"`
	IsRunning       bool              `json:"isRunning"`
	IsPaused        bool              `json:"isPaused"`
	CurrentTaskID   *string           `json:"currentTaskId,omitempty"`
	SessionCount    int               `json:"sessionCount"`
	ProgressPercent float64           `json:"progressPercent"`
	FormattedTime   string            `json:"formattedTime"`
	Settings        timer.Settings    `json:"settings"`
	Version         int               `json:"version"`
	HistoryError    string            `json:"historyError,omitempty"`
	ServerTime      time.Time         `json:"serverTime"`
}

type HistoryView struct {
	Sessions           []model.PomodoroSession `json:"sessions"`
	HistoryUnavailable bool                    `json:"historyUnavailable"`
}

type UpdateSettingsInput struct {
	BaseVersion int
	Patch       timer.SettingsPatch
}

func NewPomodoroService(
	tx transactor.Transactor,
	settingsRepo *repository.SettingsRepository,
	rec *recorder.Recorder,
	defaults timer.Settings,
	options pomodoro.Options,
	logger *log.Logger,
) *PomodoroService {
	return &PomodoroService{
		tx:           tx,
		settingsRepo: settingsRepo,
		recorder:     rec,
		defaults:     defaults,
		options:      options,
		logger:       logger,
		controllers:  make(map[string]*pomodoro.Controller),
	}
}

func (s *PomodoroService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	ctrl, apiErr := s.controllerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	view := s.toStateView(userID, ctrl.Snapshot())
	return &view, nil
}

func (s *PomodoroService) Start(ctx context.Context, userID string, taskID *string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.control(ctx, userID, func(ctrl *pomodoro.Controller) (pomodoro.Snapshot, error) {
		return ctrl.Start(taskID, baseVersion)
	})
}

func (s *PomodoroService) Pause(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.control(ctx, userID, func(ctrl *pomodoro.Controller) (pomodoro.Snapshot, error) {
		return ctrl.Pause(baseVersion)
	})
}

func (s *PomodoroService) Resume(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.control(ctx, userID, func(ctrl *pomodoro.Controller) (pomodoro.Snapshot, error) {
		return ctrl.Resume(baseVersion)
	})
}

func (s *PomodoroService) Stop(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.control(ctx, userID, func(ctrl *pomodoro.Controller) (pomodoro.Snapshot, error) {
		return ctrl.Stop(baseVersion)
	})
}

// UpdateSettings applies a partial settings change. The merged settings are
// written inside the controller's update, so storage and the live engine only
// change together. A running countdown keeps its length.
func (s *PomodoroService) UpdateSettings(ctx context.Context, userID string, input UpdateSettingsInput) (*StateView, *apperrors.APIError) {
	ctrl, apiErr := s.controllerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	persist := func(next timer.Settings) error {
		now := time.Now().UTC()
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.settingsRepo.Save(ctx, toSettingsRecord(userID, next, now))
		})
	}

	snapshot, err := ctrl.UpdateSettingsWith(input.Patch, input.BaseVersion, persist)
	if err != nil {
		return nil, s.mapControlError(userID, snapshot, err)
	}
	view := s.toStateView(userID, snapshot)
	return &view, nil
}

// GetHistory waits briefly for in-flight session events to be recorded, then
// reads the history. A storage failure yields an empty, flagged result.
func (s *PomodoroService) GetHistory(ctx context.Context, userID string, limit int) (*HistoryView, *apperrors.APIError) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	if ctrl := s.existingController(userID); ctrl != nil {
		flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
		if err := ctrl.Flush(flushCtx); err != nil {
			s.logger.Warn("history read before pending events were recorded", "userID", userID, "err", err)
		}
		cancel()
	}

	sessions, err := s.recorder.FetchSessions(ctx, userID, limit)
	if err != nil {
		return &HistoryView{Sessions: []model.PomodoroSession{}, HistoryUnavailable: true}, nil
	}
	return &HistoryView{Sessions: sessions}, nil
}

// Shutdown stops every controller and flushes queued session events.
func (s *PomodoroService) Shutdown() {
	s.mu.Lock()
	controllers := s.controllers
	s.controllers = make(map[string]*pomodoro.Controller)
	s.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Close()
	}
}

func (s *PomodoroService) control(
	ctx context.Context,
	userID string,
	op func(*pomodoro.Controller) (pomodoro.Snapshot, error),
) (*StateView, *apperrors.APIError) {
	ctrl, apiErr := s.controllerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	snapshot, err := op(ctrl)
	if err != nil {
		return nil, s.mapControlError(userID, snapshot, err)
	}
	view := s.toStateView(userID, snapshot)
	return &view, nil
}

func (s *PomodoroService) controllerFor(ctx context.Context, userID string) (*pomodoro.Controller, *apperrors.APIError) {
	if userID == "" {
		return nil, apperrors.Unauthorized("")
	}
	if ctrl := s.existingController(userID); ctrl != nil {
		return ctrl, nil
	}

	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load timer settings", "userID", userID, "err", err)
		return nil, apperrors.Internal("failed to load timer settings")
	}

	ctrl, err := pomodoro.NewController(userID, settings, s.recorder, s.options)
	if err != nil {
		s.logger.Warn("stored settings invalid, using defaults", "userID", userID, "err", err)
		ctrl, err = pomodoro.NewController(userID, s.defaults, s.recorder, s.options)
		if err != nil {
			return nil, apperrors.Internal("failed to initialize timer")
		}
	}

	s.mu.Lock()
	existing, ok := s.controllers[userID]
	if !ok {
		s.controllers[userID] = ctrl
	}
	s.mu.Unlock()

	// Another request created the controller while settings were loading.
	if ok {
		ctrl.Close()
		return existing, nil
	}
	return ctrl, nil
}

func (s *PomodoroService) existingController(userID string) *pomodoro.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controllers[userID]
}

func (s *PomodoroService) loadSettings(ctx context.Context, userID string) (timer.Settings, error) {
	stored, err := s.settingsRepo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return timer.Settings{}, err
	}
	return fromSettingsRecord(stored), nil
}

func (s *PomodoroService) mapControlError(userID string, snapshot pomodoro.Snapshot, err error) *apperrors.APIError {
	switch {
	case errors.Is(err, pomodoro.ErrVersionConflict):
		return s.conflict(userID, snapshot)
	case errors.Is(err, timer.ErrInvalidSettings):
		return apperrors.BadRequest("invalid_settings", err.Error())
	case errors.Is(err, pomodoro.ErrClosed):
		return apperrors.Unavailable("timer_unavailable", "timer is shutting down")
	default:
		s.logger.Error("timer update failed", "userID", userID, "err", err)
		return apperrors.Internal("")
	}
}

func (s *PomodoroService) conflict(userID string, snapshot pomodoro.Snapshot) *apperrors.APIError {
	view := s.toStateView(userID, snapshot)
	return apperrors.Conflict("state_conflict", "state changed on another device", map[string]interface{}{
		"state": view,
	})
}

func (s *PomodoroService) toStateView(userID string, snapshot pomodoro.Snapshot) StateView {
	state := snapshot.State
	view := StateView{
		SessionType:     state.SessionType,
		CurrentTime:     state.CurrentTime,
		TotalTime:       state.TotalTime,
		IsRunning:       state.IsRunning,
		IsPaused:        state.IsPaused,
		CurrentTaskID:   state.CurrentTaskID,
		SessionCount:    state.SessionCount,
		ProgressPercent: timer.ProgressPercent(state.TotalTime, state.CurrentTime),
		FormattedTime:   timer.FormatClock(state.CurrentTime),
		Settings:        snapshot.Settings,
		Version:         snapshot.Version,
		ServerTime:      time.Now().UTC(),
	}
	if err := s.recorder.LastError(userID); err != nil {
		view.HistoryError = "session history could not be saved"
	}
	return view
}

func toSettingsRecord(userID string, settings timer.Settings, now time.Time) *model.TimerSettings {
	return &model.TimerSettings{
		UserID:                 userID,
		WorkDuration:           settings.WorkDuration,
		ShortBreakDuration:     settings.ShortBreakDuration,
		LongBreakDuration:      settings.LongBreakDuration,
		SessionsUntilLongBreak: settings.SessionsUntilLongBreak,
		AutoStartBreaks:        settings.AutoStartBreaks,
		AutoStartWork:          settings.AutoStartWork,
		UpdatedAt:              now,
	}
}

func fromSettingsRecord(record *model.TimerSettings) timer.Settings {
	return timer.Settings{
		WorkDuration:           record.WorkDuration,
		ShortBreakDuration:     record.ShortBreakDuration,
		LongBreakDuration:      record.LongBreakDuration,
		SessionsUntilLongBreak: record.SessionsUntilLongBreak,
		AutoStartBreaks:        record.AutoStartBreaks,
		AutoStartWork:          record.AutoStartWork,
	}
}
