package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"focusboard/backend/internal/model"
)

type SettingsRepository struct {
	dbGetter txStdLib.DBGetter
}

func NewSettingsRepository(dbGetter txStdLib.DBGetter) *SettingsRepository {
	return &SettingsRepository{dbGetter: dbGetter}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*model.TimerSettings, error) {
	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		`SELECT user_id, work_duration, short_break_duration, long_break_duration,
		        sessions_until_long_break, auto_start_breaks, auto_start_work, updated_at
		 FROM timer_settings
		 WHERE user_id = ?`,
		userID,
	)

	var settings model.TimerSettings
	var updatedAt string
	err := row.Scan(
		&settings.UserID,
		&settings.WorkDuration,
		&settings.ShortBreakDuration,
		&settings.LongBreakDuration,
		&settings.SessionsUntilLongBreak,
		&settings.AutoStartBreaks,
		&settings.AutoStartWork,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse settings updated_at: %w", err)
	}
	settings.UpdatedAt = parsedUpdatedAt
	return &settings, nil
}

// Save inserts or replaces the settings row for settings.UserID.
func (r *SettingsRepository) Save(ctx context.Context, settings *model.TimerSettings) error {
	_, err := r.dbGetter(ctx).ExecContext(
		ctx,
		`INSERT INTO timer_settings (
			user_id, work_duration, short_break_duration, long_break_duration,
			sessions_until_long_break, auto_start_breaks, auto_start_work, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			work_duration = excluded.work_duration,
			short_break_duration = excluded.short_break_duration,
			long_break_duration = excluded.long_break_duration,
			sessions_until_long_break = excluded.sessions_until_long_break,
			auto_start_breaks = excluded.auto_start_breaks,
			auto_start_work = excluded.auto_start_work,
			updated_at = excluded.updated_at`,
		settings.UserID,
		settings.WorkDuration,
		settings.ShortBreakDuration,
		settings.LongBreakDuration,
		settings.SessionsUntilLongBreak,
		settings.AutoStartBreaks,
		settings.AutoStartWork,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
