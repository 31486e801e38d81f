package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"focusboard/backend/internal/model"
)

const selectSessions = `SELECT id, user_id, task_id, start_time, end_time, duration_minutes,
        session_type, completed, interruptions, created_at
 FROM pomodoro_sessions`

type SessionRepository struct {
	dbGetter txStdLib.DBGetter
}

func NewSessionRepository(dbGetter txStdLib.DBGetter) *SessionRepository {
	return &SessionRepository{dbGetter: dbGetter}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *model.PomodoroSession) error {
	_, err := r.dbGetter(ctx).ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (
			id, user_id, task_id, start_time, end_time, duration_minutes,
			session_type, completed, interruptions, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		nullableString(session.TaskID),
		formatTime(session.StartTime),
		nullableTime(session.EndTime),
		session.DurationMinutes,
		session.SessionType,
		session.Completed,
		session.Interruptions,
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSession applies patch to the session with the given id. Interruptions
// are incremented in place so concurrent finalizations do not lose counts.
func (r *SessionRepository) UpdateSession(ctx context.Context, id string, patch model.SessionPatch) error {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if patch.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, formatTime(*patch.EndTime))
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.AddedInterruptions != 0 {
		sets = append(sets, "interruptions = MAX(0, interruptions + ?)")
		args = append(args, patch.AddedInterruptions)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := r.dbGetter(ctx).ExecContext(
		ctx,
		"UPDATE pomodoro_sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.dbGetter(ctx).ExecContext(ctx, `DELETE FROM pomodoro_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*model.PomodoroSession, error) {
	row := r.dbGetter(ctx).QueryRowContext(ctx, selectSessions+` WHERE id = ?`, id)
	return scanPomodoroSession(row)
}

// ListSessions returns a user's sessions, most recently started first.
func (r *SessionRepository) ListSessions(ctx context.Context, userID string, limit int) ([]model.PomodoroSession, error) {
	rows, err := r.dbGetter(ctx).QueryContext(
		ctx,
		selectSessions+`
		 WHERE user_id = ?
		 ORDER BY start_time DESC, created_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PomodoroSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanPomodoroSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPomodoroSession(s scanner) (*model.PomodoroSession, error) {
	session := model.PomodoroSession{}
	var taskID sql.NullString
	var startTime string
	var endTime sql.NullString
	var createdAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&taskID,
		&startTime,
		&endTime,
		&session.DurationMinutes,
		&session.SessionType,
		&session.Completed,
		&session.Interruptions,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if taskID.Valid {
		value := taskID.String
		session.TaskID = &value
	}

	parsedStartTime, err := parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse session start_time: %w", err)
	}
	session.StartTime = parsedStartTime

	if endTime.Valid {
		parsedEndTime, parseErr := parseTime(endTime.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session end_time: %w", parseErr)
		}
		session.EndTime = &parsedEndTime
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt

	return &session, nil
}

func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) interface{} {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}
