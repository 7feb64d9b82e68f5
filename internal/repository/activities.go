package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ecoovision-presence/internal/models"

	"go.uber.org/zap"
)

// ActivityRepository 活动记录仓库（append-only）
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityRepository 创建活动记录仓库
func NewActivityRepository(db *sql.DB, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 写入一条活动记录
func (r *ActivityRepository) Insert(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activities (activity_id, person_id, room_id, action, enter_time, exit_time, actual_enter, actual_exit, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ActivityID,
		a.PersonID,
		a.RoomID,
		string(a.Action),
		a.EnterTime,
		a.ExitTime,
		a.ActualEnter,
		a.ActualExit,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// List 按时间倒序返回最近的活动记录
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			activity_id,
			person_id,
			room_id,
			action,
			COALESCE(enter_time, ''),
			COALESCE(exit_time, ''),
			actual_enter,
			actual_exit,
			created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var action string
		if err := rows.Scan(
			&a.ActivityID,
			&a.PersonID,
			&a.RoomID,
			&action,
			&a.EnterTime,
			&a.ExitTime,
			&a.ActualEnter,
			&a.ActualExit,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Action = models.EventKind(action)
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}

	return activities, nil
}
