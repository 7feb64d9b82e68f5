package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ecoovision-presence/internal/models"

	"go.uber.org/zap"
)

// RoomRepository 房间仓库
type RoomRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoomRepository 创建房间仓库
func NewRoomRepository(db *sql.DB, logger *zap.Logger) *RoomRepository {
	return &RoomRepository{
		db:     db,
		logger: logger,
	}
}

// LoadAll 加载全部房间（启动时注册表引导）
func (r *RoomRepository) LoadAll(ctx context.Context) ([]models.Room, error) {
	query := `
		SELECT room_id, room_name, light_status
		FROM rooms
		ORDER BY room_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.RoomID, &room.RoomName, &room.LightStatus); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// UpdateLight 更新房间灯状态
func (r *RoomRepository) UpdateLight(ctx context.Context, roomID string, on bool) error {
	query := `UPDATE rooms SET light_status = $2 WHERE room_id = $1`

	result, err := r.db.ExecContext(ctx, query, roomID, on)
	if err != nil {
		return fmt.Errorf("failed to update room light: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room not found: %s", roomID)
	}

	return nil
}

// TurnAllLightsOff 关闭所有房间灯（空屋聚合覆盖）
func (r *RoomRepository) TurnAllLightsOff(ctx context.Context) error {
	query := `UPDATE rooms SET light_status = false`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to turn all lights off: %w", err)
	}

	return nil
}
