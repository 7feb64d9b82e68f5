package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ecoovision-presence/internal/models"

	"go.uber.org/zap"
)

// PersonRepository 住户仓库
type PersonRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPersonRepository 创建住户仓库
func NewPersonRepository(db *sql.DB, logger *zap.Logger) *PersonRepository {
	return &PersonRepository{
		db:     db,
		logger: logger,
	}
}

// LoadAll 加载全部住户（启动时目录引导）
func (r *PersonRepository) LoadAll(ctx context.Context) ([]models.Person, error) {
	query := `
		SELECT
			person_id,
			name,
			COALESCE(about, ''),
			home_room_id,
			COALESCE(current_room_id, ''),
			COALESCE(enter_time, ''),
			COALESCE(exit_time, '')
		FROM persons
		ORDER BY person_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(
			&p.PersonID,
			&p.Name,
			&p.About,
			&p.HomeRoomID,
			&p.CurrentRoomID,
			&p.EnterTime,
			&p.ExitTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		p.InHouse = p.CurrentRoomID != ""
		persons = append(persons, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", err)
	}

	return persons, nil
}

// Insert 新增住户（登记）
func (r *PersonRepository) Insert(ctx context.Context, p *models.Person) error {
	if p.PersonID == "" {
		return fmt.Errorf("person_id is required")
	}

	query := `
		INSERT INTO persons (person_id, name, about, home_room_id, current_room_id, in_house, enter_time, exit_time)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''))
	`

	_, err := r.db.ExecContext(ctx, query,
		p.PersonID,
		p.Name,
		p.About,
		p.HomeRoomID,
		p.CurrentRoomID,
		p.CurrentRoomID != "",
		p.EnterTime,
		p.ExitTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	return nil
}

// UpdateCurrentRoom 更新住户当前房间（roomID 为空表示离屋）
// in_house 列与 current_room_id 在同一条语句内保持一致
func (r *PersonRepository) UpdateCurrentRoom(ctx context.Context, personID, roomID string) error {
	query := `
		UPDATE persons
		SET current_room_id = NULLIF($2, ''),
		    in_house = ($2 <> '')
		WHERE person_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, personID, roomID)
	if err != nil {
		return fmt.Errorf("failed to update person room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("person not found: %s", personID)
	}

	return nil
}
