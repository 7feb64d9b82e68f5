package repository

import (
	"context"
)

// StatePersister 把转换引擎的状态变更落到 PostgreSQL
// 实现 presence.Persister
type StatePersister struct {
	persons *PersonRepository
	rooms   *RoomRepository
}

// NewStatePersister 创建状态落库器
func NewStatePersister(persons *PersonRepository, rooms *RoomRepository) *StatePersister {
	return &StatePersister{
		persons: persons,
		rooms:   rooms,
	}
}

// SavePersonRoom 落库住户当前房间
func (s *StatePersister) SavePersonRoom(ctx context.Context, personID, roomID string) error {
	return s.persons.UpdateCurrentRoom(ctx, personID, roomID)
}

// SaveRoomLight 落库房间灯状态
func (s *StatePersister) SaveRoomLight(ctx context.Context, roomID string, on bool) error {
	return s.rooms.UpdateLight(ctx, roomID, on)
}

// SaveAllLightsOff 落库全屋灯全灭
func (s *StatePersister) SaveAllLightsOff(ctx context.Context) error {
	return s.rooms.TurnAllLightsOff(ctx)
}
