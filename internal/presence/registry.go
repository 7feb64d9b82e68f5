package presence

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"ecoovision-presence/internal/models"
)

// ErrRoomNotFound 注册表中不存在该房间
var ErrRoomNotFound = errors.New("room not found")

// Registry 房间注册表（Room Registry）
// 持有每个房间的灯状态，参与全屋空置聚合
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

// NewRegistry 创建房间注册表
func NewRegistry(rooms []models.Room) *Registry {
	r := &Registry{
		rooms: make(map[string]*models.Room, len(rooms)),
	}
	for i := range rooms {
		room := rooms[i]
		r.rooms[room.RoomID] = &room
	}
	return r
}

// Get 查询房间（返回副本）
func (r *Registry) Get(roomID string) (models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return *room, nil
}

// SetLight 设置房间灯状态
func (r *Registry) SetLight(roomID string, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	room.LightStatus = on
	return nil
}

// RecomputeHouseEmpty 重算全屋空置聚合
// 空屋时强制关闭所有房间灯（聚合覆盖优先于单次转换刚写入的灯状态）
// 扫描和覆盖在同一把注册表锁内完成，避免观察到撕裂的中间状态
func (r *Registry) RecomputeHouseEmpty(dir *Directory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty := dir.HouseEmpty()
	if empty {
		for _, room := range r.rooms {
			room.LightStatus = false
		}
	}
	return empty
}

// List 返回全部房间（副本，按ID排序）
func (r *Registry) List() []models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, *room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
