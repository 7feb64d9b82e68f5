package presence

import (
	"errors"
	"fmt"
	"sync"

	"ecoovision-presence/internal/models"
)

// ErrPersonNotFound 目录中不存在该住户
var ErrPersonNotFound = errors.New("person not found")

// Directory 住户目录（Identity Directory）
// 启动时从 persons 表加载，进程内唯一写路径是 TransitionEngine（通过 AssignRoom）
type Directory struct {
	mu      sync.RWMutex
	persons map[string]*models.Person
}

// NewDirectory 创建住户目录
func NewDirectory(persons []models.Person) *Directory {
	d := &Directory{
		persons: make(map[string]*models.Person, len(persons)),
	}
	for i := range persons {
		p := persons[i]
		// 加载时不做隐式重置，保留数据库中的在屋状态
		p.InHouse = p.CurrentRoomID != ""
		d.persons[p.PersonID] = &p
	}
	return d
}

// Lookup 查询住户（返回副本）
func (d *Directory) Lookup(personID string) (models.Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.persons[personID]
	if !ok {
		return models.Person{}, fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}
	return *p, nil
}

// Register 登记新住户（管理面调用）
func (d *Directory) Register(p models.Person) error {
	if p.PersonID == "" {
		return fmt.Errorf("person_id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.persons[p.PersonID]; ok {
		return fmt.Errorf("person already registered: %s", p.PersonID)
	}
	p.InHouse = p.CurrentRoomID != ""
	d.persons[p.PersonID] = &p
	return nil
}

// Unregister 移除住户
// 登记落库失败时回滚内存登记用，保证重试不会撞上已登记冲突
func (d *Directory) Unregister(personID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.persons, personID)
}

// AssignRoom 修改住户当前房间，返回之前的房间ID
// roomID 为空字符串表示离屋；InHouse 同步更新，保证两者永远一致
// 必须只在 TransitionEngine 的按住户串行化临界区内调用
func (d *Directory) AssignRoom(personID, roomID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.persons[personID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}

	prev := p.CurrentRoomID
	p.CurrentRoomID = roomID
	p.InHouse = roomID != ""
	return prev, nil
}

// HouseEmpty 扫描所有住户的房间引用，无人在屋时返回 true
// 目录锁保证扫描不会观察到写到一半的记录
func (d *Directory) HouseEmpty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.persons {
		if p.CurrentRoomID != "" {
			return false
		}
	}
	return true
}

// List 返回全部住户（副本）
func (d *Directory) List() []models.Person {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Person, 0, len(d.persons))
	for _, p := range d.persons {
		out = append(out, *p)
	}
	return out
}
