package presence

import (
	"context"
	"sync"
	"time"

	"ecoovision-presence/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger 活动台账（append-only）
type Ledger interface {
	Append(ctx context.Context, activity *models.Activity) error
}

// Persister 将状态变更落库（PostgreSQL）
// 内存模型是权威状态，落库失败只记录日志，不回滚内存
type Persister interface {
	SavePersonRoom(ctx context.Context, personID, roomID string) error
	SaveRoomLight(ctx context.Context, roomID string, on bool) error
	SaveAllLightsOff(ctx context.Context) error
}

// LightPublisher 灯控命令下发（MQTT）
type LightPublisher interface {
	PublishLight(roomID string, on bool) error
	PublishAllOff() error
}

// StateCache 实时状态缓存（Redis，供面板等下游读取）
type StateCache interface {
	SetRoomLight(ctx context.Context, roomID string, on bool) error
	SetAllRoomLightsOff(ctx context.Context) error
	SetPersonRoom(ctx context.Context, personID, roomID string) error
	SetHouseEmpty(ctx context.Context, empty bool) error
}

// Outcome 单次转换的结果
type Outcome struct {
	Person     models.Person
	RoomID     string
	HouseEmpty bool
	Activity   *models.Activity
}

// Engine 转换引擎（Transition Engine）
// Directory 和 Registry 的唯一写路径。同一住户的转换按到达顺序全序执行
// （按住户互斥锁），不同住户的转换可以完全并行
type Engine struct {
	directory *Directory
	registry  *Registry
	ledger    Ledger
	persister Persister
	cache     StateCache
	lights    LightPublisher
	logger    *zap.Logger

	mu            sync.Mutex
	identityLocks map[string]*sync.Mutex
}

// NewEngine 创建转换引擎
// persister / cache / lights 允许为 nil（测试或精简部署）
func NewEngine(
	directory *Directory,
	registry *Registry,
	ledger Ledger,
	persister Persister,
	cache StateCache,
	lights LightPublisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		directory:     directory,
		registry:      registry,
		ledger:        ledger,
		persister:     persister,
		cache:         cache,
		lights:        lights,
		logger:        logger,
		identityLocks: make(map[string]*sync.Mutex),
	}
}

// Enter 处理进入事件
// 前置条件：住户存在、房间存在。重复进入同一房间照常接受并产生新的活动记录
func (e *Engine) Enter(ctx context.Context, personID, roomID string) (*Outcome, error) {
	return e.apply(ctx, personID, roomID, models.EventEnter)
}

// Exit 处理离开事件
// 按 last-detection-wins 语义：离开事件归属的房间可以与目录当前记录不一致，
// 以最新检测为准，直接覆盖
func (e *Engine) Exit(ctx context.Context, personID, roomID string) (*Outcome, error) {
	return e.apply(ctx, personID, roomID, models.EventExit)
}

// apply 执行一次原子转换：校验 → 改目录/注册表 → 追加活动 → 重算全屋空置
func (e *Engine) apply(ctx context.Context, personID, roomID string, kind models.EventKind) (*Outcome, error) {
	// 按住户串行化：同一住户来自两路视频流的同时检测不能交错读写房间引用
	lock := e.identityLock(personID)
	lock.Lock()
	defer lock.Unlock()

	// 1. 校验前置条件（失败则零副作用）
	person, err := e.directory.Lookup(personID)
	if err != nil {
		return nil, err
	}
	if _, err := e.registry.Get(roomID); err != nil {
		return nil, err
	}

	// 2. 修改住户房间引用
	target := roomID
	if kind == models.EventExit {
		target = ""
		if person.CurrentRoomID != "" && person.CurrentRoomID != roomID {
			e.logger.Warn("Exit attributed to a different room than recorded",
				zap.String("person_id", personID),
				zap.String("recorded_room", person.CurrentRoomID),
				zap.String("event_room", roomID),
			)
		}
	}
	if _, err := e.directory.AssignRoom(personID, target); err != nil {
		return nil, err
	}

	// 3. 灯状态直接跟随事件类型（enter=开，exit=关）
	on := kind == models.EventEnter
	if err := e.registry.SetLight(roomID, on); err != nil {
		return nil, err
	}

	// 4. 追加活动记录（每次检测都是一次独立观察）
	activity := e.buildActivity(&person, roomID, kind)
	if err := e.ledger.Append(ctx, activity); err != nil {
		// 台账失败不撕裂内存状态，记录后继续
		e.logger.Error("Failed to append activity",
			zap.String("person_id", personID),
			zap.String("room_id", roomID),
			zap.String("action", string(kind)),
			zap.Error(err),
		)
	}

	// 5. 重算全屋空置，空屋时强制全灭
	houseEmpty := e.registry.RecomputeHouseEmpty(e.directory)

	// 6. 落库 + 缓存 + 灯控（尽力而为，失败只记日志）
	e.persist(ctx, personID, target, roomID, on, houseEmpty)
	e.mirror(ctx, personID, target, roomID, on, houseEmpty)
	e.publishLights(roomID, on, houseEmpty)

	updated, err := e.directory.Lookup(personID)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Transition applied",
		zap.String("person_id", personID),
		zap.String("room_id", roomID),
		zap.String("action", string(kind)),
		zap.Bool("house_empty", houseEmpty),
	)

	return &Outcome{
		Person:     updated,
		RoomID:     roomID,
		HouseEmpty: houseEmpty,
		Activity:   activity,
	}, nil
}

// buildActivity 构造活动记录，计划时间从住户记录拷贝
func (e *Engine) buildActivity(person *models.Person, roomID string, kind models.EventKind) *models.Activity {
	now := time.Now()
	activity := &models.Activity{
		ActivityID: uuid.New().String(),
		PersonID:   person.PersonID,
		RoomID:     roomID,
		Action:     kind,
		EnterTime:  person.EnterTime,
		ExitTime:   person.ExitTime,
		CreatedAt:  now,
	}
	if kind == models.EventEnter {
		activity.ActualEnter = &now
	} else {
		activity.ActualExit = &now
	}
	return activity
}

func (e *Engine) persist(ctx context.Context, personID, target, roomID string, on, houseEmpty bool) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SavePersonRoom(ctx, personID, target); err != nil {
		e.logger.Error("Failed to persist person room", zap.String("person_id", personID), zap.Error(err))
	}
	if err := e.persister.SaveRoomLight(ctx, roomID, on); err != nil {
		e.logger.Error("Failed to persist room light", zap.String("room_id", roomID), zap.Error(err))
	}
	if houseEmpty {
		if err := e.persister.SaveAllLightsOff(ctx); err != nil {
			e.logger.Error("Failed to persist all-lights-off", zap.Error(err))
		}
	}
}

func (e *Engine) mirror(ctx context.Context, personID, target, roomID string, on, houseEmpty bool) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetPersonRoom(ctx, personID, target); err != nil {
		e.logger.Warn("Failed to cache person room", zap.String("person_id", personID), zap.Error(err))
	}
	if err := e.cache.SetRoomLight(ctx, roomID, on && !houseEmpty); err != nil {
		e.logger.Warn("Failed to cache room light", zap.String("room_id", roomID), zap.Error(err))
	}
	// 空屋强制全灭必须覆盖缓存里的所有房间键，而不止本次转换的房间，
	// 否则其他房间的旧开灯状态会一直留在缓存里
	if houseEmpty {
		if err := e.cache.SetAllRoomLightsOff(ctx); err != nil {
			e.logger.Warn("Failed to cache all-lights-off", zap.Error(err))
		}
	}
	if err := e.cache.SetHouseEmpty(ctx, houseEmpty); err != nil {
		e.logger.Warn("Failed to cache house-empty flag", zap.Error(err))
	}
}

func (e *Engine) publishLights(roomID string, on, houseEmpty bool) {
	if e.lights == nil {
		return
	}
	if houseEmpty {
		if err := e.lights.PublishAllOff(); err != nil {
			e.logger.Warn("Failed to publish all-off light command", zap.Error(err))
		}
		return
	}
	if err := e.lights.PublishLight(roomID, on); err != nil {
		e.logger.Warn("Failed to publish light command", zap.String("room_id", roomID), zap.Error(err))
	}
}

// identityLock 获取某住户的转换锁（按需创建）
func (e *Engine) identityLock(personID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.identityLocks[personID]
	if !ok {
		lock = &sync.Mutex{}
		e.identityLocks[personID] = lock
	}
	return lock
}
