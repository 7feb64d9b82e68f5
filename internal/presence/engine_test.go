package presence_test

import (
	"context"
	"sync"
	"testing"

	"ecoovision-presence/internal/ledger"
	"ecoovision-presence/internal/models"
	"ecoovision-presence/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(persons []models.Person, rooms []models.Room) (*presence.Engine, *presence.Directory, *presence.Registry, *ledger.Memory) {
	directory := presence.NewDirectory(persons)
	registry := presence.NewRegistry(rooms)
	mem := ledger.NewMemory()
	engine := presence.NewEngine(directory, registry, mem, nil, nil, nil, zap.NewNop())
	return engine, directory, registry, mem
}

func testPersons() []models.Person {
	return []models.Person{
		{PersonID: "p1", Name: "Sara", HomeRoomID: "r1", EnterTime: "08:00", ExitTime: "17:00"},
		{PersonID: "p2", Name: "Omar", HomeRoomID: "r1"},
		{PersonID: "p3", Name: "Lina", HomeRoomID: "r2"},
	}
}

func testRooms() []models.Room {
	return []models.Room{
		{RoomID: "r1", RoomName: "Living Room"},
		{RoomID: "r2", RoomName: "Bedroom"},
	}
}

func TestEngine_EnterThenExit(t *testing.T) {
	engine, directory, registry, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	// enter
	outcome, err := engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", outcome.Person.CurrentRoomID)
	assert.True(t, outcome.Person.InHouse)
	assert.False(t, outcome.HouseEmpty)

	room, err := registry.Get("r1")
	require.NoError(t, err)
	assert.True(t, room.LightStatus)

	// exit
	outcome, err = engine.Exit(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "", outcome.Person.CurrentRoomID)
	assert.False(t, outcome.Person.InHouse)
	assert.True(t, outcome.HouseEmpty)

	room, err = registry.Get("r1")
	require.NoError(t, err)
	assert.False(t, room.LightStatus)

	person, err := directory.Lookup("p1")
	require.NoError(t, err)
	assert.False(t, person.InHouse)

	// 两条活动记录：enter 带 actual_enter，exit 带 actual_exit，计划时间从住户拷贝
	activities := mem.Activities()
	require.Len(t, activities, 2)
	assert.Equal(t, models.EventEnter, activities[0].Action)
	assert.NotNil(t, activities[0].ActualEnter)
	assert.Nil(t, activities[0].ActualExit)
	assert.Equal(t, "08:00", activities[0].EnterTime)
	assert.Equal(t, "17:00", activities[0].ExitTime)
	assert.Equal(t, models.EventExit, activities[1].Action)
	assert.Nil(t, activities[1].ActualEnter)
	assert.NotNil(t, activities[1].ActualExit)
}

func TestEngine_RepeatedEnterIsAcceptedWithoutToggling(t *testing.T) {
	engine, _, registry, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)
	room, _ := registry.Get("r1")
	assert.True(t, room.LightStatus)

	// 重复进入：仍接受、仍追加记录，灯保持开
	_, err = engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)
	room, _ = registry.Get("r1")
	assert.True(t, room.LightStatus)

	assert.Len(t, mem.Activities(), 2)
}

func TestEngine_UnknownPersonRejectedWithoutSideEffects(t *testing.T) {
	engine, directory, registry, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "ghost-id", "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, presence.ErrPersonNotFound)

	assert.Empty(t, mem.Activities())
	room, _ := registry.Get("r1")
	assert.False(t, room.LightStatus)
	assert.True(t, directory.HouseEmpty())
}

func TestEngine_UnknownRoomRejectedWithoutSideEffects(t *testing.T) {
	engine, directory, _, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "p1", "attic")
	require.Error(t, err)
	assert.ErrorIs(t, err, presence.ErrRoomNotFound)

	assert.Empty(t, mem.Activities())
	person, _ := directory.Lookup("p1")
	assert.False(t, person.InHouse)
}

func TestEngine_SecondOccupantKeepsHouseOccupied(t *testing.T) {
	engine, _, registry, _ := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)
	_, err = engine.Enter(ctx, "p2", "r1")
	require.NoError(t, err)

	// p1 离开：灯状态直接跟随事件（关），但屋内还有 p2，聚合不触发
	outcome, err := engine.Exit(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.False(t, outcome.HouseEmpty)

	// p2 离开：全屋空置，聚合覆盖强制全灭
	outcome, err = engine.Exit(ctx, "p2", "r1")
	require.NoError(t, err)
	assert.True(t, outcome.HouseEmpty)

	for _, room := range registry.List() {
		assert.False(t, room.LightStatus, "room %s light must be off when house is empty", room.RoomID)
	}
}

func TestEngine_ExitAttributedToDifferentRoomWins(t *testing.T) {
	// last-detection-wins：exit 归属的房间与目录记录不一致时直接覆盖
	engine, directory, registry, _ := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)

	outcome, err := engine.Exit(ctx, "p1", "r2")
	require.NoError(t, err)
	assert.True(t, outcome.HouseEmpty)

	person, _ := directory.Lookup("p1")
	assert.False(t, person.InHouse)
	assert.Equal(t, "", person.CurrentRoomID)

	// 最后一人离开后聚合覆盖生效，r1 上刚写入的开灯状态也被清掉
	for _, room := range registry.List() {
		assert.False(t, room.LightStatus)
	}
}

func TestEngine_HouseEmptyOverridesStaleLight(t *testing.T) {
	engine, _, registry, _ := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	_, err := engine.Enter(ctx, "p1", "r1")
	require.NoError(t, err)
	_, err = engine.Enter(ctx, "p3", "r2")
	require.NoError(t, err)

	_, err = engine.Exit(ctx, "p1", "r1")
	require.NoError(t, err)

	// 模拟在最后一次 exit 之前抢先写入的灯状态
	require.NoError(t, registry.SetLight("r1", true))

	outcome, err := engine.Exit(ctx, "p3", "r2")
	require.NoError(t, err)
	require.True(t, outcome.HouseEmpty)

	for _, room := range registry.List() {
		assert.False(t, room.LightStatus)
	}
}

func TestEngine_ConcurrentSameIdentityNeverTearsState(t *testing.T) {
	engine, directory, _, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := engine.Enter(ctx, "p1", "r1")
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := engine.Exit(ctx, "p1", "r2")
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	// 终态必须是 INSIDE(r1) 或 OUTSIDE，绝不能出现 in_house 与房间引用不一致
	person, err := directory.Lookup("p1")
	require.NoError(t, err)
	assert.Equal(t, person.CurrentRoomID != "", person.InHouse)
	if person.InHouse {
		assert.Equal(t, "r1", person.CurrentRoomID)
	}

	// 同一住户的转换全序执行：每次都被接受并留痕
	assert.Len(t, mem.Activities(), 2*rounds)
}

func TestEngine_DifferentIdentitiesProceedInParallel(t *testing.T) {
	engine, directory, _, mem := newTestEngine(testPersons(), testRooms())
	ctx := context.Background()

	const rounds = 100
	var wg sync.WaitGroup
	for _, id := range []string{"p1", "p2", "p3"} {
		wg.Add(1)
		go func(personID string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				person, err := directory.Lookup(personID)
				assert.NoError(t, err)
				if i%2 == 0 {
					_, err = engine.Enter(ctx, personID, person.HomeRoomID)
				} else {
					_, err = engine.Exit(ctx, personID, person.HomeRoomID)
				}
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Len(t, mem.Activities(), 3*rounds)
	for _, p := range directory.List() {
		assert.Equal(t, p.CurrentRoomID != "", p.InHouse)
	}
}
