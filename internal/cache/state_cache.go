package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StateCache 实时状态缓存
// 每次转换后把房间灯状态、住户位置和全屋空置标志镜像到 Redis，
// 供面板等下游读取。缓存失败不影响转换本身
type StateCache struct {
	client          *redis.Client
	roomKeyPrefix   string
	personKeyPrefix string
	houseEmptyKey   string
	ttl             time.Duration
	logger          *zap.Logger
}

// New 创建实时状态缓存
func New(client *redis.Client, roomKeyPrefix, personKeyPrefix, houseEmptyKey string, ttl time.Duration, logger *zap.Logger) *StateCache {
	return &StateCache{
		client:          client,
		roomKeyPrefix:   roomKeyPrefix,
		personKeyPrefix: personKeyPrefix,
		houseEmptyKey:   houseEmptyKey,
		ttl:             ttl,
		logger:          logger,
	}
}

// RoomKey 构建房间灯状态键
func (c *StateCache) RoomKey(roomID string) string {
	return fmt.Sprintf("%s%s:light", c.roomKeyPrefix, roomID)
}

// PersonKey 构建住户位置键
func (c *StateCache) PersonKey(personID string) string {
	return fmt.Sprintf("%s%s:room", c.personKeyPrefix, personID)
}

// SetRoomLight 写入房间灯状态
func (c *StateCache) SetRoomLight(ctx context.Context, roomID string, on bool) error {
	if err := c.client.Set(ctx, c.RoomKey(roomID), fmt.Sprintf("%t", on), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache room light: %w", err)
	}
	return nil
}

// SetPersonRoom 写入住户当前房间（空字符串表示不在屋内）
func (c *StateCache) SetPersonRoom(ctx context.Context, personID, roomID string) error {
	if err := c.client.Set(ctx, c.PersonKey(personID), roomID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache person room: %w", err)
	}
	return nil
}

// SetAllRoomLightsOff 把缓存中所有房间灯状态重置为关
// 空屋强制全灭时调用，否则非本次转换房间的缓存键会一直保留旧的开灯状态
func (c *StateCache) SetAllRoomLightsOff(ctx context.Context) error {
	pattern := c.roomKeyPrefix + "*:light"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan room light keys: %w", err)
		}
		for _, key := range keys {
			if err := c.client.Set(ctx, key, "false", c.ttl).Err(); err != nil {
				return fmt.Errorf("failed to reset room light %s: %w", key, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// SetHouseEmpty 写入全屋空置标志
func (c *StateCache) SetHouseEmpty(ctx context.Context, empty bool) error {
	if err := c.client.Set(ctx, c.houseEmptyKey, fmt.Sprintf("%t", empty), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache house-empty flag: %w", err)
	}
	return nil
}
