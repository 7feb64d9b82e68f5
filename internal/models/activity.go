package models

import "time"

// EventKind 出入事件类型
type EventKind string

const (
	EventEnter EventKind = "enter"
	EventExit  EventKind = "exit"
)

// Activity 出入活动记录（append-only，创建后不再修改）
type Activity struct {
	ActivityID  string     `json:"activityId"`
	PersonID    string     `json:"personId"`
	RoomID      string     `json:"roomId"`
	Action      EventKind  `json:"action"`
	EnterTime   string     `json:"enterTime,omitempty"` // 事件发生时住户的计划进入时间
	ExitTime    string     `json:"exitTime,omitempty"`  // 事件发生时住户的计划离开时间
	ActualEnter *time.Time `json:"actualEnter,omitempty"`
	ActualExit  *time.Time `json:"actualExit,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
