package models

// Person 已登记的住户
// CurrentRoomID 为空字符串表示不在屋内；InHouse 必须与之保持一致，
// 只有 TransitionEngine 的序列化写路径可以修改这两个字段
type Person struct {
	PersonID      string `json:"personId"`
	Name          string `json:"name"`
	About         string `json:"about,omitempty"`
	HomeRoomID    string `json:"homeRoomId"`              // 登记时绑定的房间
	CurrentRoomID string `json:"currentRoomId,omitempty"` // 当前所在房间
	InHouse       bool   `json:"inHouse"`
	EnterTime     string `json:"enterTime,omitempty"` // 计划进入时间（HH:MM）
	ExitTime      string `json:"exitTime,omitempty"`  // 计划离开时间（HH:MM）
}
