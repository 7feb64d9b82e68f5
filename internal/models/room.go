package models

// Room 房间
type Room struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	LightStatus bool   `json:"lightStatus"`
}
