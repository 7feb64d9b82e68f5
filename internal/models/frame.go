package models

// RecognizedFace 识别服务返回的单个人脸
// Box 为边界框 [top, right, bottom, left]
type RecognizedFace struct {
	PersonID string `json:"personId"`
	Box      [4]int `json:"box"`
}

// PersonHit 单帧中被接受的一次出入事件
type PersonHit struct {
	IdentityID string `json:"identityId"`
	RoomID     string `json:"roomId"`
}

// FrameResult 每处理一帧回发一条
// 未识别到任何人时 RecognizedCount=0、Asset 为空（调用方以此区分"无检测"和"无帧"）
type FrameResult struct {
	RecognizedCount int         `json:"recognizedCount"`
	Persons         []PersonHit `json:"persons"`
	Asset           string      `json:"asset,omitempty"`
}
