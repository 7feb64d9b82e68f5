package session

import (
	"context"

	"ecoovision-presence/internal/identifier"
	"ecoovision-presence/internal/models"
	"ecoovision-presence/internal/presence"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session 单路摄像头视频流会话
// 每个连接一个实例，入口流固定产生 enter 事件，出口流固定产生 exit 事件。
// 两个会话并行运行、互不阻塞，所有共享状态的写入都经由转换引擎的串行化路径
type Session struct {
	kind       models.EventKind
	conn       *websocket.Conn
	identifier identifier.Identifier
	engine     *presence.Engine
	directory  *presence.Directory
	assetRef   string
	logger     *zap.Logger
}

// New 创建视频流会话
func New(
	kind models.EventKind,
	conn *websocket.Conn,
	ident identifier.Identifier,
	engine *presence.Engine,
	directory *presence.Directory,
	assetRef string,
	logger *zap.Logger,
) *Session {
	return &Session{
		kind:       kind,
		conn:       conn,
		identifier: ident,
		engine:     engine,
		directory:  directory,
		assetRef:   assetRef,
		logger: logger.With(
			zap.String("session_kind", string(kind)),
			zap.String("remote_addr", conn.RemoteAddr().String()),
		),
	}
}

// Run 运行会话读循环，直到连接关闭或上下文取消
// 每收到一帧二进制载荷回发且只回发一条结果消息；文本/控制帧忽略。
// 连接级错误只关闭本会话，另一路视频流不受影响
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("Stream session started")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Info("Stream session closed", zap.Error(err))
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		result := s.ProcessFrame(ctx, data)
		if err := s.conn.WriteJSON(result); err != nil {
			s.logger.Error("Failed to send frame result", zap.Error(err))
			return
		}
	}
}

// ProcessFrame 处理一帧：识别 → 按会话事件类型逐人转换 → 汇总结果
// 识别失败时丢弃本帧检测但仍返回空结果（调用方可区分失败和"无检测"）
func (s *Session) ProcessFrame(ctx context.Context, frame []byte) *models.FrameResult {
	result := &models.FrameResult{Persons: []models.PersonHit{}}

	faces, err := s.identifier.Identify(ctx, frame)
	if err != nil {
		s.logger.Error("Identifier failed, frame dropped", zap.Error(err))
		return result
	}

	result.RecognizedCount = len(faces)
	for _, face := range faces {
		// 房间归属：登记时绑定的房间（enter 和 exit 都归属到该房间）
		person, err := s.directory.Lookup(face.PersonID)
		if err != nil {
			// 未登记身份：拒绝，无副作用，结果中省略
			s.logger.Warn("Unknown identity detected",
				zap.String("person_id", face.PersonID),
			)
			continue
		}

		var outcome *presence.Outcome
		if s.kind == models.EventEnter {
			outcome, err = s.engine.Enter(ctx, face.PersonID, person.HomeRoomID)
		} else {
			outcome, err = s.engine.Exit(ctx, face.PersonID, person.HomeRoomID)
		}
		if err != nil {
			s.logger.Warn("Transition rejected",
				zap.String("person_id", face.PersonID),
				zap.String("room_id", person.HomeRoomID),
				zap.Error(err),
			)
			continue
		}

		result.Persons = append(result.Persons, models.PersonHit{
			IdentityID: face.PersonID,
			RoomID:     outcome.RoomID,
		})
	}

	if len(faces) > 0 {
		result.Asset = s.assetRef
	}
	return result
}
