package httpapi

import (
	"net/http"

	"ecoovision-presence/internal/identifier"
	"ecoovision-presence/internal/models"
	"ecoovision-presence/internal/presence"
	"ecoovision-presence/internal/session"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamHandler 摄像头视频流接入：每次升级创建一个独立会话
type StreamHandler struct {
	upgrader   websocket.Upgrader
	identifier identifier.Identifier
	engine     *presence.Engine
	directory  *presence.Directory
	assetRef   string
	logger     *zap.Logger
}

// NewStreamHandler 创建视频流处理器
func NewStreamHandler(
	ident identifier.Identifier,
	engine *presence.Engine,
	directory *presence.Directory,
	assetRef string,
	logger *zap.Logger,
) *StreamHandler {
	return &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 4 * 1024,
			// 摄像头推流端不发送 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		identifier: ident,
		engine:     engine,
		directory:  directory,
		assetRef:   assetRef,
		logger:     logger,
	}
}

// ServeEnter 入口摄像头流（enter 事件）
func (h *StreamHandler) ServeEnter(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.EventEnter)
}

// ServeExit 出口摄像头流（exit 事件）
func (h *StreamHandler) ServeExit(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, models.EventExit)
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, kind models.EventKind) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade stream connection",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	s := session.New(kind, conn, h.identifier, h.engine, h.directory, h.assetRef, h.logger)
	s.Run(r.Context())
}
