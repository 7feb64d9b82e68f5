package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"ecoovision-presence/internal/models"
	"ecoovision-presence/internal/presence"

	"go.uber.org/zap"
)

// ActivityLister 活动记录读取（查询面）
type ActivityLister interface {
	List(ctx context.Context, limit int) ([]models.Activity, error)
}

// PersonStore 住户登记的落库（与目录登记同步）
type PersonStore interface {
	Insert(ctx context.Context, p *models.Person) error
}

// PresenceHandler 管理面 API：登记住户、查询房间和活动
type PresenceHandler struct {
	directory  *presence.Directory
	registry   *presence.Registry
	persons    PersonStore
	activities ActivityLister
	logger     *zap.Logger
}

// NewPresenceHandler 创建管理面处理器
// persons / activities 允许为 nil（无数据库的联调部署）
func NewPresenceHandler(
	directory *presence.Directory,
	registry *presence.Registry,
	persons PersonStore,
	activities ActivityLister,
	logger *zap.Logger,
) *PresenceHandler {
	return &PresenceHandler{
		directory:  directory,
		registry:   registry,
		persons:    persons,
		activities: activities,
		logger:     logger,
	}
}

// RegisterPerson 登记新住户
// POST /api/v1/persons
func (h *PresenceHandler) RegisterPerson(w http.ResponseWriter, r *http.Request) {
	var p models.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.PersonID == "" || p.Name == "" || p.HomeRoomID == "" {
		writeError(w, http.StatusBadRequest, "personId, name and homeRoomId are required")
		return
	}
	if _, err := h.registry.Get(p.HomeRoomID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown room: "+p.HomeRoomID)
		return
	}

	// 新登记的住户初始在屋外
	p.CurrentRoomID = ""
	p.InHouse = false

	if err := h.directory.Register(p); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if h.persons != nil {
		if err := h.persons.Insert(r.Context(), &p); err != nil {
			// 回滚内存登记，否则修好数据库后重试会返回已登记冲突
			h.directory.Unregister(p.PersonID)
			h.logger.Error("Failed to persist registered person",
				zap.String("person_id", p.PersonID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to persist person")
			return
		}
	}

	h.logger.Info("Person registered",
		zap.String("person_id", p.PersonID),
		zap.String("home_room_id", p.HomeRoomID),
	)
	writeJSON(w, http.StatusCreated, p)
}

// GetRooms 查询全部房间及灯状态
// GET /api/v1/rooms
func (h *PresenceHandler) GetRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// GetActivities 查询最近的活动记录
// GET /api/v1/activities?limit=N
func (h *PresenceHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	if h.activities == nil {
		writeJSON(w, http.StatusOK, []models.Activity{})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	activities, err := h.activities.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list activities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
