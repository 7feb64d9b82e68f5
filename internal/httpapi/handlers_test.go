package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecoovision-presence/internal/httpapi"
	"ecoovision-presence/internal/models"
	"ecoovision-presence/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePersonStore 记录落库的住户
type fakePersonStore struct {
	inserted []models.Person
	err      error
}

func (f *fakePersonStore) Insert(ctx context.Context, p *models.Person) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, *p)
	return nil
}

// fakeActivityLister 固定返回预设记录
type fakeActivityLister struct {
	activities []models.Activity
}

func (f *fakeActivityLister) List(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit < len(f.activities) {
		return f.activities[:limit], nil
	}
	return f.activities, nil
}

func newTestRouter(store *fakePersonStore, lister *fakeActivityLister) (*httpapi.Router, *presence.Directory) {
	directory := presence.NewDirectory([]models.Person{
		{PersonID: "p1", Name: "Sara", HomeRoomID: "r1"},
	})
	registry := presence.NewRegistry([]models.Room{
		{RoomID: "r1", RoomName: "Living Room"},
	})

	logger := zap.NewNop()
	router := httpapi.NewRouter(logger)

	var ps httpapi.PersonStore
	if store != nil {
		ps = store
	}
	var al httpapi.ActivityLister
	if lister != nil {
		al = lister
	}
	router.RegisterPresenceRoutes(httpapi.NewPresenceHandler(directory, registry, ps, al, logger))
	return router, directory
}

func TestRegisterPerson(t *testing.T) {
	store := &fakePersonStore{}
	router, directory := newTestRouter(store, nil)

	body := `{"personId":"p9","name":"Nora","homeRoomId":"r1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	person, err := directory.Lookup("p9")
	require.NoError(t, err)
	assert.Equal(t, "Nora", person.Name)
	assert.False(t, person.InHouse)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "p9", store.inserted[0].PersonID)
}

func TestRegisterPerson_InsertFailureRollsBackAndAllowsRetry(t *testing.T) {
	store := &fakePersonStore{err: errors.New("db down")}
	router, directory := newTestRouter(store, nil)

	body := `{"personId":"p9","name":"Nora","homeRoomId":"r1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// 落库失败回滚内存登记
	_, err := directory.Lookup("p9")
	require.Error(t, err)

	// 数据库恢复后重试必须成功，而不是已登记冲突
	store.err = nil
	req = httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "p9", store.inserted[0].PersonID)
}

func TestRegisterPerson_MissingFields(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(`{"name":"NoID"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPerson_UnknownRoom(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	body := `{"personId":"p9","name":"Nora","homeRoomId":"attic"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPerson_Duplicate(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	body := `{"personId":"p1","name":"Sara","homeRoomId":"r1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterPerson_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/persons", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetRooms(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].RoomID)
}

func TestGetActivities(t *testing.T) {
	now := time.Now()
	lister := &fakeActivityLister{activities: []models.Activity{
		{ActivityID: "a1", PersonID: "p1", RoomID: "r1", Action: models.EventEnter, ActualEnter: &now, CreatedAt: now},
	}}
	router, _ := newTestRouter(nil, lister)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities?limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var activities []models.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activities))
	require.Len(t, activities, 1)
	assert.Equal(t, "a1", activities[0].ActivityID)
}

func TestGetActivities_NoStore(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
