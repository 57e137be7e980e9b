package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

type fakeAttendanceSrv struct {
	userID     string
	id         string
	attended   *bool
	goal       *float64
	createReq  dto.CreateAttendanceSubjectRequest
	updateReq  dto.UpdateAttendanceSubjectRequest
	undoErr    error
	deleted    bool
	listResult []dto.AttendanceSubjectResponse
}

func (f *fakeAttendanceSrv) List(_ context.Context, userID string) ([]dto.AttendanceSubjectResponse, error) {
	f.userID = userID
	return f.listResult, nil
}

func (f *fakeAttendanceSrv) Create(_ context.Context, userID string, req dto.CreateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error) {
	f.userID, f.createReq = userID, req
	return &dto.AttendanceSubjectResponse{AttendanceSubject: models.AttendanceSubject{ID: "a1", Name: req.Name}}, nil
}

func (f *fakeAttendanceSrv) Update(_ context.Context, userID, id string, req dto.UpdateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error) {
	f.userID, f.id, f.updateReq = userID, id, req
	return &dto.AttendanceSubjectResponse{AttendanceSubject: models.AttendanceSubject{ID: id}}, nil
}

func (f *fakeAttendanceSrv) Delete(_ context.Context, userID, id string) error {
	f.userID, f.id, f.deleted = userID, id, true
	return nil
}

func (f *fakeAttendanceSrv) Mark(_ context.Context, userID, id string, attended bool) (*dto.AttendanceSubjectResponse, error) {
	f.userID, f.id, f.attended = userID, id, &attended
	return &dto.AttendanceSubjectResponse{AttendanceSubject: models.AttendanceSubject{ID: id}}, nil
}

func (f *fakeAttendanceSrv) Undo(_ context.Context, userID, id string) (*dto.AttendanceSubjectResponse, error) {
	f.userID, f.id = userID, id
	if f.undoErr != nil {
		return nil, f.undoErr
	}
	return &dto.AttendanceSubjectResponse{AttendanceSubject: models.AttendanceSubject{ID: id}}, nil
}

func (f *fakeAttendanceSrv) Projection(_ context.Context, userID, id string, goal *float64) (*analytics.AttendanceProjection, error) {
	f.userID, f.id, f.goal = userID, id, goal
	return &analytics.AttendanceProjection{Attended: 7, Happened: 10, ClassesNeeded: 2, Reachable: true}, nil
}

func TestAttendanceHandlerRequiresUser(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendanceSrv{})

	c, w := newGinContext(http.MethodGet, "/attendance/subjects", nil)
	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttendanceHandlerListAndCreate(t *testing.T) {
	svc := &fakeAttendanceSrv{listResult: []dto.AttendanceSubjectResponse{}}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/attendance/subjects", nil)
	asStudent(c, "u1")
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", string(decodeEnvelope(t, w).Data))
	assert.Equal(t, "u1", svc.userID)

	c, w = newGinContext(http.MethodPost, "/attendance/subjects", mustJSON(t, map[string]interface{}{"name": "Physics", "attended": 3, "happened": 4}))
	asStudent(c, "u1")
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Physics", svc.createReq.Name)
	assert.Equal(t, 4, svc.createReq.Happened)
}

func TestAttendanceHandlerUpdateAndDelete(t *testing.T) {
	svc := &fakeAttendanceSrv{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodPut, "/attendance/subjects/a1", mustJSON(t, map[string]interface{}{"clear_goal": true}))
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", svc.id)
	assert.True(t, svc.updateReq.ClearGoal)

	c, _ = newGinContext(http.MethodDelete, "/attendance/subjects/a2", nil)
	c.Params = gin.Params{{Key: "id", Value: "a2"}}
	asStudent(c, "u1")
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.True(t, svc.deleted)
	assert.Equal(t, "a2", svc.id)
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &fakeAttendanceSrv{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodPost, "/attendance/subjects/a1/mark", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Mark(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.attended)

	c, w = newGinContext(http.MethodPost, "/attendance/subjects/a1/mark", []byte(`{"attended":false}`))
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Mark(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.attended)
	assert.False(t, *svc.attended)
}

func TestAttendanceHandlerUndoNothing(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendanceSrv{undoErr: appErrors.ErrNothingToUndo})

	c, w := newGinContext(http.MethodPost, "/attendance/subjects/a1/undo", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Undo(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOTHING_TO_UNDO", decodeEnvelope(t, w).Error.Code)
}

func TestAttendanceHandlerProjection(t *testing.T) {
	svc := &fakeAttendanceSrv{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/attendance/subjects/a1/projection?goal=abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Projection(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/attendance/subjects/a1/projection?goal=75", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Projection(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.goal)
	assert.Equal(t, 75.0, *svc.goal)

	c, _ = newGinContext(http.MethodGet, "/attendance/subjects/a1/projection", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	asStudent(c, "u1")
	handler.Projection(c)
	assert.Nil(t, svc.goal)
}
