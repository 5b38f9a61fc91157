package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"pactly/backend/internal/directory"
	"pactly/backend/internal/recommend"
	"pactly/backend/pkg/errors"
)

type fakeRelationships struct {
	friends  []directory.Profile
	requests []directory.Profile
	err      error
}

func (f *fakeRelationships) ListFriends(ctx context.Context, userID string) ([]directory.Profile, error) {
	return f.friends, f.err
}

func (f *fakeRelationships) ListIncomingRequests(ctx context.Context, userID string) ([]directory.Profile, error) {
	return f.requests, f.err
}

func (f *fakeRelationships) SendRequest(ctx context.Context, from, to string) error {
	return f.err
}

func (f *fakeRelationships) AcceptRequest(ctx context.Context, accepter, requester string) error {
	return f.err
}

func (f *fakeRelationships) DeclineRequest(ctx context.Context, decliner, requester string) error {
	return f.err
}

type fakeEngine struct {
	suggestions []recommend.Suggestion
	err         error
	lastLimit   int
}

func (f *fakeEngine) Suggest(ctx context.Context, userID string, limit int) ([]recommend.Suggestion, error) {
	f.lastLimit = limit
	return f.suggestions, f.err
}

func testRouter(rel relationshipService, eng suggestionEngine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(zap.NewNop(), rel, eng, 10)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(&fakeRelationships{}, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestMissingIdentityIsForbidden(t *testing.T) {
	router := testRouter(&fakeRelationships{}, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/friends", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListFriends(t *testing.T) {
	rel := &fakeRelationships{friends: []directory.Profile{{UserID: "u2", Username: "bmonroe"}}}
	router := testRouter(rel, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/friends", nil)
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Friends []directory.Profile `json:"friends"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Friends, 1)
	assert.Equal(t, "bmonroe", response.Friends[0].Username)
}

func TestSendRequest_MissingBody(t *testing.T) {
	router := testRouter(&fakeRelationships{}, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/friends/requests/send", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendRequest_TransitionErrorMapsToConflict(t *testing.T) {
	rel := &fakeRelationships{err: errors.NewAlreadyFriends("u1", "u2")}
	router := testRouter(rel, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/friends/requests/send", bytes.NewBufferString(`{"user_id":"u2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAcceptRequest_UnknownUserMapsToNotFound(t *testing.T) {
	rel := &fakeRelationships{err: errors.NewUserNotFound("ghost")}
	router := testRouter(rel, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/friends/requests/accept", bytes.NewBufferString(`{"user_id":"ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeclineRequest_BackendErrorMapsToUnavailable(t *testing.T) {
	rel := &fakeRelationships{err: errors.NewBackendUnavailable("declineRequest", nil)}
	router := testRouter(rel, &fakeEngine{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/friends/requests/decline", bytes.NewBufferString(`{"user_id":"u2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSuggestions_DefaultAndExplicitLimit(t *testing.T) {
	eng := &fakeEngine{suggestions: []recommend.Suggestion{}}
	router := testRouter(&fakeRelationships{}, eng)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/friends/suggestions", nil)
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, eng.lastLimit)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/friends/suggestions?limit=3", nil)
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, eng.lastLimit)
}

func TestSuggestions_BadLimit(t *testing.T) {
	router := testRouter(&fakeRelationships{}, &fakeEngine{})

	for _, limit := range []string{"zero", "3x", "-1", "0"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/friends/suggestions?limit="+limit, nil)
		req.Header.Set("X-User-ID", "u1")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestSuggestions_EmptyIsOK(t *testing.T) {
	eng := &fakeEngine{suggestions: []recommend.Suggestion{}}
	router := testRouter(&fakeRelationships{}, eng)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/friends/suggestions", nil)
	req.Header.Set("X-User-ID", "u1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Suggestions []recommend.Suggestion `json:"suggestions"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Empty(t, response.Suggestions)
}
