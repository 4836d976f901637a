package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/handler"
	"github.com/whatisboom/blendroom-sub001/internal/middleware"
	"github.com/whatisboom/blendroom-sub001/internal/profile"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
	"github.com/whatisboom/blendroom-sub001/internal/service"
	"github.com/whatisboom/blendroom-sub001/internal/store"
)

type fakeCatalog struct{}

func (f *fakeCatalog) TopTracks(ctx context.Context, accessToken string, limit int) ([]domain.Track, error) {
	return []domain.Track{
		{ID: "top-1", Name: "Top One", Artists: []domain.Artist{{ID: "a1", Name: "Artist One"}}},
	}, nil
}

func (f *fakeCatalog) TopArtists(ctx context.Context, accessToken string, limit int) ([]domain.Artist, error) {
	return []domain.Artist{
		{ID: "a1", Name: "Artist One", Genres: []string{"indie"}},
	}, nil
}

func (f *fakeCatalog) ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]domain.Track, error) {
	return []domain.Track{
		{ID: "search-1", Name: query, Artists: []domain.Artist{{ID: "a9", Name: "Found"}}},
	}, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(ctx context.Context, sessionID, event string, payload interface{}) {}

type testServer struct {
	router *gin.Engine
	user   string
}

// authStub stands in for the JWT middleware, injecting the claims the real
// one would extract from a bearer token. Tests switch identity by setting
// ts.user between requests.
func (ts *testServer) authStub(c *gin.Context) {
	c.Set(middleware.CtxUserID, ts.user)
	c.Set(middleware.CtxDisplayName, "User "+ts.user)
	c.Set(middleware.CtxCatalogToken, "tok-"+ts.user)
	c.Next()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redispkg.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	cfg := config.Default()

	st := store.NewSessionStore(client, log)
	cat := &fakeCatalog{}
	analyzer := profile.NewAnalyzer(cat, redispkg.NewSingleFlightCache(client), time.Hour, 20, log)
	locks := queue.NewSessionLocks()
	generator := queue.NewGenerator(cat, queue.NewScorer(cfg.Scoring), cfg.Queue, log)
	bc := nopBroadcaster{}
	repopulator := queue.NewRepopulator(st, generator, locks, bc, cfg.Queue, log)

	regenCfg := cfg.Regen
	regenCfg.Debounce = time.Hour
	regenerator := queue.NewRegenerator(st, analyzer, generator, locks, bc, cfg.Queue, regenCfg, log)
	t.Cleanup(regenerator.Close)

	svc := service.New(st, analyzer, locks, repopulator, regenerator, bc, cat, cfg.Queue, log)

	ts := &testServer{user: "host"}
	router := gin.New()
	h := handler.New(svc, log)
	router.GET("/health", h.Health)
	api := router.Group("/api/v1")
	api.Use(ts.authStub)
	h.RegisterRoutes(api)
	ts.router = router
	return ts
}

// do performs a request as the server's current user and decodes the JSON
// response into out when it is non-nil.
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if out != nil && w.Code < http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func (ts *testServer) createSession(t *testing.T) domain.Session {
	t.Helper()
	var session domain.Session
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", nil, &session)
	require.Equal(t, http.StatusCreated, w.Code)
	return session
}

func trackPayload(id, artistID string) gin.H {
	return gin.H{"track": gin.H{
		"id":      id,
		"name":    "Track " + id,
		"artists": []gin.H{{"id": artistID, "name": "Artist " + artistID}},
	}}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndGetSession(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)
	assert.Len(t, session.Code, domain.JoinCodeLength)
	assert.Equal(t, "host", session.HostID)

	var got domain.Session
	w := ts.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil, &got)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ID, got.ID)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinFlow(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)

	ts.user = "alice"
	var joined domain.Session
	w := ts.do(t, http.MethodPost, "/api/v1/sessions/join", gin.H{"code": session.Code}, &joined)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, joined.Participants, 2)

	// Join code is required.
	w = ts.do(t, http.MethodPost, "/api/v1/sessions/join", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Joining twice conflicts.
	w = ts.do(t, http.MethodPost, "/api/v1/sessions/join", gin.H{"code": session.Code}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown code.
	w = ts.do(t, http.MethodPost, "/api/v1/sessions/join", gin.H{"code": "ZZZZZZ"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var mine domain.Session
	w = ts.do(t, http.MethodGet, "/api/v1/sessions/me", nil, &mine)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ID, mine.ID)
}

func TestLeaveSession(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/leave", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueEndpoints(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)
	base := "/api/v1/sessions/" + session.ID

	var updated domain.Session
	w := ts.do(t, http.MethodPost, base+"/queue", trackPayload("t1", "a1"), &updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, updated.Queue, 1)
	assert.True(t, updated.Queue[0].IsStable)

	// Duplicate add conflicts.
	w = ts.do(t, http.MethodPost, base+"/queue", trackPayload("t1", "a1"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Missing payload.
	w = ts.do(t, http.MethodPost, base+"/queue", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, base+"/queue", trackPayload("t2", "a2"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, base+"/queue/reorder", gin.H{"from": 1, "to": 0}, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t2", updated.Queue[0].Track.ID)

	w = ts.do(t, http.MethodDelete, base+"/queue/0", nil, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, updated.Queue, 1)
	assert.Equal(t, "t1", updated.Queue[0].Track.ID)

	// Non-numeric position.
	w = ts.do(t, http.MethodDelete, base+"/queue/first", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out of range.
	w = ts.do(t, http.MethodDelete, base+"/queue/5", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaybackAndVoting(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)
	base := "/api/v1/sessions/" + session.ID

	for _, p := range []gin.H{trackPayload("t1", "a1"), trackPayload("t2", "a2")} {
		w := ts.do(t, http.MethodPost, base+"/queue", p, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	var updated domain.Session
	w := ts.do(t, http.MethodPost, base+"/playback/next", nil, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, updated.CurrentTrack)
	assert.Equal(t, "t1", updated.CurrentTrack.Track.ID)

	// Like the playing track, then reject the repeat vote.
	w = ts.do(t, http.MethodPost, base+"/votes/like", gin.H{"track_id": "t1"}, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, updated.Votes.Like, 1)
	w = ts.do(t, http.MethodPost, base+"/votes/like", gin.H{"track_id": "t1"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// One skip vote is below the default threshold of two.
	w = ts.do(t, http.MethodPost, base+"/votes/skip", nil, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, updated.CurrentTrack)
	assert.Equal(t, "t1", updated.CurrentTrack.Track.ID)

	// A DJ can skip outright.
	w = ts.do(t, http.MethodPost, base+"/playback/skip", nil, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, updated.CurrentTrack)
	assert.Equal(t, "t2", updated.CurrentTrack.Track.ID)
	assert.Equal(t, []string{"t1"}, updated.PlayedTracks)
}

func TestSettingsAndDJEndpoints(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)
	base := "/api/v1/sessions/" + session.ID

	ts.user = "alice"
	w := ts.do(t, http.MethodPost, "/api/v1/sessions/join", gin.H{"code": session.Code}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Only the host can change settings.
	settings := gin.H{"vote_to_skip_enabled": true, "skip_vote_threshold": 3, "playback_mode": "dj_only"}
	w = ts.do(t, http.MethodPut, base+"/settings", settings, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.user = "host"
	var updated domain.Session
	w = ts.do(t, http.MethodPut, base+"/settings", settings, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, updated.Settings.SkipVoteThreshold)
	assert.Equal(t, domain.PlaybackModeDJOnly, updated.Settings.PlaybackMode)

	// In dj_only mode alice cannot queue until promoted.
	ts.user = "alice"
	w = ts.do(t, http.MethodPost, base+"/queue", trackPayload("t1", "a1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.user = "host"
	w = ts.do(t, http.MethodPost, base+"/djs", gin.H{"user_id": "alice"}, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, updated.IsDJ("alice"))

	ts.user = "alice"
	w = ts.do(t, http.MethodPost, base+"/queue", trackPayload("t1", "a1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ts.user = "host"
	w = ts.do(t, http.MethodDelete, base+"/djs/alice", nil, &updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, updated.IsDJ("alice"))
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)
	session := ts.createSession(t)

	var resp struct {
		Tracks []domain.Track `json:"tracks"`
	}
	path := fmt.Sprintf("/api/v1/sessions/%s/search?q=summer&limit=5", session.ID)
	w := ts.do(t, http.MethodGet, path, nil, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Tracks, 1)
	assert.Equal(t, "search-1", resp.Tracks[0].ID)

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID+"/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
