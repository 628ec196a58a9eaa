package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/vitrine/internal/playback"
	"github.com/stwalsh4118/vitrine/internal/schedule"
)

func twoImagePlaylist() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "a", "content_path": "a.png", "content_type": "image", "duration": 5},
			{"id": "b", "content_path": "b.png", "content_type": "image", "duration": 10},
		},
	}
}

func TestGetState_ExplicitElapsed(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sections/"+created.ID+"/playlist", twoImagePlaylist()).Code)

	tests := []struct {
		elapsed    string
		wantIndex  int
		wantOffset int64
		wantCycle  int64
	}{
		{"0", 0, 0, 0},
		{"4999", 0, 4999, 0},
		{"5000", 1, 0, 0},
		{"22000", 1, 2000, 1},
		{"30000", 0, 0, 2},
	}

	for _, tt := range tests {
		t.Run("elapsed "+tt.elapsed, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state?elapsed_ms="+tt.elapsed, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			snapshot := decode[schedule.Snapshot](t, w)
			assert.Equal(t, schedule.StatusPlaying, snapshot.Status)
			assert.Equal(t, int64(15000), snapshot.TotalDurationMs)
			require.NotNil(t, snapshot.Position)
			assert.Equal(t, tt.wantIndex, snapshot.Position.ActiveIndex)
			assert.Equal(t, tt.wantOffset, snapshot.Position.OffsetMs)
			assert.Equal(t, tt.wantCycle, snapshot.Position.Cycle)

			visible := 0
			for i, item := range snapshot.Items {
				if !item.Hidden {
					visible++
					assert.Equal(t, tt.wantIndex, i)
				}
			}
			assert.Equal(t, 1, visible)
			assert.True(t, snapshot.Items[(tt.wantIndex+1)%2].Preload)
		})
	}
}

func TestGetState_SectionClock(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC().Add(-7*time.Second))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sections/"+created.ID+"/playlist", twoImagePlaylist()).Code)

	w := env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	snapshot := decode[schedule.Snapshot](t, w)
	assert.GreaterOrEqual(t, snapshot.ElapsedMs, int64(7000))
	assert.Equal(t, 1, snapshot.Position.ActiveIndex)
}

func TestGetState_EmptyPlaylist(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC())

	w := env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state?elapsed_ms=1000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	snapshot := decode[schedule.Snapshot](t, w)
	assert.Equal(t, schedule.StatusEmpty, snapshot.Status)
	assert.Equal(t, int64(0), snapshot.TotalDurationMs)
	assert.Empty(t, snapshot.Items)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestGetState_BeforeStart(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC().Add(time.Hour))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sections/"+created.ID+"/playlist", twoImagePlaylist()).Code)

	w := env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	snapshot := decode[schedule.Snapshot](t, w)
	assert.Equal(t, schedule.StatusNotStarted, snapshot.Status)
	assert.Nil(t, snapshot.Position)
	for _, item := range snapshot.Items {
		assert.True(t, item.Hidden)
	}
}

func TestGetState_Errors(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC())

	w := env.do(t, http.MethodGet, "/api/sections/"+uuid.New().String()+"/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state?elapsed_ms=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_elapsed", decode[ErrorResponse](t, w).Error)
}

func TestGetState_ProbedDurations(t *testing.T) {
	prober := playback.ProberFunc(func(_ context.Context, src string) (int64, error) {
		if src == "broken.mp4" {
			return 0, assert.AnError
		}
		return 8000, nil
	})
	env := setupTestEnv(t, prober)
	created := env.createSection(t, "Lobby", time.Now().UTC())

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "clip", "content_path": "clip.mp4", "content_type": "video", "duration": "auto"},
			{"id": "broken", "content_path": "broken.mp4", "content_type": "video", "duration": "auto"},
		},
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sections/"+created.ID+"/playlist", body).Code)

	w := env.do(t, http.MethodGet, "/api/sections/"+created.ID+"/state?elapsed_ms=9000", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	snapshot := decode[schedule.Snapshot](t, w)
	assert.Equal(t, int64(8000+playback.DefaultFallbackMs), snapshot.TotalDurationMs)
	assert.Equal(t, int64(8000), snapshot.Items[0].DurationMs)
	assert.Equal(t, playback.DefaultFallbackMs, snapshot.Items[1].DurationMs)
	assert.Equal(t, 1, snapshot.Position.ActiveIndex)
	assert.Equal(t, int64(1000), snapshot.Position.OffsetMs)
}

func TestGetState_PlaylistReplacementStartsNewGeneration(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC())
	playlistPath := "/api/sections/" + created.ID + "/playlist"
	statePath := "/api/sections/" + created.ID + "/state?elapsed_ms=0"

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, playlistPath, twoImagePlaylist()).Code)
	first := decode[schedule.Snapshot](t, env.do(t, http.MethodGet, statePath, nil))

	single := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "only", "content_path": "only.png", "content_type": "image", "duration": 3},
		},
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, playlistPath, single).Code)
	second := decode[schedule.Snapshot](t, env.do(t, http.MethodGet, statePath, nil))

	assert.Greater(t, second.Generation, first.Generation)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "only", second.Items[0].ID)
	assert.Equal(t, "only-copy", second.Items[1].ID)
	assert.Equal(t, int64(6000), second.TotalDurationMs)
}

func TestStream_PushesSnapshots(t *testing.T) {
	env := setupTestEnv(t, nil)
	created := env.createSection(t, "Lobby", time.Now().UTC())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sections/"+created.ID+"/playlist", twoImagePlaylist()).Code)

	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sections/" + created.ID + "/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var previous int64 = -1
	for i := 0; i < 3; i++ {
		var snapshot schedule.Snapshot
		require.NoError(t, ws.ReadJSON(&snapshot))
		assert.Equal(t, created.ID, snapshot.SectionID.String())
		assert.Equal(t, int64(15000), snapshot.TotalDurationMs)
		assert.GreaterOrEqual(t, snapshot.ElapsedMs, previous)
		previous = snapshot.ElapsedMs
	}
}

func TestStream_UnknownSection(t *testing.T) {
	env := setupTestEnv(t, nil)

	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sections/" + uuid.New().String() + "/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
