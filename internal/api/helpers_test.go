package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/vitrine/internal/db"
	"github.com/stwalsh4118/vitrine/internal/playback"
	"github.com/stwalsh4118/vitrine/internal/schedule"
	"github.com/stwalsh4118/vitrine/internal/section"
)

// testEnv bundles a migrated database with the services the handlers need
type testEnv struct {
	db       *db.DB
	service  *section.Service
	registry *schedule.Registry
	router   *gin.Engine
}

// setupTestEnv creates a router with all section routes against a temporary database.
// prober may be nil, in which case auto items fall back immediately.
func setupTestEnv(t *testing.T, prober playback.Prober) *testEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, "file://../../migrations"))

	service := section.NewService(db.NewRepositories(database))
	registry := schedule.NewRegistry(service, playback.NewResolver(prober),
		schedule.WithSettleTimeout(2*time.Second))
	service.SetListener(registry)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	SetupHealthRoutes(apiGroup, database, nil)
	SetupSectionRoutes(apiGroup, service)
	SetupStateRoutes(apiGroup, registry, 20*time.Millisecond, 2*time.Second)

	t.Cleanup(func() {
		registry.Close()
		_ = database.Close()
	})

	return &testEnv{db: database, service: service, registry: registry, router: router}
}

// do performs a request with an optional JSON body
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createSection creates a section through the API and returns its response
func (e *testEnv) createSection(t *testing.T, name string, start time.Time) SectionResponse {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/sections", CreateSectionRequest{Name: name, StartTime: &start})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp SectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
