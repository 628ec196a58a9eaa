//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/vitrine/internal/config"
	"github.com/stwalsh4118/vitrine/internal/db"
	"github.com/stwalsh4118/vitrine/internal/server"
)

// migrationsPath returns the migrations directory relative to this file so tests work
// regardless of working directory
func migrationsPath(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)              // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir)) // module root
	return "file://" + filepath.Join(rootDir, "migrations")
}

// testConfig returns a configuration suitable for in-process servers
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Logging: config.LoggingConfig{Level: "info"},
		Playback: config.PlaybackConfig{
			FallbackDurationMs:    10000,
			ProbeTimeout:          10 * time.Second,
			ProbeConcurrency:      4,
			FFprobePath:           "ffprobe",
			TickInterval:          50 * time.Millisecond,
			SettleTimeout:         20 * time.Second,
			ProbeFailureThreshold: 5,
			ProbeBreakerReset:     time.Minute,
		},
	}
}

// setupServer starts the full HTTP stack against a temporary database
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err, "Failed to create database")

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")
	require.NoError(t, db.RunMigrations(sqlDB, migrationsPath(t)), "Failed to run migrations")

	srv := server.New(testConfig(), database, nil)
	httpServer := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		httpServer.Close()
		_ = srv.Shutdown(context.Background())
		_ = database.Close()
	})

	return httpServer
}

// requireFFmpeg skips the test when the ffmpeg toolchain is not installed
func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed, skipping test", bin)
		}
	}
}

// createTestVideo renders a short test pattern video and returns its path
func createTestVideo(t *testing.T, durationSeconds int) string {
	t.Helper()
	requireFFmpeg(t)

	videoPath := filepath.Join(t.TempDir(), fmt.Sprintf("pattern_%ds.mp4", durationSeconds))

	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=25", durationSeconds),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-t", fmt.Sprintf("%d", durationSeconds),
		"-y",
		videoPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to create test video: %v\nOutput: %s", err, string(output))
	}

	return videoPath
}

// doJSON sends a request with an optional JSON body and decodes the response into out
func doJSON(t *testing.T, method, url string, body, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}
