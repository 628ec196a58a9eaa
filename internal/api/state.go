package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/metrics"
	"github.com/stwalsh4118/vitrine/internal/playback"
	"github.com/stwalsh4118/vitrine/internal/schedule"
	"github.com/stwalsh4118/vitrine/internal/section"
)

const (
	defaultTickInterval = 500 * time.Millisecond
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin may subscribe to section state
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateHandler serves playback snapshots of sections
type StateHandler struct {
	registry     *schedule.Registry
	tickInterval time.Duration
	timeout      time.Duration
}

// NewStateHandler creates a new state handler. timeout bounds each snapshot request.
func NewStateHandler(registry *schedule.Registry, tickInterval, timeout time.Duration) *StateHandler {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &StateHandler{
		registry:     registry,
		tickInterval: tickInterval,
		timeout:      timeout,
	}
}

// writeStateError maps snapshot errors to HTTP responses
func writeStateError(c *gin.Context, sectionID uuid.UUID, err error) {
	switch {
	case errors.Is(err, section.ErrSectionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Section not found",
		})
	case errors.Is(err, playback.ErrNotSettled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "not_settled",
			Message: "Playlist durations are still being resolved",
		})
	case errors.Is(err, schedule.ErrRegistryClosed):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "shutting_down",
			Message: "Server is shutting down",
		})
	default:
		logger.Log.Error().
			Err(err).
			Str("section_id", sectionID.String()).
			Msg("Failed to compute section state")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "state_failed",
			Message: "Failed to compute section state",
		})
	}
}

// GetState handles GET /api/sections/:id/state
func (h *StateHandler) GetState(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	var elapsed *int64
	if raw := c.Query("elapsed_ms"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_elapsed",
				Message: "elapsed_ms must be an integer number of milliseconds",
			})
			return
		}
		elapsed = &v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snapshot, err := h.registry.State(ctx, id, elapsed)
	if err != nil {
		writeStateError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Stream handles GET /api/sections/:id/stream. The connection receives a snapshot
// every tick until the client goes away.
func (h *StateHandler) Stream(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	// Resolve the first snapshot before upgrading so errors are plain HTTP responses
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	first, err := h.registry.State(ctx, id, nil)
	cancel()
	if err != nil {
		writeStateError(c, id, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("section_id", id.String()).
			Msg("WebSocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	logger.Log.Info().
		Str("section_id", id.String()).
		Str("remote_addr", c.ClientIP()).
		Msg("State stream client connected")

	done := make(chan struct{})
	go readPump(conn, done)

	if err := writeSnapshot(conn, first); err != nil {
		return
	}

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()
	lastPing := time.Now()

	for {
		select {
		case <-done:
			logger.Log.Info().
				Str("section_id", id.String()).
				Msg("State stream client disconnected")
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			snapshot, err := h.registry.State(ctx, id, nil)
			cancel()
			if err != nil {
				if errors.Is(err, playback.ErrNotSettled) {
					continue
				}
				logger.Log.Warn().
					Err(err).
					Str("section_id", id.String()).
					Msg("Closing state stream")
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
					time.Now().Add(writeWait),
				)
				return
			}

			if err := writeSnapshot(conn, snapshot); err != nil {
				return
			}

			if time.Since(lastPing) >= pingPeriod {
				lastPing = time.Now()
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot *schedule.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snapshot)
}

// readPump drains client frames so control messages are processed and closes done
// once the connection fails
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// SetupStateRoutes registers snapshot and stream routes
func SetupStateRoutes(apiGroup *gin.RouterGroup, registry *schedule.Registry, tickInterval, timeout time.Duration) {
	handler := NewStateHandler(registry, tickInterval, timeout)

	apiGroup.GET("/sections/:id/state", handler.GetState)
	apiGroup.GET("/sections/:id/stream", handler.Stream)
}
