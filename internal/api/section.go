package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/models"
	"github.com/stwalsh4118/vitrine/internal/playback"
	"github.com/stwalsh4118/vitrine/internal/section"
)

const requestTimeout = 5 * time.Second

// Request/Response DTOs

// CreateSectionRequest represents a request to create a new section
type CreateSectionRequest struct {
	Name      string     `json:"name" binding:"required"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

// UpdateSectionRequest represents a request to update section metadata (partial update)
type UpdateSectionRequest struct {
	Name      *string    `json:"name,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

// SectionResponse represents a section in API responses
type SectionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectionListResponse represents a list of sections
type SectionListResponse struct {
	Sections []*SectionResponse `json:"sections"`
}

// PlaylistRequest replaces a section's playlist
type PlaylistRequest struct {
	Items []playback.PlaylistItem `json:"items"`
}

// PlaylistResponse represents a section's stored playlist
type PlaylistResponse struct {
	SectionID string                  `json:"section_id"`
	Items     []playback.PlaylistItem `json:"items"`
}

// SectionHandler handles section and playlist API requests
type SectionHandler struct {
	service *section.Service
}

// NewSectionHandler creates a new section handler instance
func NewSectionHandler(service *section.Service) *SectionHandler {
	return &SectionHandler{service: service}
}

// toSectionResponse converts a section model to API response format
func toSectionResponse(s *models.Section) *SectionResponse {
	return &SectionResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		StartTime: s.StartTime,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// writeSectionError maps section service errors to HTTP responses
func writeSectionError(c *gin.Context, err error, action string) {
	switch {
	case section.IsSectionNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Section not found",
		})
	case section.IsDuplicateName(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_name",
			Message: "A section with this name already exists",
		})
	case errors.Is(err, section.ErrInvalidName):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_name",
			Message: err.Error(),
		})
	case section.IsInvalidItem(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_item",
			Message: err.Error(),
		})
	default:
		logger.Log.Error().
			Err(err).
			Str("action", action).
			Msg("Section request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   action + "_failed",
			Message: "Failed to " + action + " section",
		})
	}
}

// CreateSection handles POST /api/sections
func (h *SectionHandler) CreateSection(c *gin.Context) {
	var req CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	// The loop starts now unless a start time is given
	startTime := time.Now().UTC()
	if req.StartTime != nil {
		startTime = *req.StartTime
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	created, err := h.service.Create(ctx, req.Name, startTime)
	if err != nil {
		writeSectionError(c, err, "create")
		return
	}

	c.JSON(http.StatusCreated, toSectionResponse(created))
}

// ListSections handles GET /api/sections
func (h *SectionHandler) ListSections(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	sections, err := h.service.List(ctx)
	if err != nil {
		writeSectionError(c, err, "list")
		return
	}

	responses := make([]*SectionResponse, len(sections))
	for i, s := range sections {
		responses[i] = toSectionResponse(s)
	}

	c.JSON(http.StatusOK, SectionListResponse{Sections: responses})
}

// GetSection handles GET /api/sections/:id
func (h *SectionHandler) GetSection(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	s, err := h.service.GetByID(ctx, id)
	if err != nil {
		writeSectionError(c, err, "get")
		return
	}

	c.JSON(http.StatusOK, toSectionResponse(s))
}

// UpdateSection handles PATCH /api/sections/:id
func (h *SectionHandler) UpdateSection(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	var req UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	updated, err := h.service.Update(ctx, id, req.Name, req.StartTime)
	if err != nil {
		writeSectionError(c, err, "update")
		return
	}

	c.JSON(http.StatusOK, toSectionResponse(updated))
}

// DeleteSection handles DELETE /api/sections/:id
func (h *SectionHandler) DeleteSection(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		writeSectionError(c, err, "delete")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPlaylist handles GET /api/sections/:id/playlist
func (h *SectionHandler) GetPlaylist(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	items, err := h.service.GetPlaylist(ctx, id)
	if err != nil {
		writeSectionError(c, err, "get_playlist")
		return
	}

	c.JSON(http.StatusOK, PlaylistResponse{
		SectionID: id.String(),
		Items:     items,
	})
}

// ReplacePlaylist handles PUT /api/sections/:id/playlist
func (h *SectionHandler) ReplacePlaylist(c *gin.Context) {
	id, ok := parseSectionID(c)
	if !ok {
		return
	}

	var req PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}
	if req.Items == nil {
		req.Items = []playback.PlaylistItem{}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.service.ReplacePlaylist(ctx, id, req.Items); err != nil {
		writeSectionError(c, err, "replace_playlist")
		return
	}

	c.JSON(http.StatusOK, PlaylistResponse{
		SectionID: id.String(),
		Items:     req.Items,
	})
}

// SetupSectionRoutes registers section and playlist routes
func SetupSectionRoutes(apiGroup *gin.RouterGroup, service *section.Service) {
	handler := NewSectionHandler(service)

	apiGroup.POST("/sections", handler.CreateSection)
	apiGroup.GET("/sections", handler.ListSections)
	apiGroup.GET("/sections/:id", handler.GetSection)
	apiGroup.PATCH("/sections/:id", handler.UpdateSection)
	apiGroup.DELETE("/sections/:id", handler.DeleteSection)

	apiGroup.GET("/sections/:id/playlist", handler.GetPlaylist)
	apiGroup.PUT("/sections/:id/playlist", handler.ReplacePlaylist)
}
