package handler

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/sse"
	"github.com/gin-gonic/gin"
)

type GenerateHandler struct {
	generationService *service.GenerationService
	projectService    *service.ProjectService
	hub               *sse.Hub
}

func NewGenerateHandler(generationService *service.GenerationService, projectService *service.ProjectService, hub *sse.Hub) *GenerateHandler {
	return &GenerateHandler{
		generationService: generationService,
		projectService:    projectService,
		hub:               hub,
	}
}

// POST /projects/:id/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Description string            `json:"description" binding:"required"`
		Inputs      map[string]string `json:"inputs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	result, err := h.generationService.Generate(c.Request.Context(), projectID, userID, req.Description, req.Inputs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// GET /projects/:id/generate/stream
//
// SSE stream of generation progress. A reconnecting client sends the last
// event id it saw (Last-Event-ID header or last_event_id query) and missed
// events are replayed from redis before live ones.
func (h *GenerateHandler) Stream(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	project, err := h.projectService.GetByID(projectID)
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.projectService.CheckAccess(project, userID); err != nil {
		Fail(c, err)
		return
	}

	lastID := sse.ParseLastEventID(c.GetHeader("Last-Event-ID"))
	if lastID == 0 {
		lastID = sse.ParseLastEventID(c.Query("last_event_id"))
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events, unsubscribe := h.hub.Subscribe(projectID)
	defer unsubscribe()

	nextID := lastID
	if replay, err := h.hub.ReplayFrom(projectID, lastID); err == nil {
		for _, ev := range replay {
			writeEvent(c.Writer, ev.ID+1, ev)
			nextID = ev.ID + 1
		}
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			nextID++
			writeEvent(c.Writer, nextID, ev)
			c.Writer.Flush()
			if ev.Type == sse.EventGenerationCompleted || ev.Type == sse.EventGenerationFailed {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, id int64, ev sse.Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Type, data)
}
