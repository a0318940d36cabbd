package handler

import (
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/gin-gonic/gin"
)

type VersionHandler struct {
	requirementService *service.RequirementService
}

func NewVersionHandler(requirementService *service.RequirementService) *VersionHandler {
	return &VersionHandler{requirementService: requirementService}
}

// PUT /versions/:id
func (h *VersionHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Title       string            `json:"title" binding:"required,max=500"`
		Description string            `json:"description" binding:"required"`
		Category    string            `json:"category" binding:"max=128"`
		Status      string            `json:"status"`
		CustomData  map[string]string `json:"custom_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	version, err := h.requirementService.UpdateVersion(id, userID, service.VersionUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      req.Status,
		Custom:      req.CustomData,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, versionItem(version))
}

// PUT /versions/:id/status
func (h *VersionHandler) UpdateStatus(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	version, err := h.requirementService.UpdateStatus(id, userID, req.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, versionItem(version))
}

// PUT /versions/:id/custom
func (h *VersionHandler) SetCustomValue(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Column string `json:"column" binding:"required,max=128"`
		Value  string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	version, err := h.requirementService.SetCustomValue(id, userID, req.Column, req.Value)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, versionItem(version))
}

// POST /versions/:id/toggle-block
func (h *VersionHandler) ToggleBlock(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	version, err := h.requirementService.ToggleBlock(id, userID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, versionItem(version))
}

// DELETE /versions/:id
func (h *VersionHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.requirementService.DeleteVersion(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "版本已删除"})
}
