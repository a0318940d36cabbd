package handler

import (
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func projectItem(p *model.Project, userID uint) gin.H {
	item := gin.H{
		"id":             p.ID,
		"name":           p.Name,
		"custom_columns": p.CustomColumns,
		"is_owner":       p.OwnerID == userID,
		"created_at":     p.CreatedAt,
		"updated_at":     p.UpdatedAt,
	}
	if p.Owner != nil {
		item["owner"] = p.Owner.Brief()
	}
	return item
}

// POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	project, err := h.projectService.Create(req.Name, userID)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, projectItem(project, userID))
}

// GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	projects, err := h.projectService.List(userID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(projects))
	for i := range projects {
		list = append(list, projectItem(&projects[i], userID))
	}
	Success(c, list)
}

// GET /projects/:id
func (h *ProjectHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	project, err := h.projectService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.projectService.CheckAccess(project, userID); err != nil {
		Fail(c, err)
		return
	}

	shared := make([]gin.H, 0, len(project.SharedWith))
	for i := range project.SharedWith {
		shared = append(shared, gin.H{
			"id":    project.SharedWith[i].ID,
			"email": project.SharedWith[i].Email,
		})
	}

	stats, err := h.projectService.Stats(id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	item := projectItem(project, userID)
	item["shared_with"] = shared
	item["stats"] = stats
	Success(c, item)
}

// PUT /projects/:id
func (h *ProjectHandler) Rename(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Name string `json:"name" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	project, err := h.projectService.Rename(id, userID, req.Name)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, projectItem(project, userID))
}

// DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.projectService.Delete(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "项目已删除"})
}

// POST /projects/:id/columns
func (h *ProjectHandler) AddColumn(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Name string `json:"name" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	project, err := h.projectService.AddColumn(id, userID, req.Name)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"custom_columns": project.CustomColumns})
}

// DELETE /projects/:id/columns/:name
func (h *ProjectHandler) RemoveColumn(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)
	name := c.Param("name")

	project, err := h.projectService.RemoveColumn(id, userID, name)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"custom_columns": project.CustomColumns})
}

// POST /projects/:id/share
func (h *ProjectHandler) Share(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	target, err := h.projectService.Share(id, userID, req.Email)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"id": target.ID, "email": target.Email})
}

// DELETE /projects/:id/share/:user_id
func (h *ProjectHandler) Unshare(c *gin.Context) {
	id := parseID(c.Param("id"))
	targetID := parseID(c.Param("user_id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.projectService.Unshare(id, userID, targetID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "已取消共享"})
}

// GET /projects/:id/stats
func (h *ProjectHandler) Stats(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	project, err := h.projectService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.projectService.CheckAccess(project, userID); err != nil {
		Fail(c, err)
		return
	}

	stats, err := h.projectService.Stats(id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, stats)
}
