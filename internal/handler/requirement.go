package handler

import (
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/gin-gonic/gin"
)

type RequirementHandler struct {
	requirementService *service.RequirementService
	projectService     *service.ProjectService
	generationService  *service.GenerationService
}

func NewRequirementHandler(requirementService *service.RequirementService, projectService *service.ProjectService, generationService *service.GenerationService) *RequirementHandler {
	return &RequirementHandler{
		requirementService: requirementService,
		projectService:     projectService,
		generationService:  generationService,
	}
}

func versionItem(v *model.RequirementVersion) gin.H {
	item := gin.H{
		"id":             v.ID,
		"requirement_id": v.RequirementID,
		"version_index":  v.VersionIndex,
		"version_label":  v.VersionLabel,
		"title":          v.Title,
		"description":    v.Description,
		"category":       v.Category,
		"status":         v.Status,
		"custom_data":    v.CustomData,
		"is_blocked":     v.IsBlocked,
		"created_at":     v.CreatedAt,
		"updated_at":     v.UpdatedAt,
	}
	if v.CustomData == nil {
		item["custom_data"] = model.StringMap{}
	}
	if v.IsBlocked && v.BlockedByID != nil {
		item["blocked_by_id"] = *v.BlockedByID
		item["blocked_at"] = v.BlockedAt
	}
	if v.CreatedBy != nil {
		item["created_by"] = v.CreatedBy.Brief()
	}
	if v.LastModifiedBy != nil {
		item["last_modified_by"] = v.LastModifiedBy.Brief()
	}
	if v.SourceFileID != nil {
		item["source_file_id"] = *v.SourceFileID
	}
	return item
}

func requirementItem(r *model.Requirement) gin.H {
	versions := make([]gin.H, 0, len(r.Versions))
	for i := range r.Versions {
		versions = append(versions, versionItem(&r.Versions[i]))
	}
	item := gin.H{
		"id":         r.ID,
		"project_id": r.ProjectID,
		"versions":   versions,
		"created_at": r.CreatedAt,
	}
	if latest := r.LatestVersion(); latest != nil {
		item["latest"] = versionItem(latest)
	}
	return item
}

// GET /projects/:id/requirements
func (h *RequirementHandler) ListByProject(c *gin.Context) {
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

	reqs, err := h.requirementService.ListByProject(projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(reqs))
	for i := range reqs {
		list = append(list, requirementItem(&reqs[i]))
	}
	Success(c, gin.H{
		"custom_columns": project.CustomColumns,
		"requirements":   list,
	})
}

// GET /requirements/:id/versions
func (h *RequirementHandler) History(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	req, err := h.requirementService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.projectService.CheckAccess(req.Project, userID); err != nil {
		Fail(c, err)
		return
	}

	versions, err := h.requirementService.History(id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(versions))
	for i := range versions {
		list = append(list, versionItem(&versions[i]))
	}
	Success(c, list)
}

// POST /requirements/:id/regenerate
func (h *RequirementHandler) Regenerate(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	version, err := h.generationService.Regenerate(c.Request.Context(), id, userID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, versionItem(version))
}

// POST /requirements/:id/delete
func (h *RequirementHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.requirementService.SoftDelete(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "需求已移入回收站"})
}

// GET /trash
func (h *RequirementHandler) ListTrash(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	reqs, err := h.requirementService.ListDeleted(userID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(reqs))
	for i := range reqs {
		item := gin.H{
			"id":         reqs[i].ID,
			"project_id": reqs[i].ProjectID,
			"created_at": reqs[i].CreatedAt,
		}
		if reqs[i].Project != nil {
			item["project_name"] = reqs[i].Project.Name
		}
		if latest := reqs[i].LatestVersion(); latest != nil {
			item["title"] = latest.Title
			item["version_label"] = latest.VersionLabel
		}
		list = append(list, item)
	}
	Success(c, list)
}

// POST /requirements/:id/restore
func (h *RequirementHandler) Restore(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.requirementService.Restore(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "需求已恢复"})
}

// POST /requirements/:id/purge
func (h *RequirementHandler) Purge(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.requirementService.Purge(id, userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "需求已彻底删除"})
}
