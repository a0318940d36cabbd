package handler

import (
	"strings"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	excelService *service.ExcelService
}

func NewFileHandler(excelService *service.ExcelService) *FileHandler {
	return &FileHandler{excelService: excelService}
}

// POST /projects/:id/import
func (h *FileHandler) Import(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, 40001, "缺少上传文件")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		BadRequest(c, 40002, "仅支持 .xlsx 文件")
		return
	}

	f, err := header.Open()
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	optimize := c.PostForm("optimize") == "true"
	description := c.PostForm("description")

	result, err := h.excelService.Import(c.Request.Context(), projectID, userID, header.Filename, f, optimize, description)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// GET /projects/:id/export
func (h *FileHandler) Export(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	file, path, err := h.excelService.Export(projectID, userID)
	if err != nil {
		Fail(c, err)
		return
	}

	c.FileAttachment(path, file.Name)
}

// GET /projects/:id/files
func (h *FileHandler) List(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	files, err := h.excelService.ListFiles(projectID, userID)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(files))
	for i := range files {
		item := gin.H{
			"id":         files[i].ID,
			"name":       files[i].Name,
			"kind":       files[i].Kind,
			"size":       files[i].Size,
			"created_at": files[i].CreatedAt,
		}
		if files[i].Uploader != nil {
			item["uploader"] = files[i].Uploader.Brief()
		}
		list = append(list, item)
	}
	Success(c, list)
}

// GET /files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	fileID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	file, path, err := h.excelService.FilePath(fileID, userID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.FileAttachment(path, file.Name)
}
