package handler

import (
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	settingService *service.SettingService
}

func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

// GET /settings/ai
func (h *SettingHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	setting, err := h.settingService.GetByUserID(userID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if setting == nil {
		Success(c, gin.H{
			"base_url": "",
			"api_key":  "",
			"model":    "",
		})
		return
	}

	key, err := h.settingService.APIKey(setting)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{
		"base_url": setting.BaseURL,
		"api_key":  maskSecret(key),
		"model":    setting.Model,
	})
}

// PUT /settings/ai
//
// An empty api_key keeps the stored one; the masked value from GET is never
// written back.
func (h *SettingHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		BaseURL string `json:"base_url" binding:"max=256"`
		APIKey  string `json:"api_key" binding:"max=256"`
		Model   string `json:"model" binding:"max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	setting, err := h.settingService.Upsert(userID, req.BaseURL, req.APIKey, req.Model)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	key, err := h.settingService.APIKey(setting)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{
		"base_url": setting.BaseURL,
		"api_key":  maskSecret(key),
		"model":    setting.Model,
	})
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
