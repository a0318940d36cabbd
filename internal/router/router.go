package router

import (
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/handler"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	DB                 *gorm.DB
	JWTSecret          string
	AuthHandler        *handler.AuthHandler
	ProjectHandler     *handler.ProjectHandler
	RequirementHandler *handler.RequirementHandler
	VersionHandler     *handler.VersionHandler
	GenerateHandler    *handler.GenerateHandler
	FileHandler        *handler.FileHandler
	SettingHandler     *handler.SettingHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api/v1")

	// Public routes (no auth)
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
	}

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		authed.GET("/auth/me", deps.AuthHandler.Me)

		// Projects
		projects := authed.Group("/projects")
		{
			projects.POST("", deps.ProjectHandler.Create)
			projects.GET("", deps.ProjectHandler.List)
			projects.GET("/:id", deps.ProjectHandler.GetDetail)
			projects.PUT("/:id", deps.ProjectHandler.Rename)
			projects.DELETE("/:id", deps.ProjectHandler.Delete)
			projects.GET("/:id/stats", deps.ProjectHandler.Stats)

			// Custom columns
			projects.POST("/:id/columns", deps.ProjectHandler.AddColumn)
			projects.DELETE("/:id/columns/:name", deps.ProjectHandler.RemoveColumn)

			// Sharing
			projects.POST("/:id/share", deps.ProjectHandler.Share)
			projects.DELETE("/:id/share/:user_id", deps.ProjectHandler.Unshare)

			// Requirements under projects
			projects.GET("/:id/requirements", deps.RequirementHandler.ListByProject)

			// AI generation
			projects.POST("/:id/generate", deps.GenerateHandler.Generate)
			projects.GET("/:id/generate/stream", deps.GenerateHandler.Stream)

			// Spreadsheets
			projects.POST("/:id/import", deps.FileHandler.Import)
			projects.GET("/:id/export", deps.FileHandler.Export)
			projects.GET("/:id/files", deps.FileHandler.List)
		}

		// Requirements (standalone)
		requirements := authed.Group("/requirements")
		{
			requirements.GET("/:id/versions", deps.RequirementHandler.History)
			requirements.POST("/:id/regenerate", deps.RequirementHandler.Regenerate)
			requirements.POST("/:id/delete", deps.RequirementHandler.Delete)
			requirements.POST("/:id/restore", deps.RequirementHandler.Restore)
			requirements.POST("/:id/purge", deps.RequirementHandler.Purge)
		}

		// Versions
		versions := authed.Group("/versions")
		{
			versions.PUT("/:id", deps.VersionHandler.Update)
			versions.PUT("/:id/status", deps.VersionHandler.UpdateStatus)
			versions.PUT("/:id/custom", deps.VersionHandler.SetCustomValue)
			versions.POST("/:id/toggle-block", deps.VersionHandler.ToggleBlock)
			versions.DELETE("/:id", deps.VersionHandler.Delete)
		}

		// Trash
		authed.GET("/trash", deps.RequirementHandler.ListTrash)

		// Files
		authed.GET("/files/:id/download", deps.FileHandler.Download)

		// Settings
		settings := authed.Group("/settings")
		{
			settings.GET("/ai", deps.SettingHandler.Get)
			settings.PUT("/ai", deps.SettingHandler.Update)
		}
	}
}
