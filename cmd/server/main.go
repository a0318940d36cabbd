package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/config"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/handler"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/router"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/service"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// Load config
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Requirement{},
		&model.RequirementVersion{},
		&model.File{},
		&model.AISetting{},
		&model.OperationLog{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Core components
	sseHub := sse.NewHub(rdb)

	// Services
	authService := service.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.ExpireHours)
	projectService := service.NewProjectService(db)
	reqService := service.NewRequirementService(db)
	settingService := service.NewSettingService(db, cfg.Encrypt.AESKey)
	generationService := service.NewGenerationService(db, reqService, projectService, settingService, sseHub, cfg.AI)
	excelService := service.NewExcelService(db, reqService, projectService, generationService, cfg.Upload.Dir)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	projectHandler := handler.NewProjectHandler(projectService)
	requirementHandler := handler.NewRequirementHandler(reqService, projectService, generationService)
	versionHandler := handler.NewVersionHandler(reqService)
	generateHandler := handler.NewGenerateHandler(generationService, projectService, sseHub)
	fileHandler := handler.NewFileHandler(excelService)
	settingHandler := handler.NewSettingHandler(settingService)

	// Gin engine
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Setup routes
	router.Setup(r, router.Deps{
		DB:                 db,
		JWTSecret:          cfg.JWT.Secret,
		AuthHandler:        authHandler,
		ProjectHandler:     projectHandler,
		RequirementHandler: requirementHandler,
		VersionHandler:     versionHandler,
		GenerateHandler:    generateHandler,
		FileHandler:        fileHandler,
		SettingHandler:     settingHandler,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
