package service

import (
	"log"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"gorm.io/gorm"
)

// logOperation records a destructive/administrative action. Audit writes are
// best-effort and never fail the calling operation.
func logOperation(db *gorm.DB, userID uint, action, resourceType string, resourceID uint, detail model.JSONMap) {
	entry := model.OperationLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("operation log %s: %v", action, err)
	}
}
