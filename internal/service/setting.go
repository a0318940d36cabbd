package service

import (
	"time"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/config"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/pkg/ai"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/pkg/encrypt"
	"gorm.io/gorm"
)

type SettingService struct {
	db     *gorm.DB
	aesKey string
}

func NewSettingService(db *gorm.DB, aesKey string) *SettingService {
	return &SettingService{db: db, aesKey: aesKey}
}

func (s *SettingService) GetByUserID(userID uint) (*model.AISetting, error) {
	var setting model.AISetting
	err := s.db.Where("user_id = ?", userID).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// APIKey decrypts the stored key. An empty stored value yields "".
func (s *SettingService) APIKey(setting *model.AISetting) (string, error) {
	if setting == nil || setting.APIKeyEnc == "" {
		return "", nil
	}
	return encrypt.DecryptString(s.aesKey, setting.APIKeyEnc)
}

func (s *SettingService) Upsert(userID uint, baseURL, apiKey, modelName string) (*model.AISetting, error) {
	var keyEnc string
	if apiKey != "" {
		enc, err := encrypt.EncryptString(s.aesKey, apiKey)
		if err != nil {
			return nil, err
		}
		keyEnc = enc
	}

	var setting model.AISetting
	err := s.db.Where("user_id = ?", userID).First(&setting).Error

	if err == gorm.ErrRecordNotFound {
		setting = model.AISetting{
			UserID:    userID,
			BaseURL:   baseURL,
			APIKeyEnc: keyEnc,
			Model:     modelName,
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != nil {
		return nil, err
	}

	setting.BaseURL = baseURL
	setting.Model = modelName
	if apiKey != "" {
		setting.APIKeyEnc = keyEnc
	}
	if err := s.db.Save(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// ResolveAIConfig builds the effective endpoint config for a user: their
// stored override where present, the server default otherwise.
func (s *SettingService) ResolveAIConfig(userID uint, fallback config.AIConfig) (ai.Config, error) {
	cfg := ai.Config{
		BaseURL: fallback.BaseURL,
		APIKey:  fallback.APIKey,
		Model:   fallback.Model,
		Timeout: time.Duration(fallback.TimeoutSeconds) * time.Second,
	}

	setting, err := s.GetByUserID(userID)
	if err != nil {
		return cfg, err
	}
	if setting == nil {
		return cfg, nil
	}

	if setting.BaseURL != "" {
		cfg.BaseURL = setting.BaseURL
	}
	if setting.Model != "" {
		cfg.Model = setting.Model
	}
	key, err := s.APIKey(setting)
	if err != nil {
		return cfg, err
	}
	if key != "" {
		cfg.APIKey = key
	}
	return cfg, nil
}
