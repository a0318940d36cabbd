package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	jwtpkg "github.com/Aliwes1999/Interface-for-MBSE-Models/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	jwtExpire int
}

func NewAuthService(db *gorm.DB, jwtSecret string, jwtExpire int) *AuthService {
	return &AuthService{db: db, jwtSecret: jwtSecret, jwtExpire: jwtExpire}
}

func (s *AuthService) Register(email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("40002:邮箱格式无效")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("40002:密码至少需要 8 个字符")
	}

	var count int64
	s.db.Model(&model.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:邮箱已被注册")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: string(hash)}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(email, password string) (*model.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "", time.Time{}, fmt.Errorf("40103:邮箱或密码错误")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", time.Time{}, fmt.Errorf("40103:邮箱或密码错误")
	}

	token, expireAt, err := jwtpkg.GenerateToken(s.jwtSecret, user.ID, user.Email, s.jwtExpire)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return &user, token, expireAt, nil
}

func (s *AuthService) GetByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("40404:用户不存在")
	}
	return &user, nil
}
