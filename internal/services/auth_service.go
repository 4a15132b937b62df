package services

import (
	"errors"

	"cardkeeper-backend/internal/models"
	"cardkeeper-backend/internal/utils"

	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("用户名或邮箱已存在")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)

type AuthService struct {
	db         *gorm.DB
	categories *CategoryService
}

func NewAuthService(db *gorm.DB, categories *CategoryService) *AuthService {
	return &AuthService{db: db, categories: categories}
}

func (s *AuthService) Register(req *models.UserRegisterRequest) (*models.User, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	// 注册即建好默认分类，后续保存卡片不会落空
	if _, err := s.categories.CreateDefaultCategory(user.ID); err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *AuthService) Login(req *models.UserLoginRequest) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *AuthService) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
