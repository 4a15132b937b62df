package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardkeeper-backend/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPathNotAllowed = errors.New("不允许的存储路径")
	ErrFileTooLarge   = errors.New("文件超出大小限制")
)

// 上传路径白名单，调用方不能写入任意路径
var allowedPrefixes = []string{"cards/", "voice-notes/"}

// StorageService 本地磁盘实现的内容存储，上传后通过 /uploads 静态路由访问
type StorageService struct {
	uploadPath   string
	baseURL      string
	maxImageSize int64
	maxAudioSize int64
}

func NewStorageService(cfg config.StorageConfig) *StorageService {
	return &StorageService{
		uploadPath:   cfg.UploadPath,
		baseURL:      cfg.BaseURL,
		maxImageSize: cfg.MaxImageSize,
		maxAudioSize: cfg.MaxAudioSize,
	}
}

// Upload 将媒体内容写入指定相对路径并返回可访问的 URL
func (s *StorageService) Upload(data []byte, path string) (string, error) {
	cleaned, err := s.validatePath(path)
	if err != nil {
		return "", err
	}

	limit := s.maxImageSize
	if strings.HasPrefix(cleaned, "voice-notes/") {
		limit = s.maxAudioSize
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", ErrFileTooLarge
	}

	fullPath := filepath.Join(s.uploadPath, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		logrus.WithError(err).WithField("path", cleaned).Error("写入上传文件失败")
		return "", err
	}

	return s.baseURL + "/uploads/" + cleaned, nil
}

func (s *StorageService) validatePath(path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return "", ErrPathNotAllowed
	}

	cleaned := filepath.ToSlash(filepath.Clean(path))
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(cleaned, prefix) && len(cleaned) > len(prefix) {
			return cleaned, nil
		}
	}
	return "", ErrPathNotAllowed
}

// CardImagePath 生成名片图片的存储路径
func CardImagePath() string {
	return fmt.Sprintf("cards/%d_%s.jpg", time.Now().UnixMilli(), shortID())
}

// VoiceNotePath 生成语音备注的存储路径
func VoiceNotePath() string {
	return fmt.Sprintf("voice-notes/%d_%s.m4a", time.Now().UnixMilli(), shortID())
}

func shortID() string {
	return uuid.NewString()[:8]
}
