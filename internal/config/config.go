package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Storage     StorageConfig     `yaml:"storage"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Capture     CaptureConfig     `yaml:"capture"`
	Search      SearchConfig      `yaml:"search"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type StorageConfig struct {
	UploadPath   string `yaml:"upload_path"`
	BaseURL      string `yaml:"base_url"`
	MaxImageSize int64  `yaml:"max_image_size"`
	MaxAudioSize int64  `yaml:"max_audio_size"`
}

// 外部识别服务（Document AI / 语音转写）
type RecognitionConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type CaptureConfig struct {
	MaxVoiceSeconds int `yaml:"max_voice_seconds"`
}

type SearchConfig struct {
	DebounceMillis int    `yaml:"debounce_millis"`
	HistoryPath    string `yaml:"history_path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	// 首先尝试从 YAML 文件加载
	if data, err := os.ReadFile("configs/config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// 然后从环境变量覆盖
	cfg.overrideFromEnv()

	// 设置默认值
	cfg.setDefaults()

	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	// Database
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Database.URL = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Database.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.DBName = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Server.Port = port
		}
	}
	if val := os.Getenv("GIN_MODE"); val != "" {
		c.Server.Mode = val
	}

	// Storage
	if val := os.Getenv("UPLOAD_PATH"); val != "" {
		c.Storage.UploadPath = val
	}
	if val := os.Getenv("STORAGE_BASE_URL"); val != "" {
		c.Storage.BaseURL = val
	}
	if val := os.Getenv("MAX_IMAGE_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Storage.MaxImageSize = size
		}
	}
	if val := os.Getenv("MAX_AUDIO_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Storage.MaxAudioSize = size
		}
	}

	// Recognition
	if val := os.Getenv("RECOGNITION_BASE_URL"); val != "" {
		c.Recognition.BaseURL = val
	}
	if val := os.Getenv("RECOGNITION_TIMEOUT"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil {
			c.Recognition.TimeoutSeconds = sec
		}
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.ExpireHours == 0 {
		c.JWT.ExpireHours = 24
	}

	if c.Storage.UploadPath == "" {
		c.Storage.UploadPath = "./uploads"
	}
	if c.Storage.MaxImageSize == 0 {
		c.Storage.MaxImageSize = 10485760 // 10MB
	}
	if c.Storage.MaxAudioSize == 0 {
		c.Storage.MaxAudioSize = 20971520 // 20MB
	}

	if c.Recognition.TimeoutSeconds == 0 {
		c.Recognition.TimeoutSeconds = 30
	}

	if c.Capture.MaxVoiceSeconds == 0 {
		c.Capture.MaxVoiceSeconds = 10
	}

	if c.Search.DebounceMillis == 0 {
		c.Search.DebounceMillis = 300
	}
	if c.Search.HistoryPath == "" {
		c.Search.HistoryPath = "./data/search_history"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "./logs/app.log"
	}
}

func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}
