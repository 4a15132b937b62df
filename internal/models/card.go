package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 识别出的名片字段
type ContactFields struct {
	Name    string `json:"name,omitempty" gorm:"size:255"`
	Company string `json:"company,omitempty" gorm:"size:255"`
	Title   string `json:"title,omitempty" gorm:"size:255"`
	Mobile  string `json:"mobile,omitempty" gorm:"size:50"`
	Phone   string `json:"phone,omitempty" gorm:"size:50"`
	Email   string `json:"email,omitempty" gorm:"size:255"`
	Address string `json:"address,omitempty" gorm:"size:500"`
	Website string `json:"website,omitempty" gorm:"size:255"`
	Service string `json:"service,omitempty" gorm:"size:255"`
}

// 语音备注，随卡片一起保存，保存后不可修改
type VoiceNote struct {
	Text     string  `json:"text,omitempty" gorm:"type:text"`
	AudioURL string  `json:"audio_url,omitempty" gorm:"size:500"`
	Language string  `json:"language,omitempty" gorm:"size:16"`
	Duration float64 `json:"duration,omitempty"`
}

func (v VoiceNote) IsEmpty() bool {
	return v.Text == "" && v.AudioURL == ""
}

type Card struct {
	ID         string        `json:"id" gorm:"primaryKey;size:36"`
	UserID     string        `json:"user_id" gorm:"size:36;not null;index"`
	CategoryID string        `json:"category_id" gorm:"size:36;not null;index"`
	Fields     ContactFields `json:"fields" gorm:"embedded;embeddedPrefix:field_"`
	IsFavorite bool          `json:"is_favorite" gorm:"not null;default:false;index"`
	QAScore    *float64      `json:"qa_score,omitempty"`
	QAStatus   string        `json:"qa_status,omitempty" gorm:"size:20"`
	ImageURL   string        `json:"image_url,omitempty" gorm:"size:500"`
	VoiceNote  VoiceNote     `json:"voice_note" gorm:"embedded;embeddedPrefix:voice_"`
	CreatedAt  time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time     `json:"updated_at"`
	MovedAt    *time.Time    `json:"moved_at,omitempty"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CardCreateRequest struct {
	CategoryID string        `json:"category_id" validate:"required"`
	Fields     ContactFields `json:"fields"`
	ImageURL   string        `json:"image_url" validate:"omitempty,max=500"`
	QAScore    *float64      `json:"qa_score"`
	QAStatus   string        `json:"qa_status" validate:"omitempty,max=20"`
}

type CardUpdateRequest struct {
	Fields     *ContactFields `json:"fields"`
	IsFavorite *bool          `json:"is_favorite"`
}

type CardMoveRequest struct {
	ToCategoryID string `json:"to_category_id" validate:"required"`
}
