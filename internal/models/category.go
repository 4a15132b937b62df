package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"size:36;not null;index"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Icon      string    `json:"icon" gorm:"size:16"`
	Color     string    `json:"color" gorm:"size:7"`
	CardCount int       `json:"card_count" gorm:"not null;default:0"`
	IsDefault bool      `json:"is_default" gorm:"not null;default:false;index"`
	SortOrder int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 计算字段
	LastCardAddedAt *time.Time `json:"last_card_added_at,omitempty" gorm:"-"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CategoryCreateRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Icon  string `json:"icon" validate:"max=16"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type CategoryUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Icon      *string `json:"icon" validate:"omitempty,max=16"`
	Color     *string `json:"color" validate:"omitempty,hexcolor"`
	SortOrder *int    `json:"sort_order"`
}

// 删除分类的两种互斥模式：直接删除卡片，或移动到目标分类
type CategoryDeleteRequest struct {
	DeleteCards    bool   `json:"delete_cards"`
	MoveToFolderID string `json:"move_to_folder_id"`
}
