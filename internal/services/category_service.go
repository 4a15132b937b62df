package services

import (
	"errors"
	"time"

	"cardkeeper-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultCategoryName  = "通用"
	defaultCategoryIcon  = "📋"
	defaultCategoryColor = "#6B7280"
)

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// CreateDefaultCategory 幂等：每个用户只会有一个默认分类，每次启动调用都安全
func (s *CategoryService) CreateDefaultCategory(userID string) (*models.Category, error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}

	var category models.Category
	err := s.db.Where("user_id = ? AND is_default = ?", userID, true).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category = models.Category{
		UserID:    userID,
		Name:      defaultCategoryName,
		Icon:      defaultCategoryIcon,
		Color:     defaultCategoryColor,
		IsDefault: true,
		CardCount: 0,
		SortOrder: 0,
	}

	if err := s.db.Create(&category).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("创建默认分类失败")
		return nil, err
	}

	return &category, nil
}

func (s *CategoryService) GetUserCategories(userID string) ([]models.Category, error) {
	var categories []models.Category

	err := s.db.Where("user_id = ?", userID).
		Order("sort_order, name").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}

	// 取每个分类下最新卡片的创建时间
	for i := range categories {
		var card models.Card
		err := s.db.Where("category_id = ?", categories[i].ID).
			Order("created_at DESC").
			First(&card).Error
		if err == nil {
			t := card.CreatedAt
			categories[i].LastCardAddedAt = &t
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("category_id", categories[i].ID).Warn("获取分类最新卡片失败")
		}
	}

	return categories, nil
}

func (s *CategoryService) GetCategoryByID(categoryID, userID string) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) CreateCategory(userID string, req *models.CategoryCreateRequest) (*models.Category, error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}

	icon := req.Icon
	if icon == "" {
		icon = "📁"
	}

	var maxOrder int
	s.db.Model(&models.Category{}).Where("user_id = ?", userID).
		Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder)

	category := models.Category{
		UserID:    userID,
		Name:      req.Name,
		Icon:      icon,
		Color:     req.Color,
		CardCount: 0,
		SortOrder: maxOrder + 1,
	}

	if err := s.db.Create(&category).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("创建分类失败")
		return nil, err
	}

	return &category, nil
}

// UpdateCategory 部分更新。默认分类的名称和图标不允许修改，该规则在数据访问层强制执行
func (s *CategoryService) UpdateCategory(categoryID, userID string, req *models.CategoryUpdateRequest) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID, userID)
	if err != nil {
		return nil, err
	}

	if category.IsDefault && (req.Name != nil || req.Icon != nil) {
		return nil, ErrDefaultImmutable
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.Model(category).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("category_id", categoryID).Error("更新分类失败")
		return nil, err
	}

	return category, nil
}

// DeleteCategory 两种互斥模式：DeleteCards 直接删除分类下所有卡片；
// 否则全部移动到 MoveToFolderID 并按移动数量增加目标分类计数。
// 分类本身最后删除，整个过程在一个事务内完成。
func (s *CategoryService) DeleteCategory(categoryID, userID string, req *models.CategoryDeleteRequest) error {
	if req.DeleteCards && req.MoveToFolderID != "" {
		return ErrDeleteModeConflict
	}
	if !req.DeleteCards && req.MoveToFolderID == "" {
		return ErrDeleteModeConflict
	}

	category, err := s.GetCategoryByID(categoryID, userID)
	if err != nil {
		return err
	}
	if category.IsDefault {
		return ErrDefaultUndeletable
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Card{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
			return err
		}

		if req.DeleteCards {
			if err := tx.Where("category_id = ?", categoryID).Delete(&models.Card{}).Error; err != nil {
				logrus.WithError(err).WithField("category_id", categoryID).Error("删除分类下的卡片失败")
				return err
			}
		} else {
			var target models.Category
			err := tx.Where("id = ? AND user_id = ?", req.MoveToFolderID, userID).First(&target).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrMoveTargetInvalid
				}
				return err
			}
			if target.ID == categoryID {
				return ErrMoveTargetInvalid
			}

			now := time.Now()
			err = tx.Model(&models.Card{}).Where("category_id = ?", categoryID).
				Updates(map[string]interface{}{
					"category_id": req.MoveToFolderID,
					"moved_at":    &now,
				}).Error
			if err != nil {
				logrus.WithError(err).WithField("category_id", categoryID).Error("移动分类下的卡片失败")
				return err
			}

			if count > 0 {
				if err := incrementCardCount(tx, req.MoveToFolderID, int(count)); err != nil {
					return err
				}
			}
		}

		return tx.Delete(category).Error
	})
}

// IncrementCardCount 所有计数维护的唯一入口，支持负数增量
func (s *CategoryService) IncrementCardCount(categoryID string, delta int) error {
	return incrementCardCount(s.db, categoryID, delta)
}

// 计数通过数据库端的原子自增更新，不做读-改-写，避免并发丢失更新。
// 计数不做非负钳制：正常调用路径下不会出现负数，出现即说明有账目错误，需要暴露而不是掩盖。
func incrementCardCount(tx *gorm.DB, categoryID string, delta int) error {
	result := tx.Model(&models.Category{}).
		Where("id = ?", categoryID).
		UpdateColumn("card_count", gorm.Expr("card_count + ?", delta))
	if result.Error != nil {
		logrus.WithError(result.Error).WithFields(logrus.Fields{
			"category_id": categoryID,
			"delta":       delta,
		}).Error("更新分类卡片计数失败")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
