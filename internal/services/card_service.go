package services

import (
	"errors"
	"time"

	"cardkeeper-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CardService struct {
	db         *gorm.DB
	categories *CategoryService
}

func NewCardService(db *gorm.DB, categories *CategoryService) *CardService {
	return &CardService{db: db, categories: categories}
}

// AddCard 持久化一张卡片并将所属分类计数加一（同一事务内）。
// 未指定分类时归入用户的默认分类，保证已持久化的卡片始终引用一个存在的分类。
func (s *CardService) AddCard(card *models.Card) (*models.Card, error) {
	if card.UserID == "" {
		return nil, ErrOwnerRequired
	}

	if card.CategoryID == "" {
		defaultCategory, err := s.categories.CreateDefaultCategory(card.UserID)
		if err != nil {
			return nil, err
		}
		card.CategoryID = defaultCategory.ID
	} else {
		if _, err := s.categories.GetCategoryByID(card.CategoryID, card.UserID); err != nil {
			return nil, err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(card).Error; err != nil {
			return err
		}
		return incrementCardCount(tx, card.CategoryID, 1)
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", card.UserID).Error("保存卡片失败")
		return nil, err
	}

	return card, nil
}

func (s *CardService) GetCardByID(cardID, userID string) (*models.Card, error) {
	var card models.Card
	err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *CardService) GetCardsByCategory(categoryID, userID string) ([]models.Card, error) {
	var cards []models.Card
	err := s.db.Where("category_id = ? AND user_id = ?", categoryID, userID).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

func (s *CardService) GetAllUserCards(userID string) ([]models.Card, error) {
	var cards []models.Card
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

func (s *CardService) GetRecentCards(userID string, limit int) ([]models.Card, error) {
	if limit <= 0 {
		limit = 5
	}
	var cards []models.Card
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&cards).Error
	return cards, err
}

func (s *CardService) GetFavoriteCards(userID string) ([]models.Card, error) {
	var cards []models.Card
	err := s.db.Where("user_id = ? AND is_favorite = ?", userID, true).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

// UpdateCard 字段编辑与收藏切换
func (s *CardService) UpdateCard(cardID, userID string, req *models.CardUpdateRequest) (*models.Card, error) {
	card, err := s.GetCardByID(cardID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Fields != nil {
		updates["field_name"] = req.Fields.Name
		updates["field_company"] = req.Fields.Company
		updates["field_title"] = req.Fields.Title
		updates["field_mobile"] = req.Fields.Mobile
		updates["field_phone"] = req.Fields.Phone
		updates["field_email"] = req.Fields.Email
		updates["field_address"] = req.Fields.Address
		updates["field_website"] = req.Fields.Website
		updates["field_service"] = req.Fields.Service
	}
	if req.IsFavorite != nil {
		updates["is_favorite"] = *req.IsFavorite
	}

	if len(updates) == 0 {
		return card, nil
	}

	if err := s.db.Model(card).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("card_id", cardID).Error("更新卡片失败")
		return nil, err
	}

	return s.GetCardByID(cardID, userID)
}

// MoveCard 三步写入严格按顺序执行：更新卡片分类、原分类计数减一、目标分类计数加一。
// 借助数据库事务，三步要么全部生效要么全部回滚。
func (s *CardService) MoveCard(cardID, userID, toCategoryID string) (*models.Card, error) {
	card, err := s.GetCardByID(cardID, userID)
	if err != nil {
		return nil, err
	}

	if toCategoryID == card.CategoryID {
		return card, nil
	}

	if _, err := s.categories.GetCategoryByID(toCategoryID, userID); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrMoveTargetInvalid
		}
		return nil, err
	}

	fromCategoryID := card.CategoryID
	now := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(card).Updates(map[string]interface{}{
			"category_id": toCategoryID,
			"moved_at":    &now,
		}).Error
		if err != nil {
			return err
		}

		if err := incrementCardCount(tx, fromCategoryID, -1); err != nil {
			return err
		}
		return incrementCardCount(tx, toCategoryID, 1)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"card_id": cardID,
			"from":    fromCategoryID,
			"to":      toCategoryID,
		}).Error("移动卡片失败")
		return nil, err
	}

	card.CategoryID = toCategoryID
	card.MovedAt = &now
	return card, nil
}

// DeleteCard 先读出卡片确定所属分类，删除后将该分类计数减一
func (s *CardService) DeleteCard(cardID, userID string) error {
	card, err := s.GetCardByID(cardID, userID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(card)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCardNotFound
		}
		return incrementCardCount(tx, card.CategoryID, -1)
	})
	if err != nil {
		logrus.WithError(err).WithField("card_id", cardID).Error("删除卡片失败")
		return err
	}

	return nil
}

func (s *CardService) GetUserStats(userID string) (*models.UserStats, error) {
	var stats models.UserStats

	if err := s.db.Model(&models.Card{}).Where("user_id = ?", userID).Count(&stats.TotalCards).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Card{}).Where("user_id = ? AND is_favorite = ?", userID, true).Count(&stats.FavoriteCards).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Category{}).Where("user_id = ?", userID).Count(&stats.TotalCategories).Error; err != nil {
		return nil, err
	}

	if stats.TotalCards > 0 {
		var avg *float64
		err := s.db.Model(&models.Card{}).
			Where("user_id = ? AND qa_score IS NOT NULL", userID).
			Select("AVG(qa_score)").Scan(&avg).Error
		if err != nil {
			return nil, err
		}
		stats.AverageQAScore = avg
	}

	return &stats, nil
}
