package services

import (
	"path/filepath"
	"testing"

	"cardkeeper-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Category{}, &models.Card{})
	require.NoError(t, err)

	return db
}

func setupCardServices(t *testing.T) (*CardService, *CategoryService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	categories := NewCategoryService(db)
	cards := NewCardService(db, categories)
	return cards, categories, db
}

func mustCreateCategory(t *testing.T, s *CategoryService, userID, name string) *models.Category {
	t.Helper()

	category, err := s.CreateCategory(userID, &models.CategoryCreateRequest{Name: name})
	require.NoError(t, err)
	return category
}

func mustAddCard(t *testing.T, s *CardService, userID, categoryID string, fields models.ContactFields) *models.Card {
	t.Helper()

	card, err := s.AddCard(&models.Card{
		UserID:     userID,
		CategoryID: categoryID,
		Fields:     fields,
	})
	require.NoError(t, err)
	return card
}

func cardCount(t *testing.T, db *gorm.DB, categoryID string) int {
	t.Helper()

	var category models.Category
	require.NoError(t, db.First(&category, "id = ?", categoryID).Error)
	return category.CardCount
}
