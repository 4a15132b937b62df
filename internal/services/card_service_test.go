package services

import (
	"testing"

	"cardkeeper-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardService_AddCard_IncrementsCount(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")

	mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "张三"})
	assert.Equal(t, 1, cardCount(t, db, category.ID))

	mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "李四"})
	assert.Equal(t, 2, cardCount(t, db, category.ID))
}

func TestCardService_AddCard_EmptyCategoryFallsBackToDefault(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	card, err := cards.AddCard(&models.Card{
		UserID: "user-1",
		Fields: models.ContactFields{Name: "张三"},
	})
	require.NoError(t, err)

	def, err := categories.CreateDefaultCategory("user-1")
	require.NoError(t, err)
	assert.Equal(t, def.ID, card.CategoryID)
	assert.Equal(t, 1, cardCount(t, db, def.ID))
}

func TestCardService_AddCard_UnknownCategory(t *testing.T) {
	cards, _, _ := setupCardServices(t)

	_, err := cards.AddCard(&models.Card{
		UserID:     "user-1",
		CategoryID: "no-such-category",
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCardService_AddCard_RequiresOwner(t *testing.T) {
	cards, _, _ := setupCardServices(t)

	_, err := cards.AddCard(&models.Card{})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestCardService_MoveCard_AdjustsBothCounts(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	from := mustCreateCategory(t, categories, "user-1", "客户")
	to := mustCreateCategory(t, categories, "user-1", "合作伙伴")
	card := mustAddCard(t, cards, "user-1", from.ID, models.ContactFields{Name: "张三"})

	moved, err := cards.MoveCard(card.ID, "user-1", to.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.CategoryID)
	assert.NotNil(t, moved.MovedAt)
	assert.Equal(t, 0, cardCount(t, db, from.ID))
	assert.Equal(t, 1, cardCount(t, db, to.ID))

	// 移回去，计数应当恢复原状
	_, err = cards.MoveCard(card.ID, "user-1", from.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cardCount(t, db, from.ID))
	assert.Equal(t, 0, cardCount(t, db, to.ID))
}

func TestCardService_MoveCard_SameCategoryNoop(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")
	card := mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "张三"})

	moved, err := cards.MoveCard(card.ID, "user-1", category.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.MovedAt)
	assert.Equal(t, 1, cardCount(t, db, category.ID))
}

func TestCardService_MoveCard_InvalidTarget(t *testing.T) {
	cards, categories, _ := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")
	card := mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "张三"})

	_, err := cards.MoveCard(card.ID, "user-1", "no-such-category")
	assert.ErrorIs(t, err, ErrMoveTargetInvalid)

	// 目标属于其他用户同样无效
	other := mustCreateCategory(t, categories, "user-2", "别人的")
	_, err = cards.MoveCard(card.ID, "user-1", other.ID)
	assert.ErrorIs(t, err, ErrMoveTargetInvalid)
}

func TestCardService_DeleteCard_DecrementsCount(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")
	card := mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "张三"})

	require.NoError(t, cards.DeleteCard(card.ID, "user-1"))
	assert.Equal(t, 0, cardCount(t, db, category.ID))

	_, err := cards.GetCardByID(card.ID, "user-1")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCardService_CountMatchesCardsAfterSequence(t *testing.T) {
	cards, categories, db := setupCardServices(t)

	a := mustCreateCategory(t, categories, "user-1", "A")
	b := mustCreateCategory(t, categories, "user-1", "B")

	c1 := mustAddCard(t, cards, "user-1", a.ID, models.ContactFields{Name: "一"})
	c2 := mustAddCard(t, cards, "user-1", a.ID, models.ContactFields{Name: "二"})
	mustAddCard(t, cards, "user-1", b.ID, models.ContactFields{Name: "三"})

	_, err := cards.MoveCard(c1.ID, "user-1", b.ID)
	require.NoError(t, err)
	require.NoError(t, cards.DeleteCard(c2.ID, "user-1"))

	// 任意增删移序列之后，计数与实际卡片数一致
	for _, category := range []*models.Category{a, b} {
		list, err := cards.GetCardsByCategory(category.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, len(list), cardCount(t, db, category.ID))
	}
}

func TestCardService_UpdateCard_FieldsAndFavorite(t *testing.T) {
	cards, categories, _ := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")
	card := mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "张三"})

	favorite := true
	updated, err := cards.UpdateCard(card.ID, "user-1", &models.CardUpdateRequest{
		Fields: &models.ContactFields{
			Name:  "张三",
			Email: "zhangsan@example.com",
		},
		IsFavorite: &favorite,
	})
	require.NoError(t, err)
	assert.Equal(t, "zhangsan@example.com", updated.Fields.Email)
	assert.True(t, updated.IsFavorite)

	// 只切换收藏，字段保持不变
	favorite = false
	updated, err = cards.UpdateCard(card.ID, "user-1", &models.CardUpdateRequest{IsFavorite: &favorite})
	require.NoError(t, err)
	assert.Equal(t, "zhangsan@example.com", updated.Fields.Email)
	assert.False(t, updated.IsFavorite)
}

func TestCardService_Queries(t *testing.T) {
	cards, categories, _ := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")
	for i := 0; i < 7; i++ {
		mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "联系人"})
	}
	favorite := true
	card := mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "收藏的"})
	_, err := cards.UpdateCard(card.ID, "user-1", &models.CardUpdateRequest{IsFavorite: &favorite})
	require.NoError(t, err)

	all, err := cards.GetAllUserCards("user-1")
	require.NoError(t, err)
	assert.Len(t, all, 8)

	recent, err := cards.GetRecentCards("user-1", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)

	favorites, err := cards.GetFavoriteCards("user-1")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, card.ID, favorites[0].ID)
}

func TestCardService_GetUserStats(t *testing.T) {
	cards, categories, _ := setupCardServices(t)

	category := mustCreateCategory(t, categories, "user-1", "客户")

	score := 0.8
	_, err := cards.AddCard(&models.Card{
		UserID:     "user-1",
		CategoryID: category.ID,
		QAScore:    &score,
		IsFavorite: true,
	})
	require.NoError(t, err)
	mustAddCard(t, cards, "user-1", category.ID, models.ContactFields{Name: "无评分"})

	stats, err := cards.GetUserStats("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCards)
	assert.Equal(t, int64(1), stats.FavoriteCards)
	assert.Equal(t, int64(1), stats.TotalCategories)
	require.NotNil(t, stats.AverageQAScore)
	assert.InDelta(t, 0.8, *stats.AverageQAScore, 0.0001)
}
