package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cardkeeper-backend/internal/config"
	"cardkeeper-backend/internal/models"

	"github.com/sirupsen/logrus"
)

const maxHistoryItems = 5

var ErrSearchSuperseded = errors.New("查询已被更新的输入取代")

type SearchFilters struct {
	CategoryID    string   `json:"category_id,omitempty" form:"category_id"`
	OnlyFavorites bool     `json:"only_favorites,omitempty" form:"only_favorites"`
	MinQAScore    *float64 `json:"min_qa_score,omitempty" form:"min_qa_score"`
}

// SearchService 只读的全文检索：按分类取候选卡片，在内存中做大小写不敏感的子串匹配。
// 另维护一份每用户最多 5 条、去重、最近优先的查询历史，存在数据库之外的本地文件里。
type SearchService struct {
	cards      *CardService
	categories *CategoryService
	historyDir string
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]chan struct{}
}

func NewSearchService(cards *CardService, categories *CategoryService, cfg config.SearchConfig) *SearchService {
	return &SearchService{
		cards:      cards,
		categories: categories,
		historyDir: cfg.HistoryPath,
		debounce:   time.Duration(cfg.DebounceMillis) * time.Millisecond,
		pending:    make(map[string]chan struct{}),
	}
}

// Search 立即执行一次检索。空查询直接返回空结果，不访问存储
func (s *SearchService) Search(ctx context.Context, userID, query string, filters SearchFilters) ([]models.Card, error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Card{}, nil
	}

	// 取候选集：指定分类只查一个分类，否则对用户所有分类逐个查询后合并
	var cards []models.Card
	if filters.CategoryID != "" {
		result, err := s.cards.GetCardsByCategory(filters.CategoryID, userID)
		if err != nil {
			return nil, err
		}
		cards = result
	} else {
		categories, err := s.categories.GetUserCategories(userID)
		if err != nil {
			return nil, err
		}
		for _, category := range categories {
			result, err := s.cards.GetCardsByCategory(category.ID, userID)
			if err != nil {
				return nil, err
			}
			cards = append(cards, result...)
		}
	}

	term := strings.ToLower(query)
	matched := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if !matchesQuery(&card, term) {
			continue
		}
		if filters.OnlyFavorites && !card.IsFavorite {
			continue
		}
		if filters.MinQAScore != nil {
			if card.QAScore == nil || *card.QAScore < *filters.MinQAScore {
				continue
			}
		}
		matched = append(matched, card)
	}

	// 最新的排最前
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	// 历史记录失败只记日志，不影响检索结果
	if err := s.AddToHistory(userID, query); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("记录搜索历史失败")
	}

	return matched, nil
}

// SearchDebounced 增量输入的防抖入口：固定延迟后才真正执行检索，
// 期间同一用户的新查询会取代并取消尚未执行的旧查询。
func (s *SearchService) SearchDebounced(ctx context.Context, userID, query string, filters SearchFilters) ([]models.Card, error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}

	if strings.TrimSpace(query) == "" {
		// 空输入立即清空结果，并取消未执行的检索
		s.supersede(userID, nil)
		return []models.Card{}, nil
	}

	cancel := make(chan struct{})
	s.supersede(userID, cancel)

	timer := time.NewTimer(s.debounce)
	defer timer.Stop()

	select {
	case <-cancel:
		return nil, ErrSearchSuperseded
	case <-ctx.Done():
		s.clearPending(userID, cancel)
		return nil, ctx.Err()
	case <-timer.C:
	}

	s.clearPending(userID, cancel)
	return s.Search(ctx, userID, query, filters)
}

func (s *SearchService) supersede(userID string, next chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[userID]; ok {
		close(prev)
		delete(s.pending, userID)
	}
	if next != nil {
		s.pending[userID] = next
	}
}

func (s *SearchService) clearPending(userID string, own chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[userID] == own {
		delete(s.pending, userID)
	}
}

// 逐字段检查查询词是否为某个字段的子串
func matchesQuery(card *models.Card, term string) bool {
	fields := []string{
		card.Fields.Name,
		card.Fields.Company,
		card.Fields.Email,
		card.Fields.Mobile,
		card.Fields.Phone,
		card.Fields.Title,
		card.Fields.Address,
		card.Fields.Website,
		card.Fields.Service,
	}
	for _, field := range fields {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// ============ 搜索历史 ============

func (s *SearchService) GetHistory(userID string) ([]string, error) {
	data, err := os.ReadFile(s.historyFile(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var history []string
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AddToHistory 最近的查询排最前，去重，最多保留 5 条
func (s *SearchService) AddToHistory(userID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	history, err := s.GetHistory(userID)
	if err != nil {
		return err
	}

	updated := []string{query}
	for _, item := range history {
		if item != query {
			updated = append(updated, item)
		}
	}
	if len(updated) > maxHistoryItems {
		updated = updated[:maxHistoryItems]
	}

	return s.writeHistory(userID, updated)
}

func (s *SearchService) RemoveFromHistory(userID, query string) error {
	history, err := s.GetHistory(userID)
	if err != nil {
		return err
	}

	updated := make([]string, 0, len(history))
	for _, item := range history {
		if item != query {
			updated = append(updated, item)
		}
	}

	return s.writeHistory(userID, updated)
}

func (s *SearchService) ClearHistory(userID string) error {
	err := os.Remove(s.historyFile(userID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *SearchService) writeHistory(userID string, history []string) error {
	if err := os.MkdirAll(s.historyDir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return os.WriteFile(s.historyFile(userID), data, 0644)
}

func (s *SearchService) historyFile(userID string) string {
	return filepath.Join(s.historyDir, userID+".json")
}
