package handlers

import (
	"net/http"
	"strconv"

	"cardkeeper-backend/internal/services"
	"cardkeeper-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService *services.SearchService
}

func NewSearchHandler(searchService *services.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 一次性检索。空查询返回空结果，不触发任何存储访问
func (h *SearchHandler) Search(c *gin.Context) {
	userID := c.GetString("user_id")

	cards, err := h.searchService.Search(c.Request.Context(), userID, c.Query("q"), parseFilters(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, cards)
}

// SearchLive 增量输入专用的防抖检索：同一用户更快的新输入会取代未执行的旧查询
func (h *SearchHandler) SearchLive(c *gin.Context) {
	userID := c.GetString("user_id")

	cards, err := h.searchService.SearchDebounced(c.Request.Context(), userID, c.Query("q"), parseFilters(c))
	if err != nil {
		if err == services.ErrSearchSuperseded {
			utils.Error(c, http.StatusConflict, err.Error())
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.Success(c, cards)
}

func (h *SearchHandler) GetHistory(c *gin.Context) {
	history, err := h.searchService.GetHistory(c.GetString("user_id"))
	if err != nil {
		utils.InternalError(c)
		return
	}

	utils.Success(c, history)
}

// DeleteHistory 带 q 参数删除单条，否则清空
func (h *SearchHandler) DeleteHistory(c *gin.Context) {
	userID := c.GetString("user_id")

	var err error
	if query := c.Query("q"); query != "" {
		err = h.searchService.RemoveFromHistory(userID, query)
	} else {
		err = h.searchService.ClearHistory(userID)
	}
	if err != nil {
		utils.InternalError(c)
		return
	}

	utils.SuccessWithMessage(c, "已删除", nil)
}

func parseFilters(c *gin.Context) services.SearchFilters {
	filters := services.SearchFilters{
		CategoryID:    c.Query("category_id"),
		OnlyFavorites: c.Query("only_favorites") == "true",
	}
	if raw := c.Query("min_qa_score"); raw != "" {
		if score, err := strconv.ParseFloat(raw, 64); err == nil {
			filters.MinQAScore = &score
		}
	}
	return filters
}
