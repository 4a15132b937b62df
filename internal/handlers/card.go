package handlers

import (
	"net/http"
	"strconv"

	"cardkeeper-backend/internal/models"
	"cardkeeper-backend/internal/services"
	"cardkeeper-backend/internal/utils"
	appvalidator "cardkeeper-backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type CardHandler struct {
	cardService *services.CardService
	validator   *validator.Validate
}

func NewCardHandler(cardService *services.CardService) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		validator:   appvalidator.GetValidator(),
	}
}

// GetCards 按查询参数分发：category_id 指定分类，favorites=true 只看收藏，
// recent=N 最近 N 张，默认返回用户全部卡片
func (h *CardHandler) GetCards(c *gin.Context) {
	userID := c.GetString("user_id")

	var (
		cards []models.Card
		err   error
	)

	switch {
	case c.Query("category_id") != "":
		cards, err = h.cardService.GetCardsByCategory(c.Query("category_id"), userID)
	case c.Query("favorites") == "true":
		cards, err = h.cardService.GetFavoriteCards(userID)
	case c.Query("recent") != "":
		limit, _ := strconv.Atoi(c.Query("recent"))
		cards, err = h.cardService.GetRecentCards(userID, limit)
	default:
		cards, err = h.cardService.GetAllUserCards(userID)
	}

	if err != nil {
		utils.InternalError(c)
		return
	}

	utils.Success(c, cards)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	userID := c.GetString("user_id")

	card, err := h.cardService.GetCardByID(c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, card)
}

// CreateCard 不经过拍摄流程直接录入一张卡片
func (h *CardHandler) CreateCard(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.CardCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationError(c, err.Error())
		return
	}

	card := &models.Card{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Fields:     req.Fields,
		ImageURL:   req.ImageURL,
		QAScore:    req.QAScore,
		QAStatus:   req.QAStatus,
	}

	saved, err := h.cardService.AddCard(card)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "创建成功", saved)
}

func (h *CardHandler) UpdateCard(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.CardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	card, err := h.cardService.UpdateCard(c.Param("id"), userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "更新成功", card)
}

func (h *CardHandler) MoveCard(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.CardMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationError(c, err.Error())
		return
	}

	card, err := h.cardService.MoveCard(c.Param("id"), userID, req.ToCategoryID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "移动成功", card)
}

func (h *CardHandler) DeleteCard(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.cardService.DeleteCard(c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "删除成功", nil)
}

func (h *CardHandler) GetUserStats(c *gin.Context) {
	userID := c.GetString("user_id")

	stats, err := h.cardService.GetUserStats(userID)
	if err != nil {
		utils.InternalError(c)
		return
	}

	utils.Success(c, stats)
}
