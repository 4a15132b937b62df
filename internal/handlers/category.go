package handlers

import (
	"net/http"

	"cardkeeper-backend/internal/models"
	"cardkeeper-backend/internal/services"
	"cardkeeper-backend/internal/utils"
	appvalidator "cardkeeper-backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
	validator       *validator.Validate
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		validator:       appvalidator.GetValidator(),
	}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	userID := c.GetString("user_id")

	// 保证默认分类存在，任何时候调用都幂等
	if _, err := h.categoryService.CreateDefaultCategory(userID); err != nil {
		handleServiceError(c, err)
		return
	}

	categories, err := h.categoryService.GetUserCategories(userID)
	if err != nil {
		utils.InternalError(c)
		return
	}

	utils.Success(c, categories)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationError(c, err.Error())
		return
	}

	category, err := h.categoryService.CreateCategory(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "创建成功", category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID := c.GetString("user_id")
	categoryID := c.Param("id")

	var req models.CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationError(c, err.Error())
		return
	}

	category, err := h.categoryService.UpdateCategory(categoryID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "更新成功", category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID := c.GetString("user_id")
	categoryID := c.Param("id")

	var req models.CategoryDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	if err := h.categoryService.DeleteCategory(categoryID, userID, &req); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "删除成功", nil)
}
