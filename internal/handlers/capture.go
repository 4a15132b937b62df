package handlers

import (
	"io"
	"net/http"
	"strconv"

	"cardkeeper-backend/internal/models"
	"cardkeeper-backend/internal/services"
	"cardkeeper-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type CaptureHandler struct {
	captureService  *services.CaptureService
	categoryService *services.CategoryService
}

func NewCaptureHandler(captureService *services.CaptureService, categoryService *services.CategoryService) *CaptureHandler {
	return &CaptureHandler{
		captureService:  captureService,
		categoryService: categoryService,
	}
}

// Start 接收一帧照片进入预览。category_id 可选：从某个分类页直接拍摄时带上
func (h *CaptureHandler) Start(c *gin.Context) {
	userID := c.GetString("user_id")

	image, err := readFormFile(c, "image")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "缺少图片文件")
		return
	}

	categoryID := c.PostForm("category_id")
	categoryName := ""
	if categoryID != "" {
		category, err := h.categoryService.GetCategoryByID(categoryID, userID)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		categoryName = category.Name
	}

	draft, err := h.captureService.Start(userID, image, categoryID, categoryName)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// GetDraft 查看当前草稿状态
func (h *CaptureHandler) GetDraft(c *gin.Context) {
	draft, err := h.captureService.Get(c.GetString("user_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// ConfirmPhoto 确认使用照片：上传并识别。失败后重复调用即重试
func (h *CaptureHandler) ConfirmPhoto(c *gin.Context) {
	draft, err := h.captureService.ConfirmPhoto(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// AttachVoice 上传录音并转写为语音备注
func (h *CaptureHandler) AttachVoice(c *gin.Context) {
	userID := c.GetString("user_id")

	audio, err := readFormFile(c, "audio")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "缺少音频文件")
		return
	}

	duration, _ := strconv.ParseFloat(c.PostForm("duration"), 64)

	draft, err := h.captureService.AttachVoiceNote(c.Request.Context(), userID, audio, duration)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// DeclineVoice 不录语音备注，草稿直接就绪
func (h *CaptureHandler) DeclineVoice(c *gin.Context) {
	draft, err := h.captureService.DeclineVoice(c.GetString("user_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// UpdateFields 保存前编辑识别出的字段
func (h *CaptureHandler) UpdateFields(c *gin.Context) {
	var fields models.ContactFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.Error(c, http.StatusBadRequest, "请求参数错误")
		return
	}

	draft, err := h.captureService.UpdateFields(c.GetString("user_id"), fields)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, draft)
}

// Save 唯一会真正持久化卡片的入口
func (h *CaptureHandler) Save(c *gin.Context) {
	card, err := h.captureService.Save(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "保存成功", card)
}

// Discard 丢弃草稿，无任何持久化副作用
func (h *CaptureHandler) Discard(c *gin.Context) {
	if err := h.captureService.Discard(c.GetString("user_id")); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "已丢弃", nil)
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
