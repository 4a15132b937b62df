package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cardkeeper-backend/internal/config"
	"cardkeeper-backend/internal/models"
	"cardkeeper-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 测试路由：跳过 JWT，直接注入用户身份
func setupCaptureRouter(t *testing.T, recognitionURL string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Category{}, &models.Card{}))

	categoryService := services.NewCategoryService(db)
	cardService := services.NewCardService(db, categoryService)
	storageService := services.NewStorageService(config.StorageConfig{
		UploadPath: t.TempDir(),
		BaseURL:    "http://localhost:8080",
	})
	recognitionService := services.NewRecognitionService(config.RecognitionConfig{
		BaseURL:        recognitionURL,
		TimeoutSeconds: 2,
	})
	captureService := services.NewCaptureService(storageService, recognitionService, cardService, 10)
	searchService := services.NewSearchService(cardService, categoryService, config.SearchConfig{
		DebounceMillis: 10,
		HistoryPath:    t.TempDir(),
	})

	captureHandler := NewCaptureHandler(captureService, categoryService)
	searchHandler := NewSearchHandler(searchService)
	cardHandler := NewCardHandler(cardService)

	router := gin.New()
	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
	})
	{
		api.POST("/capture", captureHandler.Start)
		api.GET("/capture", captureHandler.GetDraft)
		api.POST("/capture/confirm", captureHandler.ConfirmPhoto)
		api.POST("/capture/voice", captureHandler.AttachVoice)
		api.POST("/capture/voice/decline", captureHandler.DeclineVoice)
		api.PUT("/capture/fields", captureHandler.UpdateFields)
		api.POST("/capture/save", captureHandler.Save)
		api.DELETE("/capture", captureHandler.Discard)
		api.GET("/search", searchHandler.Search)
		api.GET("/search/history", searchHandler.GetHistory)
		api.GET("/cards", cardHandler.GetCards)
	}

	return router, db
}

func newRecognitionStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cards/analyze-url/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(services.RecognitionResult{
			Fields: models.ContactFields{
				Name:    "Jane Doe",
				Company: "Acme Corp",
				Email:   "jane@acme.com",
			},
			QAScore: 0.9,
			Status:  services.RecognitionStatusCompleted,
		})
	})
	mux.HandleFunc("/voice/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(services.TranscriptionResult{
			Text: "下周跟进", Language: "zh", Duration: 3,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func multipartBody(t *testing.T, field, filename string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, models.Response) {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp models.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestCaptureFlow_HTTP(t *testing.T) {
	stub := newRecognitionStub(t)
	router, db := setupCaptureRouter(t, stub.URL)

	// 拍照进入预览
	body, contentType := multipartBody(t, "image", "card.jpg", []byte("jpeg"), nil)
	w, _ := doRequest(t, router, http.MethodPost, "/api/capture", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	// 确认照片 → 上传 + 识别
	w, resp := doRequest(t, router, http.MethodPost, "/api/capture/confirm", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	draft, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	assert.Contains(t, string(draft), "Jane Doe")
	assert.Contains(t, string(draft), string(services.StateVoicePrompt))

	// 附加语音备注
	body, contentType = multipartBody(t, "audio", "note.m4a", []byte("m4a"), map[string]string{"duration": "3"})
	w, _ = doRequest(t, router, http.MethodPost, "/api/capture/voice", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	// 保存
	w, _ = doRequest(t, router, http.MethodPost, "/api/capture/save", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Card{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 保存之后能搜到
	w, resp = doRequest(t, router, http.MethodGet, "/api/search?q=acme", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	results, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	assert.Contains(t, string(results), "jane@acme.com")
}

func TestCaptureStart_MissingImage(t *testing.T) {
	stub := newRecognitionStub(t)
	router, _ := setupCaptureRouter(t, stub.URL)

	w, resp := doRequest(t, router, http.MethodPost, "/api/capture", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "缺少图片文件", resp.Message)
}

func TestCaptureStart_SecondDraftConflicts(t *testing.T) {
	stub := newRecognitionStub(t)
	router, _ := setupCaptureRouter(t, stub.URL)

	body, contentType := multipartBody(t, "image", "card.jpg", []byte("jpeg"), nil)
	w, _ := doRequest(t, router, http.MethodPost, "/api/capture", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	body, contentType = multipartBody(t, "image", "card.jpg", []byte("jpeg"), nil)
	w, _ = doRequest(t, router, http.MethodPost, "/api/capture", body, contentType)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCaptureDiscard_NoDraft(t *testing.T) {
	stub := newRecognitionStub(t)
	router, _ := setupCaptureRouter(t, stub.URL)

	w, _ := doRequest(t, router, http.MethodDelete, "/api/capture", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureConfirm_UpstreamErrorIsBadGateway(t *testing.T) {
	// 识别服务明确返回错误（不是不可达）时映射为 502
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "image too blurry"})
	}))
	defer failing.Close()

	router, _ := setupCaptureRouter(t, failing.URL)

	body, contentType := multipartBody(t, "image", "card.jpg", []byte("jpeg"), nil)
	w, _ := doRequest(t, router, http.MethodPost, "/api/capture", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doRequest(t, router, http.MethodPost, "/api/capture/confirm", nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, resp.Message, "image too blurry")
}

func TestSearchHistory_HTTP(t *testing.T) {
	stub := newRecognitionStub(t)
	router, _ := setupCaptureRouter(t, stub.URL)

	_, _ = doRequest(t, router, http.MethodGet, "/api/search?q=zhang", nil, "")
	_, _ = doRequest(t, router, http.MethodGet, "/api/search?q=acme", nil, "")

	w, resp := doRequest(t, router, http.MethodGet, "/api/search/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var history []string
	require.NoError(t, json.Unmarshal(raw, &history))
	assert.Equal(t, []string{"acme", "zhang"}, history)
}
