package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"cardkeeper-backend/internal/config"
	"cardkeeper-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// 识别结果状态
const (
	RecognitionStatusPending   = "pending"
	RecognitionStatusCompleted = "completed"
	RecognitionStatusError     = "error"
	RecognitionStatusMock      = "mock"
)

// RecognitionResult 外部 Document AI 服务的结构化识别结果。
// Mock 为 true 表示识别服务不可达，返回的是占位数据而非真实结果，
// 调用方通过该标志区分，不需要解析 Status 字符串。
type RecognitionResult struct {
	CardID        string               `json:"card_id,omitempty"`
	Fields        models.ContactFields `json:"fields"`
	QAScore       float64              `json:"qa_score"`
	QAStatus      string               `json:"qa_status,omitempty"`
	Status        string               `json:"status,omitempty"`
	MissingFields []string             `json:"missing_fields,omitempty"`
	Message       string               `json:"message,omitempty"`
	Mock          bool                 `json:"mock"`
}

type TranscriptionResult struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Status   string  `json:"status,omitempty"`
	Mock     bool    `json:"mock"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// RecognitionService 封装对外部识别/转写 HTTP 服务的调用，本身无状态。
// 任何一次调用都不做自动重试；传输层失败降级为带 Mock 标志的占位结果（离线容错，不是吞错误）。
type RecognitionService struct {
	baseURL string
	client  *http.Client
}

func NewRecognitionService(cfg config.RecognitionConfig) *RecognitionService {
	return &RecognitionService{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// AnalyzeImageURL 通过已上传的图片 URL 做名片识别
func (s *RecognitionService) AnalyzeImageURL(ctx context.Context, imageURL string) (*RecognitionResult, error) {
	body, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/cards/analyze-url/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("识别服务不可达，返回 Mock 结果")
		return mockRecognitionResult(), nil
	}
	defer resp.Body.Close()

	return decodeRecognitionResponse(resp)
}

// AnalyzeImage 直接上传图片做名片识别
func (s *RecognitionService) AnalyzeImage(ctx context.Context, filename string, data []byte) (*RecognitionResult, error) {
	resp, err := s.postMultipart(ctx, "/cards/", filename, "image/jpeg", data)
	if err != nil {
		logrus.WithError(err).Warn("识别服务不可达，返回 Mock 结果")
		return mockRecognitionResult(), nil
	}
	defer resp.Body.Close()

	return decodeRecognitionResponse(resp)
}

// TranscribeAudio 上传录音做语音转写
func (s *RecognitionService) TranscribeAudio(ctx context.Context, filename string, data []byte) (*TranscriptionResult, error) {
	resp, err := s.postMultipart(ctx, "/voice/", filename, "audio/m4a", data)
	if err != nil {
		logrus.WithError(err).Warn("转写服务不可达，返回 Mock 结果")
		return &TranscriptionResult{
			Text:   "Mock 转写结果：语音识别服务暂不可用",
			Status: RecognitionStatusMock,
			Mock:   true,
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var result TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析转写结果失败: %w", err)
	}
	return &result, nil
}

func (s *RecognitionService) postMultipart(ctx context.Context, endpoint, filename, contentType string, data []byte) (*http.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return s.client.Do(req)
}

func decodeRecognitionResponse(resp *http.Response) (*RecognitionResult, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var result RecognitionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析识别结果失败: %w", err)
	}
	if result.Status == "" {
		result.Status = RecognitionStatusCompleted
	}
	return &result, nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
		return fmt.Errorf("识别服务返回错误 (%d): %s", resp.StatusCode, apiErr.Detail)
	}
	return fmt.Errorf("识别服务返回错误 (%d)", resp.StatusCode)
}

func mockRecognitionResult() *RecognitionResult {
	return &RecognitionResult{
		QAScore: 0,
		Status:  RecognitionStatusMock,
		Message: "Mock 结果：识别服务暂不可用",
		Mock:    true,
	}
}
