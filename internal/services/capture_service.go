package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cardkeeper-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// 拍摄流程状态机（状态，不是页面）
type DraftState string

const (
	StatePhotoPreview      DraftState = "photo_preview"
	StateUploading         DraftState = "uploading"
	StateRecognizing       DraftState = "recognizing"
	StateVoicePrompt       DraftState = "voice_prompt"
	StateUploadingVoice    DraftState = "uploading_voice"
	StateTranscribingVoice DraftState = "transcribing_voice"
	StateDraftReady        DraftState = "draft_ready"
	StatePersisted         DraftState = "persisted"
)

// 拍摄流程各步骤名，用于错误定位
const (
	StepUpload      = "upload"
	StepRecognize   = "recognize"
	StepVoiceUpload = "voice_upload"
	StepTranscribe  = "transcribe"
	StepPersist     = "persist"
)

var (
	ErrCaptureInFlight   = errors.New("已有未完成的拍摄草稿")
	ErrCaptureBusy       = errors.New("当前草稿正在处理中")
	ErrNoDraft           = errors.New("没有进行中的拍摄草稿")
	ErrInvalidDraftState = errors.New("当前状态不允许该操作")
	ErrImageRequired     = errors.New("缺少图片数据")
	ErrVoiceTooLong      = errors.New("语音时长超出限制")
)

// CaptureError 标记失败发生在哪一步，调用方据此决定重试还是放弃
type CaptureError struct {
	Step string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("拍摄流程在 %s 步骤失败: %v", e.Step, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Draft 未持久化的草稿：在用户明确保存之前只存在于内存中，随时可以丢弃
type Draft struct {
	UserID       string               `json:"user_id"`
	State        DraftState           `json:"state"`
	ImageURL     string               `json:"image_url,omitempty"`
	CategoryID   string               `json:"category_id,omitempty"`
	CategoryName string               `json:"category_name,omitempty"`
	Fields       models.ContactFields `json:"fields"`
	QAScore      *float64             `json:"qa_score,omitempty"`
	QAStatus     string               `json:"qa_status,omitempty"`
	Status       string               `json:"status,omitempty"`
	Mock         bool                 `json:"mock"`
	VoiceNote    *models.VoiceNote    `json:"voice_note,omitempty"`
	Card         *models.Card         `json:"card,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`

	image []byte
}

// CaptureService 驱动 拍照 → 上传 → 识别 → 可选语音备注 → 草稿 → 确认保存 的端到端流程。
// 每个用户同一时刻只允许一份在途草稿；任何一步的网络调用都不自动重试。
type CaptureService struct {
	storage     *StorageService
	recognition *RecognitionService
	cards       *CardService

	maxVoiceSeconds int

	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewCaptureService(storage *StorageService, recognition *RecognitionService, cards *CardService, maxVoiceSeconds int) *CaptureService {
	if maxVoiceSeconds <= 0 {
		maxVoiceSeconds = 10
	}
	return &CaptureService{
		storage:         storage,
		recognition:     recognition,
		cards:           cards,
		maxVoiceSeconds: maxVoiceSeconds,
		drafts:          make(map[string]*Draft),
	}
}

// Start 按下快门：保存一帧图片进入预览，此时没有任何副作用。
// 上一份草稿未保存也未丢弃时不允许开始新的拍摄。
func (s *CaptureService) Start(userID string, image []byte, categoryID, categoryName string) (*Draft, error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}
	if len(image) == 0 {
		return nil, ErrImageRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.drafts[userID]; ok && existing.State != StatePersisted {
		return nil, ErrCaptureInFlight
	}

	draft := &Draft{
		UserID:       userID,
		State:        StatePhotoPreview,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		CreatedAt:    time.Now(),
		image:        image,
	}
	s.drafts[userID] = draft

	return snapshot(draft), nil
}

// Discard 丢弃草稿。已上传的文件不回收（内容寻址，留存无害）
func (s *CaptureService) Discard(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[userID]; !ok {
		return ErrNoDraft
	}
	delete(s.drafts, userID)
	return nil
}

// Get 返回当前草稿的快照
func (s *CaptureService) Get(userID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[userID]
	if !ok {
		return nil, ErrNoDraft
	}
	return snapshot(draft), nil
}

// ConfirmPhoto 用户确认使用这张照片：上传图片、调用识别服务、组装草稿。
// 识别失败不丢弃照片和已上传的文件，再次调用即重试（已上传时跳过上传步骤）。
func (s *CaptureService) ConfirmPhoto(ctx context.Context, userID string) (*Draft, error) {
	s.mu.Lock()
	draft, ok := s.drafts[userID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoDraft
	}
	if draft.State != StatePhotoPreview {
		err := stateError(draft.State)
		s.mu.Unlock()
		return nil, err
	}
	draft.State = StateUploading
	image := draft.image
	imageURL := draft.ImageURL
	s.mu.Unlock()

	// 1. 上传图片（重试时已有 URL 则跳过）
	if imageURL == "" {
		url, err := s.storage.Upload(image, CardImagePath())
		if err != nil {
			s.revert(userID, StatePhotoPreview)
			logrus.WithError(err).WithField("user_id", userID).Error("名片图片上传失败")
			return nil, &CaptureError{Step: StepUpload, Err: err}
		}
		imageURL = url
		s.update(userID, func(d *Draft) {
			d.ImageURL = url
		})
	}

	// 2. 识别
	s.update(userID, func(d *Draft) {
		d.State = StateRecognizing
	})

	result, err := s.recognition.AnalyzeImageURL(ctx, imageURL)
	if err != nil {
		// 图片和已上传的 URL 保留，用户可以重试识别或放弃
		s.revert(userID, StatePhotoPreview)
		logrus.WithError(err).WithField("user_id", userID).Error("名片识别失败")
		return nil, &CaptureError{Step: StepRecognize, Err: err}
	}

	// 3. 组装草稿，等待用户决定是否录语音备注
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok = s.drafts[userID]
	if !ok {
		return nil, ErrNoDraft
	}
	draft.Fields = result.Fields
	qaScore := result.QAScore
	draft.QAScore = &qaScore
	draft.QAStatus = result.QAStatus
	draft.Status = result.Status
	draft.Mock = result.Mock
	draft.State = StateVoicePrompt
	draft.image = nil

	return snapshot(draft), nil
}

// AttachVoiceNote 上传录音并转写，把语音备注合并进草稿。
// 转写失败不作废已识别的字段：用占位文本继续，整个拍摄不失败。
func (s *CaptureService) AttachVoiceNote(ctx context.Context, userID string, audio []byte, durationSeconds float64) (*Draft, error) {
	if len(audio) == 0 {
		return nil, ErrImageRequired
	}
	if durationSeconds > float64(s.maxVoiceSeconds) {
		return nil, ErrVoiceTooLong
	}

	s.mu.Lock()
	draft, ok := s.drafts[userID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoDraft
	}
	if draft.State != StateVoicePrompt {
		err := stateError(draft.State)
		s.mu.Unlock()
		return nil, err
	}
	draft.State = StateUploadingVoice
	s.mu.Unlock()

	// 1. 上传录音
	path := VoiceNotePath()
	audioURL, err := s.storage.Upload(audio, path)
	if err != nil {
		s.revert(userID, StateVoicePrompt)
		logrus.WithError(err).WithField("user_id", userID).Error("语音备注上传失败")
		return nil, &CaptureError{Step: StepVoiceUpload, Err: err}
	}

	// 2. 转写
	s.update(userID, func(d *Draft) {
		d.State = StateTranscribingVoice
	})

	note := models.VoiceNote{
		AudioURL: audioURL,
		Duration: durationSeconds,
	}
	transcript, err := s.recognition.TranscribeAudio(ctx, "recording.m4a", audio)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("语音转写失败，使用占位文本")
		note.Text = "语音备注已录制（转写失败）"
	} else {
		note.Text = transcript.Text
		note.Language = transcript.Language
		if transcript.Duration > 0 {
			note.Duration = transcript.Duration
		}
	}

	// 3. 合并进草稿
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok = s.drafts[userID]
	if !ok {
		return nil, ErrNoDraft
	}
	draft.VoiceNote = &note
	draft.State = StateDraftReady

	return snapshot(draft), nil
}

// DeclineVoice 用户选择不录语音备注，草稿直接就绪
func (s *CaptureService) DeclineVoice(userID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[userID]
	if !ok {
		return nil, ErrNoDraft
	}
	if draft.State != StateVoicePrompt {
		return nil, stateError(draft.State)
	}
	draft.State = StateDraftReady

	return snapshot(draft), nil
}

// UpdateFields 保存前可以自由编辑已识别的字段
func (s *CaptureService) UpdateFields(userID string, fields models.ContactFields) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[userID]
	if !ok {
		return nil, ErrNoDraft
	}
	if draft.State != StateVoicePrompt && draft.State != StateDraftReady {
		return nil, stateError(draft.State)
	}
	draft.Fields = fields

	return snapshot(draft), nil
}

// Save 唯一会写入持久化存储的转换。幂等：对同一份草稿重复调用
// 不会产生第二张卡片，而是返回已保存的那张。
func (s *CaptureService) Save(ctx context.Context, userID string) (*models.Card, error) {
	s.mu.Lock()
	draft, ok := s.drafts[userID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoDraft
	}
	if draft.State == StatePersisted {
		card := draft.Card
		s.mu.Unlock()
		if card == nil {
			// 另一次 Save 正在进行中
			return nil, ErrCaptureBusy
		}
		return card, nil
	}
	if draft.State != StateDraftReady {
		err := stateError(draft.State)
		s.mu.Unlock()
		return nil, err
	}

	card := &models.Card{
		UserID:     userID,
		CategoryID: draft.CategoryID,
		Fields:     draft.Fields,
		QAScore:    draft.QAScore,
		QAStatus:   draft.QAStatus,
		ImageURL:   draft.ImageURL,
	}
	if draft.VoiceNote != nil {
		card.VoiceNote = *draft.VoiceNote
	}
	draft.State = StatePersisted
	s.mu.Unlock()

	saved, err := s.cards.AddCard(card)
	if err != nil {
		s.revert(userID, StateDraftReady)
		return nil, &CaptureError{Step: StepPersist, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if draft, ok := s.drafts[userID]; ok {
		draft.Card = saved
		draft.State = StatePersisted
	}

	return saved, nil
}

func (s *CaptureService) update(userID string, fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft, ok := s.drafts[userID]; ok {
		fn(draft)
	}
}

func (s *CaptureService) revert(userID string, state DraftState) {
	s.update(userID, func(d *Draft) {
		d.State = state
	})
}

func stateError(state DraftState) error {
	switch state {
	case StateUploading, StateRecognizing, StateUploadingVoice, StateTranscribingVoice:
		return ErrCaptureBusy
	default:
		return ErrInvalidDraftState
	}
}

func snapshot(d *Draft) *Draft {
	copied := *d
	copied.image = nil
	return &copied
}
