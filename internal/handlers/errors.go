package handlers

import (
	"errors"
	"net/http"

	"cardkeeper-backend/internal/services"
	"cardkeeper-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// 服务层错误到 HTTP 状态码的统一映射
func handleServiceError(c *gin.Context, err error) {
	var captureErr *services.CaptureError
	if errors.As(err, &captureErr) {
		utils.Error(c, http.StatusBadGateway, captureErr.Error())
		return
	}

	switch {
	case errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrCardNotFound),
		errors.Is(err, services.ErrNoDraft):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCaptureInFlight),
		errors.Is(err, services.ErrCaptureBusy):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrOwnerRequired),
		errors.Is(err, services.ErrDeleteModeConflict),
		errors.Is(err, services.ErrMoveTargetInvalid),
		errors.Is(err, services.ErrDefaultImmutable),
		errors.Is(err, services.ErrDefaultUndeletable),
		errors.Is(err, services.ErrInvalidDraftState),
		errors.Is(err, services.ErrImageRequired),
		errors.Is(err, services.ErrVoiceTooLong),
		errors.Is(err, services.ErrPathNotAllowed),
		errors.Is(err, services.ErrFileTooLarge),
		errors.Is(err, services.ErrUserExists):
		utils.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Unauthorized(c, err.Error())
	default:
		utils.InternalError(c)
	}
}
