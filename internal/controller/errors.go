package controller

import (
	"errors"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层错误映射为 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrStudentNotFound),
		errors.Is(err, util.ErrTeacherNotFound),
		errors.Is(err, util.ErrModuleNotFound),
		errors.Is(err, util.ErrConversationNotFound),
		errors.Is(err, util.ErrMessageNotFound),
		errors.Is(err, util.ErrResourceNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidArgument):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrTeacherRegistrationClosed), errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAIUnavailable):
		util.Error(ctx, http.StatusBadGateway, "AI tutor is unavailable, please try again")
	case errors.Is(err, util.ErrStateClosed):
		util.Error(ctx, http.StatusServiceUnavailable, "service is shutting down")
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUserID 已经过鉴权中间件，claims 一定存在
func currentUserID(ctx *gin.Context) string {
	if claims := util.GetUserFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}
