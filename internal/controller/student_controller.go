package controller

import (
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	Identity  *service.IdentityService
	Messaging *service.MessagingService
	Library   *service.LibraryService
}

func NewStudentController(identity *service.IdentityService, messaging *service.MessagingService, library *service.LibraryService) *StudentController {
	return &StudentController{Identity: identity, Messaging: messaging, Library: library}
}

// GetProfile godoc
// @Summary 获取当前学生档案
// @Tags 学生
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.StudentProfile}
// @Router /api/student/profile [get]
func (c *StudentController) GetProfile(ctx *gin.Context) {
	st, err := c.Identity.Student(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

// UpdateProfile godoc
// @Summary 更新当前学生档案
// @Tags 学生
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body model.StudentPatch true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.StudentProfile}
// @Router /api/student/profile [put]
func (c *StudentController) UpdateProfile(ctx *gin.Context) {
	var patch model.StudentPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	// 风险标记只能由导师流程设置
	patch.AtRisk = nil

	st, err := c.Identity.UpdateStudentProfile(ctx.Request.Context(), currentUserID(ctx), patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

type LanguageRequest struct {
	Language model.SupportedLanguage `json:"language" binding:"required"`
}

// @Summary 设置首选语言
// @Tags 学生
// @Router /api/student/language [put]
func (c *StudentController) SetLanguage(ctx *gin.Context) {
	var req LanguageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Identity.SetStudentLanguage(ctx.Request.Context(), currentUserID(ctx), req.Language); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"language": req.Language})
}

// @Summary 教师消息列表，最新在前
// @Tags 学生
// @Router /api/student/messages [get]
func (c *StudentController) GetMessages(ctx *gin.Context) {
	msgs, err := c.Messaging.StudentMessages(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, msgs)
}

// @Summary 标记消息已读
// @Tags 学生
// @Router /api/student/messages/{id}/read [post]
func (c *StudentController) MarkMessageRead(ctx *gin.Context) {
	if err := c.Messaging.MarkMessageRead(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type SaveResourceRequest struct {
	Title  string             `json:"title" binding:"required"`
	URI    string             `json:"uri" binding:"required"`
	Source string             `json:"source"`
	Type   model.ResourceType `json:"type"`
}

// SaveResource godoc
// @Summary 收藏学习资料
// @Description 相同 URI 的资料只保存一次，重复收藏返回 200 和已有记录
// @Tags 学生
// @Accept json
// @Produce json
// @Param body body SaveResourceRequest true "资料"
// @Success 201 {object} util.Response{data=model.StudyResource}
// @Router /api/student/resources [post]
func (c *StudentController) SaveResource(ctx *gin.Context) {
	var req SaveResourceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, created, err := c.Library.SaveResource(ctx.Request.Context(), currentUserID(ctx), model.StudyResource{
		Title:  req.Title,
		URI:    req.URI,
		Source: req.Source,
		Type:   req.Type,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	if created {
		util.Created(ctx, res)
		return
	}
	util.Success(ctx, res)
}

// @Summary 删除收藏的资料
// @Tags 学生
// @Router /api/student/resources/{id} [delete]
func (c *StudentController) RemoveResource(ctx *gin.Context) {
	if err := c.Library.RemoveResource(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *StudentController) GetLiveSessions(ctx *gin.Context) {
	sessions, err := c.Library.LiveSessions(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}

func (c *StudentController) SaveLiveSession(ctx *gin.Context) {
	var session model.LiveSession
	if err := ctx.ShouldBindJSON(&session); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	saved, err := c.Library.SaveLiveSession(ctx.Request.Context(), currentUserID(ctx), session)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, saved)
}
