package controller

import (
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TeacherController struct {
	Identity  *service.IdentityService
	Messaging *service.MessagingService
	Library   *service.LibraryService
}

func NewTeacherController(identity *service.IdentityService, messaging *service.MessagingService, library *service.LibraryService) *TeacherController {
	return &TeacherController{Identity: identity, Messaging: messaging, Library: library}
}

func (c *TeacherController) GetProfile(ctx *gin.Context) {
	t, err := c.Identity.Teacher(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, t)
}

// @Summary 更新教师档案
// @Tags 教师
// @Router /api/teacher/profile [put]
func (c *TeacherController) UpdateProfile(ctx *gin.Context) {
	var patch model.TeacherPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	t, err := c.Identity.UpdateTeacherProfile(ctx.Request.Context(), currentUserID(ctx), patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, t)
}

// GetStudents godoc
// @Summary 全部学生档案
// @Tags 教师
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.StudentProfile}
// @Router /api/teacher/students [get]
func (c *TeacherController) GetStudents(ctx *gin.Context) {
	students, err := c.Identity.Students()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

func (c *TeacherController) GetStudent(ctx *gin.Context) {
	st, err := c.Identity.Student(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

// @Summary 需要干预的学生
// @Tags 教师
// @Router /api/teacher/interventions [get]
func (c *TeacherController) GetInterventions(ctx *gin.Context) {
	flags, err := c.Messaging.Interventions()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, flags)
}

// @Summary AI 决策日志，最新在前
// @Tags 教师
// @Router /api/teacher/logs [get]
func (c *TeacherController) GetLogs(ctx *gin.Context) {
	logs, err := c.Library.Logs()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage godoc
// @Summary 给学生发送消息
// @Description 在线学生会通过收件箱 WebSocket 立即收到
// @Tags 教师
// @Accept json
// @Produce json
// @Param id path string true "学生ID"
// @Param body body SendMessageRequest true "消息内容"
// @Success 201 {object} util.Response{data=model.TeacherMessage}
// @Router /api/teacher/students/{id}/messages [post]
func (c *TeacherController) SendMessage(ctx *gin.Context) {
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	msg, err := c.Messaging.SendTeacherMessage(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}
