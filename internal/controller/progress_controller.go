package controller

import (
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Progress *service.ProgressService
	Tutor    *service.TutorService
}

func NewProgressController(progress *service.ProgressService, tutor *service.TutorService) *ProgressController {
	return &ProgressController{Progress: progress, Tutor: tutor}
}

// @Summary 获取模块题目
// @Tags 学习进度
// @Router /api/student/modules/{id}/questions [get]
func (c *ProgressController) GetQuestions(ctx *gin.Context) {
	qs, err := c.Progress.GetModuleQuestions(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

type ScoreRequest struct {
	MasteryDelta int `json:"masteryDelta"`
	TimeDelta    int `json:"timeDelta"`
}

// ApplyScore godoc
// @Summary 记录模块得分
// @Description 掌握度增量会被截断到 0-100，达到 90 完成并解锁下一个模块
// @Tags 学习进度
// @Accept json
// @Produce json
// @Param id path string true "模块ID"
// @Param body body ScoreRequest true "增量"
// @Success 200 {object} util.Response{data=model.StudentProfile}
// @Router /api/student/modules/{id}/score [post]
func (c *ProgressController) ApplyScore(ctx *gin.Context) {
	var req ScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	st, err := c.Progress.ApplyModuleScore(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), req.MasteryDelta, req.TimeDelta)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

type SubmitQuizRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Tags 学习进度
// @Accept json
// @Produce json
// @Param id path string true "模块ID"
// @Param body body SubmitQuizRequest true "按题目顺序的选项下标"
// @Success 200 {object} util.Response{data=service.QuizResult}
// @Router /api/student/modules/{id}/quiz [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.Progress.SubmitQuiz(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

type GenerateQuizRequest struct {
	Topic      string `json:"topic" binding:"required"`
	Difficulty string `json:"difficulty"`
}

// GenerateModule godoc
// @Summary AI 生成测验模块
// @Tags 学习进度
// @Accept json
// @Produce json
// @Param body body GenerateQuizRequest true "主题与难度"
// @Success 201 {object} util.Response
// @Failure 502 {object} util.Response "AI 服务不可用"
// @Router /api/student/modules/generate [post]
func (c *ProgressController) GenerateModule(ctx *gin.Context) {
	var req GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	mod, questions, err := c.Tutor.GenerateQuiz(ctx.Request.Context(), currentUserID(ctx), req.Topic, req.Difficulty)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"module": mod, "questions": questions})
}

// @Summary 测验记录，最新在前
// @Tags 学习进度
// @Router /api/student/attempts [get]
func (c *ProgressController) GetAttempts(ctx *gin.Context) {
	attempts, err := c.Progress.Attempts(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
