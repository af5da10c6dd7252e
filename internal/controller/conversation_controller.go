package controller

import (
	"errors"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ConversationController struct {
	Conversations *service.ConversationService
	Tutor         *service.TutorService
}

func NewConversationController(conversations *service.ConversationService, tutor *service.TutorService) *ConversationController {
	return &ConversationController{Conversations: conversations, Tutor: tutor}
}

// @Summary 会话列表，最近更新在前
// @Tags 会话
// @Router /api/student/conversations [get]
func (c *ConversationController) List(ctx *gin.Context) {
	convs, err := c.Conversations.ListConversations(currentUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, convs)
}

type CreateConversationRequest struct {
	Title   string `json:"title"`
	Welcome bool   `json:"welcome"`
}

// Create godoc
// @Summary 新建会话
// @Description welcome 为 true 时会话以导师欢迎语开头
// @Tags 会话
// @Accept json
// @Produce json
// @Param body body CreateConversationRequest false "标题"
// @Success 201 {object} util.Response{data=model.ChatConversation}
// @Router /api/student/conversations [post]
func (c *ConversationController) Create(ctx *gin.Context) {
	var req CreateConversationRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	var (
		conv model.ChatConversation
		err  error
	)
	if req.Welcome {
		conv, err = c.Conversations.StartConversation(ctx.Request.Context(), currentUserID(ctx))
	} else {
		conv, err = c.Conversations.CreateConversation(ctx.Request.Context(), currentUserID(ctx), req.Title)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, conv)
}

func (c *ConversationController) Get(ctx *gin.Context) {
	conv, err := c.Conversations.GetConversation(currentUserID(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, conv)
}

type AppendMessageRequest struct {
	Role       model.MessageRole `json:"role" binding:"required"`
	Content    string            `json:"content"`
	Attachment *model.Attachment `json:"attachment"`
}

// @Summary 追加一条消息
// @Tags 会话
// @Router /api/student/conversations/{id}/messages [post]
func (c *ConversationController) AppendMessage(ctx *gin.Context) {
	var req AppendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	msg, err := c.Conversations.AppendMessage(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), model.Message{
		Role:       req.Role,
		Content:    req.Content,
		Attachment: req.Attachment,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

type RenameRequest struct {
	Title string `json:"title" binding:"required"`
}

// @Summary 重命名会话
// @Tags 会话
// @Router /api/student/conversations/{id}/title [put]
func (c *ConversationController) Rename(ctx *gin.Context) {
	var req RenameRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Conversations.RenameConversation(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), req.Title); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"title": req.Title})
}

type ChatRequest struct {
	Text       string            `json:"text"`
	Attachment *model.Attachment `json:"attachment"`
}

// Chat godoc
// @Summary 向 AI 导师发送消息
// @Description 导师不可用时学生消息仍会保存，返回 502 并附带已保存的学生消息
// @Tags 会话
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param body body ChatRequest true "消息"
// @Success 200 {object} util.Response{data=service.ChatTurn}
// @Failure 502 {object} util.Response{data=service.ChatTurn}
// @Router /api/student/conversations/{id}/chat [post]
func (c *ConversationController) Chat(ctx *gin.Context) {
	var req ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	turn, err := c.Tutor.SendChatMessage(ctx.Request.Context(), currentUserID(ctx), ctx.Param("id"), req.Text, req.Attachment)
	if err != nil {
		if turn != nil && errors.Is(err, service.ErrAIUnavailable) {
			ctx.JSON(http.StatusBadGateway, util.Response{
				Code:    http.StatusBadGateway,
				Message: "AI tutor is unavailable, please try again",
				Data:    turn,
			})
			return
		}
		respondError(ctx, err)
		return
	}
	util.Success(ctx, turn)
}
