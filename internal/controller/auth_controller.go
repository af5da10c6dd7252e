package controller

import (
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/service"
	"h2ala_backend/internal/util"
	"h2ala_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role"`
	Subject  string         `json:"subject"`
}

// Register godoc
// @Summary 注册学生账号
// @Description 教师账号不开放注册
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "注册信息"
// @Success 201 {object} util.Response{data=model.StudentProfile}
// @Failure 403 {object} util.Response "教师注册未开放"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if req.Role == model.RoleTeacher {
		_, err := c.AuthService.RegisterTeacher(ctx.Request.Context(), req.Name, req.Email, req.Password, req.Subject)
		respondError(ctx, err)
		return
	}

	student, err := c.AuthService.RegisterStudent(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, student)
}

type LoginRequest struct {
	Email    string         `json:"email" binding:"required"`
	Password string         `json:"password" binding:"required"`
	Role     model.UserRole `json:"role" binding:"required"`
}

// Login godoc
// @Summary 登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.LoginResult}
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		logger.Log.Info("Login failed", zap.String("email", req.Email), zap.String("role", string(req.Role)), zap.Error(err))
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
