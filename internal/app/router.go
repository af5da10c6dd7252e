package app

import (
	"h2ala_backend/internal/config"
	"h2ala_backend/internal/middleware"
	"h2ala_backend/internal/model"
	"h2ala_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.ConfigMiddleware(cfg), middleware.AuthMiddleware())
	{
		student := authGroup.Group("/student")
		student.Use(middleware.RoleMiddleware(model.RoleStudent))
		a.registerStudentRoutes(student, c)

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
		a.registerTeacherRoutes(teacher, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.student.GetProfile)
	rg.PUT("/profile", c.student.UpdateProfile)
	rg.PUT("/language", c.student.SetLanguage)

	// 学习进度
	rg.GET("/modules/:id/questions", c.progress.GetQuestions)
	rg.POST("/modules/:id/score", c.progress.ApplyScore)
	rg.POST("/modules/:id/quiz", c.progress.SubmitQuiz)
	rg.POST("/modules/generate", c.progress.GenerateModule)
	rg.GET("/attempts", c.progress.GetAttempts)

	// AI 导师会话
	rg.GET("/conversations", c.conversation.List)
	rg.POST("/conversations", c.conversation.Create)
	rg.GET("/conversations/:id", c.conversation.Get)
	rg.POST("/conversations/:id/messages", c.conversation.AppendMessage)
	rg.PUT("/conversations/:id/title", c.conversation.Rename)
	rg.POST("/conversations/:id/chat", c.conversation.Chat)

	// 教师消息
	rg.GET("/messages", c.student.GetMessages)
	rg.POST("/messages/:id/read", c.student.MarkMessageRead)
	rg.GET("/inbox/ws", c.inbox.HandleWS)

	// 资料库与直播记录
	rg.POST("/resources", c.student.SaveResource)
	rg.DELETE("/resources/:id", c.student.RemoveResource)
	rg.GET("/live-sessions", c.student.GetLiveSessions)
	rg.POST("/live-sessions", c.student.SaveLiveSession)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.teacher.GetProfile)
	rg.PUT("/profile", c.teacher.UpdateProfile)
	rg.GET("/students", c.teacher.GetStudents)
	rg.GET("/students/:id", c.teacher.GetStudent)
	rg.POST("/students/:id/messages", c.teacher.SendMessage)
	rg.GET("/interventions", c.teacher.GetInterventions)
	rg.GET("/logs", c.teacher.GetLogs)
}
