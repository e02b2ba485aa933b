package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fyp-portal/backend/config"
	"fyp-portal/backend/internal/api/handler"
	"fyp-portal/backend/internal/api/middleware"
	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/pkg/jwt"
	"fyp-portal/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块（管理员维护账号）
			users := authorized.Group("/users", middleware.RoleAuth(model.RoleAdmin))
			{
				users.POST("", h.User.Create)
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Delete)
			}

			// 课题模块
			projects := authorized.Group("/projects")
			{
				projects.POST("", middleware.RoleAuth(model.RoleStudent), h.Project.SubmitProposal)
				projects.GET("/my", middleware.RoleAuth(model.RoleStudent), h.Project.ListMyProjects)
				projects.GET("/supervised", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.ListSupervisedProjects)
				projects.GET("/unassigned", middleware.RoleAuth(model.RoleAdmin), h.Project.ListUnassignedProjects)
				projects.GET("/:id", h.Project.GetProject) // 细粒度可见性在 Service 层鉴权
				projects.POST("/:id/resubmit", middleware.RoleAuth(model.RoleStudent), h.Project.ResubmitProposal)
				projects.PUT("/:id/decision", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.DecideProposal)
				projects.PUT("/:id/start", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.MarkInProgress)
				projects.PUT("/:id/ready", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.MarkReadyForReview)
				projects.PUT("/:id/grade", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.GradeAndComplete)
				projects.PUT("/:id/status/override", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Project.OverrideStatus)
				projects.GET("/:id/status-history", h.Project.ListStatusHistory)

				// 提交台账（挂在课题之下）
				projects.POST("/:id/submissions", middleware.RoleAuth(model.RoleStudent), h.Submission.Create)
				projects.GET("/:id/submissions", h.Submission.ListByProject)
				projects.GET("/:id/submissions/:type/versions", h.Submission.ListVersions)
				projects.GET("/:id/progress", h.Submission.GetProgress)
				projects.POST("/:id/progress/refresh", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Submission.RefreshProgress)

				// 指派（管理员）
				projects.PUT("/:id/supervisor", middleware.RoleAuth(model.RoleAdmin), h.Assignment.Assign)
			}

			// 提交模块（按提交 ID 操作）
			submissions := authorized.Group("/submissions")
			{
				submissions.GET("/:id", h.Submission.Get)
				submissions.PUT("/:id/review", middleware.RoleAuth(model.RoleStaff, model.RoleAdmin), h.Submission.Review)
			}

			// 指派模块（管理员）
			assignments := authorized.Group("/assignments", middleware.RoleAuth(model.RoleAdmin))
			{
				assignments.POST("/bulk", h.Assignment.BulkAssign)
				assignments.GET("/workload", h.Assignment.Workload)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/workload", middleware.RoleAuth(model.RoleAdmin), h.Export.ExportWorkload)
			}
		}
	}

	return r
}
