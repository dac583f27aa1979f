package router

import (
	"time"

	"upam/internal/database"
	"upam/internal/handlers"
	"upam/internal/middleware"
	"upam/internal/services"
	"upam/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {
	db := database.GetDB()
	cache := database.GetCache()

	userService := services.NewUserService(db, cache)
	applicationService := services.NewApplicationService(db)
	groupService := services.NewGroupService(db)
	roleService := services.NewRoleService(db)
	privilegeService := services.NewPrivilegeService(db)
	resourceService := services.NewResourceService(db)
	authorizeService := services.NewAuthorizeService(db)

	auth := middleware.NewAuthMiddleware(userService)
	authorize := middleware.NewAuthorizeMiddleware(authorizeService)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// JWT认证路由（无需认证）
		authHandler := handlers.NewAuthHandler(userService)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)

			// 以下需要登录
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
			authGroup.POST("/password/request", auth.RequireLogin(), authHandler.RequestPasswordChange)
			authGroup.POST("/password/change", auth.RequireLogin(), authHandler.ChangePassword)
		}

		// 用户管理（管理员）
		userHandler := handlers.NewUserHandler(userService)
		groupHandler := handlers.NewGroupHandler(groupService)
		users := api.Group("/users", auth.RequireLogin(), auth.RequireAdmin())
		{
			users.POST("", userHandler.Create)
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id/status", userHandler.SetStatus)
			users.GET("/:id/groups", groupHandler.GroupsOfUser)
		}

		// 组层级管理（管理员）
		groups := api.Group("/groups", auth.RequireLogin(), auth.RequireAdmin())
		{
			groups.POST("", groupHandler.Create)
			groups.POST("/batch", groupHandler.CreateMany)
			groups.DELETE("", groupHandler.Remove)
			groups.GET("", groupHandler.ListRoot)
			groups.GET("/:id", groupHandler.Get)
			groups.GET("/:id/fullname", groupHandler.FullName)
			groups.PUT("/:id/users", groupHandler.AppendUsers)
			groups.POST("/move-users", groupHandler.MoveUsers)
		}

		// 关系图巡检（管理员）
		auditHandler := handlers.NewAuditHandler(services.NewGraphAuditService(db))
		api.POST("/audit/cycle-scan", auth.RequireLogin(), auth.RequireAdmin(), auditHandler.CycleScan)

		// 应用管理（管理员）
		applicationHandler := handlers.NewApplicationHandler(applicationService)
		applications := api.Group("/applications", auth.RequireLogin(), auth.RequireAdmin())
		{
			applications.POST("", applicationHandler.Create)
			applications.GET("", applicationHandler.List)
		}

		// 应用下的角色与特权（管理员）
		roleHandler := handlers.NewRoleHandler(roleService, applicationService)
		privilegeHandler := handlers.NewPrivilegeHandler(privilegeService, applicationService)
		admin := api.Group("/applications/:app", auth.RequireLogin(), auth.RequireAdmin())
		{
			admin.GET("", applicationHandler.Get)
			admin.DELETE("", applicationHandler.Delete)

			admin.POST("/roles", roleHandler.Create)
			admin.GET("/roles", roleHandler.List)
			admin.DELETE("/roles/:id", roleHandler.Delete)
			admin.POST("/inherits", roleHandler.Inherit)
			admin.GET("/roles/:id/inherited", roleHandler.Inherited)
			admin.POST("/roles/:id/assign", roleHandler.Assign)
			admin.POST("/roles/:id/revoke", roleHandler.Revoke)
			admin.GET("/users/:id/roles", roleHandler.RolesOfUser)

			admin.POST("/privileges", privilegeHandler.Assign)
			admin.PUT("/privileges", privilegeHandler.Modify)
			admin.GET("/privileges", privilegeHandler.List)
		}

		// 接入应用的资源面：完整授权流水线
		resourceHandler := handlers.NewResourceHandler(resourceService)
		resources := api.Group("/apps/:app/resources",
			auth.RequireLogin(),
			authorize.Identify(),
			authorize.AuthorizeApplication("app"),
		)
		{
			resources.POST("", resourceHandler.Create)
			resources.GET("", resourceHandler.List)
			resources.GET("/:id", authorize.AuthorizeResource("id"), resourceHandler.Get)
			resources.PUT("/:id/acl", authorize.AuthorizeResource("id"), resourceHandler.UpdateACL)
			resources.DELETE("/:id", authorize.AuthorizeResource("id"), resourceHandler.Delete)
		}
	}
}

// healthCheck 健康检查
func healthCheck(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.Ping() != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	} else {
		status["database"] = "ok"
	}
	if err := database.GetCache().Ping(); err != nil {
		status["status"] = "degraded"
		status["cache"] = "unreachable"
	} else {
		status["cache"] = "ok"
	}

	response.Success(c, status)
}

// ping 存活探针
func ping(c *gin.Context) {
	response.Success(c, gin.H{"message": "pong"})
}
