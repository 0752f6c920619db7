package handler

import (
	"github.com/bitfantasy/procura/internal/middleware"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 下的业务路由
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, jwtSecret string, revoked middleware.RevocationChecker) {
	// 认证 (无需登录)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtSecret, revoked))
	{
		authorized.GET("/auth/me", h.Auth.GetCurrentUser)
		authorized.POST("/auth/logout", h.Auth.Logout)

		users := authorized.Group("/users", middleware.RequireRole(entity.RoleAdmin))
		{
			users.GET("", h.User.List)
			users.POST("", h.User.Create)
		}

		// 采购申请
		prs := authorized.Group("/purchase-requests")
		{
			prs.GET("", h.Request.List)
			prs.POST("", h.Request.Create)
			prs.GET("/next-number", h.Request.NextNumber)
			prs.GET("/export", h.Request.Export)
			prs.GET("/:id", h.Request.Get)
			prs.PUT("/:id", h.Request.Update)
			prs.DELETE("/:id", h.Request.Delete)
			prs.POST("/:id/approve", h.Request.Approve)
			prs.POST("/:id/reject", h.Request.Reject)
			prs.POST("/:id/convert", h.Request.Convert)
			prs.GET("/:id/activities", h.Request.Activities)
		}

		// 采购单
		purchases := authorized.Group("/purchases")
		{
			purchases.GET("", h.Purchase.List)
			purchases.POST("", h.Purchase.Create)
			purchases.GET("/next-number", h.Purchase.NextNumber)
			purchases.GET("/:id", h.Purchase.Get)
			purchases.PUT("/:id", h.Purchase.Update)
			purchases.DELETE("/:id", h.Purchase.Delete)
			purchases.GET("/:id/installments", h.Purchase.Installments)
			purchases.GET("/:id/installments/export", h.Purchase.ExportInstallments)
		}
		authorized.GET("/pedidos/next-number", h.Purchase.NextPedidoNumber)

		sales := authorized.Group("/service-sales")
		{
			sales.GET("", h.ServiceSale.List)
			sales.POST("", h.ServiceSale.Create)
			sales.GET("/:id", h.ServiceSale.Get)
			sales.PUT("/:id", h.ServiceSale.Update)
			sales.DELETE("/:id", h.ServiceSale.Delete)
		}

		clients := authorized.Group("/clients")
		{
			clients.GET("", h.Client.List)
			clients.POST("", h.Client.Create)
			clients.GET("/:id", h.Client.Get)
			clients.PUT("/:id", h.Client.Update)
			clients.DELETE("/:id", h.Client.Delete)
		}

		projects := authorized.Group("/projects")
		{
			projects.GET("", h.Project.List)
			projects.POST("", h.Project.Create)
			projects.GET("/:id", h.Project.Get)
			projects.PUT("/:id", h.Project.Update)
			projects.DELETE("/:id", h.Project.Delete)
		}

		authorized.GET("/cnpj/:cnpj", h.CNPJ.Lookup)
		authorized.POST("/installments/preview", h.Installment.Preview)

		attachments := authorized.Group("/attachments")
		{
			attachments.GET("", h.Attachment.List)
			attachments.POST("", h.Attachment.Upload)
			attachments.GET("/:id/download", h.Attachment.Download)
			attachments.DELETE("/:id", h.Attachment.Delete)
		}
	}
}
