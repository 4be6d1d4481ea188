package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/config"
	"github.com/ignatzorin/escrow-ledger/internal/http/handlers"
	"github.com/ignatzorin/escrow-ledger/internal/http/middleware"
)

// Handlers собирает обработчики, которые подключает роутер.
type Handlers struct {
	Escrow         *handlers.EscrowHandler
	Authorizations *handlers.AuthorizationHandler
	Accounts       *handlers.AccountHandler
	WS             *handlers.WSHandler
	Health         *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	// Изменяющие запросы ограничиваются по участнику
	limited := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))

	contracts := protected.Group("/contracts")
	{
		contracts.POST("", limited, h.Escrow.CreateContract)

		byID := contracts.Group("/:id", middleware.ContractIDValidator("id"))
		byID.GET("", h.Escrow.GetContract)
		byID.POST("/deposit", limited, h.Escrow.Deposit)
		byID.POST("/dispute", limited, h.Escrow.Dispute)
		byID.GET("/milestones", h.Escrow.ListMilestones)
		byID.GET("/milestones/:index", h.Escrow.GetMilestone)
		byID.POST("/milestones/:index/submit", limited, h.Escrow.SubmitMilestone)
		byID.POST("/milestones/:index/approve", limited, h.Escrow.ApproveMilestone)
	}

	authorizations := protected.Group("/authorizations")
	{
		authorizations.POST("", limited, h.Authorizations.Create)
		authorizations.GET("", h.Authorizations.List)

		byContract := authorizations.Group("/:contractId", middleware.ContractIDValidator("contractId"))
		byContract.GET("", h.Authorizations.Get)
		byContract.PATCH("", limited, h.Authorizations.Update)
		byContract.POST("/payments", limited, h.Authorizations.ProcessPayment)
		byContract.POST("/revoke", limited, h.Authorizations.Revoke)
	}

	accounts := protected.Group("/accounts")
	{
		accounts.GET("/me", h.Accounts.GetMe)
		accounts.GET("/me/transfers", h.Accounts.ListTransfers)
	}

	// Права администратора проверяет сам реестр
	admin := protected.Group("/admin")
	admin.POST("/authorizations/:client/:contractId/freeze", middleware.ContractIDValidator("contractId"), h.Authorizations.Freeze)

	return r
}
