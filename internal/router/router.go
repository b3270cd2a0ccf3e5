package router

import (
	"net/http"

	"payout-backend/internal/handlers"
	"payout-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the handlers and middleware the router wires together.
type Deps struct {
	Withdraw  *handlers.WithdrawHandler
	Ledger    *handlers.LedgerHandler
	Health    *handlers.HealthHandler
	Signature *middleware.SignatureMiddleware
	Auth      *middleware.AuthMiddleware
}

// Setup builds the gin engine with all routes registered.
func Setup(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	engine.GET("/health", deps.Health.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		// Withdrawal submission is signed by the request-intake collaborator.
		v1.POST("/withdrawals", deps.Signature.RequireSignature(), deps.Withdraw.CreateHandler)

		// Operator surface.
		operator := v1.Group("", deps.Auth.RequireAuth())
		{
			operator.GET("/withdrawals/:id", deps.Withdraw.GetHandler)
			operator.GET("/accounts/:id/withdrawals", deps.Withdraw.ListByAccountHandler)
			operator.POST("/withdrawals/:id/status", deps.Auth.RequireOTP(), deps.Withdraw.TransitionHandler)

			operator.GET("/ledger", deps.Ledger.ListHandler)
			operator.POST("/ledger/scan", deps.Ledger.ScanHandler)
		}
	}

	return engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Signature, X-Timestamp, X-OTP-Code")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
