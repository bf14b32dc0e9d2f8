package middleware

import (
	"time"

	"agentfails/internal/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 前端与 agent 客户端都需要读取 X-Payment-Required
func CORS(siteURL string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{siteURL, "http://localhost:3000"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", handlers.PaymentHeader, "Stripe-Signature"},
		ExposeHeaders: []string{handlers.PaymentRequiredHeader},
		MaxAge:        12 * time.Hour,
	})
}
