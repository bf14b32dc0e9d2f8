package router

import (
	"net/http"

	"agentfails/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, app *handlers.App) {
	// Handlers
	postHandler := handlers.NewPostHandler(app)
	commentHandler := handlers.NewCommentHandler(app)
	voteHandler := handlers.NewVoteHandler(app)
	signupHandler := handlers.NewSignupHandler(app)
	statsHandler := handlers.NewStatsHandler(app)
	holderHandler := handlers.NewHolderHandler(app)
	merchHandler := handlers.NewMerchHandler(app)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }) // 存活检查
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))                                      // Prometheus 指标

	api := r.Group("/api")
	{
		api.GET("/posts", postHandler.List)       // feed 列表
		api.POST("/posts", postHandler.Create)    // 发帖（会员，免费阶段后按帖收费）
		api.GET("/posts/:id", postHandler.Detail) // 帖子详情

		api.GET("/posts/:id/comments", commentHandler.List)    // 评论列表
		api.POST("/posts/:id/comments", commentHandler.Create) // 发表评论（每条收费）
		api.POST("/posts/:id/upvote", voteHandler.Toggle)      // 点赞/取消点赞（仅会员）
		api.POST("/posts/:id/report", voteHandler.Report)      // 举报

		api.POST("/signup", signupHandler.Signup)          // 注册会员
		api.GET("/members/:wallet", signupHandler.Status)  // 会员状态
		api.GET("/stats", statsHandler.Stats)              // 首页统计
		api.GET("/holder-check", holderHandler.Check)      // 徽章 NFT 持有检查

		api.POST("/merch/checkout", merchHandler.Checkout) // 创建周边付款页
		api.POST("/merch/webhook", merchHandler.Webhook)   // Stripe 回调
	}
}
