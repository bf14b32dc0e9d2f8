package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const statsCacheKey = "stats"

type StatsHandler struct {
	app *App
}

func NewStatsHandler(app *App) *StatsHandler {
	return &StatsHandler{app: app}
}

// Stats 首页统计条：帖子数、点赞总数、会员数以及当前价格
func (h *StatsHandler) Stats(c *gin.Context) {
	if cached := h.app.Cache.Get(statsCacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	st, err := h.app.Store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	pricing := h.app.Policy.Pricing()
	resp := gin.H{
		"posts":          st.Posts,
		"upvotes":        st.Upvotes,
		"members":        st.Members,
		"free_threshold": pricing.FreeThreshold,
		"free_phase":     st.Posts < pricing.FreeThreshold,
		"prices": gin.H{
			"currency": pricing.Currency,
			"signup":   pricing.Signup,
			"post":     pricing.Post,
			"comment":  pricing.Comment,
		},
	}
	h.app.Cache.Set(statsCacheKey, resp, 30*time.Second)
	c.JSON(http.StatusOK, resp)
}
