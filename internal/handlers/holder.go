package handlers

import (
	"log"
	"net/http"
	"time"

	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

type HolderHandler struct {
	app *App
}

func NewHolderHandler(app *App) *HolderHandler {
	return &HolderHandler{app: app}
}

// Check 查询钱包是否持有徽章 NFT，仅用于展示
func (h *HolderHandler) Check(c *gin.Context) {
	wallet := utils.NormalizeWallet(c.Query("wallet"))
	if wallet == "" {
		badRequest(c, "wallet query param must be a valid 0x address")
		return
	}

	cacheKey := "holder:" + wallet
	if cached := h.app.Cache.Get(cacheKey); cached != nil {
		c.Header("Cache-Control", "public, max-age=60")
		c.JSON(http.StatusOK, cached)
		return
	}

	bal, err := h.app.Holders.NFTBalance(c.Request.Context(), h.app.BadgeNFT, wallet)
	if err != nil {
		log.Printf("[holder-check] balance lookup for %s failed: %v", wallet, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check NFT balance"})
		return
	}

	resp := gin.H{"isHolder": bal.Sign() > 0, "balance": bal.Int64()}
	h.app.Cache.Set(cacheKey, resp, time.Minute)
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, resp)
}
