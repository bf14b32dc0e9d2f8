package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"agentfails/internal/services"

	"github.com/gin-gonic/gin"
)

// 与 Stripe 文档一致的请求体上限
const maxWebhookBody = 65536

type MerchHandler struct {
	app *App
}

func NewMerchHandler(app *App) *MerchHandler {
	return &MerchHandler{app: app}
}

type checkoutRequest struct {
	Size   string `json:"size"`
	Wallet string `json:"wallet"`
}

// Checkout 创建 Stripe 付款页
func (h *MerchHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	url, err := h.app.Checkout.CreateCheckout(c.Request.Context(), req.Size, req.Wallet)
	switch {
	case errors.Is(err, services.ErrInvalidSize), errors.Is(err, services.ErrInvalidWallet):
		badRequest(c, err.Error())
	case errors.Is(err, services.ErrMerchDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe not configured"})
	case err != nil:
		log.Printf("[merch] checkout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// Webhook Stripe 回调；签名通过后始终返回 200，履约失败记录在履约表中
func (h *MerchHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	ev, err := h.app.Checkout.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("[webhook] signature verification failed: %v", err)
		}
		respondError(c, err)
		return
	}

	if ev != nil {
		if err := h.app.Fulfiller.HandleCheckoutCompleted(c.Request.Context(), ev); err != nil {
			log.Printf("[webhook] fulfillment for %s failed: %v", ev.SessionID, err)
		}
		h.app.Cache.Delete(statsCacheKey)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
