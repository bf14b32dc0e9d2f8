package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"agentfails/internal/db"
	"agentfails/internal/services"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHeader 携带付款交易哈希的请求头
const PaymentHeader = "X-Payment"

// PaymentRequiredHeader 402 响应里的机器可读付款要求
const PaymentRequiredHeader = "X-Payment-Required"

// App 处理器共享的依赖
type App struct {
	Store     *db.Store
	Policy    *services.Policy
	Members   *services.MembershipResolver
	Holders   services.HolderChecker
	Checkout  *services.CheckoutService
	Fulfiller *services.Fulfiller
	Cache     *utils.GlobalCache
	FeedTTL   time.Duration
	BadgeNFT  string
}

type paymentOption struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Currency          string `json:"currency"`
	Amount            string `json:"amount"`
	PayTo             string `json:"payTo"`
	TokenAddress      string `json:"tokenAddress"`
	Description       string `json:"description"`
	Resource          string `json:"resource"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

type paymentRequiredBody struct {
	X402Version int             `json:"x402Version"`
	Accepts     []paymentOption `json:"accepts"`
	Error       string          `json:"error"`
}

type paymentSummary struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PayTo        string `json:"payTo"`
	Network      string `json:"network"`
	TokenAddress string `json:"tokenAddress"`
	Resource     string `json:"resource"`
	Version      string `json:"version"`
}

// respondPaymentRequired 返回 402，响应体与响应头各给一份付款要求
func respondPaymentRequired(c *gin.Context, e *services.PaymentRequiredError) {
	ch := e.Charge
	resource := ch.Resource
	if resource == "" {
		resource = c.Request.URL.Path
	}
	summary, _ := json.Marshal(paymentSummary{
		Amount:       ch.Amount.String(),
		Currency:     ch.Currency,
		PayTo:        ch.PayTo,
		Network:      ch.Network,
		TokenAddress: ch.TokenAddress,
		Resource:     resource,
		Version:      "1",
	})
	c.Header(PaymentRequiredHeader, string(summary))

	c.JSON(http.StatusPaymentRequired, paymentRequiredBody{
		X402Version: 1,
		Accepts: []paymentOption{{
			Scheme:            "exact",
			Network:           ch.Network,
			Currency:          ch.Currency,
			Amount:            ch.Amount.String(),
			PayTo:             ch.PayTo,
			TokenAddress:      ch.TokenAddress,
			Description:       ch.Description,
			Resource:          resource,
			MaxTimeoutSeconds: 300,
		}},
		Error: e.Reason,
	})
}

// respondError 把领域错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	var payReq *services.PaymentRequiredError
	var payInvalid *services.PaymentInvalidError

	switch {
	case errors.As(err, &payReq):
		respondPaymentRequired(c, payReq)
	case errors.As(err, &payInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": payInvalid.Error(), "retryable": payInvalid.Indeterminate})
	case errors.Is(err, db.ErrProofUsed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "This payment tx has already been used"})
	case errors.Is(err, services.ErrMembershipRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": "membership_required", "message": "Sign up to vote"})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
	default:
		log.Printf("[api] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindJSON 解析请求体，失败时已写出 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid JSON body")
		return false
	}
	return true
}

// paymentProof 优先取 X-Payment 头，其次取请求体里的 tx_hash
func paymentProof(c *gin.Context, bodyProof string) string {
	if h := strings.TrimSpace(c.GetHeader(PaymentHeader)); h != "" {
		return h
	}
	return strings.TrimSpace(bodyProof)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
