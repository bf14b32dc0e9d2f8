package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agentfails/internal/db"
	"agentfails/internal/models"
	"agentfails/internal/services"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

type SignupHandler struct {
	app *App
}

func NewSignupHandler(app *App) *SignupHandler {
	return &SignupHandler{app: app}
}

type signupRequest struct {
	WalletAddress string `json:"wallet_address"`
	TxHash        string `json:"tx_hash"`
}

// createMember 按授权结果写入会员；并发注册同一钱包时返回已存在的记录
func (h *SignupHandler) createMember(ctx context.Context, wallet string, grant *services.Grant) (*models.Member, bool, error) {
	member := &models.Member{
		WalletAddress:   wallet,
		MembershipType:  grant.Class,
		PaymentAmount:   "0.00",
		PaymentCurrency: h.app.Policy.Pricing().Currency,
	}
	if !grant.Free {
		member.PaymentTxHash = &grant.Proof
		member.PaymentAmount = services.FormatUSDC(grant.Amount)
	}

	err := h.app.Store.CreateMember(ctx, member)
	if errors.Is(err, db.ErrDuplicate) {
		existing, ferr := h.app.Store.FindMember(ctx, wallet)
		return existing, false, ferr
	}
	if err != nil {
		return nil, false, err
	}
	return member, true, nil
}

// Signup 注册会员：已注册返回 200，新注册返回 201
func (h *SignupHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	wallet := utils.NormalizeWallet(req.WalletAddress)
	if wallet == "" {
		badRequest(c, "Invalid wallet_address")
		return
	}

	ctx := c.Request.Context()
	grant, err := h.app.Policy.AuthorizeSignup(ctx, wallet, paymentProof(c, req.TxHash))
	if err != nil {
		respondError(c, err)
		return
	}
	if grant.Member != nil {
		c.JSON(http.StatusOK, gin.H{"member": grant.Member})
		return
	}

	member, created, err := h.createMember(ctx, wallet, grant)
	if err != nil {
		respondError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"member": member})
		return
	}

	h.app.Cache.Delete(statsCacheKey)
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// Status 查询钱包的会员状态与当前是否豁免，供前端提示使用
func (h *SignupHandler) Status(c *gin.Context) {
	wallet := utils.NormalizeWallet(c.Param("wallet"))
	if wallet == "" {
		badRequest(c, "Invalid wallet address")
		return
	}

	ctx := c.Request.Context()
	member, err := h.app.Members.Resolve(ctx, wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	free, total, err := h.app.Policy.InFreePhase(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	status := "unregistered"
	if member != nil {
		status = "member"
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet_address": strings.ToLower(wallet),
		"status":         status,
		"member":         member,
		"exempt":         h.app.Members.Exempt(ctx, member),
		"free_phase":     free,
		"posts_total":    total,
	})
}
