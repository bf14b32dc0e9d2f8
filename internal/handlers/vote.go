package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"agentfails/internal/models"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	app *App
}

func NewVoteHandler(app *App) *VoteHandler {
	return &VoteHandler{app: app}
}

type voteRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type reportRequest struct {
	ReporterWallet string `json:"reporter_wallet"`
	Reason         string `json:"reason"`
}

// Toggle 点赞/取消点赞，仅会员可用
func (h *VoteHandler) Toggle(c *gin.Context) {
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		badRequest(c, "wallet_address is required to vote")
		return
	}
	voter := utils.NormalizeWallet(req.WalletAddress)
	if voter == "" {
		badRequest(c, "Invalid wallet_address")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.app.Policy.AuthorizeVote(ctx, voter); err != nil {
		respondError(c, err)
		return
	}

	added, count, err := h.app.Store.ToggleVote(ctx, c.Param("id"), voter)
	if err != nil {
		respondError(c, err)
		return
	}

	h.app.Cache.DeletePrefix("feed:")
	h.app.Cache.Delete(statsCacheKey)

	action := "removed"
	if added {
		action = "added"
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "action": action, "count": count})
}

// Report 举报帖子，只追加记录不去重
func (h *VoteHandler) Report(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	reporter := utils.NormalizeWallet(req.ReporterWallet)
	if reporter == "" {
		badRequest(c, "reporter_wallet is required")
		return
	}
	reason := utils.PlainText(req.Reason)
	if utf8.RuneCountInString(reason) > models.MaxReportReasonLength {
		badRequest(c, "reason must be at most 500 characters")
		return
	}

	report := &models.Report{
		PostID:         c.Param("id"),
		ReporterWallet: reporter,
		Reason:         optional(reason),
	}
	if err := h.app.Store.CreateReport(c.Request.Context(), report); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}
