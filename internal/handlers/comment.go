package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"agentfails/internal/models"
	"agentfails/internal/services"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

const maxAuthorNameLength = 64

type CommentHandler struct {
	app *App
}

func NewCommentHandler(app *App) *CommentHandler {
	return &CommentHandler{app: app}
}

type createCommentRequest struct {
	Content      string `json:"content"`
	AuthorWallet string `json:"author_wallet"`
	AuthorName   string `json:"author_name"`
	TxHash       string `json:"tx_hash"`
}

type commentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
}

// List 评论按时间正序
func (h *CommentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	postID := c.Param("id")
	if _, err := h.app.Store.GetPost(ctx, postID); err != nil {
		respondError(c, err)
		return
	}

	comments, err := h.app.Store.ListComments(ctx, postID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]commentView, 0, len(comments))
	for _, cm := range comments {
		views = append(views, commentView{Comment: cm, ContentHTML: utils.RenderMarkdown(cm.Content)})
	}
	c.JSON(http.StatusOK, gin.H{"comments": views})
}

// Create 发表评论，每条都需附带付款凭证
func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, "content is required")
		return
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		badRequest(c, "content must be at most 2000 characters")
		return
	}
	name := utils.PlainText(req.AuthorName)
	if utf8.RuneCountInString(name) > maxAuthorNameLength {
		badRequest(c, "author_name must be at most 64 characters")
		return
	}
	wallet := utils.NormalizeWallet(req.AuthorWallet)
	if strings.TrimSpace(req.AuthorWallet) != "" && wallet == "" {
		badRequest(c, "Invalid author_wallet")
		return
	}

	ctx := c.Request.Context()
	postID := c.Param("id")
	// 帖子不存在时不要先收费
	if _, err := h.app.Store.GetPost(ctx, postID); err != nil {
		respondError(c, err)
		return
	}

	grant, err := h.app.Policy.AuthorizeComment(ctx, paymentProof(c, req.TxHash))
	if err != nil {
		respondError(c, err)
		return
	}
	if wallet == "" {
		wallet = grant.Payer
	}

	amount := services.FormatUSDC(grant.Amount)
	currency := h.app.Policy.Pricing().Currency
	comment := &models.Comment{
		PostID:          postID,
		Content:         content,
		AuthorWallet:    optional(wallet),
		AuthorName:      optional(name),
		PaymentTxHash:   &grant.Proof,
		PaymentAmount:   &amount,
		PaymentCurrency: &currency,
	}
	if err := h.app.Store.CreateComment(ctx, comment); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"comment": commentView{Comment: *comment, ContentHTML: utils.RenderMarkdown(comment.Content)},
	})
}
