package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"agentfails/internal/db"
	"agentfails/internal/feed"
	"agentfails/internal/models"
	"agentfails/internal/services"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	maxTitleLength = 200
	maxAgentLength = 64
)

type PostHandler struct {
	app *App
}

func NewPostHandler(app *App) *PostHandler {
	return &PostHandler{app: app}
}

type createPostRequest struct {
	Title           string `json:"title"`
	Caption         string `json:"caption"`
	ImageURL        string `json:"image_url"`
	SourceLink      string `json:"source_link"`
	AgentName       string `json:"agent_name"`
	FailType        string `json:"fail_type"`
	SubmitterWallet string `json:"submitter_wallet"`
	TxHash          string `json:"tx_hash"`
}

type postDetail struct {
	models.Post
	CaptionHTML string `json:"caption_html"`
}

// List feed 列表，按 view / sort / agent / page 查询
func (h *PostHandler) List(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))
	q, err := feed.Build(c.Query("view"), c.Query("sort"), c.Query("agent"), page)
	if err != nil {
		badRequest(c, "view must be one of: hot, new, hof, openclaw, other; sort must be hot or new; agent filters within the view's order")
		return
	}

	c.Header("Cache-Control", "public, max-age=30")

	cacheKey := q.CacheKey()
	if cached := h.app.Cache.Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	posts, err := h.app.Store.ListPosts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"posts":     posts,
		"view":      q.View,
		"page":      page,
		"page_size": feed.PageSize,
		"has_more":  len(posts) == feed.PageSize,
	}
	h.app.Cache.Set(cacheKey, resp, h.app.FeedTTL)
	c.JSON(http.StatusOK, resp)
}

// Detail 单帖详情，caption 渲染为安全 HTML
func (h *PostHandler) Detail(c *gin.Context) {
	post, err := h.app.Store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	detail := postDetail{Post: *post}
	if post.Caption != nil {
		detail.CaptionHTML = utils.RenderMarkdown(*post.Caption)
	}
	c.JSON(http.StatusOK, gin.H{"post": detail})
}

// Create 发帖：先校验字段，再走付费策略
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}

	title := utils.PlainText(req.Title)
	imageURL := strings.TrimSpace(req.ImageURL)
	sourceLink := strings.TrimSpace(req.SourceLink)
	agent := utils.PlainText(req.AgentName)

	switch {
	case title == "":
		badRequest(c, "title is required")
		return
	case utf8.RuneCountInString(title) > maxTitleLength:
		badRequest(c, "title must be at most 200 characters")
		return
	case imageURL == "":
		badRequest(c, "image_url is required")
		return
	case !isHTTPURL(imageURL):
		badRequest(c, "image_url must be an http(s) URL")
		return
	case sourceLink != "" && !isHTTPURL(sourceLink):
		badRequest(c, "source_link must be an http(s) URL")
		return
	case agent == "":
		badRequest(c, "agent_name is required")
		return
	case utf8.RuneCountInString(agent) > maxAgentLength:
		badRequest(c, "agent_name must be at most 64 characters")
		return
	case !models.IsFailType(req.FailType):
		badRequest(c, "fail_type must be one of: "+strings.Join(models.FailTypes, ", "))
		return
	}

	wallet := utils.NormalizeWallet(req.SubmitterWallet)
	if strings.TrimSpace(req.SubmitterWallet) != "" && wallet == "" {
		badRequest(c, "Invalid submitter_wallet")
		return
	}

	ctx := c.Request.Context()
	proof := paymentProof(c, req.TxHash)

	// 免费阶段恰好在本次写入前结束时，按新阶段重新判定一次
	for attempt := 0; ; attempt++ {
		grant, err := h.app.Policy.AuthorizePost(ctx, wallet, proof)
		if err != nil {
			respondError(c, err)
			return
		}

		post := &models.Post{
			Title:           title,
			Caption:         optional(req.Caption),
			ImageURL:        imageURL,
			SourceLink:      optional(sourceLink),
			Agent:           strings.ToLower(agent),
			FailType:        req.FailType,
			SubmitterWallet: optional(wallet),
		}
		if !grant.Free {
			amount := services.FormatUSDC(grant.Amount)
			currency := h.app.Policy.Pricing().Currency
			post.PaymentTxHash = &grant.Proof
			post.PaymentAmount = &amount
			post.PaymentCurrency = &currency
		}

		err = h.app.Store.CreatePost(ctx, post, grant.FreeBelow)
		if errors.Is(err, db.ErrPhaseChanged) && attempt == 0 {
			continue
		}
		if err != nil {
			respondError(c, err)
			return
		}

		h.app.Cache.DeletePrefix("feed:")
		h.app.Cache.Delete(statsCacheKey)
		c.JSON(http.StatusCreated, gin.H{"ok": true, "post": post})
		return
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
