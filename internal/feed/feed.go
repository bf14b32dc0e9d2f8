// Package feed 把前端的视图参数翻译成确定的排序、过滤与分页条件。
package feed

import (
	"errors"
	"strconv"
	"strings"
)

// PageSize 每页帖子数
const PageSize = 10

// OpenClawAgent 首页单独成栏的 agent 标签
const OpenClawAgent = "openclaw"

type View string

const (
	ViewHot      View = "hot"
	ViewNew      View = "new"
	ViewHOF      View = "hof"
	ViewOpenClaw View = "openclaw"
	ViewOther    View = "other"
	ViewAgent    View = "agent"
)

var ErrUnknownView = errors.New("unknown view")

// Order 单个排序字段
type Order struct {
	Column string
	Desc   bool
}

// Query 一次 feed 查询的全部条件
type Query struct {
	View         View
	Agent        string // 仅保留 agent = Agent
	ExcludeAgent string // 排除 agent = ExcludeAgent
	Orders       []Order
	Limit        int
	Offset       int
}

var (
	byVotes = []Order{
		{Column: "upvote_count", Desc: true},
		{Column: "created_at", Desc: true},
		{Column: "id", Desc: true},
	}
	byNewest = []Order{
		{Column: "created_at", Desc: true},
		{Column: "id", Desc: true},
	}
)

// Build 根据视图、二级排序、agent 和页码生成查询条件
// view 为空时默认 hot；agent 非空时优先按 agent 过滤，排序沿用 view 的默认顺序。
// agent 类视图的 sort 只接受 hot / new，未指定时 hot/hof 按票数，其余按时间。
func Build(view, sort, agent string, page int) (Query, error) {
	if page < 0 {
		page = 0
	}
	q := Query{Limit: PageSize, Offset: page * PageSize}

	v := View(strings.ToLower(strings.TrimSpace(view)))
	sort = strings.ToLower(strings.TrimSpace(sort))
	// 入库时 agent 已统一小写
	agent = strings.ToLower(strings.TrimSpace(agent))
	if agent != "" {
		switch v {
		case "", ViewHot, ViewHOF, "hall-of-fame":
			if sort == "" {
				sort = "hot"
			}
		case ViewNew, ViewOpenClaw, ViewOther, ViewAgent:
		default:
			return Query{}, ErrUnknownView
		}
		v = ViewAgent
	}

	switch v {
	case "", ViewHot:
		q.View = ViewHot
		q.Orders = byVotes
		return q, nil
	case ViewHOF, "hall-of-fame":
		q.View = ViewHOF
		q.Orders = byVotes
		return q, nil
	case ViewNew:
		q.View = ViewNew
		q.Orders = byNewest
		return q, nil
	case ViewOpenClaw:
		q.Agent = OpenClawAgent
	case ViewOther:
		q.ExcludeAgent = OpenClawAgent
	case ViewAgent:
		q.Agent = agent
	default:
		return Query{}, ErrUnknownView
	}

	q.View = v
	switch sort {
	case "", "new":
		q.Orders = byNewest
	case "hot":
		q.Orders = byVotes
	default:
		return Query{}, ErrUnknownView
	}
	return q, nil
}

// CacheKey 查询条件的缓存键
func (q Query) CacheKey() string {
	orders := make([]string, 0, len(q.Orders))
	for _, o := range q.Orders {
		if o.Desc {
			orders = append(orders, o.Column+"-")
		} else {
			orders = append(orders, o.Column)
		}
	}
	return "feed:" + string(q.View) + ":" + q.Agent + ":" + q.ExcludeAgent + ":" +
		strings.Join(orders, ",") + ":" + strconv.Itoa(q.Offset)
}
