package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name        string
		view, sort  string
		agent       string
		page        int
		wantView    View
		wantFirst   string
		wantAgent   string
		wantExclude string
		wantOffset  int
	}{
		{name: "default is hot", wantView: ViewHot, wantFirst: "upvote_count"},
		{name: "hot", view: "hot", wantView: ViewHot, wantFirst: "upvote_count"},
		{name: "new", view: "new", wantView: ViewNew, wantFirst: "created_at"},
		{name: "hof", view: "hof", wantView: ViewHOF, wantFirst: "upvote_count"},
		{name: "hall of fame alias", view: "hall-of-fame", wantView: ViewHOF, wantFirst: "upvote_count"},
		{name: "openclaw defaults to new", view: "openclaw", wantView: ViewOpenClaw, wantFirst: "created_at", wantAgent: "openclaw"},
		{name: "openclaw by votes", view: "openclaw", sort: "hot", wantView: ViewOpenClaw, wantFirst: "upvote_count", wantAgent: "openclaw"},
		{name: "other excludes openclaw", view: "other", wantView: ViewOther, wantFirst: "created_at", wantExclude: "openclaw"},
		{name: "agent param wins", view: "new", agent: "claude", wantView: ViewAgent, wantFirst: "created_at", wantAgent: "claude"},
		{name: "agent keeps hot order", view: "hot", agent: "claude", wantView: ViewAgent, wantFirst: "upvote_count", wantAgent: "claude"},
		{name: "agent without view sorts by votes", agent: "claude", wantView: ViewAgent, wantFirst: "upvote_count", wantAgent: "claude"},
		{name: "explicit sort beats view", view: "hot", sort: "new", agent: "claude", wantView: ViewAgent, wantFirst: "created_at", wantAgent: "claude"},
		{name: "agent is case insensitive", view: "new", agent: "  OpenClaw ", wantView: ViewAgent, wantFirst: "created_at", wantAgent: "openclaw"},
		{name: "page offset", view: "new", page: 3, wantView: ViewNew, wantFirst: "created_at", wantOffset: 30},
		{name: "negative page clamps", view: "new", page: -2, wantView: ViewNew, wantFirst: "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Build(tt.view, tt.sort, tt.agent, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantView, q.View)
			require.NotEmpty(t, q.Orders)
			assert.Equal(t, tt.wantFirst, q.Orders[0].Column)
			assert.True(t, q.Orders[0].Desc)
			assert.Equal(t, tt.wantAgent, q.Agent)
			assert.Equal(t, tt.wantExclude, q.ExcludeAgent)
			assert.Equal(t, PageSize, q.Limit)
			assert.Equal(t, tt.wantOffset, q.Offset)
		})
	}
}

func TestBuildTieBreak(t *testing.T) {
	q, err := Build("hot", "", "", 0)
	require.NoError(t, err)
	last := q.Orders[len(q.Orders)-1]
	assert.Equal(t, "id", last.Column)
	assert.True(t, last.Desc)
}

func TestBuildRejectsUnknown(t *testing.T) {
	_, err := Build("trending", "", "", 0)
	assert.ErrorIs(t, err, ErrUnknownView)

	_, err = Build("openclaw", "random", "", 0)
	assert.ErrorIs(t, err, ErrUnknownView)

	_, err = Build("trending", "", "claude", 0)
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestCacheKeyIgnoresAgentCase(t *testing.T) {
	a, _ := Build("", "", "OpenClaw", 0)
	b, _ := Build("", "", "openclaw", 0)
	assert.Equal(t, a.CacheKey(), b.CacheKey())
}

func TestCacheKeyDistinguishesPages(t *testing.T) {
	a, _ := Build("new", "", "", 0)
	b, _ := Build("new", "", "", 1)
	c, _ := Build("hot", "", "", 0)
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}
