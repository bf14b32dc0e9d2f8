package db

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"agentfails/internal/feed"
	"agentfails/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(gdb))
	return NewStore(gdb)
}

func strPtr(s string) *string { return &s }

func seedPost(t *testing.T, s *Store, title, agent string, upvotes int64, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       title,
		ImageURL:    "https://img.example/" + title + ".png",
		Agent:       agent,
		FailType:    "loop",
		UpvoteCount: upvotes,
		CreatedAt:   at,
	}
	require.NoError(t, s.CreatePost(context.Background(), p, 0))
	return p
}

func TestMigrateSeedsCounter(t *testing.T) {
	s := newTestStore(t)
	n, err := s.PostTotal(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// 再次迁移不会重置计数器
	seedPost(t, s, "a", "openclaw", 0, time.Now())
	require.NoError(t, Migrate(s.db))
	n, err = s.PostTotal(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSeedCountersReportsReadFailure(t *testing.T) {
	gdb, err := Open(sqlite.Open("file:seed_without_counters?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&models.Post{}))

	// 计数器表不可读时不能继续尝试插入
	err = seedCounters(gdb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check posts_total")
}

func TestCreateMember(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := &models.Member{WalletAddress: "0xaaa", MembershipType: models.MembershipPaid, PaymentTxHash: strPtr("0x01")}
	require.NoError(t, s.CreateMember(ctx, m))
	assert.NotEmpty(t, m.ID)

	got, err := s.FindMember(ctx, "0xaaa")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.MembershipPaid, got.MembershipType)

	missing, err := s.FindMember(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Nil(t, missing)

	t.Run("same wallet", func(t *testing.T) {
		err := s.CreateMember(ctx, &models.Member{WalletAddress: "0xaaa", MembershipType: models.MembershipShirtBuyer})
		assert.ErrorIs(t, err, ErrDuplicate)

		got, err := s.FindMember(ctx, "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, models.MembershipPaid, got.MembershipType)
	})

	t.Run("same proof", func(t *testing.T) {
		err := s.CreateMember(ctx, &models.Member{WalletAddress: "0xccc", MembershipType: models.MembershipPaid, PaymentTxHash: strPtr("0x01")})
		assert.ErrorIs(t, err, ErrProofUsed)
	})

	n, err := s.CountMembers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreatePostFreePhase(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreatePost(ctx, &models.Post{Title: fmt.Sprintf("p%d", i), ImageURL: "x", Agent: "a", FailType: "loop"}, 3))
	}

	err := s.CreatePost(ctx, &models.Post{Title: "late", ImageURL: "x", Agent: "a", FailType: "loop"}, 3)
	assert.ErrorIs(t, err, ErrPhaseChanged)

	n, err := s.PostTotal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	// 付费帖不受阈值约束
	require.NoError(t, s.CreatePost(ctx, &models.Post{Title: "paid", ImageURL: "x", Agent: "a", FailType: "loop", PaymentTxHash: strPtr("0xp1")}, 0))
	n, err = s.PostTotal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestProofSingleUsePerAction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	proof := "0xfeed"

	require.NoError(t, s.CreatePost(ctx, &models.Post{Title: "a", ImageURL: "x", Agent: "a", FailType: "loop", PaymentTxHash: strPtr(proof)}, 0))

	used, err := s.ProofUsed(ctx, models.ActionPost, proof)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = s.ProofUsed(ctx, models.ActionComment, proof)
	require.NoError(t, err)
	assert.False(t, used)

	err = s.CreatePost(ctx, &models.Post{Title: "b", ImageURL: "x", Agent: "a", FailType: "loop", PaymentTxHash: strPtr(proof)}, 0)
	assert.ErrorIs(t, err, ErrProofUsed)

	// 回滚后计数器不变
	n, err := s.PostTotal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.ProofUsed(ctx, models.ActionVote, proof)
	assert.Error(t, err)
}

func TestToggleVote(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPost(t, s, "voted", "openclaw", 0, time.Now())

	added, count, err := s.ToggleVote(ctx, p.ID, "0x01")
	require.NoError(t, err)
	assert.True(t, added)
	assert.EqualValues(t, 1, count)

	added, count, err = s.ToggleVote(ctx, p.ID, "0x02")
	require.NoError(t, err)
	assert.True(t, added)
	assert.EqualValues(t, 2, count)

	added, count, err = s.ToggleVote(ctx, p.ID, "0x01")
	require.NoError(t, err)
	assert.False(t, added)
	assert.EqualValues(t, 1, count)

	_, _, err = s.ToggleVote(ctx, "missing", "0x01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleVoteCountMatchesRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPost(t, s, "toggled", "openclaw", 0, time.Now())

	voters := []string{"0x01", "0x02", "0x03", "0x01", "0x02", "0x01", "0x04", "0x03"}
	for _, v := range voters {
		_, count, err := s.ToggleVote(ctx, p.ID, v)
		require.NoError(t, err)
		rows, err := s.CountVotes(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, rows, count)
		assert.GreaterOrEqual(t, count, int64(0))
	}
}

func TestListPostsOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		agent := "openclaw"
		if i%2 == 1 {
			agent = "claude"
		}
		seedPost(t, s, fmt.Sprintf("p%02d", i), agent, int64(i%5), base.Add(time.Duration(i)*time.Minute))
	}

	t.Run("new pages are disjoint and descending", func(t *testing.T) {
		seen := map[string]bool{}
		var last time.Time
		for page := 0; page < 3; page++ {
			q, err := feed.Build("new", "", "", page)
			require.NoError(t, err)
			posts, err := s.ListPosts(ctx, q)
			require.NoError(t, err)
			for _, p := range posts {
				assert.False(t, seen[p.ID], "post %s repeated", p.Title)
				seen[p.ID] = true
				if !last.IsZero() {
					assert.False(t, p.CreatedAt.After(last))
				}
				last = p.CreatedAt
			}
		}
		assert.Len(t, seen, 25)
	})

	t.Run("hot sorts by votes then newest", func(t *testing.T) {
		q, err := feed.Build("hot", "", "", 0)
		require.NoError(t, err)
		posts, err := s.ListPosts(ctx, q)
		require.NoError(t, err)
		require.Len(t, posts, feed.PageSize)
		assert.Equal(t, "p24", posts[0].Title)
		for i := 1; i < len(posts); i++ {
			assert.GreaterOrEqual(t, posts[i-1].UpvoteCount, posts[i].UpvoteCount)
		}
	})

	t.Run("agent filters", func(t *testing.T) {
		q, err := feed.Build("openclaw", "", "", 0)
		require.NoError(t, err)
		posts, err := s.ListPosts(ctx, q)
		require.NoError(t, err)
		for _, p := range posts {
			assert.Equal(t, "openclaw", p.Agent)
		}

		q, err = feed.Build("", "", "OpenClaw", 0)
		require.NoError(t, err)
		posts, err = s.ListPosts(ctx, q)
		require.NoError(t, err)
		require.NotEmpty(t, posts)
		for _, p := range posts {
			assert.Equal(t, "openclaw", p.Agent)
		}

		q, err = feed.Build("other", "", "", 0)
		require.NoError(t, err)
		posts, err = s.ListPosts(ctx, q)
		require.NoError(t, err)
		require.NotEmpty(t, posts)
		for _, p := range posts {
			assert.NotEqual(t, "openclaw", p.Agent)
		}
	})
}

func TestCommentsAndReports(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPost(t, s, "discussed", "openclaw", 0, time.Now())
	base := time.Now().Add(-time.Hour)

	for i, proof := range []string{"0xc2", "0xc1"} {
		c := &models.Comment{PostID: p.ID, Content: fmt.Sprintf("c%d", i), PaymentTxHash: strPtr(proof), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.CreateComment(ctx, c))
	}

	err := s.CreateComment(ctx, &models.Comment{PostID: p.ID, Content: "again", PaymentTxHash: strPtr("0xc1")})
	assert.ErrorIs(t, err, ErrProofUsed)

	err = s.CreateComment(ctx, &models.Comment{PostID: "nope", Content: "x", PaymentTxHash: strPtr("0xc3")})
	assert.ErrorIs(t, err, ErrNotFound)

	comments, err := s.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c0", comments[0].Content)
	assert.Equal(t, "c1", comments[1].Content)

	require.NoError(t, s.CreateReport(ctx, &models.Report{PostID: p.ID, ReporterWallet: "0x01"}))
	require.NoError(t, s.CreateReport(ctx, &models.Report{PostID: p.ID, ReporterWallet: "0x01", Reason: strPtr("spam")}))
	assert.ErrorIs(t, s.CreateReport(ctx, &models.Report{PostID: "nope", ReporterWallet: "0x01"}), ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedPost(t, s, "a", "openclaw", 3, time.Now())
	seedPost(t, s, "b", "claude", 4, time.Now())
	require.NoError(t, s.CreateMember(ctx, &models.Member{WalletAddress: "0x01", MembershipType: models.MembershipEarlyAdopter}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Posts: 2, Upvotes: 7, Members: 1}, st)
}

func TestClaimFulfillment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f, err := s.ClaimFulfillment(ctx, "cs_1", "0x01", "L")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Attempts)
	assert.Equal(t, models.FulfillmentPending, f.Status)

	f.PrintifyOrderID = "ord_1"
	f.Status = models.FulfillmentCompleted
	require.NoError(t, s.SaveFulfillment(ctx, f))

	again, err := s.ClaimFulfillment(ctx, "cs_1", "0x01", "L")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Attempts)
	assert.Equal(t, "ord_1", again.PrintifyOrderID)
	assert.Equal(t, models.FulfillmentCompleted, again.Status)
}
