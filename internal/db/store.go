package db

import (
	"context"
	"errors"
	"fmt"

	"agentfails/internal/feed"
	"agentfails/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate 钱包已注册
	ErrDuplicate = errors.New("already exists")
	// ErrProofUsed 付款凭证已被同类操作使用过
	ErrProofUsed = errors.New("payment proof already used")
	// ErrPhaseChanged 免费阶段在本次写入前已结束
	ErrPhaseChanged = errors.New("free phase ended")
)

// Store 所有持久化操作的入口
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Stats 首页统计条
type Stats struct {
	Posts   int64 `json:"posts"`
	Upvotes int64 `json:"upvotes"`
	Members int64 `json:"members"`
}

// FindMember 按小写钱包地址查询会员，不存在返回 nil, nil
func (s *Store) FindMember(ctx context.Context, wallet string) (*models.Member, error) {
	var m models.Member
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &m, nil
}

// CreateMember 写入新会员
// 钱包冲突返回 ErrDuplicate，凭证冲突返回 ErrProofUsed。
func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create member: %w", err)
	}

	existing, ferr := s.FindMember(ctx, m.WalletAddress)
	if ferr != nil {
		return ferr
	}
	if existing != nil {
		return ErrDuplicate
	}
	return ErrProofUsed
}

func (s *Store) CountMembers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// PostTotal 读取帖子总数计数器
func (s *Store) PostTotal(ctx context.Context) (int64, error) {
	var c models.SiteCounter
	err := s.db.WithContext(ctx).Where("name = ?", models.CounterPostsTotal).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", models.CounterPostsTotal, err)
	}
	return c.Value, nil
}

// CreatePost 在同一事务内递增计数器并写入帖子
// freeBelow > 0 表示本次按免费阶段放行：计数器必须仍小于该值，否则返回 ErrPhaseChanged。
func (s *Store) CreatePost(ctx context.Context, post *models.Post, freeBelow int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.SiteCounter{}).Where("name = ?", models.CounterPostsTotal)
		if freeBelow > 0 {
			q = q.Where("value < ?", freeBelow)
		}
		res := q.UpdateColumn("value", gorm.Expr("value + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("bump %s: %w", models.CounterPostsTotal, res.Error)
		}
		if res.RowsAffected == 0 {
			if freeBelow > 0 {
				return ErrPhaseChanged
			}
			return fmt.Errorf("counter %s missing", models.CounterPostsTotal)
		}

		if err := tx.Create(post).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrProofUsed
			}
			return fmt.Errorf("create post: %w", err)
		}
		return nil
	})
}

// ProofUsed 检查凭证是否已被该类操作消费
// 只是提前拦截，真正的防重放依赖唯一索引。
func (s *Store) ProofUsed(ctx context.Context, action models.Action, proof string) (bool, error) {
	var model interface{}
	switch action {
	case models.ActionSignup:
		model = &models.Member{}
	case models.ActionPost:
		model = &models.Post{}
	case models.ActionComment:
		model = &models.Comment{}
	default:
		return false, fmt.Errorf("action %q takes no payment", action)
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("payment_tx_hash = ?", proof).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check proof: %w", err)
	}
	return n > 0, nil
}

// GetPost 按 ID 读取帖子
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// ListPosts 执行 feed 查询
func (s *Store) ListPosts(ctx context.Context, q feed.Query) ([]models.Post, error) {
	tx := s.db.WithContext(ctx).Model(&models.Post{})
	if q.Agent != "" {
		tx = tx.Where("agent = ?", q.Agent)
	}
	if q.ExcludeAgent != "" {
		tx = tx.Where("agent <> ?", q.ExcludeAgent)
	}
	for _, o := range q.Orders {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}

	posts := make([]models.Post, 0, q.Limit)
	if err := tx.Limit(q.Limit).Offset(q.Offset).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ToggleVote 切换点赞状态，返回是否为新增以及最新票数
// 票数只在删除/插入真正生效时才变动，并发重复点击不会重复计数。
func (s *Store) ToggleVote(ctx context.Context, postID, voter string) (bool, int64, error) {
	var added bool
	var count int64

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, 0, fmt.Errorf("begin: %w", tx.Error)
	}

	var post models.Post
	if err := tx.Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, ErrNotFound
		}
		return false, 0, fmt.Errorf("load post: %w", err)
	}

	res := tx.Where("post_id = ? AND voter_wallet = ?", postID, voter).Delete(&models.Vote{})
	if res.Error != nil {
		tx.Rollback()
		return false, 0, fmt.Errorf("delete vote: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		err := tx.Model(&models.Post{}).Where("id = ? AND upvote_count > 0", postID).
			UpdateColumn("upvote_count", gorm.Expr("upvote_count - ?", 1)).Error
		if err != nil {
			tx.Rollback()
			return false, 0, fmt.Errorf("decrement upvotes: %w", err)
		}
	} else {
		added = true
		vote := models.Vote{PostID: postID, VoterWallet: voter}
		ins := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&vote)
		if ins.Error != nil {
			tx.Rollback()
			return false, 0, fmt.Errorf("insert vote: %w", ins.Error)
		}
		// 并发请求已插入同一票时不再计数
		if ins.RowsAffected > 0 {
			err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("upvote_count", gorm.Expr("upvote_count + ?", 1)).Error
			if err != nil {
				tx.Rollback()
				return false, 0, fmt.Errorf("increment upvotes: %w", err)
			}
		}
	}

	if err := tx.Model(&models.Post{}).Select("upvote_count").Where("id = ?", postID).Scan(&count).Error; err != nil {
		tx.Rollback()
		return false, 0, fmt.Errorf("read upvotes: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return false, 0, fmt.Errorf("commit: %w", err)
	}
	return added, count, nil
}

// CountVotes 实际存在的投票行数
func (s *Store) CountVotes(ctx context.Context, postID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Vote{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

// CreateComment 写入评论，帖子不存在返回 ErrNotFound
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	if _, err := s.GetPost(ctx, c.PostID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrProofUsed
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments 按时间正序返回评论
func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CreateReport 追加举报记录
func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if _, err := s.GetPost(ctx, r.PostID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// Stats 汇总帖子数、总点赞数和会员数
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Posts, err = s.PostTotal(ctx); err != nil {
		return st, err
	}
	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Select("CAST(COALESCE(SUM(upvote_count), 0) AS BIGINT)").Scan(&st.Upvotes).Error
	if err != nil {
		return st, fmt.Errorf("sum upvotes: %w", err)
	}
	if st.Members, err = s.CountMembers(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// ClaimFulfillment 取得（或创建）某个 checkout session 的履约记录并累加尝试次数
func (s *Store) ClaimFulfillment(ctx context.Context, sessionID, wallet, size string) (*models.Fulfillment, error) {
	f := models.Fulfillment{SessionID: sessionID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(models.Fulfillment{SessionID: sessionID}).
			Attrs(models.Fulfillment{WalletAddress: wallet, Size: size, Status: models.FulfillmentPending}).
			FirstOrCreate(&f).Error
		if err != nil {
			return err
		}
		f.Attempts++
		return tx.Model(&f).UpdateColumn("attempts", f.Attempts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim fulfillment: %w", err)
	}
	return &f, nil
}

// SaveFulfillment 持久化履约状态
func (s *Store) SaveFulfillment(ctx context.Context, f *models.Fulfillment) error {
	err := s.db.WithContext(ctx).Model(&models.Fulfillment{}).Where("session_id = ?", f.SessionID).
		Updates(map[string]interface{}{
			"printify_order_id": f.PrintifyOrderID,
			"status":            f.Status,
			"last_error":        f.LastError,
		}).Error
	if err != nil {
		return fmt.Errorf("save fulfillment: %w", err)
	}
	return nil
}
