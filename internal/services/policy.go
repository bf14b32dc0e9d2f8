package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"agentfails/internal/db"
	"agentfails/internal/metrics"
	"agentfails/internal/models"
	"agentfails/internal/utils"
)

var ErrMembershipRequired = errors.New("membership required")

// SignupResource 会员费的付款入口，非会员发帖时也指向这里
const SignupResource = "/api/signup"

// Charge 一次付费挑战的完整描述，直接用于 402 响应
type Charge struct {
	Action       models.Action
	Amount       *big.Int
	Currency     string
	Network      string
	PayTo        string
	TokenAddress string
	Description  string
	Resource     string // 付款后应重试的接口，为空表示当前请求
}

// PaymentRequiredError 需要先付款
type PaymentRequiredError struct {
	Charge Charge
	Reason string
}

func (e *PaymentRequiredError) Error() string {
	return e.Reason
}

// PaymentInvalidError 凭证无效，Indeterminate 表示节点故障而非凭证本身有问题
type PaymentInvalidError struct {
	Reason        string
	Indeterminate bool
}

func (e *PaymentInvalidError) Error() string {
	return "Payment verification failed: " + e.Reason
}

// Pricing 收费参数，金额为 USDC 最小单位
type Pricing struct {
	Signup        int64
	Post          int64
	Comment       int64
	FreeThreshold int64
	Currency      string
	Network       string
	TokenAddress  string
	PayTo         string
}

// Grant 通过授权后写入所需的信息
type Grant struct {
	Action models.Action
	Member *models.Member // 已存在的会员（投票者、发帖者或重复注册）
	Class  models.MembershipClass
	Free   bool
	// FreeBelow > 0 表示按免费阶段放行，写入时需再次确认计数器仍低于该值
	FreeBelow int64
	Proof     string
	Payer     string
	Amount    *big.Int
}

// PolicyStore 策略引擎需要的读接口
type PolicyStore interface {
	MemberStore
	PostTotal(ctx context.Context) (int64, error)
	ProofUsed(ctx context.Context, action models.Action, proof string) (bool, error)
}

// Policy 按操作类型决定是否放行、是否收费
type Policy struct {
	store    PolicyStore
	members  *MembershipResolver
	verifier PaymentVerifier
	pricing  Pricing
}

func NewPolicy(store PolicyStore, members *MembershipResolver, verifier PaymentVerifier, pricing Pricing) *Policy {
	return &Policy{store: store, members: members, verifier: verifier, pricing: pricing}
}

func (p *Policy) Pricing() Pricing {
	return p.pricing
}

// Charge 生成某个操作的收费描述
func (p *Policy) Charge(action models.Action) Charge {
	c := Charge{
		Action:       action,
		Currency:     p.pricing.Currency,
		Network:      p.pricing.Network,
		PayTo:        p.pricing.PayTo,
		TokenAddress: p.pricing.TokenAddress,
	}
	switch action {
	case models.ActionSignup:
		c.Amount = big.NewInt(p.pricing.Signup)
		c.Description = "agentfails membership (one-time)"
		c.Resource = SignupResource
	case models.ActionPost:
		c.Amount = big.NewInt(p.pricing.Post)
		c.Description = "agentfails post fee"
	case models.ActionComment:
		c.Amount = big.NewInt(p.pricing.Comment)
		c.Description = "agentfails comment fee"
	default:
		c.Amount = new(big.Int)
	}
	return c
}

// InFreePhase 帖子总数是否仍低于免费阈值
func (p *Policy) InFreePhase(ctx context.Context) (bool, int64, error) {
	total, err := p.store.PostTotal(ctx)
	if err != nil {
		return false, 0, err
	}
	return total < p.pricing.FreeThreshold, total, nil
}

// AuthorizeVote 仅会员可投票，无付费通道
func (p *Policy) AuthorizeVote(ctx context.Context, wallet string) (*Grant, error) {
	m, err := p.members.Resolve(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if m == nil {
		p.record(models.ActionVote, "membership_required")
		return nil, ErrMembershipRequired
	}
	p.record(models.ActionVote, "allowed")
	return &Grant{Action: models.ActionVote, Member: m, Free: true}, nil
}

// AuthorizeComment 每条评论都需付费，会员也不例外
func (p *Policy) AuthorizeComment(ctx context.Context, proof string) (*Grant, error) {
	return p.settle(ctx, models.ActionComment, proof)
}

// AuthorizeSignup 已注册直接返回原会员；否则依次尝试 NFT 豁免、免费阶段、付费
func (p *Policy) AuthorizeSignup(ctx context.Context, wallet, proof string) (*Grant, error) {
	m, err := p.members.Resolve(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if m != nil {
		p.record(models.ActionSignup, "existing")
		return &Grant{Action: models.ActionSignup, Member: m, Class: m.MembershipType, Free: true}, nil
	}

	if p.members.HoldsExemptNFT(ctx, wallet) {
		p.record(models.ActionSignup, "free")
		return &Grant{Action: models.ActionSignup, Class: models.MembershipAnonsHolder, Free: true}, nil
	}

	free, _, err := p.InFreePhase(ctx)
	if err != nil {
		return nil, err
	}
	if free {
		p.record(models.ActionSignup, "free")
		return &Grant{Action: models.ActionSignup, Class: models.MembershipEarlyAdopter, Free: true}, nil
	}

	g, err := p.settle(ctx, models.ActionSignup, proof)
	if err != nil {
		return nil, err
	}
	g.Class = models.MembershipPaid
	return g, nil
}

// AuthorizePost 先要求会员身份；免费阶段内免费，之后豁免会员免费，其余按帖收费
func (p *Policy) AuthorizePost(ctx context.Context, wallet, proof string) (*Grant, error) {
	var m *models.Member
	if wallet != "" {
		var err error
		if m, err = p.members.Resolve(ctx, wallet); err != nil {
			return nil, err
		}
	}
	if m == nil {
		p.record(models.ActionPost, "membership_required")
		return nil, &PaymentRequiredError{
			Charge: p.Charge(models.ActionSignup),
			Reason: "Membership required to post. Pay the signup fee at " + SignupResource + " first, then retry.",
		}
	}

	free, _, err := p.InFreePhase(ctx)
	if err != nil {
		return nil, err
	}
	if free {
		p.record(models.ActionPost, "free")
		return &Grant{Action: models.ActionPost, Member: m, Free: true, FreeBelow: p.pricing.FreeThreshold}, nil
	}
	if p.members.Exempt(ctx, m) {
		p.record(models.ActionPost, "exempt")
		return &Grant{Action: models.ActionPost, Member: m, Free: true}, nil
	}

	g, err := p.settle(ctx, models.ActionPost, proof)
	if err != nil {
		return nil, err
	}
	g.Member = m
	return g, nil
}

// settle 校验付费凭证：缺失→402，已用→ErrProofUsed，无效/不确定→PaymentInvalidError
func (p *Policy) settle(ctx context.Context, action models.Action, proof string) (*Grant, error) {
	charge := p.Charge(action)

	proof = strings.TrimSpace(proof)
	if proof == "" {
		p.record(action, "payment_required")
		return nil, &PaymentRequiredError{
			Charge: charge,
			Reason: fmt.Sprintf("Payment of %s %s required", FormatUSDC(charge.Amount), charge.Currency),
		}
	}

	hash := utils.NormalizeTxHash(proof)
	if hash == "" {
		p.record(action, "invalid")
		return nil, &PaymentInvalidError{Reason: "malformed transaction hash"}
	}

	used, err := p.store.ProofUsed(ctx, action, hash)
	if err != nil {
		return nil, err
	}
	if used {
		p.record(action, "replay")
		return nil, db.ErrProofUsed
	}

	v := p.verifier.VerifyTransfer(ctx, hash, charge.Amount)
	metrics.PaymentVerifications.WithLabelValues(string(action), string(v.Status)).Inc()
	if !v.OK() {
		indeterminate := v.Status == Indeterminate
		if indeterminate {
			log.Printf("[policy] %s payment %s indeterminate: %s", action, hash, v.Reason)
			p.record(action, "indeterminate")
		} else {
			p.record(action, "invalid")
		}
		return nil, &PaymentInvalidError{Reason: v.Reason, Indeterminate: indeterminate}
	}

	p.record(action, "paid")
	return &Grant{
		Action: action,
		Proof:  hash,
		Payer:  v.Payer,
		Amount: charge.Amount,
	}, nil
}

func (p *Policy) record(action models.Action, outcome string) {
	metrics.PolicyDecisions.WithLabelValues(string(action), outcome).Inc()
}
