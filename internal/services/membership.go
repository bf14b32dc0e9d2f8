package services

import (
	"context"
	"log"

	"agentfails/internal/models"
)

// MemberStore 会员读取接口
type MemberStore interface {
	FindMember(ctx context.Context, wallet string) (*models.Member, error)
}

// MembershipResolver 区分"存储的会员身份"与"当下的豁免资格"
// 会员身份写入后不变；NFT 豁免每次决策时实时查询。
type MembershipResolver struct {
	store     MemberStore
	holders   HolderChecker
	exemptNFT string
}

func NewMembershipResolver(store MemberStore, holders HolderChecker, exemptNFT string) *MembershipResolver {
	return &MembershipResolver{store: store, holders: holders, exemptNFT: exemptNFT}
}

// Resolve 返回钱包对应的会员，未注册时返回 nil
func (r *MembershipResolver) Resolve(ctx context.Context, wallet string) (*models.Member, error) {
	return r.store.FindMember(ctx, wallet)
}

// HoldsExemptNFT 钱包当前是否持有豁免 NFT，查询失败按未持有处理
func (r *MembershipResolver) HoldsExemptNFT(ctx context.Context, wallet string) bool {
	if r.holders == nil || r.exemptNFT == "" {
		return false
	}
	bal, err := r.holders.NFTBalance(ctx, r.exemptNFT, wallet)
	if err != nil {
		log.Printf("[membership] exemption check for %s failed: %v", wallet, err)
		return false
	}
	return bal.Sign() > 0
}

// Exempt 会员在阈值之后是否免单次付费
func (r *MembershipResolver) Exempt(ctx context.Context, m *models.Member) bool {
	if m == nil {
		return false
	}
	switch m.MembershipType {
	case models.MembershipEarlyAdopter, models.MembershipShirtBuyer:
		return true
	}
	return r.HoldsExemptNFT(ctx, m.WalletAddress)
}
