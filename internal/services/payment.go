package services

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"

	"agentfails/internal/chain"
	"agentfails/internal/utils"

	"github.com/ethereum/go-ethereum/common"
)

// VerificationStatus 付款校验的三态结果
type VerificationStatus string

const (
	Verified      VerificationStatus = "verified"
	Invalid       VerificationStatus = "invalid"
	Indeterminate VerificationStatus = "indeterminate" // 节点不可用等基础设施故障
)

// Verification 单次付款校验结果
type Verification struct {
	Status VerificationStatus
	Payer  string   // 小写付款地址，仅 Verified 时有值
	Amount *big.Int // 实际转账金额
	Reason string
}

func (v Verification) OK() bool {
	return v.Status == Verified
}

// PaymentVerifier 校验付款凭证
type PaymentVerifier interface {
	VerifyTransfer(ctx context.Context, proof string, minAmount *big.Int) Verification
}

// HolderChecker 查询钱包持有某 NFT 合约的数量
type HolderChecker interface {
	NFTBalance(ctx context.Context, collection, wallet string) (*big.Int, error)
}

// ChainReader 校验所需的链上只读接口
type ChainReader interface {
	GetTransactionReceipt(ctx context.Context, hash string) (*chain.TransactionReceipt, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// OnChainVerifier 通过 RPC 校验 USDC 转账与 NFT 持有
type OnChainVerifier struct {
	rpc       ChainReader
	token     common.Address
	collector common.Address
}

func NewOnChainVerifier(rpc ChainReader, tokenAddress, collector string) *OnChainVerifier {
	return &OnChainVerifier{
		rpc:       rpc,
		token:     common.HexToAddress(tokenAddress),
		collector: common.HexToAddress(collector),
	}
}

// VerifyTransfer 确认 proof 对应一笔已成功的 USDC 转账，收款方为收款地址且金额不少于 minAmount
func (v *OnChainVerifier) VerifyTransfer(ctx context.Context, proof string, minAmount *big.Int) Verification {
	hash := utils.NormalizeTxHash(proof)
	if hash == "" {
		return Verification{Status: Invalid, Reason: "malformed transaction hash"}
	}

	receipt, err := v.rpc.GetTransactionReceipt(ctx, hash)
	if err != nil {
		log.Printf("[payment] receipt lookup for %s failed: %v", hash, err)
		return Verification{Status: Indeterminate, Reason: "could not reach the chain node, try again"}
	}
	if receipt == nil {
		return Verification{Status: Invalid, Reason: "transaction not found or not yet confirmed"}
	}
	if !receipt.Succeeded() {
		return Verification{Status: Invalid, Reason: "transaction reverted"}
	}

	var best *chain.Transfer
	for _, l := range receipt.Logs {
		tr, ok := chain.ParseTransfer(l)
		if !ok || tr.Token != v.token || tr.To != v.collector {
			continue
		}
		if best == nil || tr.Value.Cmp(best.Value) > 0 {
			best = tr
		}
	}
	if best == nil {
		return Verification{Status: Invalid, Reason: "no USDC transfer to the payment collector in this transaction"}
	}
	if best.Value.Cmp(minAmount) < 0 {
		return Verification{
			Status: Invalid,
			Amount: best.Value,
			Reason: fmt.Sprintf("transfer of %s is below the required %s", FormatUSDC(best.Value), FormatUSDC(minAmount)),
		}
	}

	return Verification{
		Status: Verified,
		Payer:  strings.ToLower(best.From.Hex()),
		Amount: best.Value,
	}
}

// NFTBalance 查询 wallet 在 collection 合约下的持有数量
func (v *OnChainVerifier) NFTBalance(ctx context.Context, collection, wallet string) (*big.Int, error) {
	return v.rpc.BalanceOf(ctx, common.HexToAddress(collection), common.HexToAddress(wallet))
}

var usdcUnit = big.NewInt(1_000_000)

// FormatUSDC 把 6 位小数的最小单位格式化为 "0.10" 这类两位小数字符串
func FormatUSDC(amount *big.Int) string {
	if amount == nil {
		return "0.00"
	}
	whole, frac := new(big.Int).QuoRem(amount, usdcUnit, new(big.Int))
	cents := new(big.Int).Quo(frac, big.NewInt(10_000))
	return fmt.Sprintf("%s.%02d", whole.String(), cents.Int64())
}
